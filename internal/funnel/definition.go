package funnel

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed definition.yaml
var defaultDefinition []byte

// Confirmation is the copy shown once a submission has been initiated.
type Confirmation struct {
	Title   string `yaml:"title" json:"title"`
	Message string `yaml:"message" json:"message"`
}

// Definition is the complete, immutable funnel configuration.
type Definition struct {
	Steps        []Step       `yaml:"steps"`
	Mapping      FieldMapping `yaml:"mapping"`
	Confirmation Confirmation `yaml:"confirmation"`
	RetryMessage string       `yaml:"retry_message"`
}

// DefaultDefinition returns the embedded canonical definition.
func DefaultDefinition() (*Definition, error) {
	return ParseDefinition(defaultDefinition)
}

// LoadDefinition reads a definition file, or the embedded default when path
// is empty.
func LoadDefinition(path string) (*Definition, error) {
	if path == "" {
		return DefaultDefinition()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("funnel: read definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition decodes and validates a YAML definition.
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("funnel: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks that steps are unique and well-typed and that the mapping
// covers exactly the declared steps with distinct targets.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return ErrNoSteps
	}
	seen := make(map[string]struct{}, len(d.Steps))
	targets := make(map[string]string, len(d.Steps))
	for _, step := range d.Steps {
		if step.Key == "" {
			return fmt.Errorf("funnel: step with empty key")
		}
		if _, dup := seen[step.Key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateStep, step.Key)
		}
		seen[step.Key] = struct{}{}
		if !step.Kind.Valid() {
			return fmt.Errorf("%w: %q on step %q", ErrInvalidKind, step.Kind, step.Key)
		}
		target, ok := d.Mapping.Target(step.Key)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnmappedField, step.Key)
		}
		if prev, taken := targets[target]; taken {
			return fmt.Errorf("%w: %q (steps %q and %q)", ErrDuplicateTarget, target, prev, step.Key)
		}
		targets[target] = step.Key
	}
	for key := range d.Mapping {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("funnel: mapping names unknown step %q", key)
		}
	}
	return nil
}

// StepCount returns the number of declared steps.
func (d *Definition) StepCount() int {
	return len(d.Steps)
}
