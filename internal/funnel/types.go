package funnel

import (
	"fmt"
	"net/url"
	"strings"
)

// InputKind declares how a step's answer is collected and validated.
type InputKind string

const (
	KindShortText InputKind = "short-text"
	KindLongText  InputKind = "long-text"
	KindNumeric   InputKind = "numeric"
	KindEmail     InputKind = "email"
)

// Valid reports whether k is one of the known kinds.
func (k InputKind) Valid() bool {
	switch k {
	case KindShortText, KindLongText, KindNumeric, KindEmail:
		return true
	}
	return false
}

// Step is one question in the wizard. Key doubles as the answer map key and
// the pre-mapping outbound field name.
type Step struct {
	Key         string    `yaml:"key" json:"key"`
	Prompt      string    `yaml:"prompt" json:"prompt"`
	Placeholder string    `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Kind        InputKind `yaml:"kind" json:"kind"`
}

// AnswerMap holds one value per declared step key.
type AnswerMap map[string]string

// NewAnswerMap returns an answer map with an empty entry for every step.
func NewAnswerMap(steps []Step) AnswerMap {
	answers := make(AnswerMap, len(steps))
	for _, step := range steps {
		answers[step.Key] = ""
	}
	return answers
}

// Clone returns an independent copy.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// FieldMapping translates step keys to the receiving service's field names.
type FieldMapping map[string]string

// Target returns the outbound field name for a step key.
func (m FieldMapping) Target(stepKey string) (string, bool) {
	name, ok := m[stepKey]
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// Translate renames every answer to its outbound field. An answer without a
// mapping fails the whole translation so no value is silently dropped.
func (m FieldMapping) Translate(answers AnswerMap) (url.Values, error) {
	form := make(url.Values, len(answers))
	for key, value := range answers {
		target, ok := m.Target(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnmappedField, key)
		}
		if _, taken := form[target]; taken {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, target)
		}
		form.Set(target, value)
	}
	return form, nil
}
