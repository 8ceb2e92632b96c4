// Package funnel holds the canonical description of the waitlist funnel: the
// ordered qualification steps, the per-kind acceptance rules, the mapping from
// step keys to the receiving list's form fields, and the outcome reported by a
// submission attempt.
//
// A Definition is data. Pointing the funnel at a different list or reordering
// the questions is an edit to the YAML definition, not a code change.
package funnel
