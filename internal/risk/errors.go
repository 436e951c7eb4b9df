package risk

import "fmt"

// ValidationError marks a caller-fixable input violation. It is returned
// synchronously by every validating entry point, before any simulation work
// starts, so callers can branch on the violated constraint.
type ValidationError struct {
	Field      string // dotted path to the offending field, e.g. "risks[2].baseline_impact"
	Constraint string // short machine-readable constraint name, e.g. "ordering", "positive"
	Message    string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult is the non-raising counterpart to a validation error,
// used for pre-checks where callers want the full error list instead of the
// first failure.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Add records a failed check.
func (v *ValidationResult) Add(msg string) {
	v.Valid = false
	v.Errors = append(v.Errors, msg)
}

// Warn records an advisory finding without failing the result.
func (v *ValidationResult) Warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// NewValidationResult starts from a passing state.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}
