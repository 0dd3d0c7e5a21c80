// Package validate checks raw backup manifests against the vendor
// contracts in the schema registry. Validation is pure: it never
// touches stores, collectors, or the clock.
package validate

import (
	"fmt"

	"bakmon/internal/manifest"
	"bakmon/internal/schema"
)

// Code is a machine-readable violation category.
type Code string

const (
	CodeUnknownField        Code = "UnknownField"
	CodeMissingField        Code = "MissingField"
	CodeMalformedDocument   Code = "MalformedDocument"
	CodeUnknownVendor       Code = "UnknownVendor"
	CodeCardinalityMismatch Code = "CardinalityMismatch"
	CodeUnknownKind         Code = "UnknownKind"
	CodePathPatternMismatch Code = "PathPatternMismatch"
	CodeInvalidTimestamp    Code = "InvalidTimestamp"
	CodeOrderingViolation   Code = "OrderingViolation"
)

// Violation is one rejected check, carrying the offending field path.
type Violation struct {
	Code   Code   `json:"code"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of validating one raw manifest. Manifest is
// non-nil exactly when the document was accepted.
type Result struct {
	Manifest   *manifest.Manifest `json:"manifest,omitempty"`
	Violations []Violation        `json:"violations,omitempty"`
}

// Accepted reports whether the manifest passed all checks.
func (r Result) Accepted() bool { return len(r.Violations) == 0 }

// Validate runs the check categories in order, short-circuiting on the
// first failing category while collecting every violation within it:
// document shape, vendor contract lookup, entry cardinality, per-entry
// checks, and finally the vendor's ordering policy.
func Validate(raw []byte, reg *schema.Registry) Result {
	m, issues := manifest.DecodeStrict(raw)
	if len(issues) > 0 {
		return Result{Violations: shapeViolations(issues)}
	}

	contract, err := reg.Contract(m.Vendor)
	if err != nil {
		return Result{Violations: []Violation{{
			Code:   CodeUnknownVendor,
			Field:  "vendor",
			Detail: err.Error(),
		}}}
	}

	if len(m.Entries) != contract.EntryCount() {
		return Result{Violations: []Violation{{
			Code:   CodeCardinalityMismatch,
			Field:  "backup_list",
			Detail: fmt.Sprintf("expected exactly %d entries, got %d", contract.EntryCount(), len(m.Entries)),
		}}}
	}

	if violations := checkEntries(m, contract); len(violations) > 0 {
		return Result{Violations: violations}
	}

	if violations := checkOrdering(m, contract); len(violations) > 0 {
		return Result{Violations: violations}
	}

	return Result{Manifest: m}
}

func shapeViolations(issues []manifest.Issue) []Violation {
	violations := make([]Violation, 0, len(issues))
	for _, issue := range issues {
		v := Violation{Field: issue.Field, Detail: issue.Detail}
		switch issue.Reason {
		case manifest.IssueUnknownField:
			v.Code = CodeUnknownField
		case manifest.IssueMissingField:
			v.Code = CodeMissingField
		default:
			v.Code = CodeMalformedDocument
		}
		violations = append(violations, v)
	}
	return violations
}

func checkEntries(m *manifest.Manifest, contract *schema.Contract) []Violation {
	var violations []Violation
	for i, e := range m.Entries {
		field := fmt.Sprintf("backup_list[%d]", i)

		if !contract.AllowsKind(e.Kind) {
			violations = append(violations, Violation{
				Code:   CodeUnknownKind,
				Field:  field + ".type",
				Detail: fmt.Sprintf("kind %q is not allowed for vendor %s", e.Kind, contract.Vendor()),
			})
		} else if !contract.PathPattern(e.Kind).MatchString(e.Path) {
			violations = append(violations, Violation{
				Code:   CodePathPatternMismatch,
				Field:  field + ".backup_file",
				Detail: fmt.Sprintf("path %q does not match the %s pattern for kind %q", e.Path, contract.Vendor(), e.Kind),
			})
		}

		if _, err := e.Time(); err != nil {
			violations = append(violations, Violation{
				Code:   CodeInvalidTimestamp,
				Field:  field + ".date",
				Detail: fmt.Sprintf("cannot parse %q as a date-time", e.Date),
			})
		}
	}
	return violations
}

func checkOrdering(m *manifest.Manifest, contract *schema.Contract) []Violation {
	kinds := contract.Kinds()

	if contract.Ordering() == schema.OrderPositional {
		var violations []Violation
		for i, e := range m.Entries {
			if e.Kind != kinds[i] {
				violations = append(violations, Violation{
					Code:   CodeOrderingViolation,
					Field:  fmt.Sprintf("backup_list[%d].type", i),
					Detail: fmt.Sprintf("position %d must be kind %q, got %q", i, kinds[i], e.Kind),
				})
			}
		}
		return violations
	}

	// Set policy: every required kind exactly once, any order.
	seen := make(map[string]int, len(kinds))
	for _, e := range m.Entries {
		seen[e.Kind]++
	}
	var violations []Violation
	for _, kind := range kinds {
		switch n := seen[kind]; {
		case n == 0:
			violations = append(violations, Violation{
				Code:   CodeOrderingViolation,
				Field:  "backup_list",
				Detail: fmt.Sprintf("required kind %q is missing", kind),
			})
		case n > 1:
			violations = append(violations, Violation{
				Code:   CodeOrderingViolation,
				Field:  "backup_list",
				Detail: fmt.Sprintf("kind %q appears %d times, expected once", kind, n),
			})
		}
	}
	return violations
}
