package validation

import (
	"errors"
	"strings"
)

// Result aggregates every issue found by one or more validation passes.
// Validation never stops at the first problem.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the result carries no blocking errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Add appends an issue to the list matching its severity.
func (r *Result) Add(issue Issue) {
	if issue.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, issue)
		return
	}
	issue.Severity = SeverityError
	r.Errors = append(r.Errors, issue)
}

// Errorf records a blocking error.
func (r *Result) Errorf(kind Kind, path string, code Code, msg string) {
	r.Add(Issue{Path: path, Message: msg, Code: code, Severity: SeverityError, Kind: kind})
}

// Warnf records a non-blocking warning.
func (r *Result) Warnf(path string, code Code, msg string) {
	r.Add(Issue{Path: path, Message: msg, Code: code, Severity: SeverityWarning, Kind: KindStructural})
}

// Merge appends all issues from other.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Err returns a *Error describing the result, or nil when it is OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Issues: append([]Issue(nil), r.Errors...)}
}

// Sentinels for errors.Is against a rejected spec.
var (
	ErrStructural      = errors.New("structural validation error")
	ErrDomainRule      = errors.New("domain rule violation")
	ErrTraversability  = errors.New("traversability failure")
	ErrVersionMismatch = errors.New("version mismatch")
)

var kindSentinels = map[Kind]error{
	KindStructural:      ErrStructural,
	KindDomainRule:      ErrDomainRule,
	KindTraversability:  ErrTraversability,
	KindVersionMismatch: ErrVersionMismatch,
}

// Error is returned when a spec fails validation. It always carries the
// complete list of blocking issues.
type Error struct {
	Issues []Issue
}

// Error implements the error interface.
func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Issues)+1)
	lines = append(lines, "scene spec validation failed:")
	for _, issue := range e.Issues {
		lines = append(lines, "- "+issue.String())
	}
	return strings.Join(lines, "\n")
}

// Is matches the sentinel of every kind present in the issue list.
func (e *Error) Is(target error) bool {
	for _, issue := range e.Issues {
		if kindSentinels[issue.Kind] == target {
			return true
		}
	}
	return false
}

// Kinds returns the distinct kinds present, in first-seen order.
func (e *Error) Kinds() []Kind {
	seen := make(map[Kind]struct{})
	var out []Kind
	for _, issue := range e.Issues {
		if _, ok := seen[issue.Kind]; ok {
			continue
		}
		seen[issue.Kind] = struct{}{}
		out = append(out, issue.Kind)
	}
	return out
}
