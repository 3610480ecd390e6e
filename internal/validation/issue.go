// Package validation holds the vocabulary shared by every validation layer:
// field-addressed issues, the aggregated Result, and the error taxonomy
// surfaced to callers when a scene spec is rejected.
package validation

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Severity distinguishes blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code is a stable, machine-readable classification of an issue.
type Code string

const (
	CodeType            Code = "type"
	CodeRequired        Code = "required"
	CodeFormat          Code = "format"
	CodeMismatch        Code = "mismatch"
	CodeEnum            Code = "enum"
	CodeRange           Code = "range"
	CodeMinimum         Code = "minimum"
	CodeMinItems        Code = "minItems"
	CodeASCII           Code = "ascii"
	CodeUnique          Code = "unique"
	CodeReference       Code = "reference"
	CodeCrossConstraint Code = "cross_constraint"
	CodeTraversability  Code = "traversability"

	CodeWarning         Code = "warning"
	CodeHint            Code = "hint"
	CodeUnknownProperty Code = "unknown_property"
)

// Kind places an issue in the error taxonomy.
type Kind string

const (
	KindStructural      Kind = "structural"
	KindDomainRule      Kind = "domain_rule"
	KindTraversability  Kind = "traversability"
	KindVersionMismatch Kind = "version_mismatch"
)

// Issue is a single finding addressed by a JSON-path-like field path such
// as "$.objects[3].id".
type Issue struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	ObjectID string   `json:"object_id,omitempty"`
}

// String renders the issue the way it appears in aggregated error messages.
func (i Issue) String() string {
	if i.ObjectID != "" {
		return fmt.Sprintf("%s: %s [object %s] (%s)", i.Path, i.Message, i.ObjectID, i.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Path, i.Message, i.Code)
}

// FormatPath renders a cty.Path rooted at the document as "$.a.b[2].c".
func FormatPath(path cty.Path) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, step := range path {
		switch s := step.(type) {
		case cty.GetAttrStep:
			sb.WriteString(".")
			sb.WriteString(s.Name)
		case cty.IndexStep:
			switch {
			case s.Key.Type() == cty.Number:
				idx, _ := s.Key.AsBigFloat().Int(new(big.Int))
				fmt.Fprintf(&sb, "[%s]", idx.String())
			case s.Key.Type() == cty.String:
				fmt.Fprintf(&sb, "[%q]", s.Key.AsString())
			default:
				sb.WriteString("[?]")
			}
		}
	}
	return sb.String()
}
