// Package rules holds the domain rule validator: cross-field semantic checks
// that apply only to a particular scene domain. Rules run after structural
// validation has passed, so they work on the typed model.
package rules

import (
	"sync"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/validation"
)

// Rule inspects a structurally valid spec and reports violations into res.
type Rule interface {
	Name() string
	Check(s *spec.SceneSpec, res *validation.Result)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(s *spec.SceneSpec, res *validation.Result)
}

func (f RuleFunc) Name() string { return f.RuleName }

func (f RuleFunc) Check(s *spec.SceneSpec, res *validation.Result) { f.Fn(s, res) }

// Registry maps each domain to its ordered rule set.
type Registry struct {
	mu    sync.RWMutex
	rules map[spec.Domain][]Rule
}

// New creates an empty Registry. Every known domain starts with no rules.
func New() *Registry {
	r := &Registry{rules: make(map[spec.Domain][]Rule)}
	for _, d := range spec.Domains {
		r.rules[d] = nil
	}
	return r
}

// Default returns a registry populated with the built-in rule sets.
func Default() *Registry {
	r := New()
	RegisterDungeonRules(r)
	return r
}

// Register appends a rule to a domain's set.
func (r *Registry) Register(domain spec.Domain, rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[domain] = append(r.rules[domain], rule)
}

// Rules returns a copy of the rule set for a domain.
func (r *Registry) Rules(domain spec.Domain) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules[domain]...)
}

// Validate runs every rule of the spec's domain. All rules run; the result
// aggregates their findings.
func (r *Registry) Validate(s *spec.SceneSpec) validation.Result {
	var res validation.Result
	for _, rule := range r.Rules(s.Domain) {
		rule.Check(s, &res)
	}
	return res
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Validate runs the built-in rules for the spec's domain.
func Validate(s *spec.SceneSpec) validation.Result {
	defaultOnce.Do(func() { defaultRegistry = Default() })
	return defaultRegistry.Validate(s)
}
