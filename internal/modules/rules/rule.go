// Package rules provides the deterministic rule engine that evaluates
// purchase contracts and produces coded, severity-tagged risk flags.
//
// Rules are pure functions of a Context: no I/O, no wall clock (except the
// disclosure-age rule, which receives "now" through the context), and
// deterministic modulo their input. Each rule carries a mutable config with
// an enabled switch, a default severity, numeric thresholds and per-state
// overrides.
package rules

import (
	"fmt"
	"strings"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Category groups rules by the contract concern they evaluate.
type Category string

const (
	CategoryContingency   Category = "contingency"
	CategoryDisclosure    Category = "disclosure"
	CategoryFinancing     Category = "financing"
	CategoryInspection    Category = "inspection"
	CategoryEarnestMoney  Category = "earnest_money"
	CategoryUnusualClause Category = "unusual_clause"
	CategoryTimeline      Category = "timeline"
	CategoryLegal         Category = "legal"
	CategoryStateSpecific Category = "state_specific"
)

// StateOverride adjusts a rule's behavior for one state.
// A nil Enabled means "inherit"; an empty Severity means "inherit".
type StateOverride struct {
	Enabled  *bool
	Severity domain.Severity
}

// Config carries the mutable configuration of a rule.
type Config struct {
	Enabled          bool
	Severity         domain.Severity
	CustomThresholds map[string]float64
	StateOverrides   map[string]StateOverride
}

// Rule is the capability set every rule implements.
type Rule interface {
	ID() string
	Name() string
	Description() string
	Category() Category
	// Evaluate runs the rule against a context. Passed ⇔ no flags.
	Evaluate(ctx *Context) Result
	// IsEnabled reports whether the rule participates for the given state.
	IsEnabled(state string) bool
	// SeverityFor returns the effective default severity (state overrides win).
	SeverityFor(state string) domain.Severity
	// Configure replaces the rule's config.
	Configure(cfg Config)
}

// Result is the outcome of evaluating a single rule.
type Result struct {
	RuleID      string            `json:"rule_id"`
	RuleName    string            `json:"rule_name"`
	Passed      bool              `json:"passed"`
	Flags       []domain.RiskFlag `json:"flags"`
	Details     string            `json:"details,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// BaseRule provides identity, config handling and the flag factory shared by
// all concrete rules. Concrete rules embed it and implement Evaluate.
type BaseRule struct {
	id          string
	name        string
	description string
	category    Category
	config      Config
}

// NewBaseRule constructs the shared rule core with an enabled config and the
// given default severity.
func NewBaseRule(id, name, description string, category Category, severity domain.Severity) BaseRule {
	return BaseRule{
		id:          id,
		name:        name,
		description: description,
		category:    category,
		config: Config{
			Enabled:  true,
			Severity: severity,
		},
	}
}

// ID returns the stable rule identifier.
func (b *BaseRule) ID() string { return b.id }

// Name returns the human-readable rule name.
func (b *BaseRule) Name() string { return b.name }

// Description returns the rule description.
func (b *BaseRule) Description() string { return b.description }

// Category returns the rule category.
func (b *BaseRule) Category() Category { return b.category }

// Configure replaces the rule configuration.
func (b *BaseRule) Configure(cfg Config) {
	// Preserve the built-in default severity when the caller leaves it empty.
	if cfg.Severity == "" {
		cfg.Severity = b.config.Severity
	}
	b.config = cfg
}

// IsEnabled reports whether the rule participates for the given state.
// A per-state override wins over the global enabled switch.
func (b *BaseRule) IsEnabled(state string) bool {
	if ov, ok := b.config.StateOverrides[strings.ToUpper(state)]; ok && ov.Enabled != nil {
		return *ov.Enabled
	}
	return b.config.Enabled
}

// SeverityFor returns the effective default severity for the given state.
func (b *BaseRule) SeverityFor(state string) domain.Severity {
	if ov, ok := b.config.StateOverrides[strings.ToUpper(state)]; ok && ov.Severity != "" {
		return ov.Severity
	}
	return b.config.Severity
}

// Threshold returns a numeric threshold from the config, falling back to the
// rule's built-in default when absent.
func (b *BaseRule) Threshold(name string, def float64) float64 {
	if v, ok := b.config.CustomThresholds[name]; ok {
		return v
	}
	return def
}

// Flag builds a risk flag whose code is namespaced as {RULE_ID}_{LOCAL_CODE}.
func (b *BaseRule) Flag(localCode, description string, severity domain.Severity) domain.RiskFlag {
	return domain.RiskFlag{
		Code:        fmt.Sprintf("%s_%s", b.id, localCode),
		Description: description,
		Severity:    severity,
	}
}

// Pass returns a passing result for this rule.
func (b *BaseRule) Pass() Result {
	return Result{RuleID: b.id, RuleName: b.name, Passed: true}
}

// Fail returns a failing result carrying the given flags.
// Passed ⇔ flags == ∅ holds by construction.
func (b *BaseRule) Fail(flags ...domain.RiskFlag) Result {
	return Result{RuleID: b.id, RuleName: b.name, Passed: len(flags) == 0, Flags: flags}
}

// ResultFrom returns a passing result when no flags were collected and a
// failing one otherwise. Useful for rules that accumulate flags.
func (b *BaseRule) ResultFrom(flags []domain.RiskFlag) Result {
	if len(flags) == 0 {
		return b.Pass()
	}
	return b.Fail(flags...)
}
