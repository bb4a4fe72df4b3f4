package rules

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/rs/zerolog"
)

// Engine holds a registered collection of rules and evaluates them against a
// context. Evaluation order follows registration order and is never
// parallelized: the ordering of results is observable by callers.
//
// An engine instance is built per call context; callers may evaluate
// multiple contracts concurrently with separate engines.
type Engine struct {
	rules []Rule
	log   zerolog.Logger
}

// NewEngine creates an empty rule engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "rule_engine").Logger(),
	}
}

// Register adds a rule to the engine.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// RegisterAll adds rules in order.
func (e *Engine) RegisterAll(rules []Rule) {
	e.rules = append(e.rules, rules...)
}

// Rules returns the registered rules in registration order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// RulesByCategory returns registered rules of one category, order preserved.
func (e *Engine) RulesByCategory(category Category) []Rule {
	var out []Rule
	for _, r := range e.rules {
		if r.Category() == category {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate runs every enabled rule against the context. A rule that panics
// is surfaced as a failing result with a single low-severity
// {RULE_ID}_ERROR flag; the remaining rules continue.
func (e *Engine) Evaluate(ctx *Context) []Result {
	results := make([]Result, 0, len(e.rules))
	for _, rule := range e.rules {
		if !rule.IsEnabled(ctx.State) {
			continue
		}
		results = append(results, e.evaluateOne(rule, ctx))
	}
	return results
}

// EvaluateCategory runs enabled rules of a single category.
func (e *Engine) EvaluateCategory(ctx *Context, category Category) []Result {
	var results []Result
	for _, rule := range e.rules {
		if rule.Category() != category || !rule.IsEnabled(ctx.State) {
			continue
		}
		results = append(results, e.evaluateOne(rule, ctx))
	}
	return results
}

func (e *Engine) evaluateOne(rule Rule, ctx *Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("rule", rule.ID()).
				Interface("panic", r).
				Msg("Rule evaluation panicked")
			result = Result{
				RuleID:   rule.ID(),
				RuleName: rule.Name(),
				Passed:   false,
				Flags: []domain.RiskFlag{{
					Code:        fmt.Sprintf("%s_ERROR", rule.ID()),
					Description: fmt.Sprintf("Rule %s failed to evaluate", rule.Name()),
					Severity:    domain.SeverityLow,
				}},
			}
		}
	}()

	return rule.Evaluate(ctx)
}

// AggregateFlags flattens per-rule flag lists preserving order.
func AggregateFlags(results []Result) []domain.RiskFlag {
	var flags []domain.RiskFlag
	for _, res := range results {
		flags = append(flags, res.Flags...)
	}
	return flags
}

// PassRate returns the percentage of passing results in [0,100].
// An empty result set counts as 100.
func PassRate(results []Result) float64 {
	if len(results) == 0 {
		return 100
	}
	passed := 0
	for _, res := range results {
		if res.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(results)) * 100
}

// Summary aggregates evaluation statistics.
type Summary struct {
	Total           int                     `json:"total"`
	Passed          int                     `json:"passed"`
	Failed          int                     `json:"failed"`
	PassRate        float64                 `json:"pass_rate"`
	FlagsBySeverity map[domain.Severity]int `json:"flags_by_severity"`
}

// Summarize computes summary statistics over a result set.
func Summarize(results []Result) Summary {
	s := Summary{
		Total:           len(results),
		FlagsBySeverity: make(map[domain.Severity]int),
	}
	for _, res := range results {
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		for _, f := range res.Flags {
			s.FlagsBySeverity[f.Severity]++
		}
	}
	s.PassRate = PassRate(results)
	return s
}
