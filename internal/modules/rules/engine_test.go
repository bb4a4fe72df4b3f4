package rules

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/domain"
)

func passingRule(id string) Rule {
	return NewFuncRule(
		NewBaseRule(id, id, "", CategoryContingency, domain.SeverityLow),
		func(r *FuncRule, ctx *Context) Result { return r.Pass() })
}

func failingRule(id string, severity domain.Severity) Rule {
	return NewFuncRule(
		NewBaseRule(id, id, "", CategoryContingency, severity),
		func(r *FuncRule, ctx *Context) Result {
			return r.Fail(r.Flag("FAILED", "always fails", severity))
		})
}

func emptyContext() *Context {
	return NewContext(&domain.Contract{})
}

func TestEngine_EvaluationOrder(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll([]Rule{passingRule("A"), failingRule("B", domain.SeverityHigh), passingRule("C")})

	results := engine.Evaluate(emptyContext())

	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].RuleID)
	assert.Equal(t, "B", results[1].RuleID)
	assert.Equal(t, "C", results[2].RuleID)
}

func TestEngine_PassedMatchesFlags(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll([]Rule{passingRule("A"), failingRule("B", domain.SeverityMedium)})

	for _, res := range engine.Evaluate(emptyContext()) {
		assert.Equal(t, len(res.Flags) == 0, res.Passed)
	}
}

func TestEngine_PanicRecovery(t *testing.T) {
	panicking := NewFuncRule(
		NewBaseRule("BOOM", "Panicking Rule", "", CategoryLegal, domain.SeverityLow),
		func(r *FuncRule, ctx *Context) Result { panic("boom") })

	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll([]Rule{passingRule("A"), panicking, passingRule("C")})

	results := engine.Evaluate(emptyContext())

	require.Len(t, results, 3)
	assert.False(t, results[1].Passed)
	require.Len(t, results[1].Flags, 1)
	assert.Equal(t, "BOOM_ERROR", results[1].Flags[0].Code)
	assert.Equal(t, domain.SeverityLow, results[1].Flags[0].Severity)
	assert.True(t, results[2].Passed)
}

func TestEngine_DisabledRuleSkipped(t *testing.T) {
	r := failingRule("OFF", domain.SeverityHigh)
	r.Configure(Config{Enabled: false})

	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll([]Rule{r, passingRule("ON")})

	results := engine.Evaluate(emptyContext())

	require.Len(t, results, 1)
	assert.Equal(t, "ON", results[0].RuleID)
}

func TestEngine_StateOverrideEnables(t *testing.T) {
	r := failingRule("STATE_ONLY", domain.SeverityHigh)
	enabled := true
	r.Configure(Config{Enabled: false, StateOverrides: map[string]StateOverride{
		"CA": {Enabled: &enabled},
	}})

	engine := NewEngine(zerolog.Nop())
	engine.Register(r)

	assert.Empty(t, engine.Evaluate(NewContext(&domain.Contract{State: "TX"})))
	assert.Len(t, engine.Evaluate(NewContext(&domain.Contract{State: "CA"})), 1)
}

func TestEngine_EvaluateCategory(t *testing.T) {
	legal := NewFuncRule(
		NewBaseRule("LEGAL", "Legal", "", CategoryLegal, domain.SeverityLow),
		func(r *FuncRule, ctx *Context) Result { return r.Pass() })

	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll([]Rule{passingRule("A"), legal})

	results := engine.EvaluateCategory(emptyContext(), CategoryLegal)

	require.Len(t, results, 1)
	assert.Equal(t, "LEGAL", results[0].RuleID)
}

func TestAggregateFlags(t *testing.T) {
	results := []Result{
		{Flags: []domain.RiskFlag{{Code: "A_X"}, {Code: "A_Y"}}},
		{Passed: true},
		{Flags: []domain.RiskFlag{{Code: "B_Z"}}},
	}

	flags := AggregateFlags(results)

	require.Len(t, flags, 3)
	assert.Equal(t, "A_X", flags[0].Code)
	assert.Equal(t, "B_Z", flags[2].Code)
}

func TestPassRate(t *testing.T) {
	assert.Equal(t, 100.0, PassRate(nil))
	assert.Equal(t, 50.0, PassRate([]Result{{Passed: true}, {Passed: false}}))
	assert.Equal(t, 100.0, PassRate([]Result{{Passed: true}}))
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Passed: true},
		{Flags: []domain.RiskFlag{{Code: "X", Severity: domain.SeverityCritical}, {Code: "Y", Severity: domain.SeverityLow}}},
	}

	s := Summarize(results)

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 50.0, s.PassRate)
	assert.Equal(t, 1, s.FlagsBySeverity[domain.SeverityCritical])
	assert.Equal(t, 1, s.FlagsBySeverity[domain.SeverityLow])
}
