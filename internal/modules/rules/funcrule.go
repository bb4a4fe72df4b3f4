package rules

// FuncRule is a rule defined by a function pointer rather than a dedicated
// type. State-specific rules use it: they are numerous, small, and share no
// state beyond their config.
type FuncRule struct {
	BaseRule
	Eval func(r *FuncRule, ctx *Context) Result
}

// NewFuncRule builds a function-backed rule.
func NewFuncRule(base BaseRule, eval func(r *FuncRule, ctx *Context) Result) *FuncRule {
	return &FuncRule{BaseRule: base, Eval: eval}
}

// Evaluate implements Rule.
func (r *FuncRule) Evaluate(ctx *Context) Result {
	return r.Eval(r, ctx)
}
