// Package states maps U.S. state codes to their statutory rule factories.
// Adding a state is purely additive: one registry row and one factory.
package states

import (
	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

// californiaRequirements lists the statutory items checked for CA.
var californiaRequirements = []string{
	"Transfer Disclosure Statement (TDS)",
	"Natural Hazard Disclosure (NHD)",
	"Mello-Roos district disclosure",
	"Earthquake hazards report",
	"Smoke and carbon monoxide detector compliance",
}

// CaliforniaRules builds the CA rule set.
func CaliforniaRules() []rules.Rule {
	return []rules.Rule{
		rules.NewFuncRule(
			rules.NewBaseRule("CA_TDS", "CA Transfer Disclosure Statement",
				"California requires a Transfer Disclosure Statement",
				rules.CategoryStateSpecific, domain.SeverityCritical),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("transfer disclosure") || ctx.HasProvidedDisclosure("tds") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Transfer Disclosure Statement (TDS) has not been provided", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("CA_NHD", "CA Natural Hazard Disclosure",
				"California requires a Natural Hazard Disclosure",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("natural hazard") || ctx.HasProvidedDisclosure("nhd") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Natural Hazard Disclosure (NHD) has not been provided", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("CA_MELLO_ROOS", "CA Mello-Roos Disclosure",
				"Mello-Roos special tax districts must be disclosed",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("mello-roos", "mello roos") {
					return r.Pass()
				}
				if ctx.HasProvidedDisclosure("mello") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NOT_DISCLOSED",
					"Property references a Mello-Roos district without a disclosure", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("CA_EARTHQUAKE", "CA Earthquake Hazards",
				"Earthquake hazard zones require the hazards report",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.Contains("earthquake") {
					return r.Pass()
				}
				if ctx.HasProvidedDisclosure("earthquake") || ctx.Contains("earthquake hazards report") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_REPORT",
					"Earthquake hazard is referenced without the hazards report", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("CA_DETECTORS", "CA Detector Compliance",
				"Smoke and carbon monoxide detector compliance must be confirmed",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("smoke detector", "carbon monoxide") {
					return r.Pass()
				}
				if ctx.ContainsAny("compliant", "compliance") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NOT_CONFIRMED",
					"Detector compliance is referenced but not confirmed", r.SeverityFor(ctx.State)))
			}),
	}
}
