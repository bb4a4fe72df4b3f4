package states

import (
	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

var floridaRequirements = []string{
	"Seller's property disclosure",
	"Flood zone disclosure",
	"HOA/condominium disclosure",
	"Radon gas notice",
	"Energy efficiency brochure",
	"Windstorm mitigation disclosure",
}

// FloridaRules builds the FL rule set.
func FloridaRules() []rules.Rule {
	return []rules.Rule{
		rules.NewFuncRule(
			rules.NewBaseRule("FL_SELLER_DISCLOSURE", "FL Seller's Property Disclosure",
				"Florida sellers must disclose known material defects",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("property disclosure") || ctx.HasProvidedDisclosure("seller's disclosure") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Seller's property disclosure has not been provided", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("FL_FLOOD_ZONE", "FL Flood Zone",
				"Flood zone status must be disclosed and insurability addressed",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("flood") || ctx.ContainsAny("flood zone", "flood disclosure", "flood insurance") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NOT_DISCLOSED",
					"Flood zone status is not disclosed", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("FL_HOA", "FL HOA/Condo Disclosure",
				"Association governance documents and fees must be disclosed",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("homeowners association", "homeowner's association", "hoa", "condominium", "condo association") {
					return r.Pass()
				}
				if ctx.HasProvidedDisclosure("hoa") || ctx.HasProvidedDisclosure("association") || ctx.HasProvidedDisclosure("condominium") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NOT_DISCLOSED",
					"Association membership is referenced without the association disclosure", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("FL_RADON", "FL Radon Notice",
				"Florida contracts must carry the statutory radon gas notice",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.Contains("radon") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_NOTICE",
					"Contract does not carry the statutory radon gas notice", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("FL_ENERGY", "FL Energy Efficiency Brochure",
				"Buyers must receive the energy efficiency rating brochure",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.ContainsAny("energy efficiency", "energy rating") || ctx.HasProvidedDisclosure("energy") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_BROCHURE",
					"Energy efficiency rating brochure is not referenced", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("FL_WIND", "FL Windstorm Mitigation",
				"Coastal properties should address windstorm insurance and mitigation",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("coastal", "windstorm", "hurricane") {
					return r.Pass()
				}
				if ctx.ContainsAny("windstorm insurance", "wind mitigation", "windstorm mitigation") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_MITIGATION",
					"Windstorm exposure is referenced without insurance or mitigation terms", r.SeverityFor(ctx.State)))
			}),
	}
}
