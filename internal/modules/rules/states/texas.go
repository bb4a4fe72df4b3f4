package states

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

var texasRequirements = []string{
	"Seller's Disclosure Notice",
	"Option period and option fee",
	"MUD/PID district notice",
	"HOA membership disclosure",
	"Survey or T-47 affidavit",
	"Title policy commitment",
}

// TexasRules builds the TX rule set.
func TexasRules() []rules.Rule {
	return []rules.Rule{
		rules.NewFuncRule(
			rules.NewBaseRule("TX_SELLER_DISCLOSURE", "TX Seller's Disclosure Notice",
				"Texas requires a Seller's Disclosure Notice",
				rules.CategoryStateSpecific, domain.SeverityCritical),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("seller's disclosure") || ctx.HasProvidedDisclosure("seller disclosure") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Seller's Disclosure Notice has not been provided", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("TX_OPTION_PERIOD", "TX Option Period",
				"Texas contracts conventionally include an unrestricted option period",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("option period", "option fee") {
					return r.Fail(r.Flag("MISSING",
						"No option period or option fee is specified", r.SeverityFor(ctx.State)))
				}
				if days, ok := rules.DaysNear(ctx.Text, "option period", 80); ok {
					maxDays := int(r.Threshold("max_option_days", 10))
					if days > maxDays {
						return r.Fail(r.Flag("TOO_LONG",
							fmt.Sprintf("Option period of %d days exceeds %d days", days, maxDays),
							domain.SeverityLow))
					}
				}
				return r.Pass()
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("TX_MUD_PID", "TX MUD/PID Notice",
				"Utility and improvement district membership must carry the statutory notice",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("municipal utility district", "mud district", "public improvement district", "pid assessment") {
					return r.Pass()
				}
				if ctx.ContainsAny("statutory notice", "district notice") || ctx.HasProvidedDisclosure("mud") || ctx.HasProvidedDisclosure("pid") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_NOTICE",
					"Property lies in a utility or improvement district without the statutory notice", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("TX_HOA", "TX HOA Membership",
				"Mandatory HOA membership requires the subdivision information addendum",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("homeowners association", "homeowner's association", "hoa") {
					return r.Pass()
				}
				for _, a := range ctx.IncludedAddenda() {
					if containsFold(a.Name, "hoa") || containsFold(a.Name, "subdivision") {
						return r.Pass()
					}
				}
				return r.Fail(r.Flag("NO_ADDENDUM",
					"HOA membership is referenced without the subdivision information addendum", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("TX_SURVEY", "TX Survey",
				"The contract should address the survey or a T-47 affidavit",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.ContainsAny("survey", "t-47") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_SURVEY",
					"Contract does not address the survey or a T-47 affidavit", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("TX_TITLE", "TX Title Policy",
				"The contract should specify who pays for the owner's title policy",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.ContainsAny("title policy", "title insurance", "title commitment") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_TITLE_POLICY",
					"Contract does not address the owner's title policy", r.SeverityFor(ctx.State)))
			}),
	}
}
