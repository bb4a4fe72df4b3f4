package states

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
)

var newYorkRequirements = []string{
	"Property Condition Disclosure Statement (PCDS)",
	"Lead paint disclosure (pre-1978 housing)",
	"Attorney review period",
	"Co-op board approval contingency",
	"Mansion tax allocation (price >= $1M)",
	"Smoke and carbon monoxide detector affidavit",
}

// mansionTaxFloor is the purchase price at which NY mansion tax applies.
const mansionTaxFloor = 1_000_000

// NewYorkRules builds the NY rule set.
func NewYorkRules() []rules.Rule {
	return []rules.Rule{
		rules.NewFuncRule(
			rules.NewBaseRule("NY_PCDS", "NY Property Condition Disclosure",
				"New York requires a Property Condition Disclosure Statement or a credit in lieu",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.HasProvidedDisclosure("property condition") || ctx.HasProvidedDisclosure("pcds") {
					return r.Pass()
				}
				if ctx.Contains("credit in lieu") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Property Condition Disclosure Statement has not been provided", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("NY_LEAD_PAINT", "NY Lead Paint Disclosure",
				"Pre-1978 housing requires the federal lead paint disclosure",
				rules.CategoryStateSpecific, domain.SeverityHigh),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("pre-1978", "built before 1978", "lead paint", "lead-based paint") {
					return r.Pass()
				}
				if ctx.HasProvidedDisclosure("lead") {
					return r.Pass()
				}
				return r.Fail(r.Flag("MISSING",
					"Lead paint disclosure has not been provided for pre-1978 housing", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("NY_ATTORNEY_REVIEW", "NY Attorney Review",
				"New York contracts are conventionally subject to attorney review",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if ctx.ContainsAny("attorney review", "attorney approval", "subject to attorney") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_REVIEW_PERIOD",
					"Contract has no attorney review provision", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("NY_BOARD_APPROVAL", "NY Co-op Board Approval",
				"Co-op purchases must be contingent on board approval",
				rules.CategoryStateSpecific, domain.SeverityCritical),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("co-op", "coop", "cooperative apartment", "cooperative corporation") {
					return r.Pass()
				}
				if ctx.Contains("board approval") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_BOARD_CONTINGENCY",
					"Co-op purchase has no board approval contingency", r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("NY_MANSION_TAX", "NY Mansion Tax",
				"Purchases at or above $1M must allocate the mansion tax",
				rules.CategoryStateSpecific, domain.SeverityMedium),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				price, ok := rules.AmountNear(ctx.Text, "purchase price", 80)
				if !ok || price < mansionTaxFloor {
					return r.Pass()
				}
				if ctx.Contains("mansion tax") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NOT_ADDRESSED",
					fmt.Sprintf("Purchase price of $%.0f is subject to mansion tax but the contract does not allocate it", price),
					r.SeverityFor(ctx.State)))
			}),
		rules.NewFuncRule(
			rules.NewBaseRule("NY_DETECTORS", "NY Detector Affidavit",
				"Smoke and carbon monoxide detector affidavit must accompany the transfer",
				rules.CategoryStateSpecific, domain.SeverityLow),
			func(r *rules.FuncRule, ctx *rules.Context) rules.Result {
				if !ctx.ContainsAny("smoke detector", "carbon monoxide") {
					return r.Pass()
				}
				if ctx.ContainsAny("affidavit", "compliant", "compliance") {
					return r.Pass()
				}
				return r.Fail(r.Flag("NO_AFFIDAVIT",
					"Detector affidavit is not referenced", r.SeverityFor(ctx.State)))
			}),
	}
}
