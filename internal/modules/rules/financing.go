package rules

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Financing rule family: contingency presence, contingency timeline, loan
// terms, buyer pre-approval and appraisal contingency.

// FinancingContingencyRule fails MISSING when a financed purchase carries no
// financing contingency, and flags WAIVED when the contingency is waived.
type FinancingContingencyRule struct {
	BaseRule
}

// NewFinancingContingencyRule creates the financing contingency rule.
func NewFinancingContingencyRule() *FinancingContingencyRule {
	return &FinancingContingencyRule{
		BaseRule: NewBaseRule(
			"FIN_CONTINGENCY",
			"Financing Contingency",
			"Checks that financed purchases retain a financing contingency",
			CategoryFinancing,
			domain.SeverityCritical,
		),
	}
}

// Evaluate implements Rule.
func (r *FinancingContingencyRule) Evaluate(ctx *Context) Result {
	sev := r.SeverityFor(ctx.State)

	if ctx.Contains("waive") && ctx.Contains("financing") {
		return r.Fail(r.Flag("WAIVED",
			"Financing contingency appears to be waived", sev))
	}

	if ctx.IsCash() {
		return r.Pass()
	}

	hasContingency := ctx.ContainsAny("financing contingency", "loan contingency", "mortgage contingency") ||
		(ctx.ContainsAny("financing", "loan", "mortgage") && ctx.Contains("contingency"))
	if !hasContingency {
		return r.Fail(r.Flag("MISSING",
			"No financing contingency found in a financed purchase", sev))
	}

	return r.Pass()
}

// FinancingTimelineRule extracts the day count near the financing
// contingency and flags windows outside the typical range.
type FinancingTimelineRule struct {
	BaseRule
}

// NewFinancingTimelineRule creates the financing timeline rule.
// Thresholds: min_days (default 17), max_days (default 30).
func NewFinancingTimelineRule() *FinancingTimelineRule {
	return &FinancingTimelineRule{
		BaseRule: NewBaseRule(
			"FIN_TIMELINE",
			"Financing Contingency Timeline",
			"Checks that the financing contingency window is within the typical range",
			CategoryTimeline,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *FinancingTimelineRule) Evaluate(ctx *Context) Result {
	days, ok := DaysNear(ctx.Text, "financing contingency", 80)
	if !ok {
		days, ok = DaysNear(ctx.Text, "loan contingency", 80)
	}
	if !ok {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)
	minDays := int(r.Threshold("min_days", 17))
	maxDays := int(r.Threshold("max_days", 30))

	if days < minDays {
		return r.Fail(r.Flag("TOO_SHORT",
			fmt.Sprintf("Financing contingency of %d days is shorter than the typical %d days", days, minDays), sev))
	}
	if days > maxDays {
		return r.Fail(r.Flag("TOO_LONG",
			fmt.Sprintf("Financing contingency of %d days exceeds the typical %d days", days, maxDays), sev))
	}

	return r.Pass()
}

// LoanTermsRule flags risky loan structures mentioned in the contract text.
type LoanTermsRule struct {
	BaseRule
}

// NewLoanTermsRule creates the loan terms rule.
func NewLoanTermsRule() *LoanTermsRule {
	return &LoanTermsRule{
		BaseRule: NewBaseRule(
			"LOAN_TERMS",
			"Loan Terms",
			"Flags risky loan structures such as high LTV, balloon payments and hard money",
			CategoryFinancing,
			domain.SeverityMedium,
		),
	}
}

// loanTermChecks maps local flag codes to trigger keywords and severities.
var loanTermChecks = []struct {
	local    string
	keywords []string
	desc     string
	severity domain.Severity
}{
	{"ADJUSTABLE_RATE", []string{"adjustable rate", "adjustable-rate", "variable rate"}, "Loan uses an adjustable interest rate", domain.SeverityMedium},
	{"INTEREST_ONLY", []string{"interest only", "interest-only"}, "Loan is interest-only", domain.SeverityMedium},
	{"BALLOON_PAYMENT", []string{"balloon payment", "balloon"}, "Loan includes a balloon payment", domain.SeverityHigh},
	{"NEGATIVE_AMORTIZATION", []string{"negative amortization"}, "Loan allows negative amortization", domain.SeverityHigh},
	{"HARD_MONEY", []string{"hard money"}, "Purchase is financed with a hard money loan", domain.SeverityHigh},
}

// highLTVThreshold is the LTV percentage above which a flag is raised.
const highLTVThreshold = 95

// Evaluate implements Rule.
func (r *LoanTermsRule) Evaluate(ctx *Context) Result {
	var flags []domain.RiskFlag

	if ltv, ok := PercentNear(ctx.Text, "ltv", 40); !ok {
		ltv, ok = PercentNear(ctx.Text, "loan-to-value", 40)
		if ok && ltv > r.Threshold("max_ltv", highLTVThreshold) {
			flags = append(flags, r.Flag("HIGH_LTV",
				fmt.Sprintf("Loan-to-value ratio of %.0f%% exceeds %d%%", ltv, highLTVThreshold),
				domain.SeverityHigh))
		}
	} else if ltv > r.Threshold("max_ltv", highLTVThreshold) {
		flags = append(flags, r.Flag("HIGH_LTV",
			fmt.Sprintf("Loan-to-value ratio of %.0f%% exceeds %d%%", ltv, highLTVThreshold),
			domain.SeverityHigh))
	}

	for _, check := range loanTermChecks {
		if ctx.ContainsAny(check.keywords...) {
			flags = append(flags, r.Flag(check.local, check.desc, check.severity))
		}
	}

	return r.ResultFrom(flags)
}

// PreApprovalRule checks that a financed buyer is at least pre-approved.
type PreApprovalRule struct {
	BaseRule
}

// NewPreApprovalRule creates the pre-approval rule.
func NewPreApprovalRule() *PreApprovalRule {
	return &PreApprovalRule{
		BaseRule: NewBaseRule(
			"PRE_APPROVAL",
			"Buyer Pre-Approval",
			"Checks that a financed buyer has lender pre-approval",
			CategoryFinancing,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *PreApprovalRule) Evaluate(ctx *Context) Result {
	if ctx.IsCash() {
		return r.Pass()
	}

	// Only applicable when the contract discusses an actual loan; a bare
	// financing contingency clause carries no lender detail to check.
	if !ctx.ContainsAny("loan", "mortgage", "lender") {
		return r.Pass()
	}

	hasPreApproval := ctx.ContainsAny("pre-approval", "preapproval", "pre-approved", "preapproved")
	hasPreQual := ctx.ContainsAny("pre-qualification", "prequalification", "pre-qualified", "prequalified")

	if !hasPreApproval && !hasPreQual {
		return r.Fail(r.Flag("NO_PREAPPROVAL",
			"No lender pre-approval or pre-qualification is mentioned", r.SeverityFor(ctx.State)))
	}
	if !hasPreApproval && hasPreQual {
		return r.Fail(r.Flag("PREQUAL_ONLY",
			"Buyer is only pre-qualified, not pre-approved", domain.SeverityLow))
	}

	return r.Pass()
}

// AppraisalContingencyRule checks that a financed purchase keeps an
// appraisal contingency.
type AppraisalContingencyRule struct {
	BaseRule
}

// NewAppraisalContingencyRule creates the appraisal contingency rule.
func NewAppraisalContingencyRule() *AppraisalContingencyRule {
	return &AppraisalContingencyRule{
		BaseRule: NewBaseRule(
			"APPRAISAL_CONTINGENCY",
			"Appraisal Contingency",
			"Checks that financed purchases retain an appraisal contingency",
			CategoryContingency,
			domain.SeverityHigh,
		),
	}
}

// Evaluate implements Rule.
func (r *AppraisalContingencyRule) Evaluate(ctx *Context) Result {
	if ctx.IsCash() {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)

	if ctx.Contains("waive") && ctx.Contains("appraisal") {
		return r.Fail(r.Flag("WAIVED",
			"Appraisal contingency appears to be waived", sev))
	}

	// Only applicable when the contract discusses an actual loan; appraisal
	// protection matters where a lender valuation drives the deal.
	if !ctx.ContainsAny("loan", "mortgage", "lender") {
		return r.Pass()
	}

	if !ctx.Contains("appraisal") {
		return r.Fail(r.Flag("MISSING",
			"No appraisal contingency found in a financed purchase", sev))
	}

	return r.Pass()
}
