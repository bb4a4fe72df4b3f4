package rules

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Earnest money rule family: deposit amount, deposit timeline, escrow
// holder and refund conditions.

// EarnestMoneyAmountRule compares the earnest money deposit to the purchase
// price and flags amounts outside the typical percentage range.
type EarnestMoneyAmountRule struct {
	BaseRule
}

// NewEarnestMoneyAmountRule creates the EMD amount rule.
// Thresholds: min_percent (default 1), max_percent (default 3).
func NewEarnestMoneyAmountRule() *EarnestMoneyAmountRule {
	return &EarnestMoneyAmountRule{
		BaseRule: NewBaseRule(
			"EMD_AMOUNT",
			"Earnest Money Amount",
			"Checks that the earnest money deposit is a typical share of the purchase price",
			CategoryEarnestMoney,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *EarnestMoneyAmountRule) Evaluate(ctx *Context) Result {
	emd, ok := AmountNear(ctx.Text, "earnest money", 80)
	if !ok {
		emd, ok = AmountNear(ctx.Text, "deposit", 80)
	}
	if !ok {
		return r.Pass()
	}

	price, ok := AmountNear(ctx.Text, "purchase price", 80)
	if !ok || price <= 0 {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)
	percentage := emd / price * 100
	minPercent := r.Threshold("min_percent", 1)
	maxPercent := r.Threshold("max_percent", 3)

	if percentage < minPercent {
		return r.Fail(r.Flag("TOO_LOW",
			fmt.Sprintf("Earnest money of %.2f%% is below the typical %.0f%%", percentage, minPercent), sev))
	}
	if percentage > maxPercent {
		return r.Fail(r.Flag("TOO_HIGH",
			fmt.Sprintf("Earnest money of %.2f%% is above the typical %.0f%%", percentage, maxPercent), sev))
	}

	return r.Pass()
}

// EarnestMoneyTimelineRule checks the deposit delivery window.
type EarnestMoneyTimelineRule struct {
	BaseRule
}

// NewEarnestMoneyTimelineRule creates the EMD timeline rule.
// Threshold: max_days (default 7).
func NewEarnestMoneyTimelineRule() *EarnestMoneyTimelineRule {
	return &EarnestMoneyTimelineRule{
		BaseRule: NewBaseRule(
			"EMD_TIMELINE",
			"Earnest Money Timeline",
			"Checks the earnest money deposit delivery window",
			CategoryEarnestMoney,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *EarnestMoneyTimelineRule) Evaluate(ctx *Context) Result {
	// Applicable only when the deposit mechanics are discussed; a bare
	// earnest money amount has no window to check.
	if !ctx.Contains("deposit") {
		return r.Pass()
	}

	sev := r.SeverityFor(ctx.State)

	days, ok := DaysNear(ctx.Text, "deposit", 80)
	if !ok {
		return r.Fail(r.Flag("TIMELINE_MISSING",
			"No earnest money deposit deadline is stated", sev))
	}

	maxDays := int(r.Threshold("max_days", 7))
	if days > maxDays {
		return r.Fail(r.Flag("TIMELINE_LONG",
			fmt.Sprintf("Deposit window of %d days exceeds the typical %d days", days, maxDays), sev))
	}

	return r.Pass()
}

// EscrowHolderRule checks who holds the earnest money deposit.
type EscrowHolderRule struct {
	BaseRule
}

// NewEscrowHolderRule creates the escrow holder rule.
func NewEscrowHolderRule() *EscrowHolderRule {
	return &EscrowHolderRule{
		BaseRule: NewBaseRule(
			"ESCROW_HOLDER",
			"Escrow Holder",
			"Checks that the deposit is held by a neutral escrow or title company",
			CategoryEarnestMoney,
			domain.SeverityHigh,
		),
	}
}

// Evaluate implements Rule.
func (r *EscrowHolderRule) Evaluate(ctx *Context) Result {
	if ctx.ContainsAny("seller holds", "seller to hold", "direct to seller", "paid directly to seller") {
		return r.Fail(r.Flag("RISKY_ESCROW",
			"Earnest money is held by or paid directly to the seller", domain.SeverityCritical))
	}
	if ctx.ContainsAny("agent holds", "agent to hold") {
		return r.Fail(r.Flag("RISKY_ESCROW",
			"Earnest money is held by an agent rather than a neutral escrow", domain.SeverityHigh))
	}

	// Applicable only when the text discusses who holds the funds.
	if !ctx.ContainsAny("held by", "holder", "deposited with") {
		return r.Pass()
	}

	if !ctx.ContainsAny("escrow", "title company", "title co") {
		return r.Fail(r.Flag("NO_ESCROW_HOLDER",
			"No neutral escrow or title company holds the deposit", r.SeverityFor(ctx.State)))
	}

	return r.Pass()
}

// EMDRefundRule checks the refund conditions attached to the deposit.
type EMDRefundRule struct {
	BaseRule
}

// NewEMDRefundRule creates the EMD refund conditions rule.
func NewEMDRefundRule() *EMDRefundRule {
	return &EMDRefundRule{
		BaseRule: NewBaseRule(
			"EMD_REFUND",
			"Earnest Money Refund Conditions",
			"Checks the refund conditions attached to the earnest money deposit",
			CategoryEarnestMoney,
			domain.SeverityHigh,
		),
	}
}

// Evaluate implements Rule.
func (r *EMDRefundRule) Evaluate(ctx *Context) Result {
	var flags []domain.RiskFlag

	if ctx.ContainsAny("non-refundable", "nonrefundable", "non refundable") {
		flags = append(flags, r.Flag("NON_REFUNDABLE",
			"Earnest money deposit is non-refundable", domain.SeverityCritical))
	}
	if ctx.Contains("liquidated damages") {
		flags = append(flags, r.Flag("LIQUIDATED_DAMAGES",
			"Deposit is subject to a liquidated damages clause", domain.SeverityMedium))
	}

	// Absence of refund terms only matters once deposit mechanics are
	// discussed at all.
	if ctx.Contains("deposit") && len(flags) == 0 &&
		!ctx.ContainsAny("refund", "returned to buyer", "return of deposit") {
		flags = append(flags, r.Flag("NO_REFUND_TERMS",
			"No deposit refund conditions are stated", r.SeverityFor(ctx.State)))
	}

	return r.ResultFrom(flags)
}
