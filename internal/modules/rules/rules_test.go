package rules

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/domain"
)

func textContext(text string) *Context {
	return NewContext(&domain.Contract{ContractText: text})
}

func flagCodes(results []Result) []string {
	var codes []string
	for _, f := range AggregateFlags(results) {
		codes = append(codes, f.Code)
	}
	return codes
}

func TestFinancingContingency_Missing(t *testing.T) {
	r := NewFinancingContingencyRule()
	res := r.Evaluate(textContext("Buyer will obtain a conventional loan. Closing in 30 days."))

	require.False(t, res.Passed)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "FIN_CONTINGENCY_MISSING", res.Flags[0].Code)
	assert.Equal(t, domain.SeverityCritical, res.Flags[0].Severity)
}

func TestFinancingContingency_Waived(t *testing.T) {
	r := NewFinancingContingencyRule()
	res := r.Evaluate(textContext("Buyer agrees to waive the financing contingency."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "FIN_CONTINGENCY_WAIVED", res.Flags[0].Code)
}

func TestFinancingContingency_CashPurchase(t *testing.T) {
	r := NewFinancingContingencyRule()
	res := r.Evaluate(textContext("This is an all cash offer with no financing."))

	assert.True(t, res.Passed)
}

func TestFinancingTimeline(t *testing.T) {
	r := NewFinancingTimelineRule()

	assert.True(t, r.Evaluate(textContext("Financing contingency of 21 days.")).Passed)

	res := r.Evaluate(textContext("Financing contingency of 10 days."))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "FIN_TIMELINE_TOO_SHORT", res.Flags[0].Code)

	res = r.Evaluate(textContext("Financing contingency of 45 days."))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "FIN_TIMELINE_TOO_LONG", res.Flags[0].Code)
}

func TestLoanTerms_BalloonAndHardMoney(t *testing.T) {
	r := NewLoanTermsRule()
	res := r.Evaluate(textContext("The loan includes a balloon payment and is funded by a hard money lender."))

	codes := flagCodes([]Result{res})
	assert.Contains(t, codes, "LOAN_TERMS_BALLOON_PAYMENT")
	assert.Contains(t, codes, "LOAN_TERMS_HARD_MONEY")
}

func TestInspectionContingency_AsIs(t *testing.T) {
	r := NewInspectionContingencyRule()
	res := r.Evaluate(textContext("Property is sold as-is with all faults."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "INSPECTION_CONTINGENCY_AS_IS", res.Flags[0].Code)
	assert.Equal(t, domain.SeverityHigh, res.Flags[0].Severity)
}

func TestInspectionTimeline(t *testing.T) {
	r := NewInspectionTimelineRule()

	assert.True(t, r.Evaluate(textContext("Inspection contingency of 10 days.")).Passed)

	res := r.Evaluate(textContext("Inspection contingency of 25 days."))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "INSPECTION_TIMELINE_TOO_LONG", res.Flags[0].Code)

	res = r.Evaluate(textContext("Buyer retains an inspection contingency."))
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "INSPECTION_TIMELINE_NO_TIMELINE", res.Flags[0].Code)
}

func TestEarnestMoneyAmount_BelowRange(t *testing.T) {
	// 2,000 / 500,000 = 0.4%, below the 1% floor.
	r := NewEarnestMoneyAmountRule()
	res := r.Evaluate(textContext("Buyer shall pay $2,000 earnest money. The purchase price is $500,000."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "EMD_AMOUNT_TOO_LOW", res.Flags[0].Code)
	assert.Equal(t, domain.SeverityMedium, res.Flags[0].Severity)
	assert.Contains(t, res.Flags[0].Description, "0.40%")
}

func TestEarnestMoneyAmount_TypicalRange(t *testing.T) {
	r := NewEarnestMoneyAmountRule()
	res := r.Evaluate(textContext("Earnest money of $10,000 shall be applied toward the purchase price of $500,000."))

	assert.True(t, res.Passed)
}

func TestEarnestMoneyAmount_AboveRange(t *testing.T) {
	r := NewEarnestMoneyAmountRule()
	res := r.Evaluate(textContext("Earnest money of $50,000 shall be applied toward the purchase price of $500,000."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "EMD_AMOUNT_TOO_HIGH", res.Flags[0].Code)
}

func TestEscrowHolder_SellerHolds(t *testing.T) {
	r := NewEscrowHolderRule()
	res := r.Evaluate(textContext("The deposit shall be paid directly to seller."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "ESCROW_HOLDER_RISKY_ESCROW", res.Flags[0].Code)
	assert.Equal(t, domain.SeverityCritical, res.Flags[0].Severity)
}

func TestEMDRefund_NonRefundable(t *testing.T) {
	r := NewEMDRefundRule()
	res := r.Evaluate(textContext("The earnest money deposit is non-refundable upon acceptance. Refund terms do not apply."))

	codes := flagCodes([]Result{res})
	assert.Contains(t, codes, "EMD_REFUND_NON_REFUNDABLE")
}

func TestDisclosureMissing_SeverityByName(t *testing.T) {
	r := NewDisclosureMissingRule()
	ctx := NewContext(&domain.Contract{
		Disclosures: []domain.Disclosure{
			{Name: "Lead-Based Paint Disclosure", Required: true, Provided: false},
			{Name: "Property Condition Report", Required: true, Provided: false},
			{Name: "Utility Bills", Required: true, Provided: false},
			{Name: "HOA Budget", Required: false, Provided: false},
		},
	})

	res := r.Evaluate(ctx)

	require.Len(t, res.Flags, 3)
	assert.Equal(t, domain.SeverityCritical, res.Flags[0].Severity)
	assert.Equal(t, domain.SeverityHigh, res.Flags[1].Severity)
	assert.Equal(t, domain.SeverityMedium, res.Flags[2].Severity)
	for _, f := range res.Flags {
		assert.Equal(t, "DISCLOSURE_MISSING", f.Code)
	}
}

func TestDisclosureCompleteness(t *testing.T) {
	r := NewDisclosureCompletenessRule()

	provided := NewContext(&domain.Contract{
		Disclosures: []domain.Disclosure{{Name: "Lead-Based Paint Disclosure", Provided: true}},
	})
	assert.True(t, r.Evaluate(provided).Passed)

	missing := NewContext(&domain.Contract{})
	res := r.Evaluate(missing)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "DISCLOSURE_COMPLETENESS_INCOMPLETE", res.Flags[0].Code)
	assert.Contains(t, res.Flags[0].Description, "lead-based paint")
}

func TestHOADisclosure(t *testing.T) {
	r := NewHOADisclosureRule()

	assert.True(t, r.Evaluate(textContext("Single family home, no association.")).Passed)

	res := r.Evaluate(textContext("The property is part of a homeowners association."))
	codes := flagCodes([]Result{res})
	assert.Contains(t, codes, "HOA_DISCLOSURE_MISSING_DOCS")
	assert.Contains(t, codes, "HOA_DISCLOSURE_MISSING_CCRS")
}

func TestDisclosureAge(t *testing.T) {
	r := NewDisclosureAgeRule()

	ctx := textContext("Seller disclosure dated 1/15/2024 is attached.")
	ctx.Now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, r.Evaluate(ctx).Passed)

	ctx = textContext("Seller disclosure dated 1/15/2024 is attached.")
	ctx.Now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	res := r.Evaluate(ctx)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "DISCLOSURE_AGE_OUTDATED", res.Flags[0].Code)
	assert.Equal(t, domain.SeverityHigh, res.Flags[0].Severity)
}

func TestUnusualPhrases(t *testing.T) {
	r := NewUnusualPhrasesRule()
	res := r.Evaluate(textContext("Buyer shall waive all rights and accept binding arbitration."))

	codes := flagCodes([]Result{res})
	assert.Contains(t, codes, "UNUSUAL_PHRASES_WAIVE_ALL_RIGHTS")
	assert.Contains(t, codes, "UNUSUAL_PHRASES_BINDING_ARBITRATION")
}

func TestUnusualAddenda(t *testing.T) {
	r := NewUnusualAddendaRule()
	ctx := NewContext(&domain.Contract{
		Addenda: []domain.Addendum{
			{Name: "Short Sale Addendum", Included: true},
			{Name: "Standard Terms", Included: true},
			{Name: "Kick-Out Clause", Included: false},
		},
	})

	res := r.Evaluate(ctx)

	codes := flagCodes([]Result{res})
	assert.Contains(t, codes, "UNUSUAL_ADDENDA_SHORT_SALE")
	assert.NotContains(t, codes, "UNUSUAL_ADDENDA_KICK_OUT")
}

func TestUnusualClosing_LongWindow(t *testing.T) {
	r := NewUnusualClosingRule()
	res := r.Evaluate(textContext("Closing shall occur within 90 days of acceptance."))

	require.Len(t, res.Flags, 1)
	assert.Equal(t, "UNUSUAL_CLOSING_LONG_CLOSING", res.Flags[0].Code)
}

// cleanCaliforniaContract mirrors a well-formed CA purchase: typical
// contingency windows, a typical deposit, every statutory disclosure
// provided.
func cleanCaliforniaContract() *domain.Contract {
	return &domain.Contract{
		State: "CA",
		Clauses: []domain.Clause{
			{Text: "Financing contingency of 21 days applies to this purchase."},
			{Text: "Inspection contingency of 10 days from acceptance."},
			{Text: "Earnest money of $10,000 shall be applied toward the purchase price of $500,000."},
		},
		Disclosures: []domain.Disclosure{
			{Name: "TDS", Required: true, Provided: true},
			{Name: "NHD", Required: true, Provided: true},
			{Name: "Lead-Based Paint Disclosure", Required: true, Provided: true},
		},
	}
}

func TestGeneralRules_CleanContractNoFlags(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll(GeneralRules())

	results := engine.Evaluate(NewContext(cleanCaliforniaContract()))

	assert.Empty(t, AggregateFlags(results))
	assert.Equal(t, 100.0, PassRate(results))
}

func TestGeneralRules_MissingFinancingContingency(t *testing.T) {
	contract := cleanCaliforniaContract()
	contract.Clauses = contract.Clauses[1:]

	engine := NewEngine(zerolog.Nop())
	engine.RegisterAll(GeneralRules())

	flags := AggregateFlags(engine.Evaluate(NewContext(contract)))

	require.Len(t, flags, 1)
	assert.Equal(t, "FIN_CONTINGENCY_MISSING", flags[0].Code)
	assert.Equal(t, domain.SeverityCritical, flags[0].Severity)
}

func TestGeneralRules_CanonicalOrderStable(t *testing.T) {
	first := GeneralRules()
	second := GeneralRules()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID(), second[i].ID())
	}
}
