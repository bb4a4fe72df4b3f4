package rules

// GeneralRules returns the full general rule set in its canonical
// registration order. Order is part of the engine's observable behavior;
// new rules are appended, never inserted.
func GeneralRules() []Rule {
	return []Rule{
		NewFinancingContingencyRule(),
		NewFinancingTimelineRule(),
		NewLoanTermsRule(),
		NewPreApprovalRule(),
		NewAppraisalContingencyRule(),
		NewInspectionContingencyRule(),
		NewInspectionTimelineRule(),
		NewRequiredInspectionsRule(),
		NewInspectionRepairsRule(),
		NewEarnestMoneyAmountRule(),
		NewEarnestMoneyTimelineRule(),
		NewEscrowHolderRule(),
		NewEMDRefundRule(),
		NewDisclosureMissingRule(),
		NewDisclosureCompletenessRule(),
		NewHOADisclosureRule(),
		NewDisclosureAgeRule(),
		NewUnusualPhrasesRule(),
		NewUnusualTransactionRule(),
		NewUnbalancedTermsRule(),
		NewUnusualAddendaRule(),
		NewUnusualClosingRule(),
	}
}
