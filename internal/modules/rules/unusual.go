package rules

import (
	"fmt"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Unusual clause rule family: risky phrases, unusual transaction
// structures, unbalanced terms, unusual addenda and unusual closing terms.

// UnusualPhrasesRule checks the contract text against a closed table of
// risky phrases with per-phrase severities.
type UnusualPhrasesRule struct {
	BaseRule
}

// NewUnusualPhrasesRule creates the unusual phrases rule.
func NewUnusualPhrasesRule() *UnusualPhrasesRule {
	return &UnusualPhrasesRule{
		BaseRule: NewBaseRule(
			"UNUSUAL_PHRASES",
			"Unusual Phrases",
			"Flags risky boilerplate phrases in the contract text",
			CategoryUnusualClause,
			domain.SeverityMedium,
		),
	}
}

// unusualPhraseTable is the closed phrase set. Codes are stable; adding a
// phrase is additive.
var unusualPhraseTable = []struct {
	local    string
	phrase   string
	severity domain.Severity
}{
	{"WAIVE_ALL_RIGHTS", "waive all rights", domain.SeverityCritical},
	{"HOLD_HARMLESS", "hold harmless", domain.SeverityHigh},
	{"INDEMNIFY_SELLER", "indemnify seller", domain.SeverityHigh},
	{"NO_RECOURSE", "no recourse", domain.SeverityCritical},
	{"BINDING_ARBITRATION", "binding arbitration", domain.SeverityMedium},
	{"WAIVE_JURY_TRIAL", "waive jury trial", domain.SeverityHigh},
	{"AUTOMATIC_RENEWAL", "automatic renewal", domain.SeverityMedium},
	{"PENALTY_CLAUSE", "penalty clause", domain.SeverityHigh},
	{"SOLE_DISCRETION", "sole discretion", domain.SeverityMedium},
	{"TIME_OF_ESSENCE", "time is of the essence", domain.SeverityLow},
	{"AS_IS_WHERE_IS", "as-is where-is", domain.SeverityHigh},
	{"SIGHT_UNSEEN", "sight unseen", domain.SeverityCritical},
}

// Evaluate implements Rule.
func (r *UnusualPhrasesRule) Evaluate(ctx *Context) Result {
	var flags []domain.RiskFlag
	for _, entry := range unusualPhraseTable {
		if ctx.Contains(entry.phrase) {
			flags = append(flags, r.Flag(entry.local,
				fmt.Sprintf("Contract contains the phrase %q", entry.phrase),
				entry.severity))
		}
	}
	return r.ResultFrom(flags)
}

// UnusualTransactionRule flags non-standard transaction structures.
type UnusualTransactionRule struct {
	BaseRule
}

// NewUnusualTransactionRule creates the unusual transaction rule.
func NewUnusualTransactionRule() *UnusualTransactionRule {
	return &UnusualTransactionRule{
		BaseRule: NewBaseRule(
			"UNUSUAL_TRANSACTION",
			"Unusual Transaction Structure",
			"Flags non-standard transaction structures",
			CategoryUnusualClause,
			domain.SeverityMedium,
		),
	}
}

var unusualTransactionTable = []struct {
	local    string
	keywords []string
	desc     string
}{
	{"LEASEBACK", []string{"leaseback", "lease-back"}, "Transaction includes a seller leaseback"},
	{"SELLER_FINANCING", []string{"seller financing", "seller carry"}, "Transaction uses seller financing"},
	{"LAND_CONTRACT", []string{"land contract", "contract for deed"}, "Transaction is structured as a land contract"},
	{"SUBJECT_TO", []string{"subject to existing"}, "Purchase is subject to existing financing"},
	{"WRAPAROUND", []string{"wraparound", "wrap-around"}, "Transaction uses a wraparound mortgage"},
	{"ASSIGNMENT", []string{"assignment of contract"}, "Contract allows assignment to another buyer"},
}

// Evaluate implements Rule.
func (r *UnusualTransactionRule) Evaluate(ctx *Context) Result {
	sev := r.SeverityFor(ctx.State)
	var flags []domain.RiskFlag
	for _, entry := range unusualTransactionTable {
		if ctx.ContainsAny(entry.keywords...) {
			flags = append(flags, r.Flag(entry.local, entry.desc, sev))
		}
	}
	return r.ResultFrom(flags)
}

// UnbalancedTermsRule flags terms that favor one party asymmetrically.
type UnbalancedTermsRule struct {
	BaseRule
}

// NewUnbalancedTermsRule creates the unbalanced terms rule.
func NewUnbalancedTermsRule() *UnbalancedTermsRule {
	return &UnbalancedTermsRule{
		BaseRule: NewBaseRule(
			"UNBALANCED_TERMS",
			"Unbalanced Terms",
			"Flags asymmetric rights and unlimited liability",
			CategoryLegal,
			domain.SeverityHigh,
		),
	}
}

// Evaluate implements Rule.
func (r *UnbalancedTermsRule) Evaluate(ctx *Context) Result {
	var flags []domain.RiskFlag

	if ctx.ContainsAny("seller may cancel at any time", "only seller may cancel", "seller's right to cancel") &&
		!ctx.ContainsAny("buyer may cancel", "either party may cancel") {
		flags = append(flags, r.Flag("ASYMMETRIC_CANCELLATION",
			"Only the seller holds a cancellation right", domain.SeverityHigh))
	}
	if ctx.ContainsAny("buyer forfeits", "buyer shall forfeit") &&
		!ctx.ContainsAny("seller forfeits", "seller shall forfeit") {
		flags = append(flags, r.Flag("ASYMMETRIC_DEFAULT",
			"Default consequences apply to the buyer only", domain.SeverityHigh))
	}
	if ctx.ContainsAny("unlimited liability", "without limit") {
		flags = append(flags, r.Flag("UNLIMITED_LIABILITY",
			"Contract exposes a party to unlimited liability", domain.SeverityCritical))
	}
	if ctx.ContainsAny("seller may extend", "unilateral extension", "seller's option to extend") {
		flags = append(flags, r.Flag("UNILATERAL_EXTENSION",
			"One party may unilaterally extend deadlines", domain.SeverityHigh))
	}

	return r.ResultFrom(flags)
}

// UnusualAddendaRule flags unusual addenda and an excessive addenda count.
type UnusualAddendaRule struct {
	BaseRule
}

// NewUnusualAddendaRule creates the unusual addenda rule.
// Threshold: max_addenda (default 5).
func NewUnusualAddendaRule() *UnusualAddendaRule {
	return &UnusualAddendaRule{
		BaseRule: NewBaseRule(
			"UNUSUAL_ADDENDA",
			"Unusual Addenda",
			"Flags unusual addenda and excessive addenda counts",
			CategoryUnusualClause,
			domain.SeverityMedium,
		),
	}
}

var unusualAddendaTable = []struct {
	local    string
	keywords []string
}{
	{"KICK_OUT", []string{"kick-out", "kick out"}},
	{"RIGHT_OF_FIRST_REFUSAL", []string{"right of first refusal"}},
	{"RENT_BACK", []string{"rent-back", "rent back"}},
	{"PERSONAL_PROPERTY", []string{"personal property"}},
	{"CONTINGENT_SALE", []string{"contingent sale", "sale of buyer's property"}},
	{"SHORT_SALE", []string{"short sale"}},
	{"REO", []string{"reo", "bank-owned"}},
	{"FORECLOSURE", []string{"foreclosure"}},
}

// Evaluate implements Rule.
func (r *UnusualAddendaRule) Evaluate(ctx *Context) Result {
	sev := r.SeverityFor(ctx.State)
	var flags []domain.RiskFlag

	included := ctx.IncludedAddenda()
	for _, entry := range unusualAddendaTable {
		for _, a := range included {
			if containsAnyFold(a.Name, entry.keywords) {
				flags = append(flags, r.Flag(entry.local,
					fmt.Sprintf("Contract includes a %s addendum", a.Name), sev))
				break
			}
		}
	}

	maxAddenda := int(r.Threshold("max_addenda", 5))
	if len(included) > maxAddenda {
		flags = append(flags, r.Flag("MANY_ADDENDA",
			fmt.Sprintf("Contract includes %d addenda (more than %d)", len(included), maxAddenda),
			domain.SeverityLow))
	}

	return r.ResultFrom(flags)
}

// UnusualClosingRule flags unusual possession and closing terms.
type UnusualClosingRule struct {
	BaseRule
}

// NewUnusualClosingRule creates the unusual closing rule.
// Threshold: max_closing_days (default 60).
func NewUnusualClosingRule() *UnusualClosingRule {
	return &UnusualClosingRule{
		BaseRule: NewBaseRule(
			"UNUSUAL_CLOSING",
			"Unusual Closing Terms",
			"Flags unusual possession timing and closing windows",
			CategoryUnusualClause,
			domain.SeverityMedium,
		),
	}
}

// Evaluate implements Rule.
func (r *UnusualClosingRule) Evaluate(ctx *Context) Result {
	sev := r.SeverityFor(ctx.State)
	var flags []domain.RiskFlag

	if ctx.ContainsAny("early possession", "possession before closing", "possession prior to closing") {
		flags = append(flags, r.Flag("EARLY_POSSESSION",
			"Buyer takes possession before closing", domain.SeverityHigh))
	}
	if ctx.ContainsAny("delayed possession", "possession after closing") {
		flags = append(flags, r.Flag("DELAYED_POSSESSION",
			"Possession is delayed past closing", sev))
	}
	if days, ok := DaysNear(ctx.Text, "closing", 80); ok {
		maxDays := int(r.Threshold("max_closing_days", 60))
		if days > maxDays {
			flags = append(flags, r.Flag("LONG_CLOSING",
				fmt.Sprintf("Closing window of %d days exceeds %d days", days, maxDays), sev))
		}
	}
	if ctx.ContainsAny("simultaneous close", "simultaneous closing", "double closing") {
		flags = append(flags, r.Flag("SIMULTANEOUS_CLOSE",
			"Transaction depends on a simultaneous closing", sev))
	}

	return r.ResultFrom(flags)
}
