package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// flagActions maps flag codes to curated recommendation texts. Codes not
// listed fall back to a generic "review and address" action.
var flagActions = map[string]string{
	"FIN_CONTINGENCY_MISSING":           "Add a financing contingency before signing, or confirm proof of funds for a cash purchase.",
	"FIN_CONTINGENCY_WAIVED":            "Reconsider waiving the financing contingency; the deposit is at risk if the loan falls through.",
	"APPRAISAL_CONTINGENCY_MISSING":     "Add an appraisal contingency so a low appraisal does not force an out-of-pocket gap.",
	"APPRAISAL_CONTINGENCY_WAIVED":      "Reconsider waiving the appraisal contingency or cap the appraisal gap exposure.",
	"INSPECTION_CONTINGENCY_MISSING":    "Add an inspection contingency with a reasonable review window.",
	"INSPECTION_CONTINGENCY_WAIVED":     "Reconsider waiving the inspection contingency; order at least an informational inspection.",
	"EMD_AMOUNT_TOO_HIGH":               "Negotiate the earnest money deposit down toward the typical 1-3% range.",
	"EMD_REFUND_NON_REFUNDABLE":         "Negotiate refund conditions for the earnest money deposit; a fully non-refundable deposit is unusual.",
	"ESCROW_HOLDER_RISKY_ESCROW":        "Move the earnest money to a neutral escrow or title company; never release it directly to the seller.",
	"DISCLOSURE_MISSING":                "Request all required disclosure documents from the seller.",
	"UNSUPPORTED_STATE":                 "Have a local real estate attorney review state-specific requirements; automated state checks are unavailable.",
	"NY_BOARD_APPROVAL_NO_BOARD_CONTINGENCY": "Make the purchase contingent on co-op board approval before signing.",
	"NY_ATTORNEY_REVIEW_NO_REVIEW_PERIOD":    "Add an attorney review period; New York purchases are customarily attorney-reviewed.",
	"CA_TDS_MISSING":                    "Request the Transfer Disclosure Statement from the seller before removing contingencies.",
	"TX_OPTION_PERIOD_MISSING":          "Negotiate an unrestricted option period with a nominal option fee.",
}

// priorityForSeverity maps flag severities to recommendation priorities.
func priorityForSeverity(s domain.Severity) domain.RecommendationPriority {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return domain.PriorityImmediate
	case domain.SeverityMedium:
		return domain.PrioritySoon
	default:
		return domain.PriorityOptional
	}
}

// Recommend derives prioritized actions from an analysis: one per flag plus
// score-band globals. The result is sorted immediate-first; ties keep
// insertion order.
func Recommend(analysis *domain.RiskAnalysis) []domain.Recommendation {
	var recs []domain.Recommendation

	var flags []domain.RiskFlag
	score := 100
	if analysis.Score != nil {
		flags = analysis.Score.Flags
		score = analysis.Score.Score
	}

	for _, f := range flags {
		action, ok := flagActions[f.Code]
		if !ok {
			action = actionForPrefix(f.Code)
		}
		if action == "" {
			action = fmt.Sprintf("Review and address: %s", f.Description)
		}
		recs = append(recs, domain.Recommendation{
			Priority: priorityForSeverity(f.Severity),
			Action:   action,
			FlagCode: f.Code,
		})
	}

	if score < 40 {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityImmediate,
			Action:   "Have a real estate attorney review this contract before proceeding.",
		})
	}
	if score < 60 {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PrioritySoon,
			Action:   "Negotiate or address the flagged terms before removing contingencies.",
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
	return recs
}

// actionForPrefix covers flag families where every local code shares one
// sensible action.
func actionForPrefix(code string) string {
	switch {
	case strings.HasPrefix(code, "DISCLOSURE_"):
		return "Request all required disclosure documents from the seller."
	case strings.HasPrefix(code, "UNUSUAL_PHRASES_"):
		return "Have the flagged clause language reviewed by an attorney before signing."
	default:
		return ""
	}
}
