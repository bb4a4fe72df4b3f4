// Package scoring computes numeric risk scores from contract composition
// and rule flags. The engine is pure: no I/O, deterministic for a given
// input and weight set.
package scoring

import (
	"github.com/dealsentry/dealsentry/internal/domain"
)

// Weights carries the per-dimension weights of the score engine.
// All values are non-negative.
type Weights struct {
	Clause          float64 `json:"clause"`
	Disclosure      float64 `json:"disclosure"`
	Addendum        float64 `json:"addendum"`
	UnusualClause   float64 `json:"unusual_clause"`
	MissingDocument float64 `json:"missing_document"`
	StateCompliance float64 `json:"state_compliance"`
}

// DefaultWeights returns the standard weight set.
func DefaultWeights() Weights {
	return Weights{
		Clause:          0.20,
		Disclosure:      0.20,
		Addendum:        0.10,
		UnusualClause:   0.20,
		MissingDocument: 0.20,
		StateCompliance: 0.10,
	}
}

// EngineInput is the contract composition fed to the score engine.
type EngineInput struct {
	ContractID          string   `json:"contract_id"`
	Clauses             []string `json:"clauses"`
	DisclosuresProvided []string `json:"disclosures_provided"`
	AddendaIncluded     []string `json:"addenda_included"`
	UnusualClauses      []string `json:"unusual_clauses"`
	MissingDocuments    []string `json:"missing_documents"`
	State               string   `json:"state"`
}

// EngineOutput is the score engine result.
type EngineOutput struct {
	ContractID string             `json:"contract_id"`
	TotalScore int                `json:"total_score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Weights    Weights            `json:"weights"`
	Flagged    bool               `json:"flagged"`
	Notes      []string           `json:"notes,omitempty"`
}

// flaggedThreshold is the score below which a contract is considered
// high risk.
const flaggedThreshold = 60

// Calculate computes the base score for a contract composition.
// Only the clause, unusual-clause and missing-document dimensions subtract
// from the score; disclosure and addendum contributions are reported in the
// breakdown for transparency. The state-compliance dimension is a reserved
// placeholder carrying its weight verbatim.
func Calculate(in EngineInput, w Weights) EngineOutput {
	breakdown := map[string]float64{
		"clauseScore":          float64(len(in.Clauses)) * w.Clause,
		"disclosureScore":      float64(len(in.DisclosuresProvided)) * w.Disclosure,
		"addendumScore":        float64(len(in.AddendaIncluded)) * w.Addendum,
		"unusualClauseScore":   float64(len(in.UnusualClauses)) * w.UnusualClause,
		"missingDocumentScore": float64(len(in.MissingDocuments)) * w.MissingDocument,
		"stateComplianceScore": w.StateCompliance,
	}

	raw := 100 - (breakdown["clauseScore"] + breakdown["unusualClauseScore"] + breakdown["missingDocumentScore"])
	score := domain.ClampScore(int(raw))

	out := EngineOutput{
		ContractID: in.ContractID,
		TotalScore: score,
		Breakdown:  breakdown,
		Weights:    w,
		Flagged:    score < flaggedThreshold,
	}
	if out.Flagged {
		out.Notes = append(out.Notes, "High risk detected")
	}
	return out
}

// severityPenalties maps flag severities to score deductions used by the
// analysis path.
var severityPenalties = map[domain.Severity]int{
	domain.SeverityCritical: 15,
	domain.SeverityHigh:     10,
	domain.SeverityMedium:   5,
	domain.SeverityLow:      2,
}

// ApplySeverityPenalties subtracts the per-flag severity penalty from the
// score and clamps the result to [0,100].
func ApplySeverityPenalties(score int, flags []domain.RiskFlag) int {
	for _, f := range flags {
		score -= severityPenalties[f.Severity]
	}
	return domain.ClampScore(score)
}

// RiskLevel maps a score to its display label.
func RiskLevel(score int) string {
	switch {
	case score >= 80:
		return "Low"
	case score >= 60:
		return "Moderate"
	case score >= 40:
		return "Elevated"
	case score >= 20:
		return "High"
	default:
		return "Critical"
	}
}

// RiskPalette maps a score to the five-level lowercase palette used in
// UI responses. Thresholds match RiskLevel.
func RiskPalette(score int) string {
	switch {
	case score >= 80:
		return "low"
	case score >= 60:
		return "moderate"
	case score >= 40:
		return "elevated"
	case score >= 20:
		return "high"
	default:
		return "critical"
	}
}
