package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Service persists risk scores computed by the engine.
type Service struct {
	contracts domain.ContractRepository
	scores    domain.RiskScoreRepository
	log       zerolog.Logger
}

// NewService creates a risk score service.
func NewService(contracts domain.ContractRepository, scores domain.RiskScoreRepository, log zerolog.Logger) *Service {
	return &Service{
		contracts: contracts,
		scores:    scores,
		log:       log.With().Str("service", "scoring").Logger(),
	}
}

// BuildEngineInput derives the score engine input from a contract: clause
// texts, provided disclosures, included addenda, clauses typed unusual, and
// required-but-missing disclosures.
func BuildEngineInput(c *domain.Contract) EngineInput {
	in := EngineInput{ContractID: c.ID, State: c.State}
	for _, cl := range c.Clauses {
		in.Clauses = append(in.Clauses, cl.Text)
		if cl.Type == domain.ClauseUnusual {
			in.UnusualClauses = append(in.UnusualClauses, cl.Text)
		}
	}
	for _, d := range c.Disclosures {
		if d.Provided {
			in.DisclosuresProvided = append(in.DisclosuresProvided, d.Name)
		} else if d.Required {
			in.MissingDocuments = append(in.MissingDocuments, d.Name)
		}
	}
	for _, a := range c.Addenda {
		if a.Included {
			in.AddendaIncluded = append(in.AddendaIncluded, a.Name)
		}
	}
	return in
}

// Get returns the current persisted score for a contract.
func (s *Service) Get(ctx context.Context, contractID string) (*domain.RiskScore, error) {
	return s.scores.FindByContractID(ctx, contractID)
}

// CalculateAndSave computes the score for a contract from its composition
// plus the given flags, persists it, and returns the stored score. Calling
// it twice with the same inputs persists the same score value.
func (s *Service) CalculateAndSave(ctx context.Context, contractID string, flags []domain.RiskFlag, weights *Weights) (*domain.RiskScore, error) {
	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}

	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}

	out := Calculate(BuildEngineInput(contract), w)
	final := ApplySeverityPenalties(out.TotalScore, flags)

	score := &domain.RiskScore{
		ContractID:   contractID,
		Score:        final,
		CalculatedAt: time.Now().UTC(),
		Flags:        flags,
		Breakdown:    out.Breakdown,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, fmt.Errorf("persist score: %w", err)
	}

	s.log.Debug().
		Str("contract_id", contractID).
		Int("score", final).
		Int("flags", len(flags)).
		Msg("Risk score saved")
	return score, nil
}

// Update validates and replaces the persisted score for a contract.
func (s *Service) Update(ctx context.Context, score *domain.RiskScore) error {
	if score.ContractID == "" {
		return fmt.Errorf("%w: contract id is required", domain.ErrValidation)
	}
	if score.Score < 0 || score.Score > 100 {
		return fmt.Errorf("%w: score must be in [0,100]", domain.ErrValidation)
	}
	for _, f := range score.Flags {
		if !f.Severity.Valid() {
			return fmt.Errorf("%w: invalid severity %q on flag %s", domain.ErrValidation, f.Severity, f.Code)
		}
	}
	if score.CalculatedAt.IsZero() {
		score.CalculatedAt = time.Now().UTC()
	}
	return s.scores.Upsert(ctx, score)
}

// Delete removes the persisted score for a contract.
func (s *Service) Delete(ctx context.Context, contractID string) error {
	return s.scores.DeleteByContractID(ctx, contractID)
}
