package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
)

// Repository is the sqlite implementation of domain.RiskScoreRepository.
// One row per contract; flags and breakdown are stored as JSON text.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a risk score repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "risk_scores").Logger(),
	}
}

// FindByContractID returns the current score or domain.ErrScoreNotFound.
func (r *Repository) FindByContractID(ctx context.Context, contractID string) (*domain.RiskScore, error) {
	var (
		score        domain.RiskScore
		calculatedAt string
		flagsJSON    string
		breakdown    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT contract_id, score, calculated_at, flags, breakdown FROM risk_scores WHERE contract_id = ?`,
		contractID).
		Scan(&score.ContractID, &score.Score, &calculatedAt, &flagsJSON, &breakdown)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query risk score: %w", err)
	}

	if score.CalculatedAt, err = time.Parse(time.RFC3339Nano, calculatedAt); err != nil {
		return nil, fmt.Errorf("parse calculated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(flagsJSON), &score.Flags); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &score.Breakdown); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	return &score, nil
}

// Upsert inserts or replaces the current score for the contract.
func (r *Repository) Upsert(ctx context.Context, score *domain.RiskScore) error {
	flagsJSON, err := json.Marshal(score.Flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}
	if score.Flags == nil {
		flagsJSON = []byte("[]")
	}
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	if score.Breakdown == nil {
		breakdown = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO risk_scores (contract_id, score, calculated_at, flags, breakdown)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(contract_id) DO UPDATE SET
		   score = excluded.score,
		   calculated_at = excluded.calculated_at,
		   flags = excluded.flags,
		   breakdown = excluded.breakdown`,
		score.ContractID, score.Score, score.CalculatedAt.UTC().Format(time.RFC3339Nano),
		string(flagsJSON), string(breakdown))
	if err != nil {
		return fmt.Errorf("upsert risk score: %w", err)
	}
	return nil
}

// DeleteByContractID removes the current score for the contract.
func (r *Repository) DeleteByContractID(ctx context.Context, contractID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM risk_scores WHERE contract_id = ?`, contractID)
	if err != nil {
		return fmt.Errorf("delete risk score: %w", err)
	}
	return nil
}
