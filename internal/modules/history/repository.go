// Package history maintains the bounded per-contract score history and the
// derived trend, diff and statistics views.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
)

// Repository is the sqlite implementation of domain.RiskHistoryRepository.
// Flags are stored as a msgpack blob per entry; they are read back whole,
// never queried by field.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a risk history repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "risk_history").Logger(),
	}
}

// Append inserts one history entry for the contract.
func (r *Repository) Append(ctx context.Context, contractID string, entry domain.RiskHistoryEntry) error {
	blob, err := msgpack.Marshal(entry.Flags)
	if err != nil {
		return fmt.Errorf("encode flags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO risk_history (contract_id, score, analyzed_at, flags_blob) VALUES (?, ?, ?, ?)`,
		contractID, entry.Score, entry.AnalyzedAt.UTC().Format(time.RFC3339Nano), blob)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// FindByContractID returns the contract's history entries oldest-first.
func (r *Repository) FindByContractID(ctx context.Context, contractID string) ([]domain.RiskHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT score, analyzed_at, flags_blob FROM risk_history WHERE contract_id = ? ORDER BY id ASC`,
		contractID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []domain.RiskHistoryEntry{}
	for rows.Next() {
		var (
			entry      domain.RiskHistoryEntry
			analyzedAt string
			blob       []byte
		)
		if err := rows.Scan(&entry.Score, &analyzedAt, &blob); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.AnalyzedAt, err = time.Parse(time.RFC3339Nano, analyzedAt)
		if err != nil {
			return nil, fmt.Errorf("parse analyzed_at: %w", err)
		}
		if len(blob) > 0 {
			if err := msgpack.Unmarshal(blob, &entry.Flags); err != nil {
				return nil, fmt.Errorf("decode flags: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// TrimToCap deletes the oldest entries beyond domain.HistoryCap.
func (r *Repository) TrimToCap(ctx context.Context, contractID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM risk_history
		 WHERE contract_id = ?
		   AND id NOT IN (
		     SELECT id FROM risk_history WHERE contract_id = ? ORDER BY id DESC LIMIT ?
		   )`,
		contractID, contractID, domain.HistoryCap)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// DeleteByContractID removes the contract's entire history.
func (r *Repository) DeleteByContractID(ctx context.Context, contractID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM risk_history WHERE contract_id = ?`, contractID)
	if err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
