package scan

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

// Repository persists scan jobs. Findings and errors are stored as JSON
// text; they are read back whole.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a scan repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "scans").Logger(),
	}
}

// Create inserts a scan row.
func (r *Repository) Create(ctx context.Context, s *Scan) error {
	findings, errsJSON, err := encodeCollections(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scans (id, contract_id, document_url, requested_by, scan_type, status, progress,
		                    message, score, findings, errors, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ContractID, s.DocumentURL, s.RequestedBy, s.Type, s.Status, s.Progress,
		s.Message, nullableInt(s.Score), findings, errsJSON,
		s.CreatedAt.UTC().Format(time.RFC3339Nano), nullableTime(s.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a scan row.
func (r *Repository) Update(ctx context.Context, s *Scan) error {
	findings, errsJSON, err := encodeCollections(s)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, progress = ?, message = ?, score = ?, findings = ?, errors = ?, completed_at = ?
		 WHERE id = ?`,
		s.Status, s.Progress, s.Message, nullableInt(s.Score), findings, errsJSON,
		nullableTime(s.CompletedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrScanNotFound
	}
	return nil
}

// FindByID loads one scan or domain.ErrScanNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*Scan, error) {
	var (
		s           Scan
		score       sql.NullInt64
		findings    string
		errsJSON    string
		createdAt   string
		completedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, contract_id, document_url, requested_by, scan_type, status, progress,
		        message, score, findings, errors, created_at, completed_at
		 FROM scans WHERE id = ?`, id).
		Scan(&s.ID, &s.ContractID, &s.DocumentURL, &s.RequestedBy, &s.Type, &s.Status, &s.Progress,
			&s.Message, &score, &findings, &errsJSON, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query scan: %w", err)
	}

	if score.Valid {
		v := int(score.Int64)
		s.Score = &v
	}
	if err := json.Unmarshal([]byte(findings), &s.Findings); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	if err := json.Unmarshal([]byte(errsJSON), &s.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		s.CompletedAt = &t
	}
	return &s, nil
}

func encodeCollections(s *Scan) (string, string, error) {
	findings := s.Findings
	if findings == nil {
		findings = []domain.RiskFlag{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return "", "", fmt.Errorf("encode findings: %w", err)
	}

	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return "", "", fmt.Errorf("encode errors: %w", err)
	}
	return string(findingsJSON), string(errsJSON), nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
