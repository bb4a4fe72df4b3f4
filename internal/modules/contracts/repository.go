// Package contracts provides the sqlite-backed contract repository.
package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
)

// Repository is the sqlite implementation of domain.ContractRepository.
// A contract row owns its clause, disclosure, addendum and document rows;
// child collections are replaced wholesale on update.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates a contract repository.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "contracts").Logger(),
	}
}

// FindByID loads one contract with all child collections.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	var (
		c         domain.Contract
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, user_id, organization_id, state, status, contract_text, created_at, updated_at
		 FROM contracts WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.UserID, &c.OrganizationID, &c.State, &c.Status, &c.ContractText, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query contract: %w", err)
	}

	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if err := r.loadChildren(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAll returns every contract with its child collections.
func (r *Repository) FindAll(ctx context.Context) ([]domain.Contract, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM contracts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Contract, 0, len(ids))
	for _, id := range ids {
		c, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// Create inserts a contract and its child collections. A missing id is
// generated; timestamps are set when zero.
func (r *Repository) Create(ctx context.Context, c *domain.Contract) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = domain.StatusDraft
	}

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contracts (id, title, user_id, organization_id, state, status, contract_text, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.UserID, c.OrganizationID, c.State, c.Status, c.ContractText,
			c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}
		return r.insertChildren(ctx, tx, c)
	})
}

// Update replaces the contract row and all child collections.
func (r *Repository) Update(ctx context.Context, c *domain.Contract) error {
	c.UpdatedAt = time.Now().UTC()

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE contracts SET title = ?, user_id = ?, organization_id = ?, state = ?, status = ?,
			        contract_text = ?, updated_at = ?
			 WHERE id = ?`,
			c.Title, c.UserID, c.OrganizationID, c.State, c.Status, c.ContractText,
			c.UpdatedAt.Format(time.RFC3339Nano), c.ID)
		if err != nil {
			return fmt.Errorf("update contract: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return domain.ErrContractNotFound
		}

		for _, table := range []string{"clauses", "disclosures", "addenda", "documents"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE contract_id = ?", table), c.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return r.insertChildren(ctx, tx, c)
	})
}

// DeleteByID removes a contract; child rows cascade.
func (r *Repository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete contract: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) insertChildren(ctx context.Context, tx *sql.Tx, c *domain.Contract) error {
	for _, cl := range c.Clauses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clauses (contract_id, text, type, flagged) VALUES (?, ?, ?, ?)`,
			c.ID, cl.Text, cl.Type, boolToInt(cl.Flagged)); err != nil {
			return fmt.Errorf("insert clause: %w", err)
		}
	}
	for _, d := range c.Disclosures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO disclosures (contract_id, name, required, provided) VALUES (?, ?, ?, ?)`,
			c.ID, d.Name, boolToInt(d.Required), boolToInt(d.Provided)); err != nil {
			return fmt.Errorf("insert disclosure: %w", err)
		}
	}
	for _, a := range c.Addenda {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO addenda (contract_id, name, included) VALUES (?, ?, ?)`,
			c.ID, a.Name, boolToInt(a.Included)); err != nil {
			return fmt.Errorf("insert addendum: %w", err)
		}
	}
	for _, d := range c.Documents {
		uploadedAt := d.UploadedAt
		if uploadedAt.IsZero() {
			uploadedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (contract_id, url, media_type, uploaded_at) VALUES (?, ?, ?, ?)`,
			c.ID, d.URL, d.MediaType, uploadedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}
	return nil
}

func (r *Repository) loadChildren(ctx context.Context, c *domain.Contract) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT text, type, flagged FROM clauses WHERE contract_id = ? ORDER BY id ASC`, c.ID)
	if err != nil {
		return fmt.Errorf("query clauses: %w", err)
	}
	for rows.Next() {
		var (
			cl      domain.Clause
			flagged int
		)
		if err := rows.Scan(&cl.Text, &cl.Type, &flagged); err != nil {
			rows.Close()
			return fmt.Errorf("scan clause: %w", err)
		}
		cl.Flagged = flagged != 0
		c.Clauses = append(c.Clauses, cl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT name, required, provided FROM disclosures WHERE contract_id = ? ORDER BY id ASC`, c.ID)
	if err != nil {
		return fmt.Errorf("query disclosures: %w", err)
	}
	for rows.Next() {
		var (
			d                  domain.Disclosure
			required, provided int
		)
		if err := rows.Scan(&d.Name, &required, &provided); err != nil {
			rows.Close()
			return fmt.Errorf("scan disclosure: %w", err)
		}
		d.Required = required != 0
		d.Provided = provided != 0
		c.Disclosures = append(c.Disclosures, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT name, included FROM addenda WHERE contract_id = ? ORDER BY id ASC`, c.ID)
	if err != nil {
		return fmt.Errorf("query addenda: %w", err)
	}
	for rows.Next() {
		var (
			a        domain.Addendum
			included int
		)
		if err := rows.Scan(&a.Name, &included); err != nil {
			rows.Close()
			return fmt.Errorf("scan addendum: %w", err)
		}
		a.Included = included != 0
		c.Addenda = append(c.Addenda, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT url, media_type, uploaded_at FROM documents WHERE contract_id = ? ORDER BY id ASC`, c.ID)
	if err != nil {
		return fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			d          domain.Document
			uploadedAt string
		)
		if err := rows.Scan(&d.URL, &d.MediaType, &uploadedAt); err != nil {
			return fmt.Errorf("scan document: %w", err)
		}
		if d.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt); err != nil {
			return fmt.Errorf("parse uploaded_at: %w", err)
		}
		c.Documents = append(c.Documents, d)
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
