package contracts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db, zerolog.Nop())
}

func sampleContract() *domain.Contract {
	return &domain.Contract{
		Title:  "123 Main St Purchase",
		UserID: "u1",
		State:  "CA",
		Clauses: []domain.Clause{
			{Text: "Financing contingency of 21 days.", Type: domain.ClauseStandard},
			{Text: "Seller may remain 90 days after closing.", Type: domain.ClauseUnusual, Flagged: true},
		},
		Disclosures: []domain.Disclosure{
			{Name: "TDS", Required: true, Provided: true},
			{Name: "NHD", Required: true, Provided: false},
		},
		Addenda: []domain.Addendum{
			{Name: "HOA Addendum", Included: true},
		},
		Documents: []domain.Document{
			{URL: "https://docs/contract.pdf", MediaType: domain.MediaPDF},
		},
	}
}

func TestRepository_CreateAssignsIDAndDefaults(t *testing.T) {
	repo := setupTestRepo(t)
	c := sampleContract()

	require.NoError(t, repo.Create(context.Background(), c))

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, domain.StatusDraft, c.Status)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestRepository_FindByID_RoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	c := sampleContract()
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, c.Title, got.Title)
	assert.Equal(t, "CA", got.State)
	require.Len(t, got.Clauses, 2)
	assert.Equal(t, domain.ClauseUnusual, got.Clauses[1].Type)
	assert.True(t, got.Clauses[1].Flagged)
	require.Len(t, got.Disclosures, 2)
	assert.True(t, got.Disclosures[0].Provided)
	assert.False(t, got.Disclosures[1].Provided)
	require.Len(t, got.Addenda, 1)
	assert.True(t, got.Addenda[0].Included)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "https://docs/contract.pdf", got.Documents[0].URL)
	assert.False(t, got.Documents[0].UploadedAt.IsZero())
}

func TestRepository_FindByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestRepository_FindAll(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleContract()))
	second := sampleContract()
	second.Title = "456 Oak Ave Purchase"
	require.NoError(t, repo.Create(ctx, second))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepository_UpdateReplacesChildren(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	c := sampleContract()
	require.NoError(t, repo.Create(ctx, c))

	c.Title = "123 Main St (amended)"
	c.Clauses = []domain.Clause{{Text: "All cash purchase, no financing."}}
	c.Disclosures = nil
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "123 Main St (amended)", got.Title)
	require.Len(t, got.Clauses, 1)
	assert.Equal(t, "All cash purchase, no financing.", got.Clauses[0].Text)
	assert.Empty(t, got.Disclosures)
}

func TestRepository_Update_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	c := sampleContract()
	c.ID = "ghost"

	err := repo.Update(context.Background(), c)

	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestRepository_DeleteByID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	c := sampleContract()
	require.NoError(t, repo.Create(ctx, c))

	deleted, err := repo.DeleteByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrContractNotFound)

	deleted, err = repo.DeleteByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
