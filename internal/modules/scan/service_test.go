package scan

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/clients/ai"
	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type stubContracts struct {
	contract *domain.Contract
}

func (s *stubContracts) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	if s.contract == nil || s.contract.ID != id {
		return nil, domain.ErrContractNotFound
	}
	return s.contract, nil
}
func (s *stubContracts) FindAll(ctx context.Context) ([]domain.Contract, error) { return nil, nil }
func (s *stubContracts) Create(ctx context.Context, c *domain.Contract) error   { return nil }
func (s *stubContracts) Update(ctx context.Context, c *domain.Contract) error   { return nil }
func (s *stubContracts) DeleteByID(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type fakeGateway struct {
	response *ai.Response
}

func (f *fakeGateway) Call(ctx context.Context, req ai.Request) (*ai.Response, error) {
	if f.response != nil {
		return f.response, nil
	}
	return &ai.Response{Raw: `{"items": []}`}, nil
}

func newScanService(t *testing.T, contracts domain.ContractRepository, gateway AIClient) *Service {
	t.Helper()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	if contracts == nil {
		contracts = &stubContracts{}
	}
	return NewService(repo, contracts, gateway, zerolog.Nop())
}

const cleanScanText = "Financing contingency of 21 days applies to this purchase.\n" +
	"Inspection contingency of 10 days from acceptance.\n" +
	"Earnest money of $10,000 shall be applied toward the purchase price of $500,000."

func TestCreate_DefaultsToBasic(t *testing.T) {
	svc := newScanService(t, nil, nil)

	scan, err := svc.Create(context.Background(), Request{DocumentURL: "https://docs/x.pdf"})

	require.NoError(t, err)
	assert.Equal(t, TypeBasic, scan.Type)
	assert.Equal(t, StatusPending, scan.Status)
	assert.NotEmpty(t, scan.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf", Type: "deep"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(ctx, Request{Type: TypeBasic})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestGet_NotFound(t *testing.T) {
	svc := newScanService(t, nil, nil)

	_, err := svc.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestExecute_Completes(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	result, err := svc.Execute(ctx, scan.ID, cleanScanText, Options{State: "CA"})
	require.NoError(t, err)

	assert.Equal(t, ReduceFindings(result.Findings), result.Score)
	assert.False(t, result.CompletedAt.IsZero())

	stored, err := svc.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.Score)
	assert.Equal(t, result.Score, *stored.Score)
	require.NotNil(t, stored.CompletedAt)
}

func TestExecute_SkipAllSteps(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	result, err := svc.Execute(ctx, scan.ID, cleanScanText, Options{
		SkipClauseExtraction: true,
		SkipRiskDetection:    true,
		SkipUnusualClauses:   true,
		SkipStateRules:       true,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Findings)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Errors)
}

func TestExecute_UnsupportedStateRecordsStepError(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	result, err := svc.Execute(ctx, scan.ID, cleanScanText, Options{State: "ZZ"})
	require.NoError(t, err)

	var sawStateError bool
	for _, e := range result.Errors {
		if strings.Contains(e, "apply state rules") {
			sawStateError = true
		}
	}
	assert.True(t, sawStateError)

	stored, err := svc.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestExecute_AIUnusualClauses(t *testing.T) {
	gateway := &fakeGateway{response: &ai.Response{
		Raw: `{"items": [{"text": "Seller may remain 90 days after closing", "reason": "unusual possession"}]}`,
	}}
	svc := newScanService(t, nil, gateway)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	result, err := svc.Execute(ctx, scan.ID, cleanScanText, Options{
		SkipRiskDetection: true,
	})
	require.NoError(t, err)

	var found *domain.RiskFlag
	for i := range result.Findings {
		if result.Findings[i].Code == "UNUSUAL_CLAUSE_1" {
			found = &result.Findings[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, domain.SeverityMedium, found.Severity)
	assert.Contains(t, found.Description, "unusual possession")
}

func TestExecute_Cancelled(t *testing.T) {
	svc := newScanService(t, nil, nil)

	scan, err := svc.Create(context.Background(), Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.Execute(ctx, scan.ID, cleanScanText, Options{})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestSubscribe_ProgressReachesCompletion(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)

	updates, cancel := svc.Subscribe(scan.ID)
	defer cancel()

	_, err = svc.Execute(ctx, scan.ID, cleanScanText, Options{})
	require.NoError(t, err)

	var last Progress
	for {
		select {
		case p := <-updates:
			assert.GreaterOrEqual(t, p.Progress, last.Progress)
			last = p
			continue
		default:
		}
		break
	}
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, StatusCompleted, last.Status)
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)
	_, err = svc.Execute(ctx, scan.ID, cleanScanText, Options{})
	require.NoError(t, err)

	_, err = svc.Retry(ctx, scan.ID, Options{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRetry_RebuildsTextFromContract(t *testing.T) {
	contract := &domain.Contract{
		ID:    "c1",
		State: "CA",
		Clauses: []domain.Clause{
			{Text: "Financing contingency of 21 days applies to this purchase."},
		},
	}
	svc := newScanService(t, &stubContracts{contract: contract}, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{ContractID: "c1"})
	require.NoError(t, err)
	require.NoError(t, svc.MarkFailed(ctx, scan.ID, "gateway exploded"))

	result, err := svc.Retry(ctx, scan.ID, Options{})
	require.NoError(t, err)
	assert.Equal(t, ReduceFindings(result.Findings), result.Score)

	stored, err := svc.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Empty(t, stored.Errors)
}

func TestMarkFailed(t *testing.T) {
	svc := newScanService(t, nil, nil)
	ctx := context.Background()

	scan, err := svc.Create(ctx, Request{DocumentURL: "https://docs/x.pdf"})
	require.NoError(t, err)
	require.NoError(t, svc.MarkFailed(ctx, scan.ID, "upstream timeout"))

	stored, err := svc.Get(ctx, scan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "upstream timeout", stored.Message)
	assert.Contains(t, stored.Errors, "upstream timeout")
	assert.NotNil(t, stored.CompletedAt)
}

func TestExtractClauses(t *testing.T) {
	text := "First paragraph about financing.\n\nSecond paragraph about inspection.\n\n\n"

	clauses := extractClauses(text)

	require.Len(t, clauses, 2)
	assert.Equal(t, "First paragraph about financing.", clauses[0])
	assert.Equal(t, "Second paragraph about inspection.", clauses[1])
}

func TestExtractClauses_LongParagraphSplitsIntoSentences(t *testing.T) {
	sentence := "The parties agree that all repairs identified in the inspection report shall be completed"
	long := strings.Repeat(sentence+". ", 6)

	clauses := extractClauses(long)

	require.Greater(t, len(clauses), 1)
	for _, c := range clauses {
		assert.GreaterOrEqual(t, len(c), 20)
	}
}

func TestReduceFindings(t *testing.T) {
	findings := []domain.RiskFlag{
		{Severity: domain.SeverityCritical},
		{Severity: domain.SeverityHigh},
		{Severity: domain.SeverityMedium},
		{Severity: domain.SeverityLow},
	}

	assert.Equal(t, 100-25-15-5-2, ReduceFindings(findings))
	assert.Equal(t, 100, ReduceFindings(nil))

	var pile []domain.RiskFlag
	for i := 0; i < 10; i++ {
		pile = append(pile, domain.RiskFlag{Severity: domain.SeverityCritical})
	}
	assert.Equal(t, 0, ReduceFindings(pile))
}
