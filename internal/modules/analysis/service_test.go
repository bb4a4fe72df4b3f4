package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/clients/ai"
	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/history"
)

type memContracts struct {
	mu        sync.Mutex
	contracts map[string]*domain.Contract
	findCalls int32
}

func newMemContracts(contracts ...*domain.Contract) *memContracts {
	m := &memContracts{contracts: make(map[string]*domain.Contract)}
	for _, c := range contracts {
		m.contracts[c.ID] = c
	}
	return m
}

func (m *memContracts) FindByID(ctx context.Context, id string) (*domain.Contract, error) {
	atomic.AddInt32(&m.findCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, domain.ErrContractNotFound
	}
	return c, nil
}
func (m *memContracts) FindAll(ctx context.Context) ([]domain.Contract, error) { return nil, nil }
func (m *memContracts) Create(ctx context.Context, c *domain.Contract) error   { return nil }
func (m *memContracts) Update(ctx context.Context, c *domain.Contract) error   { return nil }
func (m *memContracts) DeleteByID(ctx context.Context, id string) (bool, error) {
	return false, nil
}

type memScores struct {
	mu      sync.Mutex
	scores  map[string]*domain.RiskScore
	upserts int
}

func newMemScores() *memScores {
	return &memScores{scores: make(map[string]*domain.RiskScore)}
}

func (m *memScores) FindByContractID(ctx context.Context, contractID string) (*domain.RiskScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scores[contractID]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	return s, nil
}

func (m *memScores) Upsert(ctx context.Context, score *domain.RiskScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[score.ContractID] = score
	m.upserts++
	return nil
}

func (m *memScores) DeleteByContractID(ctx context.Context, contractID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, contractID)
	return nil
}

type memHistory struct {
	mu      sync.Mutex
	entries map[string][]domain.RiskHistoryEntry
}

func newMemHistory() *memHistory {
	return &memHistory{entries: make(map[string][]domain.RiskHistoryEntry)}
}

func (m *memHistory) Append(ctx context.Context, contractID string, entry domain.RiskHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[contractID] = append(m.entries[contractID], entry)
	return nil
}

func (m *memHistory) FindByContractID(ctx context.Context, contractID string) ([]domain.RiskHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RiskHistoryEntry{}, m.entries[contractID]...), nil
}

func (m *memHistory) TrimToCap(ctx context.Context, contractID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries[contractID]) > domain.HistoryCap {
		m.entries[contractID] = m.entries[contractID][len(m.entries[contractID])-domain.HistoryCap:]
	}
	return nil
}

func (m *memHistory) DeleteByContractID(ctx context.Context, contractID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, contractID)
	return nil
}

func (m *memHistory) count(contractID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[contractID])
}

// fakeAI answers every prompt with the configured response and counts calls.
type fakeAI struct {
	calls    int32
	response *ai.Response
}

func (f *fakeAI) Call(ctx context.Context, req ai.Request) (*ai.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.response != nil {
		return f.response, nil
	}
	return &ai.Response{Raw: `{"risks": [], "items": []}`}, nil
}

type testEnv struct {
	svc       *Service
	contracts *memContracts
	scores    *memScores
	histRepo  *memHistory
	ai        *fakeAI
}

func newTestEnv(t *testing.T, contracts ...*domain.Contract) *testEnv {
	t.Helper()
	env := &testEnv{
		contracts: newMemContracts(contracts...),
		scores:    newMemScores(),
		histRepo:  newMemHistory(),
		ai:        &fakeAI{},
	}
	histSvc := history.NewService(env.histRepo, env.scores, zerolog.Nop())
	env.svc = NewService(env.contracts, env.scores, histSvc, env.ai, 0, zerolog.Nop())
	return env
}

func cleanContract(id string) *domain.Contract {
	return &domain.Contract{
		ID:    id,
		State: "CA",
		Clauses: []domain.Clause{
			{Text: "Financing contingency of 21 days applies to this purchase."},
			{Text: "Inspection contingency of 10 days from acceptance."},
			{Text: "Earnest money of $10,000 shall be applied toward the purchase price of $500,000."},
		},
		Disclosures: []domain.Disclosure{
			{Name: "TDS", Required: true, Provided: true},
			{Name: "NHD", Required: true, Provided: true},
			{Name: "Lead-Based Paint Disclosure", Required: true, Provided: true},
		},
	}
}

func TestAnalyze_CleanContract(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{SkipAI: true})

	require.NoError(t, err)
	require.NotNil(t, analysis.Score)
	assert.Empty(t, analysis.Score.Flags)
	assert.Greater(t, analysis.Score.Score, 90)
	assert.Contains(t, analysis.Summary, "Low risk")
	assert.Equal(t, 1, env.histRepo.count("c1"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.ai.calls))
}

func TestAnalyze_MissingFinancingContingency(t *testing.T) {
	contract := cleanContract("c1")
	contract.Clauses = contract.Clauses[1:]
	env := newTestEnv(t, contract)

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{SkipAI: true})

	require.NoError(t, err)
	require.Len(t, analysis.Score.Flags, 1)
	assert.Equal(t, "FIN_CONTINGENCY_MISSING", analysis.Score.Flags[0].Code)
	assert.Equal(t, domain.SeverityCritical, analysis.Score.Flags[0].Severity)
}

func TestAnalyze_EmptyContractID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Analyze(context.Background(), "", Options{})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAnalyze_ContractNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Analyze(context.Background(), "ghost", Options{})

	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestAnalyze_CachedWithinTTL(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	ctx := context.Background()

	first, err := env.svc.Analyze(ctx, "c1", Options{SkipAI: true})
	require.NoError(t, err)

	second, err := env.svc.Analyze(ctx, "c1", Options{SkipAI: true})
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.contracts.findCalls))
	assert.Equal(t, 1, env.histRepo.count("c1"))
}

func TestAnalyze_ForceRefreshRecomputes(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	ctx := context.Background()

	_, err := env.svc.Analyze(ctx, "c1", Options{SkipAI: true})
	require.NoError(t, err)

	_, err = env.svc.Analyze(ctx, "c1", Options{SkipAI: true, ForceRefresh: true})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&env.contracts.findCalls))
	assert.Equal(t, 2, env.histRepo.count("c1"))
}

func TestAnalyze_ClearCacheEvicts(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	ctx := context.Background()

	_, err := env.svc.Analyze(ctx, "c1", Options{SkipAI: true})
	require.NoError(t, err)

	env.svc.ClearCache("c1")

	_, err = env.svc.Analyze(ctx, "c1", Options{SkipAI: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&env.contracts.findCalls))
}

func TestAnalyze_ConcurrentSingleComputation(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Analyze(ctx, "c1", Options{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// One computation issues at most two gateway calls, one per prompt.
	assert.LessOrEqual(t, atomic.LoadInt32(&env.ai.calls), int32(2))
	assert.Equal(t, 1, env.histRepo.count("c1"))
}

func TestAnalyze_UnsupportedStateFlaggedOnce(t *testing.T) {
	contract := cleanContract("c1")
	contract.State = "ZZ"
	env := newTestEnv(t, contract)

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{SkipAI: true})

	require.NoError(t, err)
	var unsupported int
	for _, f := range analysis.Score.Flags {
		if f.Code == "UNSUPPORTED_STATE" {
			unsupported++
			assert.Equal(t, domain.SeverityMedium, f.Severity)
		}
	}
	assert.Equal(t, 1, unsupported)
}

func TestAnalyze_AIGatewayErrorDegradesToRulesOnly(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	env.ai.response = &ai.Response{Error: "upstream timeout"}

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{})

	require.NoError(t, err)
	assert.Empty(t, analysis.Score.Flags)
	for _, e := range analysis.Explanations {
		assert.NotContains(t, e, "AI review")
	}
	assert.Equal(t, 1, env.histRepo.count("c1"))
}

func TestAnalyze_AISignalsAugmentResult(t *testing.T) {
	payload := map[string]interface{}{
		"risks": []map[string]interface{}{
			{"code": "vague_repair_terms", "description": "Repair obligations are undefined", "severity": "high"},
			{"code": "", "description": "dropped, no code", "severity": "low"},
		},
		"items": []map[string]interface{}{
			{"text": "Seller may remain 90 days after closing", "reason": "unusual possession"},
		},
	}
	parsed, err := json.Marshal(payload)
	require.NoError(t, err)
	var asMap map[string]interface{}
	require.NoError(t, json.Unmarshal(parsed, &asMap))

	env := newTestEnv(t, cleanContract("c1"))
	env.ai.response = &ai.Response{Parsed: asMap}

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{})

	require.NoError(t, err)
	require.Len(t, analysis.Score.Flags, 1)
	assert.Equal(t, "VAGUE_REPAIR_TERMS", analysis.Score.Flags[0].Code)
	assert.Equal(t, domain.SeverityHigh, analysis.Score.Flags[0].Severity)

	var sawAINote bool
	for _, e := range analysis.Explanations {
		if strings.Contains(e, "AI review identified 1 unusual clause") {
			sawAINote = true
		}
	}
	assert.True(t, sawAINote)
}

func TestAnalyze_InvalidAISeverityDefaultsToMedium(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	env.ai.response = &ai.Response{
		Raw: `{"risks": [{"code": "ODD_TERM", "description": "something", "severity": "catastrophic"}], "items": []}`,
	}

	analysis, err := env.svc.Analyze(context.Background(), "c1", Options{})

	require.NoError(t, err)
	require.Len(t, analysis.Score.Flags, 1)
	assert.Equal(t, domain.SeverityMedium, analysis.Score.Flags[0].Severity)
}

func TestAnalyze_CancelledBeforePersistence(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Analyze(ctx, "c1", Options{SkipAI: true})

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, 0, env.scores.upserts)
	assert.Equal(t, 0, env.histRepo.count("c1"))
}

func TestAnalyzeBatch_LenInvariant(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"), cleanContract("c2"))

	result := env.svc.AnalyzeBatch(context.Background(), []string{"c1", "ghost", "c2"}, Options{SkipAI: true})

	assert.Len(t, result.Completed, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ghost", result.Failed[0].ContractID)
	assert.Equal(t, 3, len(result.Completed)+len(result.Failed))
}

func TestAnalyzeBatch_CancelledMarksRemainder(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"), cleanContract("c2"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := env.svc.AnalyzeBatch(ctx, []string{"c1", "c2"}, Options{SkipAI: true})

	assert.Empty(t, result.Completed)
	require.Len(t, result.Failed, 2)
	for _, f := range result.Failed {
		assert.Equal(t, domain.ErrCancelled.Error(), f.Error)
	}
}

func TestSweepCache(t *testing.T) {
	env := newTestEnv(t, cleanContract("c1"))

	_, err := env.svc.Analyze(context.Background(), "c1", Options{SkipAI: true})
	require.NoError(t, err)

	assert.Equal(t, 0, env.svc.SweepCache(time.Hour))
	assert.Equal(t, 1, env.svc.SweepCache(0))
}
