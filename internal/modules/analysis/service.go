// Package analysis is the orchestrator turning a contract id into a full
// risk analysis: rule evaluation, optional AI augmentation, scoring,
// persistence, and a TTL cache with per-contract single-flight.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/history"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
	"github.com/dealsentry/dealsentry/internal/modules/rules/states"
	"github.com/dealsentry/dealsentry/internal/modules/scoring"
)

// DefaultCacheTTL applies when an analysis request carries no TTL.
const DefaultCacheTTL = time.Hour

// Options controls one analysis invocation.
type Options struct {
	SkipAI       bool          `json:"skip_ai"`
	ForceRefresh bool          `json:"force_refresh"`
	CacheTTL     time.Duration `json:"cache_ttl"`
}

// Service is the analysis orchestrator.
type Service struct {
	contracts domain.ContractRepository
	scores    domain.RiskScoreRepository
	history   *history.Service
	aiClient  AIClient
	log       zerolog.Logger

	cache      *resultCache
	defaultTTL time.Duration
	group      singleflight.Group

	// Per-contract locks serialize computations so analyses for the same
	// contract are totally ordered.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates the analysis orchestrator. cacheTTL is the fallback for
// requests that carry no TTL; zero means DefaultCacheTTL.
func NewService(
	contracts domain.ContractRepository,
	scores domain.RiskScoreRepository,
	historySvc *history.Service,
	aiClient AIClient,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		contracts:  contracts,
		scores:     scores,
		history:    historySvc,
		aiClient:   aiClient,
		log:        log.With().Str("service", "analysis").Logger(),
		cache:      newResultCache(),
		defaultTTL: cacheTTL,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Analyze produces the risk analysis for one contract. Within the TTL a
// cached result is returned without recomputation; concurrent callers with
// the same options join a single in-flight computation.
func (s *Service) Analyze(ctx context.Context, contractID string, opts Options) (*domain.RiskAnalysis, error) {
	if contractID == "" {
		return nil, fmt.Errorf("%w: contract id is required", domain.ErrValidation)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	if !opts.ForceRefresh {
		if cached, ok := s.cache.Get(contractID, ttl); ok {
			return cached, nil
		}
	}

	key := fmt.Sprintf("%s|skipai=%t", contractID, opts.SkipAI)
	if opts.ForceRefresh {
		// A refresh must not join an in-flight computation; it queues
		// behind it on the per-contract lock instead.
		s.group.Forget(key)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.compute(ctx, contractID, opts, ttl)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.RiskAnalysis), nil
}

func (s *Service) contractLock(contractID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[contractID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[contractID] = l
	}
	return l
}

func (s *Service) compute(ctx context.Context, contractID string, opts Options, ttl time.Duration) (*domain.RiskAnalysis, error) {
	l := s.contractLock(contractID)
	l.Lock()
	defer l.Unlock()

	// A computation that queued behind another may find a fresh result.
	if !opts.ForceRefresh {
		if cached, ok := s.cache.Get(contractID, ttl); ok {
			return cached, nil
		}
	}

	started := time.Now()

	contract, err := s.contracts.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	ruleCtx := rules.NewContext(contract)

	engine := rules.NewEngine(s.log)
	engine.RegisterAll(rules.GeneralRules())
	if contract.State != "" {
		if states.IsSupported(contract.State) {
			engine.RegisterAll(states.CreateRules(contract.State))
		}
	}

	results := engine.Evaluate(ruleCtx)
	flags := rules.AggregateFlags(results)

	if contract.State != "" && !states.IsSupported(contract.State) {
		flags = append(flags, domain.RiskFlag{
			Code:        "UNSUPPORTED_STATE",
			Description: fmt.Sprintf("State %q has no state-specific rule set; only general rules were applied", contract.State),
			Severity:    domain.SeverityMedium,
		})
	}

	var signals aiSignals
	if !opts.SkipAI && len(ruleCtx.Text) > 0 {
		signals = s.fetchAISignals(ctx, contractID, ruleCtx.Text)
		flags = append(flags, signals.flags...)
	}

	input := scoring.BuildEngineInput(contract)
	input.UnusualClauses = append(input.UnusualClauses, signals.unusualClauses...)
	out := scoring.Calculate(input, scoring.DefaultWeights())
	finalScore := scoring.ApplySeverityPenalties(out.TotalScore, flags)

	// Cancellation before persistence leaves no partial state.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}

	score := &domain.RiskScore{
		ContractID:   contractID,
		Score:        finalScore,
		CalculatedAt: time.Now().UTC(),
		Flags:        flags,
		Breakdown:    out.Breakdown,
	}
	if err := s.scores.Upsert(ctx, score); err != nil {
		return nil, fmt.Errorf("persist score: %w", err)
	}
	if err := s.history.Append(ctx, contractID, domain.RiskHistoryEntry{
		AnalyzedAt: score.CalculatedAt,
		Score:      finalScore,
		Flags:      flags,
	}); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	analysis := &domain.RiskAnalysis{
		ContractID:   contractID,
		Summary:      composeSummary(finalScore, flags, len(signals.unusualClauses)),
		Score:        score,
		Explanations: composeExplanations(flags, len(signals.unusualClauses)),
	}

	s.cache.Set(contractID, analysis)

	s.log.Info().
		Str("contract_id", contractID).
		Int("score", finalScore).
		Int("flags", len(flags)).
		Dur("took", time.Since(started)).
		Msg("Contract analyzed")
	return analysis, nil
}

func composeSummary(score int, flags []domain.RiskFlag, unusualCount int) string {
	var critical, high int
	for _, f := range flags {
		switch f.Severity {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityHigh:
			high++
		}
	}
	return fmt.Sprintf("%s risk (score %d/100): %d critical, %d high severity findings, %d unusual clauses",
		scoring.RiskLevel(score), score, critical, high, unusualCount)
}

func composeExplanations(flags []domain.RiskFlag, unusualCount int) []string {
	explanations := make([]string, 0, len(flags)+1)
	for _, f := range flags {
		explanations = append(explanations, fmt.Sprintf("%s: %s", f.Severity, f.Description))
	}
	if unusualCount > 0 {
		explanations = append(explanations, fmt.Sprintf("AI review identified %d unusual clause(s)", unusualCount))
	}
	return explanations
}

// BatchFailure records one failed item of a batch analysis.
type BatchFailure struct {
	ContractID string `json:"contract_id"`
	Error      string `json:"error"`
}

// BatchResult reports the per-item outcome of a batch analysis.
// len(Completed) + len(Failed) always equals the input length.
type BatchResult struct {
	Completed []*domain.RiskAnalysis `json:"completed"`
	Failed    []BatchFailure         `json:"failed"`
	TotalTime time.Duration          `json:"total_time"`
}

// AnalyzeBatch analyzes contracts sequentially. Failures are recorded per
// item and do not abort the batch; cancellation is checked between items
// and marks the remainder failed.
func (s *Service) AnalyzeBatch(ctx context.Context, contractIDs []string, opts Options) *BatchResult {
	started := time.Now()
	result := &BatchResult{
		Completed: []*domain.RiskAnalysis{},
		Failed:    []BatchFailure{},
	}

	for i, id := range contractIDs {
		if err := ctx.Err(); err != nil {
			for _, rest := range contractIDs[i:] {
				result.Failed = append(result.Failed, BatchFailure{ContractID: rest, Error: domain.ErrCancelled.Error()})
			}
			break
		}

		analysis, err := s.Analyze(ctx, id, opts)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{ContractID: id, Error: err.Error()})
			continue
		}
		result.Completed = append(result.Completed, analysis)
	}

	result.TotalTime = time.Since(started)
	return result
}

// Get returns the cached or freshly computed analysis with default options.
func (s *Service) Get(ctx context.Context, contractID string) (*domain.RiskAnalysis, error) {
	return s.Analyze(ctx, contractID, Options{})
}

// ClearCache evicts one contract's cached analysis, or every entry when
// contractID is empty.
func (s *Service) ClearCache(contractID string) {
	if contractID == "" {
		s.cache.Clear()
		return
	}
	s.cache.Delete(contractID)
}

// SweepCache drops cache entries older than maxAge; used by maintenance.
func (s *Service) SweepCache(maxAge time.Duration) int {
	return s.cache.SweepOlderThan(maxAge)
}
