package history

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// Thresholds for the three-way trend classification.
const (
	improvingDelta = 5
	worseningDelta = -5
)

// Service maintains per-contract score history. Writes for the same
// contract are serialized so the cap and append-order invariants hold under
// concurrent analyses.
type Service struct {
	repo   domain.RiskHistoryRepository
	scores domain.RiskScoreRepository
	log    zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a history service.
func NewService(repo domain.RiskHistoryRepository, scores domain.RiskScoreRepository, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		scores: scores,
		log:    log.With().Str("service", "history").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}
}

// contractLock returns the write lock for one contract.
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

// Append records one history entry and trims the contract's history to the
// cap, oldest entries first.
func (s *Service) Append(ctx context.Context, contractID string, entry domain.RiskHistoryEntry) error {
	l := s.contractLock(contractID)
	l.Lock()
	defer l.Unlock()

	if entry.AnalyzedAt.IsZero() {
		entry.AnalyzedAt = time.Now().UTC()
	}
	if err := s.repo.Append(ctx, contractID, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	if err := s.repo.TrimToCap(ctx, contractID); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

// Get returns the contract's history, oldest entry first.
func (s *Service) Get(ctx context.Context, contractID string) (*domain.RiskHistory, error) {
	entries, err := s.repo.FindByContractID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return &domain.RiskHistory{ContractID: contractID, Entries: entries}, nil
}

// Trend classifies the latest score movement. The current score comes from
// the score repository; the previous one is the second-newest history entry.
// Contracts with at most one history entry report direction "new".
func (s *Service) Trend(ctx context.Context, contractID string) (*domain.Trend, error) {
	entries, err := s.repo.FindByContractID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	trend := &domain.Trend{ContractID: contractID, HistoryCount: len(entries)}

	current, err := s.scores.FindByContractID(ctx, contractID)
	if err != nil {
		if errors.Is(err, domain.ErrScoreNotFound) {
			trend.Direction = domain.TrendNew
			return trend, nil
		}
		return nil, err
	}
	trend.CurrentScore = current.Score

	if len(entries) <= 1 {
		trend.Direction = domain.TrendNew
		return trend, nil
	}

	trend.PreviousScore = entries[len(entries)-2].Score
	trend.ScoreChange = trend.CurrentScore - trend.PreviousScore
	switch {
	case trend.ScoreChange > improvingDelta:
		trend.Direction = domain.TrendImproving
	case trend.ScoreChange < worseningDelta:
		trend.Direction = domain.TrendWorsening
	default:
		trend.Direction = domain.TrendStable
	}
	return trend, nil
}

// FlagChanges diffs the flag-code sets of the two most recent entries.
// Original flag objects are preserved. With fewer than two entries every
// current flag is "new" and nothing is resolved.
func (s *Service) FlagChanges(ctx context.Context, contractID string) (*domain.FlagChanges, error) {
	entries, err := s.repo.FindByContractID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	changes := &domain.FlagChanges{New: []domain.RiskFlag{}, Resolved: []domain.RiskFlag{}}
	if len(entries) == 0 {
		return changes, nil
	}

	current := entries[len(entries)-1].Flags
	var previous []domain.RiskFlag
	if len(entries) >= 2 {
		previous = entries[len(entries)-2].Flags
	}

	prevCodes := make(map[string]struct{}, len(previous))
	for _, f := range previous {
		prevCodes[f.Code] = struct{}{}
	}
	currCodes := make(map[string]struct{}, len(current))
	for _, f := range current {
		currCodes[f.Code] = struct{}{}
	}

	for _, f := range current {
		if _, ok := prevCodes[f.Code]; !ok {
			changes.New = append(changes.New, f)
		}
	}
	for _, f := range previous {
		if _, ok := currCodes[f.Code]; !ok {
			changes.Resolved = append(changes.Resolved, f)
		}
	}
	return changes, nil
}

// AverageScoreOverTime returns the mean score over entries analyzed within
// the last `days` days, rounded to the nearest integer. With no entry in
// the window it falls back to the latest entry's score; with no entries at
// all it returns 0.
func (s *Service) AverageScoreOverTime(ctx context.Context, contractID string, days int) (int, error) {
	entries, err := s.repo.FindByContractID(ctx, contractID)
	if err != nil {
		return 0, err
	}
	window := windowScores(entries, days, time.Now().UTC())
	if len(window) == 0 {
		if len(entries) == 0 {
			return 0, nil
		}
		return entries[len(entries)-1].Score, nil
	}
	return int(math.Round(stat.Mean(window, nil))), nil
}

// Statistics aggregates the window the same way AverageScoreOverTime does,
// adding min, max and volatility (sample stddev, two decimals).
func (s *Service) Statistics(ctx context.Context, contractID string, days int) (*domain.HistoryStatistics, error) {
	entries, err := s.repo.FindByContractID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	window := windowScores(entries, days, time.Now().UTC())
	if len(window) == 0 {
		stats := &domain.HistoryStatistics{}
		if len(entries) > 0 {
			latest := entries[len(entries)-1].Score
			stats.AverageScore = latest
			stats.MinScore = latest
			stats.MaxScore = latest
			stats.EntryCount = 1
		}
		return stats, nil
	}

	minScore, maxScore := window[0], window[0]
	for _, v := range window {
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}

	var volatility float64
	if len(window) > 1 {
		volatility = math.Round(stat.StdDev(window, nil)*100) / 100
	}

	return &domain.HistoryStatistics{
		AverageScore: int(math.Round(stat.Mean(window, nil))),
		MinScore:     int(minScore),
		MaxScore:     int(maxScore),
		Volatility:   volatility,
		EntryCount:   len(window),
	}, nil
}

// Delete removes the contract's entire history.
func (s *Service) Delete(ctx context.Context, contractID string) error {
	l := s.contractLock(contractID)
	l.Lock()
	defer l.Unlock()
	return s.repo.DeleteByContractID(ctx, contractID)
}

// windowScores returns the scores of entries analyzed within the last
// `days` days relative to now.
func windowScores(entries []domain.RiskHistoryEntry, days int, now time.Time) []float64 {
	cutoff := now.AddDate(0, 0, -days)
	var out []float64
	for _, e := range entries {
		if !e.AnalyzedAt.Before(cutoff) {
			out = append(out, float64(e.Score))
		}
	}
	return out
}
