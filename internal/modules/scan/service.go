package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/clients/ai"
	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/rules"
	"github.com/dealsentry/dealsentry/internal/modules/rules/states"
)

// AIClient is the slice of the gateway client the scan driver consumes.
type AIClient interface {
	Call(ctx context.Context, req ai.Request) (*ai.Response, error)
}

// Service runs scans through their state machine.
type Service struct {
	repo      *Repository
	contracts domain.ContractRepository
	aiClient  AIClient
	hub       *progressHub
	log       zerolog.Logger
}

// NewService creates a scan service. aiClient may be nil; unusual clause
// detection then relies on rules alone.
func NewService(repo *Repository, contracts domain.ContractRepository, aiClient AIClient, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		contracts: contracts,
		aiClient:  aiClient,
		hub:       newProgressHub(),
		log:       log.With().Str("service", "scan").Logger(),
	}
}

// Create registers a new pending scan.
func (s *Service) Create(ctx context.Context, req Request) (*Scan, error) {
	if req.Type == "" {
		req.Type = TypeBasic
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown scan type %q", domain.ErrValidation, req.Type)
	}
	if req.DocumentURL == "" && req.ContractID == "" {
		return nil, fmt.Errorf("%w: a document url or contract id is required", domain.ErrValidation)
	}

	scan := &Scan{
		ID:          uuid.NewString(),
		ContractID:  req.ContractID,
		DocumentURL: req.DocumentURL,
		RequestedBy: req.RequestedBy,
		Type:        req.Type,
		Status:      StatusPending,
		Message:     "Scan created",
		Findings:    []domain.RiskFlag{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

// Get loads one scan.
func (s *Service) Get(ctx context.Context, scanID string) (*Scan, error) {
	return s.repo.FindByID(ctx, scanID)
}

// Subscribe streams progress updates for one scan.
func (s *Service) Subscribe(scanID string) (<-chan Progress, func()) {
	return s.hub.Subscribe(scanID)
}

// Execute runs the scan steps against the contract text. Individual step
// failures are recorded on the scan and do not abort the job; only a
// persistence failure or cancellation fails the whole scan.
func (s *Service) Execute(ctx context.Context, scanID, contractText string, opts Options) (*Result, error) {
	scan, err := s.repo.FindByID(ctx, scanID)
	if err != nil {
		return nil, err
	}

	scan.Status = StatusRunning
	scan.Errors = nil
	scan.Findings = []domain.RiskFlag{}
	scan.Score = nil
	scan.CompletedAt = nil
	if err := s.step(ctx, scan, 10, "Starting scan"); err != nil {
		return nil, err
	}

	ruleCtx := scanContext(contractText, opts.State)

	var clauses []string
	if !opts.SkipClauseExtraction {
		s.runStep(scan, "extract clauses", func() error {
			clauses = extractClauses(contractText)
			return nil
		})
	}
	if err := s.step(ctx, scan, 20, fmt.Sprintf("Extract clauses (%d found)", len(clauses))); err != nil {
		return nil, err
	}

	if !opts.SkipRiskDetection {
		s.runStep(scan, "detect risks", func() error {
			engine := rules.NewEngine(s.log)
			for _, r := range rules.GeneralRules() {
				if r.Category() != rules.CategoryUnusualClause {
					engine.Register(r)
				}
			}
			scan.Findings = append(scan.Findings, rules.AggregateFlags(engine.Evaluate(ruleCtx))...)
			return nil
		})
	}
	if err := s.step(ctx, scan, 40, "Detect risks"); err != nil {
		return nil, err
	}

	if !opts.SkipUnusualClauses {
		s.runStep(scan, "detect unusual clauses", func() error {
			engine := rules.NewEngine(s.log)
			for _, r := range rules.GeneralRules() {
				if r.Category() == rules.CategoryUnusualClause {
					engine.Register(r)
				}
			}
			scan.Findings = append(scan.Findings, rules.AggregateFlags(engine.Evaluate(ruleCtx))...)
			scan.Findings = append(scan.Findings, s.aiUnusualClauses(ctx, contractText)...)
			return nil
		})
	}
	if err := s.step(ctx, scan, 60, "Detect unusual clauses"); err != nil {
		return nil, err
	}

	if !opts.SkipStateRules && opts.State != "" {
		s.runStep(scan, "apply state rules", func() error {
			if !states.IsSupported(opts.State) {
				return fmt.Errorf("state %q is not in the registry", opts.State)
			}
			engine := rules.NewEngine(s.log)
			engine.RegisterAll(states.CreateRules(opts.State))
			scan.Findings = append(scan.Findings, rules.AggregateFlags(engine.Evaluate(ruleCtx))...)
			return nil
		})
	}
	if err := s.step(ctx, scan, 80, "Apply state rules"); err != nil {
		return nil, err
	}

	score := ReduceFindings(scan.Findings)
	scan.Score = &score
	if err := s.step(ctx, scan, 90, "Calculate risk score"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scan.Status = StatusCompleted
	scan.CompletedAt = &now
	if err := s.step(ctx, scan, 100, "Scan complete"); err != nil {
		return nil, err
	}

	return &Result{
		ID:          uuid.NewString(),
		ScanID:      scan.ID,
		Findings:    scan.Findings,
		Score:       score,
		CompletedAt: now,
		Errors:      scan.Errors,
	}, nil
}

// Retry resets a failed scan and reruns it. The contract text is rebuilt
// from the linked contract when one exists.
func (s *Service) Retry(ctx context.Context, scanID string, opts Options) (*Result, error) {
	scan, err := s.repo.FindByID(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if scan.Status != StatusFailed {
		return nil, fmt.Errorf("%w: only failed scans can be retried (status %s)", domain.ErrValidation, scan.Status)
	}

	scan.Status = StatusPending
	scan.Progress = 0
	scan.Message = "Retry requested"
	scan.Errors = nil
	scan.Findings = []domain.RiskFlag{}
	scan.Score = nil
	scan.CompletedAt = nil
	if err := s.repo.Update(ctx, scan); err != nil {
		return nil, err
	}

	var text string
	if scan.ContractID != "" {
		contract, err := s.contracts.FindByID(ctx, scan.ContractID)
		if err != nil {
			return nil, fmt.Errorf("load contract for retry: %w", err)
		}
		text = rules.NewContext(contract).Text
		if opts.State == "" {
			opts.State = contract.State
		}
	}
	return s.Execute(ctx, scanID, text, opts)
}

// MarkFailed transitions a scan to failed with a reason.
func (s *Service) MarkFailed(ctx context.Context, scanID, reason string) error {
	scan, err := s.repo.FindByID(ctx, scanID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	scan.Status = StatusFailed
	scan.Message = reason
	scan.Errors = append(scan.Errors, reason)
	scan.CompletedAt = &now
	if err := s.repo.Update(ctx, scan); err != nil {
		return err
	}
	s.hub.Publish(Progress{ScanID: scanID, Status: StatusFailed, Progress: scan.Progress, Message: reason, UpdatedAt: now})
	return nil
}

// step persists and broadcasts one progress transition, honoring
// cancellation between steps.
func (s *Service) step(ctx context.Context, scan *Scan, progress int, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCancelled, err)
	}
	scan.Progress = progress
	scan.Message = message
	if err := s.repo.Update(ctx, scan); err != nil {
		return err
	}
	s.hub.Publish(Progress{
		ScanID:    scan.ID,
		Status:    scan.Status,
		Progress:  progress,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	})
	return nil
}

// runStep executes one skippable step, recording a failure without
// aborting the scan.
func (s *Service) runStep(scan *Scan, name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			scan.Errors = append(scan.Errors, fmt.Sprintf("%s: panic: %v", name, r))
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn().Err(err).Str("scan_id", scan.ID).Str("step", name).Msg("Scan step failed")
		scan.Errors = append(scan.Errors, fmt.Sprintf("%s: %v", name, err))
	}
}

// aiUnusualClauses asks the gateway for unusual clauses and synthesizes one
// medium flag per item. Severity is fixed regardless of the stated reason.
func (s *Service) aiUnusualClauses(ctx context.Context, text string) []domain.RiskFlag {
	if s.aiClient == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	resp, err := s.aiClient.Call(ctx, ai.Request{Prompt: fmt.Sprintf(
		`List clauses in the contract below that are unusual for a standard residential purchase agreement. Respond with JSON only: {"items": [{"text": "...", "reason": "..."}]}

Contract:
%s`, text)})
	if err != nil || resp.Error != "" {
		return nil
	}

	var payload struct {
		Items []struct {
			Text   string `json:"text"`
			Reason string `json:"reason"`
		} `json:"items"`
	}
	raw := strings.TrimSpace(resp.Raw)
	if unmarshalLenient(raw, resp.Parsed, &payload) != nil {
		return nil
	}

	var flags []domain.RiskFlag
	for i, item := range payload.Items {
		if item.Text == "" {
			continue
		}
		desc := item.Text
		if item.Reason != "" {
			desc = fmt.Sprintf("%s (%s)", item.Text, item.Reason)
		}
		flags = append(flags, domain.RiskFlag{
			Code:        fmt.Sprintf("UNUSUAL_CLAUSE_%d", i+1),
			Description: desc,
			Severity:    domain.SeverityMedium,
		})
	}
	return flags
}

// scanContext builds a rule context from bare text and a state code.
func scanContext(text, state string) *rules.Context {
	return rules.NewContext(&domain.Contract{ContractText: text, State: state})
}

// extractClauses splits contract text into clause candidates: paragraphs
// first, long sentences as a fallback.
func extractClauses(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > 400 {
			for _, sentence := range strings.Split(para, ". ") {
				sentence = strings.TrimSpace(sentence)
				if len(sentence) >= 20 {
					out = append(out, sentence)
				}
			}
			continue
		}
		out = append(out, para)
	}
	return out
}

// Severity deductions used by the scan summary. These are intentionally
// steeper than the analysis penalties: a scan scores bare findings without
// the composition-based base score.
var scanDeductions = map[domain.Severity]int{
	domain.SeverityCritical: 25,
	domain.SeverityHigh:     15,
	domain.SeverityMedium:   5,
	domain.SeverityLow:      2,
}

// ReduceFindings maps a finding set to a score: 100 minus the summed
// severity deductions, clamped to [0,100].
func ReduceFindings(findings []domain.RiskFlag) int {
	score := 100
	for _, f := range findings {
		score -= scanDeductions[f.Severity]
	}
	return domain.ClampScore(score)
}
