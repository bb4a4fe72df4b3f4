// Package di wires the application graph: repositories, services, module
// handlers and maintenance, in dependency order.
package di

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/clients/ai"
	"github.com/dealsentry/dealsentry/internal/config"
	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/modules/analysis"
	"github.com/dealsentry/dealsentry/internal/modules/contracts"
	"github.com/dealsentry/dealsentry/internal/modules/history"
	"github.com/dealsentry/dealsentry/internal/modules/rules/states"
	"github.com/dealsentry/dealsentry/internal/modules/scan"
	"github.com/dealsentry/dealsentry/internal/modules/scoring"
	"github.com/dealsentry/dealsentry/internal/reliability"
	"github.com/dealsentry/dealsentry/internal/server"
)

// Container holds the wired application graph.
type Container struct {
	Config *config.Config
	Log    zerolog.Logger
	DB     *database.DB

	ContractRepo *contracts.Repository
	ScoreRepo    *scoring.Repository
	HistoryRepo  *history.Repository
	ScanRepo     *scan.Repository

	AIClient *ai.Client

	ScoringService  *scoring.Service
	HistoryService  *history.Service
	AnalysisService *analysis.Service
	ScanService     *scan.Service

	Maintenance *reliability.Maintenance

	// Modules in route-registration order.
	Modules []server.RouteRegistrar
}

// New builds the container. The database is opened and migrated here.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "dealsentry.db"),
		Profile: database.ProfileStandard,
		Name:    "dealsentry",
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	c := &Container{Config: cfg, Log: log, DB: db}

	c.ContractRepo = contracts.NewRepository(db, log)
	c.ScoreRepo = scoring.NewRepository(db, log)
	c.HistoryRepo = history.NewRepository(db, log)
	c.ScanRepo = scan.NewRepository(db, log)

	var analysisAI analysis.AIClient
	var scanAI scan.AIClient
	if cfg.AIGatewayURL != "" {
		c.AIClient = ai.NewClient(ai.Config{
			BaseURL:   cfg.AIGatewayURL,
			Provider:  cfg.AIProvider,
			Model:     cfg.AIModel,
			MaxTokens: cfg.AIMaxTokens,
			Timeout:   cfg.AITimeout,
		}, log)
		analysisAI = c.AIClient
		scanAI = c.AIClient
	} else {
		analysisAI = disabledAI{}
	}

	c.ScoringService = scoring.NewService(c.ContractRepo, c.ScoreRepo, log)
	c.HistoryService = history.NewService(c.HistoryRepo, c.ScoreRepo, log)
	c.AnalysisService = analysis.NewService(c.ContractRepo, c.ScoreRepo, c.HistoryService, analysisAI, cfg.AnalysisCacheTTL, log)
	c.ScanService = scan.NewService(c.ScanRepo, c.ContractRepo, scanAI, log)

	var backupSvc *reliability.BackupService
	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			log.Warn().Err(err).Msg("Backup storage unavailable, backups disabled")
		} else {
			backupSvc = reliability.NewBackupService(
				s3Client, db.Path(), cfg.DataDir, cfg.Backup.RetentionDays, log)
		}
	}
	c.Maintenance = reliability.NewMaintenance(
		db, c.AnalysisService, c.HistoryRepo, backupSvc, cfg.Backup.Schedule, log)

	c.Modules = []server.RouteRegistrar{
		contracts.NewHandler(c.ContractRepo, log),
		scoring.NewHandler(c.ScoringService, log),
		analysis.NewHandler(c.AnalysisService, c.HistoryService, log),
		scan.NewHandler(c.ScanService, c.ContractRepo, log),
		states.NewHandler(c.ContractRepo, log),
	}
	return c, nil
}

// Close releases held resources.
func (c *Container) Close() error {
	return c.DB.Close()
}

// disabledAI reports the gateway as unconfigured; analyses degrade to
// rule-only signals.
type disabledAI struct{}

func (disabledAI) Call(ctx context.Context, req ai.Request) (*ai.Response, error) {
	return &ai.Response{Error: "ai gateway not configured"}, nil
}
