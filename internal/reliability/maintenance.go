package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/domain"
	"github.com/dealsentry/dealsentry/internal/modules/analysis"
)

// Maintenance schedules the recurring upkeep jobs: hourly analysis cache
// sweep, daily history trim and WAL checkpoint, and the nightly backup when
// one is configured.
type Maintenance struct {
	cron     *cron.Cron
	db       *database.DB
	analysis *analysis.Service
	history  domain.RiskHistoryRepository
	backup   *BackupService // nil when backups are disabled
	schedule string
	log      zerolog.Logger
}

// NewMaintenance creates the maintenance scheduler. backup may be nil.
func NewMaintenance(
	db *database.DB,
	analysisSvc *analysis.Service,
	historyRepo domain.RiskHistoryRepository,
	backup *BackupService,
	backupSchedule string,
	log zerolog.Logger,
) *Maintenance {
	return &Maintenance{
		cron:     cron.New(),
		db:       db,
		analysis: analysisSvc,
		history:  historyRepo,
		backup:   backup,
		schedule: backupSchedule,
		log:      log.With().Str("component", "maintenance").Logger(),
	}
}

// Start registers and starts the jobs.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("@hourly", m.sweepCache); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	if _, err := m.cron.AddFunc("30 2 * * *", m.dailyMaintenance); err != nil {
		return fmt.Errorf("schedule daily maintenance: %w", err)
	}
	if m.backup != nil {
		schedule := m.schedule
		if schedule == "" {
			schedule = "0 3 * * *"
		}
		if _, err := m.cron.AddFunc(schedule, m.nightlyBackup); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
	}

	m.cron.Start()
	m.log.Info().Bool("backup_enabled", m.backup != nil).Msg("Maintenance jobs scheduled")
	return nil
}

// Stop halts the scheduler, waiting for running jobs.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

// sweepCache drops analysis cache entries old enough that no TTL keeps
// them alive.
func (m *Maintenance) sweepCache() {
	removed := m.analysis.SweepCache(24 * time.Hour)
	if removed > 0 {
		m.log.Info().Int("removed", removed).Msg("Swept analysis cache")
	}
}

// dailyMaintenance trims risk history to the cap for every contract and
// checkpoints the WAL.
func (m *Maintenance) dailyMaintenance() {
	m.log.Info().Msg("Starting daily maintenance")
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT contract_id FROM risk_history`)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to enumerate history contracts")
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			m.log.Error().Err(err).Msg("Failed to scan contract id")
			return
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if err := m.history.TrimToCap(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("contract_id", id).Msg("History trim failed")
		}
	}

	if _, err := m.db.Conn().Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		m.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	m.log.Info().
		Int("contracts", len(ids)).
		Dur("took", time.Since(started)).
		Msg("Daily maintenance complete")
}

// nightlyBackup uploads a fresh archive and prunes expired ones.
func (m *Maintenance) nightlyBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := m.backup.CreateAndUpload(ctx); err != nil {
		m.log.Error().Err(err).Msg("Nightly backup failed")
	}
}
