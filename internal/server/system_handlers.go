package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dealsentry/dealsentry/internal/database"
	"github.com/dealsentry/dealsentry/internal/server/respond"
)

// SystemHandlers serves the health and monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	db          *database.DB
	startupTime time.Time
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		db:          db,
		startupTime: time.Now(),
	}
}

// HandleHealth handles GET /health.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	if err := h.db.Conn().PingContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Database ping failed")
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.JSON(w, httpStatus, map[string]interface{}{
		"status":  status,
		"service": "dealsentry",
		"uptime":  time.Since(h.startupTime).Round(time.Second).String(),
	})
}

// HandleStatus handles GET /api/system/status: process and host resource
// usage.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to read CPU usage")
		cpuPercent = []float64{0}
	}

	var memUsedPercent float64
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsedPercent = vm.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to read memory statistics")
	}

	var diskUsedPercent float64
	if du, err := disk.Usage(h.dataDir); err == nil {
		diskUsedPercent = du.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "running",
		"process": map[string]interface{}{
			"alloc_mb":   m.Alloc / 1024 / 1024,
			"sys_mb":     m.Sys / 1024 / 1024,
			"num_gc":     m.NumGC,
			"goroutines": runtime.NumGoroutine(),
		},
		"host": map[string]interface{}{
			"cpu_percent":       cpuPercent[0],
			"mem_used_percent":  memUsedPercent,
			"disk_used_percent": diskUsedPercent,
		},
	})
}

// HandleInfo handles GET /api/system/info.
func (h *SystemHandlers) HandleInfo(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"service":    "dealsentry",
		"go_version": runtime.Version(),
		"started_at": h.startupTime.UTC(),
		"database":   h.db.Path(),
	})
}
