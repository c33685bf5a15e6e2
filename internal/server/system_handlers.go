package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/scheduler"
)

// SystemHandlers serves process and host health plus manual job
// triggers
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	db          *database.DB
	sched       *scheduler.Scheduler

	// Set after job registration in main
	snapshotJob   scheduler.Job
	backupJob     scheduler.Job
	priceFlushJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		db:          db,
		sched:       sched,
	}
}

// SetJobs registers job instances for manual triggering via the API.
// The backup job may be nil when offsite backup is disabled.
func (h *SystemHandlers) SetJobs(snapshot, backup, priceFlush scheduler.Job) {
	h.snapshotJob = snapshot
	h.backupJob = backup
	h.priceFlushJob = priceFlush
}

type healthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DBSizeBytes   int64   `json:"db_size_bytes"`
	DBOK          bool    `json:"db_ok"`
}

// HandleHealth reports process, host, and database health
// GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
	}

	cpuPercent, memPercent := h.getSystemStats()
	resp.CPUPercent = cpuPercent
	resp.MemoryPercent = memPercent

	if info, err := os.Stat(h.db.Path()); err == nil {
		resp.DBSizeBytes = info.Size()
	}
	if err := h.db.Conn().Ping(); err == nil {
		resp.DBOK = true
	} else {
		resp.Status = "degraded"
		h.log.Warn().Err(err).Msg("Database ping failed")
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, resp)
}

// getSystemStats returns host CPU and memory utilisation, zero on error
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	var cpuPercent, memPercent float64

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}
	if stat, err := mem.VirtualMemory(); err == nil {
		memPercent = stat.UsedPercent
	}
	return cpuPercent, memPercent
}

// HandleTriggerSnapshot runs the EOD snapshot job immediately
// POST /api/system/jobs/snapshot
func (h *SystemHandlers) HandleTriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.snapshotJob)
}

// HandleTriggerBackup runs the offsite backup job immediately
// POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.backupJob)
}

// HandleTriggerPriceFlush persists the price cache immediately
// POST /api/system/jobs/price-flush
func (h *SystemHandlers) HandleTriggerPriceFlush(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.priceFlushJob)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		http.Error(w, "Job not configured", http.StatusNotFound)
		return
	}
	if err := h.sched.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job run failed")
		http.Error(w, "Job failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"job": job.Name(), "status": "completed"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
