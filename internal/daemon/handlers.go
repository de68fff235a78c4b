package daemon

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/quarrylabs/quarry/internal/dataset"
	"github.com/quarrylabs/quarry/internal/scraper"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marshal error: "+err.Error())
		return
	}
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (d *Daemon) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "quarry issue scraper API",
		"projects": d.orch.Projects(),
	})
}

func (d *Daemon) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "quarry",
		"version":   d.version,
	})
}

func (d *Daemon) status(w http.ResponseWriter, r *http.Request) {
	progress, cp, err := d.orch.Progress()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	st := d.orch.Status()

	var outputExists bool
	var outputSizeMB float64
	if info, err := os.Stat(d.cfg.OutputPath); err == nil {
		outputExists = true
		outputSizeMB = math.Round(float64(info.Size())/(1024*1024)*100) / 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"is_running":          st.IsRunning,
		"start_time":          st.StartTime,
		"current_project":     st.CurrentProject,
		"projects_completed":  st.ProjectsCompleted,
		"progress":            progress,
		"checkpoint_state":    cp,
		"output_file_exists":  outputExists,
		"output_file_size_mb": outputSizeMB,
	})
}

func (d *Daemon) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := dataset.CollectStats(d.cfg.OutputPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "no data found, run a scrape first")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statistics":   stats,
		"generated_at": time.Now().Format(time.RFC3339),
	})
}

func (d *Daemon) startScrape(w http.ResponseWriter, r *http.Request) {
	if err := d.orch.Start(d.baseCtx); err != nil {
		if errors.Is(err, scraper.ErrRunActive) {
			writeError(w, http.StatusConflict, "scraping is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "started",
		"message":   "scraping started in background",
		"projects":  d.orch.Projects(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (d *Daemon) reset(w http.ResponseWriter, r *http.Request) {
	removed, err := d.orch.Reset()
	if err != nil {
		if errors.Is(err, scraper.ErrRunActive) {
			writeError(w, http.StatusConflict, "cannot reset while scraping is in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if removed == nil {
		removed = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "reset_complete",
		"message":       "all checkpoints and data cleared",
		"files_deleted": removed,
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}

func (d *Daemon) transform(w http.ResponseWriter, r *http.Request) {
	if err := dataset.Transform(d.cfg.OutputPath, d.cfg.TransformedPath); err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "no data found, run a scrape first")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "transformed dataset saved to " + d.cfg.TransformedPath,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
