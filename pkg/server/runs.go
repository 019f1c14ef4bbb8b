package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/viewexport/pkg/history"
)

// maxRunsLimit caps the limit query parameter of /runs.
const maxRunsLimit = 500

// RunLister returns the latest recorded runs. *history.Store implements it.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// runView is the JSON shape of a run.
type runView struct {
	RunID      string    `json:"run_id"`
	Entity     string    `json:"entity"`
	View       string    `json:"view"`
	ViewKind   string    `json:"view_kind,omitempty"`
	Policy     string    `json:"column_policy,omitempty"`
	Status     string    `json:"status"`
	Records    int       `json:"records"`
	Pages      int       `json:"pages"`
	Columns    int       `json:"columns"`
	Path       string    `json:"path,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// RunsHandler serves the latest runs as JSON. The optional limit query
// parameter defaults to history.DefaultLimit.
func RunsHandler(runs RunLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := history.DefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRunsLimit)
		}

		list, err := runs.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "failed to read run history", http.StatusInternalServerError)
			return
		}

		out := make([]runView, 0, len(list))
		for _, run := range list {
			out = append(out, runView{
				RunID:      run.RunID,
				Entity:     run.Entity,
				View:       run.View,
				ViewKind:   string(run.ViewKind),
				Policy:     string(run.Policy),
				Status:     run.Status,
				Records:    run.Records,
				Pages:      run.Pages,
				Columns:    len(run.Columns),
				Path:       run.Path,
				Error:      run.Error,
				StartedAt:  run.StartedAt,
				DurationMS: run.Duration().Milliseconds(),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		_ = json.NewEncoder(w).Encode(map[string]any{"runs": out})
	}
}
