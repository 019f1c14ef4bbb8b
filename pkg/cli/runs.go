package cli

import (
	"strconv"
	"time"

	"mercator-hq/viewexport/pkg/history"
)

// RunSummary is the printable form of one recorded run.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Entity    string    `json:"entity"`
	View      string    `json:"view"`
	ViewKind  string    `json:"view_kind,omitempty"`
	Policy    string    `json:"column_policy,omitempty"`
	Status    string    `json:"status"`
	Records   int       `json:"records"`
	Pages     int       `json:"pages"`
	Columns   []string  `json:"columns"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// RunList is a list of runs that renders as a table.
type RunList []RunSummary

// NewRunList converts history runs for output.
func NewRunList(runs []history.Run) RunList {
	list := make(RunList, 0, len(runs))
	for _, r := range runs {
		columns := r.Columns
		if columns == nil {
			columns = []string{}
		}
		list = append(list, RunSummary{
			RunID:     r.RunID,
			Entity:    r.Entity,
			View:      r.View,
			ViewKind:  string(r.ViewKind),
			Policy:    string(r.Policy),
			Status:    r.Status,
			Records:   r.Records,
			Pages:     r.Pages,
			Columns:   columns,
			Path:      r.Path,
			Error:     r.Error,
			StartedAt: r.StartedAt,
			Duration:  r.Duration().Round(time.Millisecond).String(),
		})
	}
	return list
}

// Header implements Tabular.
func (l RunList) Header() []string {
	return []string{"STARTED", "STATUS", "ENTITY", "VIEW", "RECORDS", "PAGES", "COLUMNS", "DURATION", "OUTPUT"}
}

// Rows implements Tabular. Failed runs show their error instead of the
// output path.
func (l RunList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		output := r.Path
		if r.Error != "" {
			output = r.Error
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Entity,
			r.View,
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Pages),
			strconv.Itoa(len(r.Columns)),
			r.Duration,
			output,
		})
	}
	return rows
}
