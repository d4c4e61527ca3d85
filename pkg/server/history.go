package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"dualstrusion-go/pkg/merge"
)

// DefaultHistorySize is the number of jobs kept when none is configured.
const DefaultHistorySize = 100

// Job statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	// StatusDegraded marks a job that finished with a feature turned off.
	StatusDegraded = "degraded"
)

// History keeps the most recent merge jobs.
type History struct {
	mu    sync.RWMutex
	size  int
	jobs  map[string]*MergeJob
	order []string // most recent first
}

// MergeJob is one merge request.
type MergeJob struct {
	JobID       string             `json:"job_id"`
	RunID       string             `json:"run_id,omitempty"`
	Name        string             `json:"name,omitempty"`
	Status      string             `json:"status"`
	StartTime   float64            `json:"start_time"`
	EndTime     *float64           `json:"end_time"`
	Duration    float64            `json:"duration"`
	LeftLines   int                `json:"left_lines"`
	RightLines  int                `json:"right_lines"`
	OutputLines int                `json:"output_lines"`
	Toolchanges int                `json:"toolchanges"`
	Diagnostics int                `json:"diagnostics"`
	Degradation *merge.Degradation `json:"degradation,omitempty"`
}

// JobTotals holds aggregated job statistics.
type JobTotals struct {
	TotalJobs        int     `json:"total_jobs"`
	TotalToolchanges int     `json:"total_toolchanges"`
	TotalLines       int     `json:"total_lines"`
	TotalTime        float64 `json:"total_time"`
	LongestJob       float64 `json:"longest_job"`
}

// NewHistory creates a history keeping at most size jobs.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size: size,
		jobs: make(map[string]*MergeJob),
	}
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// Start records a new in-progress job.
func (h *History) Start(name string, leftLines, rightLines int) MergeJob {
	h.mu.Lock()
	defer h.mu.Unlock()

	job := &MergeJob{
		JobID:      uuid.NewString(),
		Name:       name,
		Status:     StatusInProgress,
		StartTime:  unixNow(),
		LeftLines:  leftLines,
		RightLines: rightLines,
	}
	h.jobs[job.JobID] = job
	h.order = append([]string{job.JobID}, h.order...)

	for len(h.order) > h.size {
		oldest := h.order[len(h.order)-1]
		h.order = h.order[:len(h.order)-1]
		delete(h.jobs, oldest)
	}
	return *job
}

// Finish records the outcome of a job.
func (h *History) Finish(jobID string, res *merge.Result) MergeJob {
	h.mu.Lock()
	defer h.mu.Unlock()

	job, ok := h.jobs[jobID]
	if !ok {
		return MergeJob{JobID: jobID}
	}

	now := unixNow()
	job.EndTime = &now
	job.Duration = now - job.StartTime
	job.RunID = res.RunID.String()
	job.OutputLines = len(res.Lines)
	job.Toolchanges = res.Toolchanges
	job.Diagnostics = len(res.Diagnostics)
	job.Degradation = res.Degradation
	job.Status = StatusCompleted
	if res.Degradation != nil {
		job.Status = StatusDegraded
	}
	return *job
}

// Get returns a job by ID.
func (h *History) Get(jobID string) (MergeJob, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	job, ok := h.jobs[jobID]
	if !ok {
		return MergeJob{}, fmt.Errorf("job not found: %s", jobID)
	}
	return *job, nil
}

// List returns up to limit jobs, most recent first.
func (h *History) List(limit int) []MergeJob {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.order) {
		limit = len(h.order)
	}
	out := make([]MergeJob, 0, limit)
	for _, id := range h.order[:limit] {
		out = append(out, *h.jobs[id])
	}
	return out
}

// Totals aggregates the kept jobs.
func (h *History) Totals() JobTotals {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var t JobTotals
	for _, job := range h.jobs {
		t.TotalJobs++
		t.TotalToolchanges += job.Toolchanges
		t.TotalLines += job.OutputLines
		t.TotalTime += job.Duration
		if job.Duration > t.LongestJob {
			t.LongestJob = job.Duration
		}
	}
	return t
}

// RegisterEndpoints adds the REST history endpoints to mux.
func (h *History) RegisterEndpoints(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("/server/history/list", func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		jobs := h.List(limit)
		s.writeJSON(w, map[string]any{"result": map[string]any{"count": len(jobs), "jobs": jobs}})
	})
	mux.HandleFunc("/server/history/job", func(w http.ResponseWriter, r *http.Request) {
		job, err := h.Get(r.URL.Query().Get("uid"))
		if err != nil {
			s.writeJSONError(w, err)
			return
		}
		s.writeJSON(w, map[string]any{"result": map[string]any{"job": job}})
	})
	mux.HandleFunc("/server/history/totals", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, map[string]any{"result": map[string]any{"job_totals": h.Totals()}})
	})
}
