package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"brokerflow/internal/dates"
	"brokerflow/internal/infrastructure"
	"brokerflow/internal/operations"
	"brokerflow/internal/sectors"
)

// RunKind distinguishes the two pipeline entry points.
type RunKind string

const (
	RunKindSector    RunKind = "sector"
	RunKindInventory RunKind = "inventory"
)

// RunState is what GET /api/runs/{id} returns.
type RunState struct {
	ID        string      `json:"id"`
	Kind      RunKind     `json:"kind"`
	Status    string      `json:"status"` // running, completed, failed
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Summary   interface{} `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// RunsHandler triggers orchestration runs and tracks their state.
type RunsHandler struct {
	orchestrator *operations.Orchestrator
	mapping      *sectors.Mapping
	runTimeout   time.Duration
	validate     *validator.Validate
	logger       *slog.Logger

	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewRunsHandler creates the handler. mapping is the sector membership
// table built once at startup and threaded into each run.
func NewRunsHandler(orchestrator *operations.Orchestrator, mapping *sectors.Mapping, runTimeout time.Duration, logger *slog.Logger) *RunsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunsHandler{
		orchestrator: orchestrator,
		mapping:      mapping,
		runTimeout:   runTimeout,
		validate:     validator.New(),
		logger:       logger.With(slog.String("handler", "runs")),
		runs:         make(map[string]*RunState),
	}
}

// SectorRunRequest starts a sector aggregation batch. Dates are
// optional; an empty list means every discovered date.
type SectorRunRequest struct {
	Dates []string `json:"dates,omitempty" validate:"omitempty,max=366,dive,numeric"`
	Tag   string   `json:"tag,omitempty" validate:"omitempty,max=64"`
}

// Bind implements render.Binder: caller-supplied filters that fail
// validation fail fast, before any work starts.
func (r *SectorRunRequest) Bind(req *http.Request) error {
	return nil
}

// InventoryRunRequest starts a full inventory rebuild.
type InventoryRunRequest struct {
	EstimatedTotal int    `json:"estimated_total,omitempty" validate:"omitempty,min=0"`
	Tag            string `json:"tag,omitempty" validate:"omitempty,max=64"`
}

// Bind implements render.Binder
func (r *InventoryRunRequest) Bind(req *http.Request) error {
	return nil
}

// StartSectorRun handles POST /api/runs/sector
func (h *RunsHandler) StartSectorRun(w http.ResponseWriter, r *http.Request) {
	var req SectorRunRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, badRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, badRequest(err.Error()))
		return
	}

	var dateList []string
	for _, d := range req.Dates {
		canonical, err := dates.Normalize(d)
		if err != nil {
			render.Render(w, r, badRequest(err.Error()))
			return
		}
		dateList = append(dateList, canonical)
	}

	runID := uuid.New().String()
	state := h.track(runID, RunKindSector)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()
		ctx = infrastructure.WithRunID(ctx, runID)

		summary, err := h.orchestrator.RunSectorBatch(ctx, runID, h.mapping, dateList)
		h.finish(state, summary, err)
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"run_id": runID})
}

// StartInventoryRun handles POST /api/runs/inventory
func (h *RunsHandler) StartInventoryRun(w http.ResponseWriter, r *http.Request) {
	var req InventoryRunRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, badRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, badRequest(err.Error()))
		return
	}

	runID := uuid.New().String()
	state := h.track(runID, RunKindInventory)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()
		ctx = infrastructure.WithRunID(ctx, runID)

		summary, err := h.orchestrator.RunInventory(ctx, runID, req.EstimatedTotal)
		h.finish(state, summary, err)
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"run_id": runID})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	h.mu.RLock()
	state, ok := h.runs[runID]
	h.mu.RUnlock()
	if !ok {
		render.Render(w, r, notFound("run not found"))
		return
	}

	h.mu.RLock()
	snapshot := *state
	h.mu.RUnlock()
	render.JSON(w, r, snapshot)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	states := make([]RunState, 0, len(h.runs))
	for _, state := range h.runs {
		states = append(states, *state)
	}
	h.mu.RUnlock()

	render.JSON(w, r, states)
}

func (h *RunsHandler) track(runID string, kind RunKind) *RunState {
	state := &RunState{
		ID:        runID,
		Kind:      kind,
		Status:    "running",
		StartedAt: time.Now(),
	}
	h.mu.Lock()
	h.runs[runID] = state
	h.mu.Unlock()
	return state
}

func (h *RunsHandler) finish(state *RunState, summary interface{}, err error) {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()

	state.EndedAt = &now
	state.Summary = summary
	if err != nil {
		state.Status = "failed"
		state.Error = err.Error()
		return
	}
	state.Status = "completed"
}
