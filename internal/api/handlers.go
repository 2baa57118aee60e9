package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/race"
	"github.com/racekit/pacer/internal/store"
	"github.com/racekit/pacer/internal/supervisor"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
	historyTimeout  = 3 * time.Second
)

type createRunnerRequest struct {
	Name              string `json:"name"`
	MaxProgress       *int64 `json:"max_progress"`
	ProgressIncrement *int64 `json:"progress_increment"`
	DelayMs           *int64 `json:"delay_ms"`
	InitialProgress   int64  `json:"initial_progress"`
}

type runnerDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Progress          int64  `json:"progress"`
	MaxProgress       int64  `json:"max_progress"`
	ProgressIncrement int64  `json:"progress_increment"`
	DelayMs           int64  `json:"delay_ms"`
	State             string `json:"state"`
}

// createRunner handles POST /v1/runners. Missing knobs fall back to the
// configured race defaults; invalid configurations yield 400.
func (s *Server) createRunner(w http.ResponseWriter, r *http.Request) {
	var req createRunnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(s.sup.List()) >= s.cfg.Race.MaxRunners {
		writeError(w, http.StatusTooManyRequests, "runner limit reached")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "runner"
	}
	spec := supervisor.Spec{
		Name:              name,
		MaxProgress:       valueOrDefault(req.MaxProgress, int64(s.cfg.Race.DefaultMaxProgress)),
		ProgressIncrement: valueOrDefault(req.ProgressIncrement, int64(s.cfg.Race.DefaultIncrement)),
		DelayInterval:     time.Duration(valueOrDefault(req.DelayMs, s.cfg.Race.DefaultDelay().Milliseconds())) * time.Millisecond,
		InitialProgress:   req.InitialProgress,
	}
	snap, err := s.sup.Create(spec)
	if err != nil {
		switch {
		case errors.Is(err, race.ErrInvalidConfiguration):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, supervisor.ErrShuttingDown):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"runner": toRunnerDTO(snap)})
}

// listRunners handles GET /v1/runners.
func (s *Server) listRunners(w http.ResponseWriter, _ *http.Request) {
	snaps := s.sup.List()
	dtos := make([]runnerDTO, 0, len(snaps))
	for _, snap := range snaps {
		dtos = append(dtos, toRunnerDTO(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runners": dtos})
}

// getRunner handles GET /v1/runners/{runner_id}.
func (s *Server) getRunner(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunnerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.sup.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "runner not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runner": toRunnerDTO(snap)})
}

// startRunner handles POST /v1/runners/{runner_id}/start. Starting an
// already running loop yields 409; a finished runner's start is accepted
// and exits immediately.
func (s *Server) startRunner(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunnerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch err := s.sup.Start(id); {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"runner_id": id.String(), "state": string(race.StateRunning)})
	case errors.Is(err, supervisor.ErrNotFound):
		writeError(w, http.StatusNotFound, "runner not found")
	case errors.Is(err, race.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "runner already running")
	case errors.Is(err, supervisor.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pauseRunner handles POST /v1/runners/{runner_id}/pause. Pausing an idle
// runner is a no-op.
func (s *Server) pauseRunner(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunnerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.sup.Pause(id); err != nil {
		writeError(w, http.StatusNotFound, "runner not found")
		return
	}
	snap, err := s.sup.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "runner not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"runner": toRunnerDTO(snap)})
}

func toRunnerDTO(snap supervisor.Snapshot) runnerDTO {
	return runnerDTO{
		ID:                snap.ID.String(),
		Name:              snap.Name,
		Progress:          snap.Progress,
		MaxProgress:       snap.MaxProgress,
		ProgressIncrement: snap.ProgressIncrement,
		DelayMs:           snap.DelayInterval.Milliseconds(),
		State:             string(snap.State),
	}
}

func parseRunnerID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "runner_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("runner_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid runner_id")
	}
	return id, nil
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

// historyHandler exposes read-only persisted run history.
type historyHandler struct {
	repo    store.RunRepository
	timeout time.Duration
	logger  *zap.Logger
}

func newHistoryHandler(repo store.RunRepository, logger *zap.Logger) *historyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &historyHandler{
		repo:    repo,
		timeout: historyTimeout,
		logger:  logger,
	}
}

type runDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Progress    int64      `json:"progress"`
	MaxProgress int64      `json:"max_progress"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// ListRuns handles GET /v1/runs?status=&limit=&offset=. It returns a JSON
// object {"runs": [...]} on success, 400 for invalid filters, 503 when no
// repository is wired, or 500 if the repository call fails.
func (h *historyHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run repository unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultRunLimit, maxRunLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status *store.RunStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, parseErr := parseStatus(raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		status = &parsed
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.repo.ListRuns(ctx, status, limit, offset)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	dtos := make([]runDTO, 0, len(runs))
	for _, rec := range runs {
		dtos = append(dtos, toRunDTO(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// GetRun handles GET /v1/runs/{runner_id}. It returns {"run": {...}} on
// success, 400 for malformed IDs, 404 when the repository reports
// store.ErrNotFound, 503 if no repository is wired, or 500 otherwise.
func (h *historyHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "run repository unavailable")
		return
	}
	id, err := parseRunnerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.repo.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": toRunDTO(rec)})
}

func toRunDTO(rec store.RunRecord) runDTO {
	return runDTO{
		ID:          rec.ID.String(),
		Name:        rec.Name,
		Status:      string(rec.Status),
		Progress:    rec.Progress,
		MaxProgress: rec.MaxProgress,
		StartedAt:   rec.StartedAt,
		UpdatedAt:   rec.UpdatedAt,
		FinishedAt:  rec.FinishedAt,
	}
}

func parseStatus(raw string) (store.RunStatus, error) {
	switch store.RunStatus(strings.ToLower(raw)) {
	case store.RunRunning:
		return store.RunRunning, nil
	case store.RunPaused:
		return store.RunPaused, nil
	case store.RunFinished:
		return store.RunFinished, nil
	default:
		return "", errors.New("status must be running, paused, or finished")
	}
}

func parseLimitOffset(r *http.Request, def, max int) (int, int, error) {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if parsed > max {
			parsed = max
		}
		limit = parsed
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
		offset = parsed
	}
	return limit, offset, nil
}
