package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/clock/fake"
	"github.com/racekit/pacer/internal/config"
	"github.com/racekit/pacer/internal/progress"
	"github.com/racekit/pacer/internal/store"
	"github.com/racekit/pacer/internal/store/memory"
	"github.com/racekit/pacer/internal/supervisor"
)

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Race.DefaultMaxProgress = 100
	cfg.Race.DefaultIncrement = 1
	cfg.Race.DefaultDelayMs = 500
	cfg.Race.MaxRunners = 10
	return cfg
}

func newTestServer(t *testing.T, repo store.RunRepository) (*Server, *supervisor.Supervisor, *fake.Clock) {
	t.Helper()
	clk := fake.New(time.Unix(0, 0))
	sup := supervisor.New(clk, progress.Discard, zap.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})
	srv := NewServer(sup, repo, nil, testConfig(), zap.NewNop())
	return srv, sup, clk
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// TestHealthz verifies the liveness endpoint responds without auth or body.
func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

// TestMetricsDisabled verifies /metrics returns 404 when no metrics handler
// is wired in.
func TestMetricsDisabled(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestCreateRunner verifies POST /v1/runners registers an idle runner and
// echoes the assigned ID and effective configuration.
func TestCreateRunner(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	maxP := int64(42)
	rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{
		Name:        "alice",
		MaxProgress: &maxP,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Runner runnerDTO `json:"runner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Runner.Name)
	require.Equal(t, int64(42), resp.Runner.MaxProgress)
	require.Equal(t, int64(1), resp.Runner.ProgressIncrement)
	require.Equal(t, int64(500), resp.Runner.DelayMs)
	require.Equal(t, "idle", resp.Runner.State)
	require.NotEmpty(t, resp.Runner.ID)
	_, err := uuid.Parse(resp.Runner.ID)
	require.NoError(t, err)
}

// TestCreateRunnerInvalid verifies configuration validation surfaces as 400.
func TestCreateRunnerInvalid(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	bad := int64(-1)
	rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{
		Name:        "broken",
		MaxProgress: &bad,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestCreateRunnerBadJSON verifies malformed bodies are rejected.
func TestCreateRunnerBadJSON(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/runners", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestStartPauseRunner drives a full start/pause cycle over the HTTP
// surface against a virtual clock.
func TestStartPauseRunner(t *testing.T) {
	t.Parallel()
	srv, _, clk := newTestServer(t, nil)

	maxP, inc, delay := int64(10), int64(1), int64(500)
	rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{
		Name:              "bob",
		MaxProgress:       &maxP,
		ProgressIncrement: &inc,
		DelayMs:           &delay,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Runner runnerDTO `json:"runner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Runner.ID

	rec = doJSON(t, srv, http.MethodPost, "/v1/runners/"+id+"/start", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// A second start must be rejected while the loop is active.
	rec = doJSON(t, srv, http.MethodPost, "/v1/runners/"+id+"/start", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Let three ticks elapse on the virtual clock.
	for i := 0; i < 3; i++ {
		clk.BlockUntil(1)
		clk.Advance(500 * time.Millisecond)
	}
	clk.BlockUntil(1)

	rec = doJSON(t, srv, http.MethodPost, "/v1/runners/"+id+"/pause", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var paused struct {
		Runner runnerDTO `json:"runner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paused))
	require.Equal(t, int64(3), paused.Runner.Progress)
	require.Equal(t, "idle", paused.Runner.State)
}

// TestStartUnknownRunner verifies 404 for IDs the supervisor never issued.
func TestStartUnknownRunner(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/v1/runners/"+uuid.NewString()+"/start", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestGetRunnerBadID verifies malformed UUIDs yield 400, not 404.
func TestGetRunnerBadID(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/v1/runners/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestListRunners verifies the list endpoint returns registered runners
// ordered by name.
func TestListRunners(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	for _, name := range []string{"zed", "amy"} {
		rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doJSON(t, srv, http.MethodGet, "/v1/runners", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runners []runnerDTO `json:"runners"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runners, 2)
	require.Equal(t, "amy", resp.Runners[0].Name)
	require.Equal(t, "zed", resp.Runners[1].Name)
}

// TestRunnerLimit verifies the configured cap on concurrent runners.
func TestRunnerLimit(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	for i := 0; i < 10; i++ {
		rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{Name: "r"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := doJSON(t, srv, http.MethodPost, "/v1/runners", createRunnerRequest{Name: "overflow"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// TestListRunsNoRepo verifies history endpoints degrade to 503 when no
// repository is configured.
func TestListRunsNoRepo(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// TestListRuns verifies filtering and pagination against the in-memory
// repository.
func TestListRuns(t *testing.T) {
	t.Parallel()
	repo := memory.New()
	srv, _, _ := newTestServer(t, repo)
	ctx := context.Background()

	finished := uuid.New()
	running := uuid.New()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertRunStart(ctx, store.RunRecord{
		ID: finished, Name: "done-run", Status: store.RunRunning,
		Progress: 0, MaxProgress: 10, StartedAt: base, UpdatedAt: base,
	}))
	require.NoError(t, repo.CompleteRun(ctx, finished, store.RunFinished, 10, base.Add(time.Minute)))
	require.NoError(t, repo.UpsertRunStart(ctx, store.RunRecord{
		ID: running, Name: "live-run", Status: store.RunRunning,
		Progress: 3, MaxProgress: 10, StartedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}))

	rec := doJSON(t, srv, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Runs []runDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 2)

	rec = doJSON(t, srv, http.MethodGet, "/v1/runs?status=finished", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp.Runs = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	require.Equal(t, "done-run", resp.Runs[0].Name)
	require.NotNil(t, resp.Runs[0].FinishedAt)

	rec = doJSON(t, srv, http.MethodGet, "/v1/runs?status=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/runs?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/runs?offset=-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestGetRun verifies single-run lookup including the not-found path.
func TestGetRun(t *testing.T) {
	t.Parallel()
	repo := memory.New()
	srv, _, _ := newTestServer(t, repo)
	ctx := context.Background()

	id := uuid.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertRunStart(ctx, store.RunRecord{
		ID: id, Name: "solo", Status: store.RunRunning,
		Progress: 5, MaxProgress: 20, StartedAt: now, UpdatedAt: now,
	}))

	rec := doJSON(t, srv, http.MethodGet, "/v1/runs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Run runDTO `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "solo", resp.Run.Name)
	require.Equal(t, int64(5), resp.Run.Progress)

	rec = doJSON(t, srv, http.MethodGet, "/v1/runs/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
