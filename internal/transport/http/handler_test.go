package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerflow/internal/aggregation"
	"brokerflow/internal/cache"
	"brokerflow/internal/config"
	"brokerflow/internal/dates"
	"brokerflow/internal/operations"
	"brokerflow/internal/sectors"
	"brokerflow/internal/storage"
	transporthttp "brokerflow/internal/transport/http"
	"brokerflow/internal/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemStore) {
	t.Helper()

	store := storage.NewMemStore()
	fileCache := cache.New(store, 1<<20, time.Minute)
	discovery := dates.NewDiscovery(store, dates.DiscoveryConfig{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
	}, nil)
	cfg := config.PipelineConfig{BatchSize: 5, Concurrency: 2}

	sector := aggregation.NewSectorAggregator(store, fileCache, cfg, nil)
	inventory := aggregation.NewInventoryAggregator(store, fileCache, discovery, cfg, nil)
	orchestrator := operations.NewOrchestrator(store, sector, inventory, discovery, fileCache, cfg, nil, nil, nil)

	mapping := sectors.NewMapping(map[string][]string{"BANKING": {"STK"}})
	runs := transporthttp.NewRunsHandler(orchestrator, mapping, time.Minute, nil)

	hub := websocket.NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(transporthttp.NewRouter(runs, hub))
	t.Cleanup(srv.Close)
	return srv, store
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := nethttp.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)

	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestStartSectorRunLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := nethttp.Post(srv.URL+"/api/runs/sector", "application/json",
		bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	runID := accepted["run_id"]
	require.NotEmpty(t, runID)

	// The store is empty, so the run finishes almost immediately.
	var state transporthttp.RunState
	require.Eventually(t, func() bool {
		status := getJSON(t, srv.URL+"/api/runs/"+runID, &state)
		return status == nethttp.StatusOK && state.Status != "running"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "completed", state.Status)
	assert.Equal(t, transporthttp.RunKindSector, state.Kind)
	assert.NotNil(t, state.EndedAt)
	assert.Empty(t, state.Error)
}

func TestStartInventoryRun(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := nethttp.Post(srv.URL+"/api/runs/inventory", "application/json",
		bytes.NewBufferString(`{"estimated_total": 0}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))

	var state transporthttp.RunState
	require.Eventually(t, func() bool {
		status := getJSON(t, srv.URL+"/api/runs/"+accepted["run_id"], &state)
		return status == nethttp.StatusOK && state.Status != "running"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, transporthttp.RunKindInventory, state.Kind)
	assert.Equal(t, "completed", state.Status)
}

func TestStartSectorRunRejectsBadDate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := nethttp.Post(srv.URL+"/api/runs/sector", "application/json",
		bytes.NewBufferString(`{"dates": ["2024-01-15"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_PARAMETER")
}

func TestStartSectorRunRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := nethttp.Post(srv.URL+"/api/runs/sector", "application/json",
		bytes.NewBufferString(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	status := getJSON(t, srv.URL+"/api/runs/no-such-run", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestListRuns(t *testing.T) {
	srv, _ := newTestServer(t)

	var runs []transporthttp.RunState
	status := getJSON(t, srv.URL+"/api/runs", &runs)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Empty(t, runs)

	resp, err := nethttp.Post(srv.URL+"/api/runs/sector", "application/json",
		bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	status = getJSON(t, srv.URL+"/api/runs", &runs)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, runs, 1)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := nethttp.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}
