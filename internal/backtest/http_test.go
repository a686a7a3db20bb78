package backtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, env simEnv) *HTTPServer {
	t.Helper()
	srv, err := NewHTTPServer(HTTPConfig{
		Addr:      ":0",
		Simulator: env.sim,
		Results:   env.results,
		Candles:   env.candles,
		ReportDir: t.TempDir(),
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHTTPRunLifecycle(t *testing.T) {
	env := newSimEnv(t)
	seedCandles(t, env.candles, "KCUSD", 80)
	srv := newTestServer(t, env)

	rec := doJSON(t, srv, http.MethodPost, "/api/backtest/runs", simRequest())
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var submitted struct {
		Run Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.NotEmpty(t, submitted.Run.ID)
	assert.Equal(t, RunStatusPending, submitted.Run.Status)

	require.Eventually(t, func() bool {
		rec := doJSON(t, srv, http.MethodGet, "/api/backtest/runs/"+submitted.Run.ID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var got struct {
			Run Run `json:"run"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			return false
		}
		return got.Run.Status == RunStatusDone
	}, 10*time.Second, 50*time.Millisecond)

	rec = doJSON(t, srv, http.MethodGet, "/api/backtest/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), submitted.Run.ID)

	for _, sub := range []string{"orders", "trades", "snapshots", "events"} {
		rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/backtest/runs/%s/%s", submitted.Run.ID, sub), nil)
		assert.Equal(t, http.StatusOK, rec.Code, sub)
	}
}

func TestHTTPRejectsBadSubmission(t *testing.T) {
	env := newSimEnv(t)
	srv := newTestServer(t, env)

	rec := doJSON(t, srv, http.MethodPost, "/api/backtest/runs", map[string]any{"symbol": "KCUSD"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing range fails binding")

	req := simRequest()
	req.Profile = "espresso"
	rec = doJSON(t, srv, http.MethodPost, "/api/backtest/runs", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPTimeframesAndCandles(t *testing.T) {
	env := newSimEnv(t)
	seedCandles(t, env.candles, "KCUSD", 10)
	srv := newTestServer(t, env)

	rec := doJSON(t, srv, http.MethodGet, "/api/timeframes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "30m")

	path := fmt.Sprintf("/api/backtest/candles?symbol=KCUSD&timeframe=30m&start_ts=%d&end_ts=%d",
		simBase, simBase+10*simStep)
	rec = doJSON(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var candles struct {
		Candles []json.RawMessage `json:"candles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candles))
	assert.Len(t, candles.Candles, 10)

	rec = doJSON(t, srv, http.MethodGet, "/api/backtest/candles?symbol=KCUSD", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "timeframe is required")
}

func TestHTTPCandleGaps(t *testing.T) {
	env := newSimEnv(t)
	seedCandles(t, env.candles, "KCUSD", 10)
	srv := newTestServer(t, env)

	path := fmt.Sprintf("/api/backtest/candles/gaps?symbol=KCUSD&timeframe=30m&start_ts=%d&end_ts=%d",
		simBase, simBase+12*simStep)
	rec := doJSON(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var gaps struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gaps))
	// Closed grid simBase..simBase+12*step holds 13 slots; 10 are seeded.
	assert.Equal(t, 3, gaps.Count)
}

func TestHTTPBackfillNeedsSource(t *testing.T) {
	env := newSimEnv(t)
	srv := newTestServer(t, env)

	rec := doJSON(t, srv, http.MethodPost, "/api/backtest/candles/backfill", map[string]any{
		"symbol": "KCUSD", "timeframe": "30m", "start_ts": simBase, "end_ts": simBase + simStep,
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
