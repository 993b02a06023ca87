// ABOUTME: Tests for the HTTP status endpoints, journal history and bearer auth
// ABOUTME: Drives the chi router through httptest recorders

package gateway

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/status-gateway/internal/auth"
	"github.com/2389/status-gateway/internal/publisher"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/store"
)

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleReady(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready (8 agents)", rec.Body.String())
}

func TestHandleStatus(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var report status.StatusReport
	decodeBody(t, rec, &report)
	assert.Equal(t, publisher.SystemName, report.System)
	assert.Equal(t, gw.Publisher().Version(), report.Version)
	assert.Len(t, report.Agents, 8)
	assert.Equal(t, status.StateActive, report.Agents["economic_analysis"])
}

func TestHandleSystemStatus(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                `json:"success"`
		Data    status.SystemStatus `json:"data"`
	}
	decodeBody(t, rec, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "running", body.Data.Status)
	assert.Equal(t, 8, body.Data.AgentsActive)
	assert.Equal(t, 8, body.Data.TotalAgents)
}

func TestHandleListAgents(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/api/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var body AgentsResponse
	decodeBody(t, rec, &body)
	require.Len(t, body.Agents, 8)
	assert.Equal(t, "economic_analysis", body.Agents[0].ID)
}

func TestHandleAgentStatus(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/api/agents/web3_mining/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Success bool               `json:"success"`
		Data    status.AgentStatus `json:"data"`
	}
	decodeBody(t, rec, &found)
	assert.True(t, found.Success)
	assert.Equal(t, "web3_mining", found.Data.ID)

	rec = serve(t, gw.Handler(), "/api/agents/nope/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var missing Envelope
	decodeBody(t, rec, &missing)
	assert.False(t, missing.Success)
	assert.Equal(t, "agent not found", missing.Error)
}

func TestHandleFixedDashboards(t *testing.T) {
	gw := newTestGateway(t)
	h := gw.Handler()

	var signals SignalsResponse
	rec := serve(t, h, "/api/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &signals)
	assert.NotEmpty(t, signals.Signals)

	var mining MiningResponse
	rec = serve(t, h, "/api/mining")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &mining)
	assert.Equal(t, publisher.Mining(), mining.MiningStatus)

	var airdrops AirdropsResponse
	rec = serve(t, h, "/api/airdrops")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &airdrops)
	assert.Equal(t, publisher.Airdrops(), airdrops.Airdrops)

	rec = serve(t, h, "/api/performance")
	require.Equal(t, http.StatusOK, rec.Code)
	var perf status.PerformanceReport
	decodeBody(t, rec, &perf)
	assert.NotZero(t, perf.TotalDailyEarnings)
}

func TestHandler_NotFoundAndMethod(t *testing.T) {
	gw := newTestGateway(t)
	h := gw.Handler()

	rec := serve(t, h, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/agents", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_GzipsAPIResponses(t *testing.T) {
	gw := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	var body AgentsResponse
	require.NoError(t, json.NewDecoder(zr).Decode(&body))
	assert.Len(t, body.Agents, 8)
}

func TestHandleHistory(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.Publisher().EmitSignal(ctx))
	require.NoError(t, gw.Publisher().EmitPerformance(ctx))
	require.NoError(t, gw.Publisher().EmitSignal(ctx))

	rec := serve(t, gw.Handler(), "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	var all HistoryResponse
	decodeBody(t, rec, &all)
	require.Len(t, all.Frames, 3)
	assert.Equal(t, uint64(3), all.Frames[0].Seq, "newest first")

	rec = serve(t, gw.Handler(), "/api/history?type=new_signal&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered HistoryResponse
	decodeBody(t, rec, &filtered)
	require.Len(t, filtered.Frames, 1)
	assert.Equal(t, status.EventNewSignal, filtered.Frames[0].Type)
	assert.Equal(t, uint64(3), filtered.Frames[0].Seq)

	var sig status.Signal
	require.NoError(t, json.Unmarshal(filtered.Frames[0].Data, &sig))
	assert.NotEmpty(t, sig.Symbol)
}

func TestHandleHistory_BadLimit(t *testing.T) {
	gw := newTestGateway(t)

	for _, limit := range []string{"0", "-3", "abc"} {
		rec := serve(t, gw.Handler(), "/api/history?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestHandleHistory_JournalDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = ""
	gw := newGateway(t, cfg)
	defer gw.Shutdown(context.Background())

	rec := serve(t, gw.Handler(), "/api/history")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHistoryEntry(t *testing.T) {
	gw := newTestGateway(t)
	require.NoError(t, gw.Publisher().EmitSignal(context.Background()))

	rec := serve(t, gw.Handler(), "/api/history?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list HistoryResponse
	decodeBody(t, rec, &list)
	require.Len(t, list.Frames, 1)
	id := list.Frames[0].ID

	rec = serve(t, gw.Handler(), fmt.Sprintf("/api/history/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)
	var entry HistoryEntry
	decodeBody(t, rec, &entry)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, status.EventNewSignal, entry.Type)
	assert.Equal(t, uint64(1), entry.Seq)

	rec = serve(t, gw.Handler(), fmt.Sprintf("/api/history/%d", id+100))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []string{"abc", "0", "-1"} {
		rec = serve(t, gw.Handler(), "/api/history/"+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id=%s", bad)
	}
}

func TestHandleActionHistory(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	gw.recordAction(ctx, &store.ActionRecord{AgentID: "ptc_clicking", Action: "pause", RequestID: "req-1", ResultStatus: "idle"})
	gw.recordAction(ctx, &store.ActionRecord{AgentID: "web3_mining", Action: "stop", ResultStatus: "initialized"})
	gw.recordAction(ctx, &store.ActionRecord{AgentID: "ptc_clicking", Action: "start", ResultStatus: "active"})

	rec := serve(t, gw.Handler(), "/api/history/actions")
	require.Equal(t, http.StatusOK, rec.Code)
	var all ActionsResponse
	decodeBody(t, rec, &all)
	require.Len(t, all.Actions, 3)
	assert.Equal(t, "start", all.Actions[0].Action, "newest first")

	rec = serve(t, gw.Handler(), "/api/history/actions?agent_id=ptc_clicking&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered ActionsResponse
	decodeBody(t, rec, &filtered)
	require.Len(t, filtered.Actions, 2)
	for _, a := range filtered.Actions {
		assert.Equal(t, "ptc_clicking", a.AgentID)
		assert.NotEmpty(t, a.ID)
	}
	assert.Equal(t, "req-1", filtered.Actions[1].RequestID)
	assert.Equal(t, "idle", filtered.Actions[1].ResultStatus)

	rec = serve(t, gw.Handler(), "/api/history/actions?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var limited ActionsResponse
	decodeBody(t, rec, &limited)
	assert.Len(t, limited.Actions, 1)

	rec = serve(t, gw.Handler(), "/api/history/actions?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleActionHistory_JournalDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Path = ""
	gw := newGateway(t, cfg)
	defer gw.Shutdown(context.Background())

	for _, target := range []string{"/api/history/actions", "/api/history/1"} {
		rec := serve(t, gw.Handler(), target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	gw := newGateway(t, cfg)
	defer gw.Shutdown(context.Background())

	require.NoError(t, gw.Publisher().EmitSignal(context.Background()))

	rec := serve(t, gw.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `frames_published_total{type="new_signal"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(t, gw.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	secret := strings.Repeat("s", 32)
	cfg := testConfig()
	cfg.Auth.JWTSecret = secret
	gw := newGateway(t, cfg)
	defer gw.Shutdown(context.Background())
	h := gw.Handler()

	rec := serve(t, h, "/api/agents")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")

	verifier, err := auth.NewJWTVerifier([]byte(secret))
	require.NoError(t, err)
	token, err := verifier.Generate("dashboard", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, "/api/agents?token="+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
