// ABOUTME: HTTP routes and JSON handlers for the fixed-shape status endpoints
// ABOUTME: Also serves health, readiness, metrics and the frame journal

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/2389/status-gateway/internal/auth"
	"github.com/2389/status-gateway/internal/publisher"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/store"
)

// Envelope wraps responses that report success alongside their data.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AgentsResponse is the JSON response for GET /api/agents.
type AgentsResponse struct {
	Agents []status.AgentStatus `json:"agents"`
}

// SignalsResponse is the JSON response for GET /api/signals.
type SignalsResponse struct {
	Signals []status.TradingSignal `json:"signals"`
}

// MiningResponse is the JSON response for GET /api/mining.
type MiningResponse struct {
	MiningStatus status.MiningStatus `json:"mining_status"`
}

// AirdropsResponse is the JSON response for GET /api/airdrops.
type AirdropsResponse struct {
	Airdrops []status.Airdrop `json:"airdrops"`
}

// HistoryEntry is one journaled frame in GET /api/history.
type HistoryEntry struct {
	ID        int64           `json:"id"`
	Seq       uint64          `json:"seq"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryResponse is the JSON response for GET /api/history.
type HistoryResponse struct {
	Frames []HistoryEntry `json:"frames"`
}

// ActionEntry is one audit row in GET /api/history/actions.
type ActionEntry struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	Action       string    `json:"action"`
	RequestID    string    `json:"request_id,omitempty"`
	ResultStatus string    `json:"result_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActionsResponse is the JSON response for GET /api/history/actions.
type ActionsResponse struct {
	Actions []ActionEntry `json:"actions"`
}

// Handler builds the HTTP router.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Access-Control-Allow-Origin", "*"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		g.sendJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health endpoints - no auth required
	r.Get("/health", g.handleHealth)
	r.Get("/health/ready", g.handleReady)
	if g.metrics != nil {
		r.Method(http.MethodGet, g.config.Metrics.Path, g.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.BearerMiddleware(g.verifier))

		r.Get("/ws", g.handlePush)
		r.Get("/api/stream", g.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })

			r.Get("/api/status", g.handleStatus)
			r.Get("/api/system/status", g.handleSystemStatus)
			r.Get("/api/agents", g.handleListAgents)
			r.Get("/api/agents/{id}/status", g.handleAgentStatus)
			r.Get("/api/performance", g.handlePerformance)
			r.Get("/api/signals", g.handleSignals)
			r.Get("/api/mining", g.handleMining)
			r.Get("/api/airdrops", g.handleAirdrops)
			r.Get("/api/history", g.handleHistory)
			r.Get("/api/history/actions", g.handleActionHistory)
			r.Get("/api/history/{id}", g.handleHistoryEntry)
		})
	})

	return r
}

// writeJSON writes v as a JSON response with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the roster has at least one agent.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	n := g.registry.Len()
	if n == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no agents configured"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready (" + strconv.Itoa(n) + " agents)"))
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := g.publisher
	g.writeJSON(w, http.StatusOK, publisher.StatusReport(g.registry.States(), p.Version(), p.Uptime(), p.Now()))
}

func (g *Gateway) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, Envelope{Success: true, Data: g.publisher.SystemStatus()})
}

func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, AgentsResponse{Agents: g.registry.List()})
}

// handleAgentStatus handles GET /api/agents/{id}/status.
func (g *Gateway) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := g.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		g.writeJSON(w, http.StatusNotFound, Envelope{Error: "agent not found"})
		return
	}
	g.writeJSON(w, http.StatusOK, Envelope{Success: true, Data: a})
}

func (g *Gateway) handlePerformance(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, publisher.PerformanceReport(g.publisher.Now()))
}

func (g *Gateway) handleSignals(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, SignalsResponse{Signals: publisher.Signals(g.publisher.Now())})
}

func (g *Gateway) handleMining(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, MiningResponse{MiningStatus: publisher.Mining()})
}

func (g *Gateway) handleAirdrops(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, AirdropsResponse{Airdrops: publisher.Airdrops()})
}

// handleHistory handles GET /api/history?limit=N&type=T, newest first.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		g.sendJSONError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	limit, ok := g.parseLimit(w, r)
	if !ok {
		return
	}
	filter := store.FrameFilter{Type: r.URL.Query().Get("type"), Limit: limit}

	frames, err := g.store.ListFrames(r.Context(), filter)
	if err != nil {
		g.logger.Error("failed to list frames", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := HistoryResponse{Frames: make([]HistoryEntry, len(frames))}
	for i, f := range frames {
		resp.Frames[i] = historyEntry(f)
	}
	g.writeJSON(w, http.StatusOK, resp)
}

func historyEntry(f *store.FrameRecord) HistoryEntry {
	return HistoryEntry{
		ID:        f.ID,
		Seq:       f.Seq,
		Type:      f.Type,
		Data:      f.Payload,
		CreatedAt: f.CreatedAt,
	}
}

// parseLimit reads ?limit=. A missing limit is 0, which the store defaults.
// It writes a 400 and reports false for anything but a positive integer.
func (g *Gateway) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 {
		g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return parsed, true
}

// handleHistoryEntry handles GET /api/history/{id}.
func (g *Gateway) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		g.sendJSONError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		g.sendJSONError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	f, err := g.store.GetFrame(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		g.sendJSONError(w, http.StatusNotFound, "frame not found")
		return
	}
	if err != nil {
		g.logger.Error("failed to get frame", "id", id, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, historyEntry(f))
}

// handleActionHistory handles GET /api/history/actions?agent_id=A&limit=N,
// newest first.
func (g *Gateway) handleActionHistory(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		g.sendJSONError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	limit, ok := g.parseLimit(w, r)
	if !ok {
		return
	}

	actions, err := g.store.ListActions(r.Context(), r.URL.Query().Get("agent_id"), limit)
	if err != nil {
		g.logger.Error("failed to list agent actions", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ActionsResponse{Actions: make([]ActionEntry, len(actions))}
	for i, a := range actions {
		resp.Actions[i] = ActionEntry{
			ID:           a.ID,
			AgentID:      a.AgentID,
			Action:       a.Action,
			RequestID:    a.RequestID,
			ResultStatus: a.ResultStatus,
			CreatedAt:    a.CreatedAt,
		}
	}
	g.writeJSON(w, http.StatusOK, resp)
}
