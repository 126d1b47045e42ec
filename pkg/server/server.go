// Package server provides the HTTP API over the trust engine, the advisor
// engines and stored snapshots. All /v1 routes require the internal service
// token; admin routes additionally require the admin sync key.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/devparekh/tickertrust/internal/metrics"
	"github.com/devparekh/tickertrust/internal/store"
	"github.com/devparekh/tickertrust/pkg/advisor"
	"github.com/devparekh/tickertrust/pkg/synth"
	"github.com/devparekh/tickertrust/pkg/telemetry"
	"github.com/devparekh/tickertrust/pkg/trust"
)

// slowRequestMS marks requests worth flagging in telemetry.
const slowRequestMS = 1200.0

// Jobs exposes the background sweeps for manual admin triggering.
type Jobs interface {
	IngestAll(ctx context.Context)
	RecomputeAll(ctx context.Context)
}

// Server provides the HTTP API.
type Server struct {
	store     store.Store
	engine    *trust.Engine
	jobs      Jobs
	telemetry *telemetry.Dispatcher
	log       zerolog.Logger

	port          int
	internalToken string
	adminKey      string
}

// New creates a new HTTP server.
func New(
	s store.Store,
	engine *trust.Engine,
	jobs Jobs,
	dispatcher *telemetry.Dispatcher,
	log zerolog.Logger,
	port int,
	internalToken, adminKey string,
) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:         s,
		engine:        engine,
		jobs:          jobs,
		telemetry:     dispatcher,
		log:           log,
		port:          port,
		internalToken: internalToken,
		adminKey:      adminKey,
	}
}

// Handler builds the routed and instrumented handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /v1/trust-score/{symbol}", s.auth(s.handleTrustScore))
	mux.HandleFunc("GET /v1/social/{symbol}", s.auth(s.handleSocial))
	mux.HandleFunc("POST /v1/quiz/score", s.auth(s.handleQuizScore))
	mux.HandleFunc("POST /v1/portfolio/generate", s.auth(s.handlePortfolio))
	mux.HandleFunc("POST /v1/sip/generate", s.auth(s.handleSIP))

	mux.HandleFunc("POST /v1/admin/recompute", s.auth(s.admin(s.handleAdminRecompute)))
	mux.HandleFunc("PUT /v1/admin/credibility", s.auth(s.admin(s.handleAdminCredibility)))

	return s.timing(mux)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.Handler())
}

// statusRecorder stamps the response time header just before headers flush,
// so the value covers the handler's work.
type statusRecorder struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	durationMS := synth.Round2(float64(time.Since(r.start).Microseconds()) / 1000)
	r.Header().Set("x-response-time-ms", strconv.FormatFloat(durationMS, 'f', -1, 64))
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// timing records latency per route, adds the x-response-time-ms header and
// mirrors non-health requests to telemetry.
func (s *Server) timing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, start: start, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		durationMS := synth.Round2(float64(elapsed.Microseconds()) / 1000)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		if r.URL.Path != "/health" {
			level := "info"
			if durationMS > slowRequestMS {
				level = "warn"
			}
			s.telemetry.Event("tickertrust.request", map[string]any{
				"path":        r.URL.Path,
				"method":      r.Method,
				"status_code": rec.status,
				"duration_ms": durationMS,
				"level":       level,
			})
		}
	})
}

// auth requires the internal service token.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Internal-Token")
		if token == "" || token != s.internalToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid internal token"})
			return
		}
		next(w, r)
	}
}

// admin additionally requires the admin sync key, compared in constant time.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin sync key"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "tickertrust",
		"date":    time.Now().UTC().Format("2006-01-02"),
	})
}

func (s *Server) handleTrustScore(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	var previous *float64
	if latest, err := s.store.LatestTrustScore(r.Context(), symbol); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("load previous trust score")
	} else if latest != nil {
		previous = &latest.TrustScore
	}

	result := s.engine.Compute(r.Context(), symbol, previous, time.Now().UTC())
	if err := s.store.SaveTrustScore(r.Context(), result); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("persist trust score")
	}

	writeJSON(w, http.StatusOK, result)
}

// socialSnapshotResponse is the live social view for one symbol.
type socialSnapshotResponse struct {
	Symbol        string  `json:"symbol"`
	AsOfDate      string  `json:"asOfDate"`
	BullishPct    float64 `json:"bullishPct"`
	BearishPct    float64 `json:"bearishPct"`
	HypeVelocity  float64 `json:"hypeVelocity"`
	Confidence    float64 `json:"confidence"`
	MemeRiskFlag  bool    `json:"memeRiskFlag"`
	SpikeDetected bool    `json:"spikeDetected"`
	StaleData     bool    `json:"staleData"`
}

func (s *Server) handleSocial(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	features, _ := s.engine.SocialFeatures(r.Context(), symbol)

	writeJSON(w, http.StatusOK, socialSnapshotResponse{
		Symbol:        symbol,
		AsOfDate:      time.Now().UTC().Format("2006-01-02"),
		BullishPct:    features.BullishPct,
		BearishPct:    features.BearishPct,
		HypeVelocity:  features.HypeVelocity,
		Confidence:    features.Confidence,
		MemeRiskFlag:  features.MemeRiskFlag,
		SpikeDetected: features.SpikeDetected,
		StaleData:     features.Stale,
	})
}

func (s *Server) handleQuizScore(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Answers []advisor.QuizAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, advisor.ScoreQuiz(payload.Answers))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RiskPersona   string  `json:"riskPersona"`
		Amount        float64 `json:"amount"`
		HorizonMonths int     `json:"horizonMonths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if payload.Amount <= 0 || payload.HorizonMonths <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount and horizonMonths must be positive"})
		return
	}

	plan, err := advisor.GeneratePortfolio(payload.RiskPersona, payload.Amount, payload.HorizonMonths)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSIP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MonthlyBudget float64 `json:"monthlyBudget"`
		RiskPersona   string  `json:"riskPersona"`
		HorizonMonths int     `json:"horizonMonths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if payload.MonthlyBudget <= 0 || payload.HorizonMonths <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "monthlyBudget and horizonMonths must be positive"})
		return
	}

	plan, err := advisor.GenerateSIPPlan(payload.MonthlyBudget, payload.RiskPersona, payload.HorizonMonths)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleAdminRecompute(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "background jobs not configured"})
		return
	}

	s.jobs.IngestAll(r.Context())
	s.jobs.RecomputeAll(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"job":    "trust_recompute",
	})
}

func (s *Server) handleAdminCredibility(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Domain string  `json:"domain"`
		Weight float64 `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if payload.Domain == "" || payload.Weight < 0.1 || payload.Weight > 1.0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "domain required and weight must be in [0.1, 1.0]"})
		return
	}

	if err := s.store.SetSourceCredibility(r.Context(), strings.ToLower(payload.Domain), payload.Weight); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"domain": strings.ToLower(payload.Domain),
		"weight": payload.Weight,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
