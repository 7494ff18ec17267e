package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"jackpotchain/core"
	"jackpotchain/native/jackpot"
	"jackpotchain/observability"
)

const maxRequestBytes = 1 << 16

type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimit
	// TrustProxyHeaders derives the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a trusted proxy.
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Server exposes the node over a JSON HTTP API.
type Server struct {
	node    *core.Node
	logger  *slog.Logger
	auth    *Authenticator
	limiter *RateLimiter
	router  http.Handler
}

func NewServer(node *core.Node, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rpc")
	s := &Server{
		node:    node,
		logger:  logger,
		auth:    NewAuthenticator(cfg.Auth, logger),
		limiter: NewRateLimiter(cfg.RateLimit),
	}
	s.router = s.buildRouter(cfg.TrustProxyHeaders)
	return s
}

// Handler exposes the configured HTTP router wrapped for tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "jackpot-api")
}

func (s *Server) buildRouter(trustProxy bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "chainId": s.node.ChainID()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.observe("public"))
		v1.Use(s.limiter.Middleware("public"))
		v1.Get("/round", s.handleRound)
		v1.Get("/price", s.handlePrice)
		v1.Get("/pot", s.handlePot)
		v1.Get("/charity", s.handleCharity)
		v1.Get("/countdown", s.handleCountdown)
		v1.Get("/durations", s.handleDurations)
		v1.Get("/stats", s.handleStats)
		v1.Get("/rounds/{id}", s.handleSettlement)
		v1.Get("/trophies/{id}", s.handleTrophy)
		v1.Get("/accounts/{addr}", s.handleAccount)
		v1.Post("/tx", s.handleSubmit(false))
	})

	r.Route("/admin/v1", func(admin chi.Router) {
		admin.Use(s.observe("admin"))
		admin.Use(s.limiter.Middleware("admin"))
		admin.Use(s.auth.Middleware(ScopeAdmin))
		admin.Post("/tx", s.handleSubmit(true))
		admin.Get("/solvency", s.handleSolvency)
	})
	return r
}

// observe records request metrics keyed by the matched route pattern.
func (s *Server) observe(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = r.Method + " " + pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observability.ModuleMetrics().Observe(module, route, status, time.Since(start))
		})
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// statusFor maps a rejected operation to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidTx), errors.Is(err, core.ErrChainIDMismatch):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusConflict
	case errors.Is(err, jackpot.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, jackpot.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	switch core.ErrorKind(err) {
	case jackpot.KindValidation:
		return http.StatusUnprocessableEntity
	case jackpot.KindCollaborator:
		return http.StatusBadGateway
	case jackpot.KindConfiguration:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := core.ErrorKind(err).String()
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", chimw.GetReqID(r.Context()), "error", err)
		message = http.StatusText(status)
	}
	writeError(w, status, kind, message)
}
