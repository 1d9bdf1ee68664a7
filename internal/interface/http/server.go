// Package http exposes the ledger's command and query operations as a JSON
// API. Commands go through the application layer's handlers; the interface
// layer only authenticates, decodes, and maps domain errors to statuses.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-ledger/internal/application/command"
	"github.com/academy-hub/academy-ledger/internal/application/query"
	"github.com/academy-hub/academy-ledger/internal/domain/shared"
	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	EnableCORS     bool
	AllowedOrigins []string

	Auth AuthConfig
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		AllowedOrigins: []string{"*"},
		Auth:           DefaultAuthConfig(),
	}
}

// Address returns the listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the HTTP handlers call into.
type Dependencies struct {
	// Command handlers (write side)
	InitializePlatform *command.InitializePlatformHandler
	UpdateConfig       *command.UpdateConfigHandler
	CreateSeason       *command.CreateSeasonHandler
	CloseSeason        *command.CloseSeasonHandler
	CreateCourse       *command.CreateCourseHandler
	UpdateCourse       *command.UpdateCourseHandler
	InitLearner        *command.InitLearnerHandler
	RegisterReferral   *command.RegisterReferralHandler
	AwardStreakFreeze  *command.AwardStreakFreezeHandler
	Enroll             *command.EnrollHandler
	CloseEnrollment    *command.CloseEnrollmentHandler
	CompleteLesson     *command.CompleteLessonHandler
	FinalizeCourse     *command.FinalizeCourseHandler
	ClaimBonus         *command.ClaimCompletionBonusHandler
	ClaimAchievement   *command.ClaimAchievementHandler
	IssueCredential    *command.IssueCredentialHandler

	// Query handlers (read side)
	GetLearnerProgress *query.GetLearnerProgressHandler
	GetCourse          *query.GetCourseHandler
	ListCourses        *query.ListCoursesHandler
	GetEnrollment      *query.GetEnrollmentHandler
	GetPlatformStatus  *query.GetPlatformStatusHandler

	// Cache accelerates the read side; nil disables caching.
	Cache *redis.Cache

	// ReplayGuard deduplicates attested requests; nil disables the check.
	ReplayGuard *redis.ReplayGuard

	// Leaderboard serves the streak ranking; nil disables the endpoint.
	Leaderboard *redis.StreakLeaderboard

	// Health reports readiness of the server's dependencies.
	Health func(ctx context.Context) error

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the ledger HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	auth       *Authenticator
	router     *http.ServeMux
	httpServer *http.Server
	log        *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates the HTTP server.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	s := &Server{
		config: config,
		deps:   deps,
		auth:   NewAuthenticator(config.Auth, deps.Logger),
		router: http.NewServeMux(),
		log:    deps.Logger.With(logger.Component("http")),
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.middleware(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

func (s *Server) routes() {
	// Health and status
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /live", s.handleLive)

	// Public read side
	s.router.HandleFunc("GET /api/v1/platform", s.handleGetPlatformStatus)
	s.router.HandleFunc("GET /api/v1/courses", s.handleListCourses)
	s.router.HandleFunc("GET /api/v1/courses/{id}", s.handleGetCourse)
	s.router.HandleFunc("GET /api/v1/learners/{id}/progress", s.handleGetLearnerProgress)
	s.router.HandleFunc("GET /api/v1/learners/{id}/enrollments/{course}", s.handleGetEnrollment)
	s.router.HandleFunc("GET /api/v1/leaderboard/streaks", s.handleStreakLeaderboard)

	// Platform administration
	s.router.HandleFunc("POST /api/v1/platform", s.requireAuth(s.handleInitializePlatform))
	s.router.HandleFunc("PATCH /api/v1/platform/config", s.requireAuth(s.handleUpdateConfig))
	s.router.HandleFunc("POST /api/v1/seasons", s.requireAuth(s.handleCreateSeason))
	s.router.HandleFunc("POST /api/v1/seasons/close", s.requireAuth(s.handleCloseSeason))
	s.router.HandleFunc("POST /api/v1/courses", s.requireAuth(s.handleCreateCourse))
	s.router.HandleFunc("PATCH /api/v1/courses/{id}", s.requireAuth(s.handleUpdateCourse))

	// Learner lifecycle
	s.router.HandleFunc("POST /api/v1/learners", s.requireAuth(s.handleInitLearner))
	s.router.HandleFunc("POST /api/v1/learners/referral", s.requireAuth(s.handleRegisterReferral))
	s.router.HandleFunc("POST /api/v1/learners/{id}/freezes", s.requireAuth(s.handleAwardStreakFreeze))
	s.router.HandleFunc("POST /api/v1/learners/{id}/achievements", s.requireAuth(s.handleClaimAchievement))

	// Enrollment lifecycle
	s.router.HandleFunc("POST /api/v1/enrollments", s.requireAuth(s.handleEnroll))
	s.router.HandleFunc("DELETE /api/v1/enrollments/{course}", s.requireAuth(s.handleCloseEnrollment))
	s.router.HandleFunc("POST /api/v1/enrollments/lessons", s.requireAuth(s.handleCompleteLesson))
	s.router.HandleFunc("POST /api/v1/enrollments/finalize", s.requireAuth(s.handleFinalizeCourse))
	s.router.HandleFunc("POST /api/v1/enrollments/bonus", s.requireAuth(s.handleClaimBonus))
	s.router.HandleFunc("POST /api/v1/credentials", s.requireAuth(s.handleIssueCredential))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.withRequestID(h)
	h = s.withLogging(h)
	h = s.withRecovery(h)
	if s.config.EnableCORS {
		h = s.withCORS(h)
	}
	return h
}

type contextKey string

const contextKeyRequestID contextKey = "request_id"

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.status),
			logger.Latency(time.Since(start)),
			logger.String("request_id", requestID(r.Context())),
		)
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered",
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID, X-Request-Nonce")
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("http: server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("http server listening", logger.String("address", s.config.Address()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
	}
	s.mu.RLock()
	uptime := time.Since(s.startedAt)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": uptime.Round(time.Second).String(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: status < 400, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: message},
	})
}

// writeDomainError maps a domain error to an HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsAlreadyExists(err) || errors.Is(err, shared.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, shared.ErrForbidden) || errors.Is(err, shared.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, shared.ErrInvalidState) || errors.Is(err, shared.ErrCooldown):
		writeError(w, http.StatusUnprocessableEntity, "invalid_state", err.Error())
	case shared.IsExternalService(err):
		writeError(w, http.StatusBadGateway, "issuer_unavailable", err.Error())
	default:
		s.log.Error("unmapped error", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return fallback
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v := strings.ToLower(r.URL.Query().Get(key))
	return v == "true" || v == "1"
}
