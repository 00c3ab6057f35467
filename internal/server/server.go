package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/internal/service"
	"github.com/reoring/revstream/internal/store"
	"github.com/reoring/revstream/middleware"
)

// Options configures the HTTP API.
type Options struct {
	MaxBodyBytes int64
	// RateLimit caps submissions per second across all clients; 0 disables it.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

// Server exposes the revenue-stream service over HTTP.
type Server struct {
	svc     *service.Service
	opts    Options
	limiter *rate.Limiter
}

// New creates a Server.
func New(svc *service.Service, opts Options) *Server {
	s := &Server{svc: svc, opts: opts}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/revenue-streams", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/schema", s.handleSchema)
		r.Get("/{id}", s.handleGet)

		opt := s.svc.ParseOpt()
		if s.opts.MaxBodyBytes > 0 {
			opt.MaxBytes = s.opts.MaxBodyBytes
		}
		r.With(middleware.Validate(opt)).Post("/validate", s.handleValidate)
		r.With(s.rateLimit, middleware.Validate(opt)).Post("/", s.handleCreate)
	})
	return r
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	stream, _ := middleware.StreamFromContext(r.Context())
	if err := s.svc.Check(r.Context(), stream); err != nil {
		middleware.WriteIssues(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "stream": revstream.Encode(stream)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	stream, _ := middleware.StreamFromContext(r.Context())
	rec, err := s.svc.Create(r.Context(), stream)
	if err != nil {
		if _, ok := revstream.AsIssues(err); ok {
			middleware.WriteIssues(w, r, err)
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "revenue stream not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{StreamType: revstream.StreamType(r.URL.Query().Get("stream_type"))}
	if filter.StreamType != "" && !filter.StreamType.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_STREAM_TYPE", "unknown stream_type: "+string(filter.StreamType))
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	recs, err := s.svc.List(r.Context(), filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": recs})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, revstream.JSONSchema())
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many submissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
