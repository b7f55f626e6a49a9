// Package server exposes the screener over HTTP.
//
// Routes:
//
//	POST /v1/assessments  multipart upload, field "audio" (.wav or .mp3)
//	GET  /healthz         liveness
//	GET  /readyz          readiness (models loaded, not draining)
//	GET  /metrics         prometheus exposition
//
// Uploads are staged under a local directory with a random name and
// removed before the response is written.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haivivi/adscreen/pkg/audio/codec"
	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/screening"
	"github.com/haivivi/adscreen/pkg/storage"
)

// UploadField is the multipart field carrying the recording.
const UploadField = "audio"

// DefaultMaxUploadBytes limits one uploaded recording.
const DefaultMaxUploadBytes int64 = 32 << 20

// multipartSlack covers boundaries and part headers around the file.
const multipartSlack = 64 << 10

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-ID"

// Server serves screening requests.
type Server struct {
	screener  *screening.Screener
	staging   *storage.Local
	maxUpload int64
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	router    *mux.Router
	started   time.Time
	ready     atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxUploadBytes sets the upload size limit. Non-positive values keep
// DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithRegistry registers the metrics with reg and serves /metrics from
// it. The default is the prometheus default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.metrics = NewMetrics(reg)
			s.gatherer = reg
		}
	}
}

// New creates a Server. The server starts ready.
func New(screener *screening.Screener, staging *storage.Local, opts ...Option) (*Server, error) {
	if screener == nil {
		return nil, errors.New("server: nil screener")
	}
	if staging == nil {
		return nil, errors.New("server: nil staging store")
	}
	s := &Server{
		screener:  screener,
		staging:   staging,
		maxUpload: DefaultMaxUploadBytes,
		logger:    slog.Default(),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.DefaultRegisterer)
		s.gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	r.Use(s.instrument)
	r.HandleFunc("/v1/assessments", s.handleAssess).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = r
	s.ready.Store(true)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// SetReady toggles /readyz. Serve clears it before draining.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Serve runs an http.Server on addr until ctx is done, then drains
// in-flight requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, hs *http.Server, shutdownTimeout time.Duration) error {
	hs.Handler = s.Handler()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", hs.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	s.SetReady(false)
	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

type ctxKey struct{}

// RequestID returns the id assigned to the request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusWriter records the response status.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// instrument assigns a request id, then logs and counts the request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(route, r.Method, fmt.Sprint(sw.status)).Inc()
		s.metrics.Duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		s.logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed)
	})
}

// AssessmentResponse is the body of a successful POST /v1/assessments.
type AssessmentResponse struct {
	RequestID string  `json:"request_id"`
	Headline  string  `json:"headline"`
	ElapsedMS float64 `json:"elapsed_ms"`
	*screening.Report
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
}

// badRequest marks client errors detected before screening.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)

	name, err := s.stageUpload(ctx, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	start := time.Now()
	report, err := s.screener.AssessFile(ctx, s.staging.Path(name))
	s.metrics.Screening.Observe(time.Since(start).Seconds())
	s.discard(ctx, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	a := report.Assessment
	s.metrics.Outcomes.WithLabelValues(OutcomeOK).Inc()
	s.metrics.Labels.WithLabelValues(string(a.Label)).Inc()
	s.metrics.Probability.Observe(a.ADProbability)
	s.logger.Info("assessment",
		"request_id", RequestID(ctx),
		"label", a.Label,
		"ad_probability", a.ADProbability,
		"rate", report.Source.SampleRate,
		"elapsed", report.Elapsed)

	s.respondJSON(w, http.StatusOK, AssessmentResponse{
		RequestID: RequestID(ctx),
		Headline:  a.Label.Headline(),
		ElapsedMS: float64(report.Elapsed.Microseconds()) / 1000,
		Report:    report,
	})
}

// discard removes a staged upload. It runs even when ctx is canceled.
func (s *Server) discard(ctx context.Context, name string) {
	if err := s.staging.Delete(context.WithoutCancel(ctx), name); err != nil {
		s.logger.Warn("remove staged upload", "request_id", RequestID(ctx), "name", name, "error", err)
	}
}

// stageUpload streams the audio part into the staging store and returns
// its name.
func (s *Server) stageUpload(ctx context.Context, r *http.Request) (string, error) {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "multipart/form-data" {
		return "", &badRequest{msg: "expected multipart/form-data"}
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return "", &badRequest{msg: fmt.Sprintf("read multipart: %v", err)}
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", &badRequest{msg: fmt.Sprintf("missing %q file field", UploadField)}
		}
		if err != nil {
			return "", uploadError(err)
		}
		if part.FormName() != UploadField {
			part.Close()
			continue
		}
		defer part.Close()

		ext := strings.ToLower(filepath.Ext(part.FileName()))
		if ext != ".wav" && ext != ".mp3" {
			return "", &badRequest{msg: fmt.Sprintf("unsupported file type %q: want .wav or .mp3", ext)}
		}
		name, err := s.staging.Stage(ctx, part, ext, s.maxUpload)
		if err != nil {
			return "", uploadError(err)
		}
		if size, err := fileSize(s.staging.Path(name)); err == nil {
			s.metrics.UploadBytes.Observe(float64(size))
		}
		return name, nil
	}
}

// uploadError maps body read failures, keeping size violations distinct.
func uploadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return storage.ErrTooLarge
	}
	if errors.Is(err, storage.ErrTooLarge) {
		return err
	}
	return &badRequest{msg: fmt.Sprintf("read upload: %v", err)}
}

// classify maps an error to an HTTP status and an outcome label.
func classify(err error) (status int, outcome string) {
	var (
		br  *badRequest
		de  *codec.DecodeError
		ee  *features.ExtractionError
		se  *screening.ScoringError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, OutcomeBadRequest
	case errors.Is(err, storage.ErrTooLarge), errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, OutcomeTooLarge
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, OutcomeDecode
	case errors.As(err, &ee):
		return http.StatusUnprocessableEntity, OutcomeExtraction
	case errors.As(err, &se):
		return http.StatusInternalServerError, OutcomeScoring
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, OutcomeCanceled
	}
	return http.StatusInternalServerError, OutcomeInternal
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, outcome := classify(err)
	s.metrics.Outcomes.WithLabelValues(outcome).Inc()

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "assessment failed",
		"request_id", RequestID(r.Context()),
		"outcome", outcome,
		"status", status,
		"error", err)

	msg := err.Error()
	if outcome == OutcomeTooLarge {
		msg = fmt.Sprintf("upload exceeds %d bytes", s.maxUpload)
	}
	s.respondJSON(w, status, ErrorResponse{
		RequestID: RequestID(r.Context()),
		Error:     msg,
		Kind:      outcome,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		s.respondError(w, r, http.StatusServiceUnavailable, "not ready")
		return
	}
	scorer := s.screener.Scorer()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"normalizer": scorer.NormalizerKind(),
		"classifier": scorer.ClassifierKind(),
		"dim":        scorer.Dim(),
		"threshold":  screening.ADThreshold,
	})
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.respondJSON(w, status, ErrorResponse{RequestID: RequestID(r.Context()), Error: msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}
