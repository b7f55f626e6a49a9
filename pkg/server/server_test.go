package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/haivivi/adscreen/pkg/audio/codec/wav"
	"github.com/haivivi/adscreen/pkg/audio/features"
	"github.com/haivivi/adscreen/pkg/audio/pcm"
	"github.com/haivivi/adscreen/pkg/screening"
	"github.com/haivivi/adscreen/pkg/storage"
)

// stubClassifier returns the same distribution for every input.
type stubClassifier struct{ proba [2]float64 }

func (c stubClassifier) PredictProba([]float64) ([2]float64, error) { return c.proba, nil }
func (c stubClassifier) Dim() int                                   { return features.VectorLen }
func (c stubClassifier) Kind() string                               { return "stub" }

func identity() *screening.MinMaxScaler {
	s := &screening.MinMaxScaler{
		Scale: make([]float64, features.VectorLen),
		Min:   make([]float64, features.VectorLen),
	}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

type testServer struct {
	*Server
	staging string
}

func newTestServer(t *testing.T, proba [2]float64, opts ...Option) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	models := &screening.Models{Normalizer: identity(), Classifier: stubClassifier{proba: proba}}
	scr, err := screening.New(models, screening.DefaultConfig(), screening.WithLogger(logger))
	if err != nil {
		t.Fatalf("screening.New: %v", err)
	}
	dir := t.TempDir()
	staging, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithLogger(logger), WithRegistry(prometheus.NewRegistry())}, opts...)
	srv, err := New(scr, staging, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testServer{Server: srv, staging: dir}
}

func (s *testServer) assertStagingEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.staging)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir has %d leftover files", len(entries))
	}
}

func toneWAV(t *testing.T, d time.Duration) []byte {
	t.Helper()
	const rate = 22050
	n := int(math.Round(rate * d.Seconds()))
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/rate)
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, pcm.Signal{Samples: s, Rate: rate}); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/assessments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// stagingSnapshotWriter records how many staged files exist when the response
// status is written.
type stagingSnapshotWriter struct {
	*httptest.ResponseRecorder
	dir    string
	staged int
}

func (w *stagingSnapshotWriter) WriteHeader(code int) {
	entries, _ := os.ReadDir(w.dir)
	w.staged = len(entries)
	w.ResponseRecorder.WriteHeader(code)
}

func TestAssess_UploadRemovedBeforeResponse(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		status int
	}{
		{"scored", toneWAV(t, 2*time.Second), http.StatusOK},
		{"extraction failure", toneWAV(t, 300*time.Millisecond), http.StatusUnprocessableEntity},
		{"decode failure", []byte("definitely not audio data"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, [2]float64{0.6, 0.4})
			w := &stagingSnapshotWriter{ResponseRecorder: httptest.NewRecorder(), dir: srv.staging, staged: -1}
			srv.Handler().ServeHTTP(w, uploadRequest(t, UploadField, "a.wav", tt.data))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
			if w.staged != 0 {
				t.Errorf("%d staged files present when the response was written", w.staged)
			}
		})
	}
}

func TestAssess_OK(t *testing.T) {
	srv := newTestServer(t, [2]float64{0.6, 0.4})
	rec := serve(srv.Server, uploadRequest(t, UploadField, "Speech.WAV", toneWAV(t, 3*time.Second)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp AssessmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.RequestID == "" || resp.RequestID != rec.Header().Get(RequestIDHeader) {
		t.Errorf("request id = %q, header = %q", resp.RequestID, rec.Header().Get(RequestIDHeader))
	}
	if resp.Report == nil {
		t.Fatal("missing report")
	}
	a := resp.Assessment
	// 0.40 sits on the threshold and counts as high risk.
	if a.Label != screening.HighRisk || a.ADProbability != 0.4 {
		t.Errorf("assessment = %+v", a)
	}
	if resp.Headline != screening.HighRisk.Headline() {
		t.Errorf("headline = %q", resp.Headline)
	}
	if resp.Source.SampleRate != 22050 || resp.Features == nil || resp.Features.SampleRate != 22050 {
		t.Errorf("source = %+v", resp.Source)
	}
	srv.assertStagingEmpty(t)

	m := srv.Metrics()
	if got := testutil.ToFloat64(m.Labels.WithLabelValues(string(screening.HighRisk))); got != 1 {
		t.Errorf("high risk count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues(OutcomeOK)); got != 1 {
		t.Errorf("ok outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/v1/assessments", http.MethodPost, "200")); got != 1 {
		t.Errorf("request count = %v, want 1", got)
	}
}

func TestAssess_Errors(t *testing.T) {
	tone := toneWAV(t, 3*time.Second)
	tests := []struct {
		name    string
		proba   [2]float64
		opts    []Option
		req     func(t *testing.T) *http.Request
		status  int
		outcome string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/v1/assessments", strings.NewReader("{}"))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status:  http.StatusBadRequest,
			outcome: OutcomeBadRequest,
		},
		{
			name:    "missing field",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "file", "a.wav", tone) },
			status:  http.StatusBadRequest,
			outcome: OutcomeBadRequest,
		},
		{
			name:    "unsupported extension",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "a.ogg", tone) },
			status:  http.StatusBadRequest,
			outcome: OutcomeBadRequest,
		},
		{
			name: "undecodable",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, UploadField, "a.wav", []byte("definitely not audio data"))
			},
			status:  http.StatusUnprocessableEntity,
			outcome: OutcomeDecode,
		},
		{
			name: "too short",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, UploadField, "a.wav", toneWAV(t, 300*time.Millisecond))
			},
			status:  http.StatusUnprocessableEntity,
			outcome: OutcomeExtraction,
		},
		{
			name:    "too large",
			opts:    []Option{WithMaxUploadBytes(1024)},
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "a.wav", tone) },
			status:  http.StatusRequestEntityTooLarge,
			outcome: OutcomeTooLarge,
		},
		{
			name:    "invalid probability",
			proba:   [2]float64{0.5, 0.7},
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, UploadField, "a.wav", tone) },
			status:  http.StatusInternalServerError,
			outcome: OutcomeScoring,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proba := tt.proba
			if proba == ([2]float64{}) {
				proba = [2]float64{0.9, 0.1}
			}
			srv := newTestServer(t, proba, tt.opts...)
			rec := serve(srv.Server, tt.req(t))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Kind != tt.outcome || resp.Error == "" {
				t.Errorf("body = %+v, want kind %q", resp, tt.outcome)
			}
			if resp.RequestID != rec.Header().Get(RequestIDHeader) {
				t.Errorf("request id = %q, header = %q", resp.RequestID, rec.Header().Get(RequestIDHeader))
			}
			if got := testutil.ToFloat64(srv.Metrics().Outcomes.WithLabelValues(tt.outcome)); got != 1 {
				t.Errorf("outcome %s count = %v, want 1", tt.outcome, got)
			}
			srv.assertStagingEmpty(t)
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, [2]float64{0.9, 0.1})

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	if got := serve(srv.Server, req).Header().Get(RequestIDHeader); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	// Ids that are not UUIDs are replaced.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "../../etc")
	got := serve(srv.Server, req).Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("request id = %q, want a uuid", got)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, [2]float64{0.9, 0.1})

	rec := serve(srv.Server, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	rec = serve(srv.Server, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}
	var ready map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &ready); err != nil {
		t.Fatal(err)
	}
	if ready["classifier"] != "stub" || ready["normalizer"] != screening.KindMinMaxScaler {
		t.Errorf("readyz body = %v", ready)
	}
	if ready["dim"] != float64(features.VectorLen) {
		t.Errorf("dim = %v", ready["dim"])
	}

	srv.SetReady(false)
	rec = serve(srv.Server, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz after drain = %d, want 503", rec.Code)
	}
}

func TestRouting(t *testing.T) {
	srv := newTestServer(t, [2]float64{0.9, 0.1})
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/assessments", http.StatusMethodNotAllowed},
		{http.MethodPost, "/healthz", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		rec := serve(srv.Server, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, [2]float64{0.7, 0.3})
	if rec := serve(srv.Server, uploadRequest(t, UploadField, "a.wav", toneWAV(t, 2*time.Second))); rec.Code != http.StatusOK {
		t.Fatalf("assess = %d: %s", rec.Code, rec.Body)
	}

	rec := serve(srv.Server, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`adscreen_risk_labels_total{label="LOW_RISK"} 1`,
		`adscreen_assessments_total{outcome="ok"} 1`,
		`adscreen_ad_probability_count 1`,
		`adscreen_screening_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	staging, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(nil, staging); err == nil {
		t.Error("New(nil screener) succeeded")
	}
	scr, err := screening.New(&screening.Models{Normalizer: identity(), Classifier: stubClassifier{}}, screening.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(scr, nil); err == nil {
		t.Error("New(nil staging) succeeded")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&badRequest{msg: "x"}, http.StatusBadRequest},
		{storage.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{&features.ExtractionError{Stage: features.StageSegment, Err: features.ErrSegmentTooShort}, http.StatusUnprocessableEntity},
		{&screening.ScoringError{Err: screening.ErrDimensionMismatch}, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
