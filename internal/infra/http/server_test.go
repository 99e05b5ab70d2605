package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jpk2json-service/internal/config"
	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/infra/audit"
	"jpk2json-service/internal/usecase"

	"github.com/rs/zerolog"
)

// stubConvertUC lets each test script the facade's behavior.
type stubConvertUC struct {
	upload   func(ctx context.Context, req usecase.UploadRequest) (*usecase.UploadResult, error)
	status   func(ctx context.Context, jobID string) (*model.ConversionJob, error)
	download func(ctx context.Context, jobID string) (string, string, error)
	cleanup  func(ctx context.Context, jobID string) error
	stats    func(ctx context.Context) model.QueueStats
}

func (s *stubConvertUC) Upload(ctx context.Context, req usecase.UploadRequest) (*usecase.UploadResult, error) {
	return s.upload(ctx, req)
}

func (s *stubConvertUC) Status(ctx context.Context, jobID string) (*model.ConversionJob, error) {
	return s.status(ctx, jobID)
}

func (s *stubConvertUC) Download(ctx context.Context, jobID string) (string, string, error) {
	return s.download(ctx, jobID)
}

func (s *stubConvertUC) Cleanup(ctx context.Context, jobID string) error {
	return s.cleanup(ctx, jobID)
}

func (s *stubConvertUC) QueueStats(ctx context.Context) model.QueueStats {
	return s.stats(ctx)
}

type stubBlockUC struct {
	entries []string
	addErr  error
	rmErr   error
}

func (b *stubBlockUC) List(ctx context.Context) []string              { return b.entries }
func (b *stubBlockUC) Add(ctx context.Context, entry string) error    { return b.addErr }
func (b *stubBlockUC) Remove(ctx context.Context, entry string) error { return b.rmErr }
func (b *stubBlockUC) Reload(ctx context.Context) error               { return nil }

type stubGate struct {
	blocked map[string]bool
}

func (g *stubGate) IsBlocked(ctx context.Context, addr string) bool { return g.blocked[addr] }
func (g *stubGate) Add(ctx context.Context, entry string) error     { return nil }
func (g *stubGate) Remove(ctx context.Context, entry string) error  { return nil }
func (g *stubGate) Reload(ctx context.Context) error                { return nil }
func (g *stubGate) List(ctx context.Context) []string               { return nil }

type headerVerifier struct{}

func (headerVerifier) Identity(r *http.Request) string {
	return r.Header.Get("X-Test-Identity")
}

func newTestServer(t *testing.T, uc *stubConvertUC, block *stubBlockUC, gate *stubGate) *Server {
	t.Helper()
	if block == nil {
		block = &stubBlockUC{}
	}
	if gate == nil {
		gate = &stubGate{blocked: map[string]bool{}}
	}
	logger := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Server.AdminAPIKey = "admin-secret"
	cfg.Converter.MaxUploadBytes = 1 << 20
	return NewServer(cfg, uc, block, headerVerifier{}, gate, audit.NewNopSink(), &logger)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload_Accepted(t *testing.T) {
	t.Parallel()

	var got usecase.UploadRequest
	uc := &stubConvertUC{
		upload: func(ctx context.Context, req usecase.UploadRequest) (*usecase.UploadResult, error) {
			got = req
			return &usecase.UploadResult{
				JobID:    "job-1",
				Filename: req.Filename,
				Message:  "File uploaded successfully, queued for conversion",
			}, nil
		},
	}
	srv := newTestServer(t, uc, nil, nil)

	body, ctype := multipartBody(t, "file", "ledger.jpk", "jpk-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/converter/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("X-Test-Identity", "alice@example.com")
	req.Header.Set("X-Forwarded-For", "198.51.100.10")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if got.Identity != "alice@example.com" {
		t.Fatalf("identity %q", got.Identity)
	}
	if got.ClientIP != "198.51.100.10" {
		t.Fatalf("client ip %q", got.ClientIP)
	}
	if got.Filename != "ledger.jpk" || got.Size != int64(len("jpk-bytes")) {
		t.Fatalf("file meta %q %d", got.Filename, got.Size)
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID != "job-1" {
		t.Fatalf("job id %q", resp.JobID)
	}
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	t.Parallel()

	uc := &stubConvertUC{
		upload: func(ctx context.Context, req usecase.UploadRequest) (*usecase.UploadResult, error) {
			t.Fatal("upload reached with no file part")
			return nil, nil
		},
	}
	srv := newTestServer(t, uc, nil, nil)

	body, ctype := multipartBody(t, "attachment", "ledger.jpk", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/converter/upload", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGateBlocksBeforeHandlers(t *testing.T) {
	t.Parallel()

	uc := &stubConvertUC{
		status: func(ctx context.Context, jobID string) (*model.ConversionJob, error) {
			t.Fatal("handler reached for blocked address")
			return nil, nil
		},
	}
	gate := &stubGate{blocked: map[string]bool{"203.0.113.66": true}}
	srv := newTestServer(t, uc, nil, gate)

	req := httptest.NewRequest(http.MethodGet, "/api/converter/status/job-1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.66")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d want 403", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"not ready", domain.ErrNotReady, http.StatusConflict},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"not approved", domain.ErrNotApproved, http.StatusForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"queue full", domain.ErrQueueFull, http.StatusServiceUnavailable},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			uc := &stubConvertUC{
				status: func(ctx context.Context, jobID string) (*model.ConversionJob, error) {
					return nil, tc.err
				},
			}
			srv := newTestServer(t, uc, nil, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/converter/status/x", nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status %d want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestHandleDownload_ServesAttachment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "job-1_ledger.json")
	if err := os.WriteFile(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	uc := &stubConvertUC{
		download: func(ctx context.Context, jobID string) (string, string, error) {
			return path, "ledger.json", nil
		},
	}
	srv := newTestServer(t, uc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/converter/download/job-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "ledger.json") {
		t.Fatalf("content disposition %q", cd)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Fatalf("body %q", rec.Body.String())
	}
}

func TestHandleQueueStatus(t *testing.T) {
	t.Parallel()

	uc := &stubConvertUC{
		stats: func(ctx context.Context) model.QueueStats {
			return model.QueueStats{TotalJobs: 3, Queued: 2, Failed: 1, PoolSize: 4}
		},
	}
	srv := newTestServer(t, uc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/converter/queue/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var stats model.QueueStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalJobs != 3 || stats.PoolSize != 4 {
		t.Fatalf("stats %+v", stats)
	}
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	block := &stubBlockUC{entries: []string{"203.0.113.66", "10.0.0.0/24"}}
	srv := newTestServer(t, &stubConvertUC{}, block, nil)
	router := srv.Router()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusForbidden},
		{"valid key", "Bearer admin-secret", http.StatusOK},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/blacklist/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status %d want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestBlacklistAdminCRUD(t *testing.T) {
	t.Parallel()

	block := &stubBlockUC{entries: []string{"203.0.113.66"}}
	srv := newTestServer(t, &stubConvertUC{}, block, nil)
	router := srv.Router()

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var rd io.Reader
		if body != "" {
			rd = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, rd)
		req.Header.Set("Authorization", "Bearer admin-secret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/api/admin/blacklist/", ""); rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/admin/blacklist/", `{"entry":"10.0.0.0/24"}`); rec.Code != http.StatusCreated {
		t.Fatalf("add status %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/admin/blacklist/", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty add status %d", rec.Code)
	}
	if rec := do(http.MethodDelete, "/api/admin/blacklist/", `{"entry":"203.0.113.66"}`); rec.Code != http.StatusOK {
		t.Fatalf("remove status %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/admin/blacklist/reload", ""); rec.Code != http.StatusOK {
		t.Fatalf("reload status %d", rec.Code)
	}

	block.rmErr = domain.ErrNotFound
	if rec := do(http.MethodDelete, "/api/admin/blacklist/", `{"entry":"absent"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("remove missing status %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubConvertUC{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
