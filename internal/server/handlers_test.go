package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtlog/internal/config"
	"courtlog/internal/domain"
	"courtlog/internal/service"
)

type stubIngest struct {
	report *domain.RunReport
	err    error
}

func (s *stubIngest) Run(context.Context) (*domain.RunReport, error) {
	return s.report, s.err
}

type stubIntake struct {
	entry *domain.CatalogEntry
	err   error
}

func (s *stubIntake) Submit(context.Context, string, domain.Submission) (*domain.CatalogEntry, error) {
	return s.entry, s.err
}

type stubModeration struct {
	match *domain.Match
	err   error
}

func (s *stubModeration) Approve(context.Context, int64, service.ApproveInput) (*domain.Match, error) {
	return s.match, s.err
}

func (s *stubModeration) Reject(context.Context, int64) error { return s.err }
func (s *stubModeration) Reopen(context.Context, int64) error { return s.err }
func (s *stubModeration) Delete(context.Context, int64, bool) error {
	return s.err
}

type stubRegistrar struct {
	channel *domain.Channel
	err     error
}

func (s *stubRegistrar) Register(context.Context, string, domain.Cadence) (*domain.Channel, error) {
	return s.channel, s.err
}

type stubCatalog struct {
	entry   *domain.CatalogEntry
	entries []domain.CatalogEntry
	err     error
}

func (s *stubCatalog) GetByID(context.Context, int64) (*domain.CatalogEntry, error) {
	return s.entry, s.err
}

func (s *stubCatalog) ListByStatus(context.Context, domain.Status, int) ([]domain.CatalogEntry, error) {
	return s.entries, s.err
}

type serverStubs struct {
	ingest     *stubIngest
	intake     *stubIntake
	moderation *stubModeration
	channels   *stubRegistrar
	catalog    *stubCatalog
}

func newTestServer(stubs serverStubs, secret string) *Server {
	if stubs.ingest == nil {
		stubs.ingest = &stubIngest{}
	}
	if stubs.intake == nil {
		stubs.intake = &stubIntake{}
	}
	if stubs.moderation == nil {
		stubs.moderation = &stubModeration{}
	}
	if stubs.channels == nil {
		stubs.channels = &stubRegistrar{}
	}
	if stubs.catalog == nil {
		stubs.catalog = &stubCatalog{}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(
		config.ServerConfig{Addr: ":0", ScrapeSecret: secret},
		stubs.ingest,
		stubs.intake,
		stubs.moderation,
		stubs.channels,
		stubs.catalog,
		logger,
	)
}

func doRequest(s *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "1.2.3.4:5678"
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(serverStubs{}, "")

	rec := doRequest(s, http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScrapeRun_RequiresSecret(t *testing.T) {
	s := newTestServer(serverStubs{
		ingest: &stubIngest{report: &domain.RunReport{RunID: "run-1"}},
	}, "s3cret")

	rec := doRequest(s, http.MethodPost, "/api/scrape/run", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/scrape/run", nil, map[string]string{"X-Scrape-Secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/scrape/run", nil, map[string]string{"X-Scrape-Secret": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
}

func TestScrapeRun_EmptySecretAlwaysUnauthorized(t *testing.T) {
	s := newTestServer(serverStubs{}, "")

	rec := doRequest(s, http.MethodPost, "/api/scrape/run", nil, map[string]string{"X-Scrape-Secret": ""})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmit_Created(t *testing.T) {
	s := newTestServer(serverStubs{
		intake: &stubIntake{entry: &domain.CatalogEntry{
			ID:         42,
			ExternalID: "vid-1",
			Status:     domain.StatusPending,
		}},
	}, "")

	rec := doRequest(s, http.MethodPost, "/api/submissions", submitRequest{
		ExternalID: "vid-1",
		URL:        "https://www.youtube.com/watch?v=vid-1",
		Title:      "Court run",
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.EntryID)
	assert.Equal(t, domain.StatusPending, resp.Status)
}

func TestSubmit_MalformedBody(t *testing.T) {
	s := newTestServer(serverStubs{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_RateLimited(t *testing.T) {
	s := newTestServer(serverStubs{
		intake: &stubIntake{err: &domain.RateLimitError{RetryAfter: 30 * time.Minute}},
	}, "")

	rec := doRequest(s, http.MethodPost, "/api/submissions", submitRequest{ExternalID: "vid-1"}, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1800", rec.Header().Get("Retry-After"))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &domain.ValidationError{Reason: "scores cannot tie"}, http.StatusBadRequest},
		{"not found", &domain.NotFoundError{Kind: "catalog entry", ID: 5}, http.StatusNotFound},
		{"conflict", &domain.ConflictError{Reason: "entry already has a match"}, http.StatusConflict},
		{"fetch", &domain.FetchError{ChannelExternalID: "UC-x", Err: errors.New("down")}, http.StatusBadGateway},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(serverStubs{moderation: &stubModeration{err: tt.err}}, "")

			rec := doRequest(s, http.MethodPost, "/api/videos/5/reject", nil, nil)

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestErrorMapping_InternalDetailHidden(t *testing.T) {
	s := newTestServer(serverStubs{moderation: &stubModeration{err: errors.New("pq: secret detail")}}, "")

	rec := doRequest(s, http.MethodPost, "/api/videos/5/reject", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestApprove_ReturnsMatch(t *testing.T) {
	s := newTestServer(serverStubs{
		moderation: &stubModeration{match: &domain.Match{ID: 7, EntryID: 5, WinnerID: 10}},
	}, "")

	rec := doRequest(s, http.MethodPost, "/api/videos/5/approve", approveRequest{
		Player1ID: 10,
		Player2ID: 20,
		Score1:    21,
		Score2:    18,
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var match domain.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &match))
	assert.Equal(t, int64(7), match.ID)
}

func TestEntryID_Invalid(t *testing.T) {
	s := newTestServer(serverStubs{}, "")

	for _, path := range []string{
		"/api/videos/abc",
		"/api/videos/0",
		"/api/videos/-3",
	} {
		rec := doRequest(s, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestListVideos_LimitValidation(t *testing.T) {
	s := newTestServer(serverStubs{
		catalog: &stubCatalog{entries: []domain.CatalogEntry{}},
	}, "")

	rec := doRequest(s, http.MethodGet, "/api/videos?limit=500", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/videos?limit=10", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDelete_CascadeFlag(t *testing.T) {
	s := newTestServer(serverStubs{}, "")

	rec := doRequest(s, http.MethodDelete, "/api/videos/5?cascade=true", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/videos/5?cascade=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterChannel(t *testing.T) {
	s := newTestServer(serverStubs{
		channels: &stubRegistrar{channel: &domain.Channel{
			ID:          3,
			ExternalID:  "UC-hoop",
			Name:        "Hoop Channel",
			Cadence:     domain.CadenceDaily,
			Whitelisted: true,
		}},
	}, "")

	rec := doRequest(s, http.MethodPost, "/api/channels", registerChannelRequest{
		ExternalID: "UC-hoop",
		Cadence:    domain.CadenceDaily,
	}, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
}
