package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/application/query"
	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/internal/interface/http/handlers"
)

type stubGenerator struct {
	got command.GenerateReportCommand
	res *command.GenerateReportResult
	err error
}

func (s *stubGenerator) Handle(ctx context.Context, cmd command.GenerateReportCommand) (*command.GenerateReportResult, error) {
	s.got = cmd
	if s.err != nil {
		return nil, s.err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.res, nil
}

type stubHistory struct {
	got query.GetReportHistoryQuery
}

func (s *stubHistory) Handle(ctx context.Context, q query.GetReportHistoryQuery) (*query.GetReportHistoryResult, error) {
	s.got = q
	return &query.GetReportHistoryResult{
		StudentID: q.StudentID,
		Runs:      []*archive.ReportRun{{ID: "run-1", StudentID: q.StudentID, Format: "pdf"}},
		Limit:     q.Limit,
		Offset:    q.Offset,
	}, nil
}

type stubWeeks struct{ err error }

func (s stubWeeks) Handle(ctx context.Context, q query.GetTaskWeeksQuery) (*query.TaskWeeksResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &query.TaskWeeksResult{StudentID: q.StudentID, Completed: 1, Total: 2, Percent: 50}, nil
}

type stubBatch struct{ err error }

func (s stubBatch) Handle(ctx context.Context) (*archive.BatchRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &archive.BatchRun{ID: "batch-1", Students: 3, Succeeded: 3}, nil
}

func newTestServer(t *testing.T, deps Dependencies, mutate ...func(*Config)) http.Handler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Version = "test"
	for _, m := range mutate {
		m(&cfg)
	}
	return NewServer(cfg, deps).Handler()
}

func decodeEnvelope(t *testing.T, body io.Reader) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestGenerateReport_ReturnsAttachment(t *testing.T) {
	gen := &stubGenerator{res: &command.GenerateReportResult{
		RunID:         "run-1",
		Bytes:         []byte("%PDF-1.4"),
		Filename:      "Ayşe_Yılmaz_rapor.pdf",
		ContentType:   "application/pdf",
		Fingerprint:   "abc123",
		Pages:         2,
		Sections:      []string{"header", "topics", "exams"},
		SectionErrors: map[string]string{"exams": "timeout"},
		GeneratedAt:   time.Now(),
	}}
	srv := newTestServer(t, Dependencies{GenerateReport: gen})

	body := `{"student_id":"42","student":{"ad":"Ayşe","soyad":"Yılmaz","bolum":"Sayısal"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports?format=pdf", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"abc123"`, rec.Header().Get("ETag"))
	assert.Equal(t, "exams", rec.Header().Get("X-Report-Degraded"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	cd := rec.Header().Get("Content-Disposition")
	assert.Contains(t, cd, "attachment")
	assert.Contains(t, cd, "filename=Ayse_Yilmaz_rapor.pdf")
	assert.Contains(t, cd, "filename*=UTF-8''Ay%C5%9Fe_Y%C4%B1lmaz_rapor.pdf")

	assert.Equal(t, "42", gen.got.StudentID)
	assert.Equal(t, "42", gen.got.Student.ID)
	assert.Equal(t, "pdf", gen.got.Format)
	assert.Equal(t, archive.TriggerAPI, gen.got.Trigger)
}

func TestGenerateReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad json", `{"student_id":`, nil, http.StatusBadRequest, "invalid_json"},
		{"unknown field", `{"student_id":"1","bogus":true}`, nil, http.StatusBadRequest, "invalid_json"},
		{"missing name", `{"student_id":"1","student":{}}`, nil, http.StatusBadRequest, "invalid_request"},
		{"missing id", `{"student":{"ad":"A"}}`, nil, http.StatusBadRequest, "invalid_request"},
		{"unknown format", `{"student_id":"1","student":{"ad":"A"}}`, shared.ErrUnknownFormat, http.StatusBadRequest, "invalid_request"},
		{"render failure", `{"student_id":"1","student":{"ad":"A"}}`, shared.ErrRender, http.StatusInternalServerError, "render_failed"},
		{"other failure", `{"student_id":"1","student":{"ad":"A"}}`, errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Dependencies{GenerateReport: &stubGenerator{err: tt.err}})
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeEnvelope(t, rec.Body)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGenerateReport_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t, Dependencies{GenerateReport: &stubGenerator{}}, func(c *Config) {
		c.MaxBodyBytes = 16
	})
	rec := httptest.NewRecorder()
	body := `{"student_id":"1","student":{"ad":"a long enough name"}}`
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReportHistory(t *testing.T) {
	hist := &stubHistory{}
	srv := newTestServer(t, Dependencies{ReportHistory: hist})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students/42/reports?limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, query.GetReportHistoryQuery{StudentID: "42", Limit: 5, Offset: 10}, hist.got)

	resp := decodeEnvelope(t, rec.Body)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 5, resp.Meta.Limit)
	assert.Equal(t, 10, resp.Meta.Offset)
}

func TestTaskWeeks(t *testing.T) {
	srv := newTestServer(t, Dependencies{TaskWeeks: stubWeeks{}})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students/7/weeks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"percent":50`)

	upstream := shared.WrapError("coachapi", "GET", shared.ErrTimeout, "coach api timed out", errors.New("deadline"))
	srv = newTestServer(t, Dependencies{TaskWeeks: stubWeeks{err: upstream}})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students/7/weeks", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLastBatch(t *testing.T) {
	srv := newTestServer(t, Dependencies{LastBatch: stubBatch{err: shared.ErrNoBatchRun}})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/batches/last", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv = newTestServer(t, Dependencies{LastBatch: stubBatch{}})
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/batches/last", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "batch-1")
}

func TestAPIKeyProtectsAPIOnly(t *testing.T) {
	srv := newTestServer(t, Dependencies{LastBatch: stubBatch{}}, func(c *Config) {
		c.APIKeys = []string{"secret"}
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/batches/last", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/last", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("database", func(ctx context.Context) error { return nil })
	checker.AddOptionalCheck("coach_api", func(ctx context.Context) error { return errors.New("down") })
	srv := newTestServer(t, Dependencies{HealthChecker: checker})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coach_api")

	checker.AddCheck("cache", func(ctx context.Context) error { return errors.New("refused") })
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "cache")
}

func TestRecoveryMiddleware(t *testing.T) {
	s := NewServer(DefaultConfig(), Dependencies{})
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAsciiFilename(t *testing.T) {
	assert.Equal(t, "Cagri_Ozturk_rapor.pdf", asciiFilename("Çağrı_Öztürk_rapor.pdf"))
	assert.Equal(t, "plain.pdf", asciiFilename("plain.pdf"))
	assert.Equal(t, `a_b.pdf`, asciiFilename(`a"b.pdf`))
}
