package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yks-coach/coach-hub/internal/application/command"
	"github.com/yks-coach/coach-hub/internal/application/query"
	"github.com/yks-coach/coach-hub/internal/domain/archive"
	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/internal/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "YKS Coach Hub report API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"reports":        "POST /api/v1/reports",
			"report_history": "GET /api/v1/students/{id}/reports",
			"task_weeks":     "GET /api/v1/students/{id}/weeks",
			"last_batch":     "GET /api/v1/batches/last",
			"health":         "GET /health",
		},
	}, nil)
}

// handleHealth reports every health check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"healthy": true,
			"uptime":  s.Uptime().Round(time.Second).String(),
		}, nil)
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status, nil)
}

// handleReady is the readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Healthy {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"}, nil)
}

// handleLive is the liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// generateReportRequest is the body of POST /api/v1/reports.
type generateReportRequest struct {
	StudentID string           `json:"student_id"`
	Student   progress.Student `json:"student"`
	Format    string           `json:"format"`
	NoCache   bool             `json:"no_cache"`
}

// handleGenerateReport renders a report and returns it as a download.
// The format may also be given as ?format=.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.GenerateReport == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Report generation is not configured")
		return
	}

	var req generateReportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON: "+err.Error())
		return
	}
	if f := r.URL.Query().Get("format"); f != "" {
		req.Format = f
	}
	if req.Student.ID == "" {
		req.Student.ID = req.StudentID
	}

	res, err := s.deps.GenerateReport.Handle(r.Context(), command.GenerateReportCommand{
		StudentID: req.StudentID,
		Student:   req.Student,
		Format:    req.Format,
		Trigger:   archive.TriggerAPI,
		SkipCache: req.NoCache || getQueryParamBool(r, "no_cache"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Disposition", contentDisposition(res.Filename))
	h.Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	h.Set("Cache-Control", "no-store")
	if res.Fingerprint != "" {
		h.Set("ETag", `"`+res.Fingerprint+`"`)
	}
	if res.RunID != "" {
		h.Set("X-Report-Run-ID", res.RunID)
	}
	if res.Pages > 0 {
		h.Set("X-Report-Pages", strconv.Itoa(res.Pages))
	}
	h.Set("X-Report-Sections", strings.Join(res.Sections, ","))
	if res.Degraded() {
		h.Set("X-Report-Degraded", strings.Join(sortedKeys(res.SectionErrors), ","))
	}
	if res.CacheHit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Bytes); err != nil {
		s.logger.Warn("failed to write report body", "student_id", req.StudentID, "error", err)
	}
}

// handleReportHistory lists the archived runs of a student.
func (s *Server) handleReportHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReportHistory == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Report history is not configured")
		return
	}

	q := query.GetReportHistoryQuery{
		StudentID: r.PathValue("id"),
		Limit:     getQueryParamInt(r, "limit", 20),
		Offset:    getQueryParamInt(r, "offset", 0),
	}
	res, err := s.deps.ReportHistory.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res, &ResponseMeta{Limit: res.Limit, Offset: res.Offset})
}

// handleTaskWeeks returns the tasks of a student grouped by week.
func (s *Server) handleTaskWeeks(w http.ResponseWriter, r *http.Request) {
	if s.deps.TaskWeeks == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Task weeks are not configured")
		return
	}

	res, err := s.deps.TaskWeeks.Handle(r.Context(), query.GetTaskWeeksQuery{StudentID: r.PathValue("id")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res, nil)
}

// handleLastBatch returns the latest weekly batch run.
func (s *Server) handleLastBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.LastBatch == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Batch history is not configured")
		return
	}

	batch, err := s.deps.LastBatch.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, batch, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps an application error to a status code. Validation
// and lookup messages are safe to echo; everything else is logged only.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", domainMessage(err))
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", domainMessage(err))
	case shared.IsExternalService(err):
		s.logger.Warn("upstream failure", "path", r.URL.Path, "error", err, "request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "The coaching platform is unavailable")
	case errors.Is(err, shared.ErrRender):
		s.logger.Error("report rendering failed", "path", r.URL.Path, "error", err, "request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "render_failed", "The report could not be rendered")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", getRequestID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func domainMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// contentDisposition builds an attachment header carrying the UTF-8 name
// and an ASCII fallback for older clients.
func contentDisposition(filename string) string {
	fallback := asciiFilename(filename)
	v := mime.FormatMediaType("attachment", map[string]string{"filename": fallback})
	if v == "" {
		v = `attachment; filename="report"`
	}
	if fallback == filename {
		return v
	}
	return v + "; filename*=UTF-8''" + url.PathEscape(filename)
}

// asciiFilename strips diacritics and replaces what is left outside ASCII.
func asciiFilename(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, report.FoldTurkish(name))
	if err != nil {
		folded = name
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, folded)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
