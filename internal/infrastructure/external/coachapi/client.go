// Package coachapi implements the client of the coaching platform REST API.
// The API serves a student's topics, practice exams and tasks as bare JSON
// arrays; this package decodes them into the progress domain model.
package coachapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yks-coach/coach-hub/internal/domain/progress"
	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/circuitbreaker"
	"github.com/yks-coach/coach-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the coach API client.
type ClientConfig struct {
	// BaseURL is the API origin, e.g. "https://coach.example.com".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// MaxAttempts is the number of attempts per request. 1 disables retries.
	MaxAttempts int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:     baseURL,
		Timeout:     15 * time.Second,
		MaxAttempts: 1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the coach API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
}

// NewClient creates a new coach API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	logger := config.Logger.With("component", "coachapi")

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		breaker: circuitbreaker.CoachAPIBreaker(
			circuitbreaker.WithIsFailure(isBreakerFailure),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}),
		),
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxAttempts),
			retry.WithRetryIf(isRetryable),
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				logger.Debug("retrying coach api request", "attempt", attempt, "delay", delay, "error", err)
			}),
		),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RESOURCES
// ══════════════════════════════════════════════════════════════════════════════

// GetTopics fetches the curriculum topics of a student.
func (c *Client) GetTopics(ctx context.Context, studentID string) ([]progress.Topic, error) {
	var topics []progress.Topic
	if err := c.getList(ctx, "/api/topics/"+url.PathEscape(studentID), &topics); err != nil {
		return nil, fmt.Errorf("get topics %s: %w", studentID, err)
	}
	return topics, nil
}

// GetExams fetches the practice-exam records of a student in API order.
func (c *Client) GetExams(ctx context.Context, studentID string) ([]progress.Exam, error) {
	var exams []progress.Exam
	if err := c.getList(ctx, "/api/exams/"+url.PathEscape(studentID), &exams); err != nil {
		return nil, fmt.Errorf("get exams %s: %w", studentID, err)
	}
	return exams, nil
}

// GetTasks fetches the scheduled tasks of a student.
func (c *Client) GetTasks(ctx context.Context, studentID string) ([]progress.Task, error) {
	var tasks []progress.Task
	if err := c.getList(ctx, "/api/tasks/"+url.PathEscape(studentID), &tasks); err != nil {
		return nil, fmt.Errorf("get tasks %s: %w", studentID, err)
	}
	return tasks, nil
}

// ListStudents fetches every student known to the platform.
func (c *Client) ListStudents(ctx context.Context) ([]progress.Student, error) {
	var students []progress.Student
	if err := c.getList(ctx, "/api/students", &students); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// IsHealthy reports whether the API answers and the breaker is not open.
func (c *Client) IsHealthy(ctx context.Context) bool {
	if c.breaker.State() == circuitbreaker.StateOpen {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// BreakerState returns the state of the client's circuit breaker.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// getList performs a GET through the breaker and retrier and decodes a JSON
// array into out. A JSON null body decodes to an empty list.
func (c *Client) getList(ctx context.Context, path string, out any) error {
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.doGet(ctx, path, out)
		})
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return shared.WrapError("coachapi", "GET "+path, shared.ErrServiceUnavailable, "coach api unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return shared.WrapError("coachapi", "GET "+path, shared.ErrTimeout, "coach api timed out", err)
	default:
		return shared.WrapError("coachapi", "GET "+path, shared.ErrExternalService, "coach api request failed", err)
	}
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("coach api request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// isRetryable reports whether a failed attempt may be repeated: server
// errors, 429 and transport-level network errors.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// isBreakerFailure does not count 4xx answers against the circuit.
func isBreakerFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
