// package judge contains the HTTP client for the judging backend running on
// provisioned instances.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

var _ secondary.JudgeBackend = &Client{}

// Client talks to the Judge0-compatible REST API exposed by the backend on
// each instance. The client is stateless; the target address comes with every
// call because instances are ephemeral.
type Client struct {
	httpClient *http.Client
	cfg        *config.JudgeCfg
	logger     primary.Logger
}

// NewClient creates a new judging backend client
func NewClient(cfg *config.JudgeCfg, logger primary.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// languageIDs maps submission languages onto backend language identifiers.
var languageIDs = map[string]int{
	"c":          50,
	"cpp":        54,
	"go":         60,
	"java":       62,
	"javascript": 63,
	"python":     71,
	"rust":       73,
}

type submissionRequest struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"`
	MemoryLimit    int     `json:"memory_limit"`
	WallTimeLimit  float64 `json:"wall_time_limit"`
}

type batchRequest struct {
	Submissions []submissionRequest `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResponse struct {
	Token  string           `json:"token"`
	Status submissionStatus `json:"status"`
	Stdout string           `json:"stdout"`
	Stderr string           `json:"stderr"`
	Time   string           `json:"time"`
	Memory int64            `json:"memory"`
}

// SubmitBatch submits all units in one batch call and returns the backend's
// handles in submission order.
func (c *Client) SubmitBatch(ctx context.Context, addr string, units []domain.ExecutionUnit) ([]string, error) {
	req := batchRequest{Submissions: make([]submissionRequest, 0, len(units))}
	for _, unit := range units {
		langID, ok := languageIDs[strings.ToLower(unit.Language)]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", unit.Language)
		}
		req.Submissions = append(req.Submissions, submissionRequest{
			SourceCode:     unit.SourceCode,
			LanguageID:     langID,
			Stdin:          unit.Stdin,
			ExpectedOutput: unit.ExpectedOutput,
			CPUTimeLimit:   unit.Limits.CPUTimeSec,
			MemoryLimit:    unit.Limits.MemoryKB,
			WallTimeLimit:  unit.Limits.WallTimeSec,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	url := c.baseURL(addr) + "/submissions/batch?base64_encoded=false"
	respBody, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}

	var tokens []tokenResponse
	if err := json.Unmarshal(respBody, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	if len(tokens) != len(units) {
		return nil, fmt.Errorf("backend returned %d handles for %d units", len(tokens), len(units))
	}

	handles := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("backend returned empty handle at index %d", i)
		}
		handles[i] = t.Token
	}
	return handles, nil
}

// PollStatus fetches the current status of a submitted unit
func (c *Client) PollStatus(ctx context.Context, addr string, handle string) (*domain.UnitResult, error) {
	url := fmt.Sprintf("%s/submissions/%s?base64_encoded=false&fields=token,status,stdout,stderr,time,memory", c.baseURL(addr), handle)
	respBody, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp submissionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode submission response: %w", err)
	}

	status := mapStatus(resp.Status.ID)
	return &domain.UnitResult{
		Handle:   handle,
		Status:   status,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		TimeMs:   parseTimeMs(resp.Time),
		MemoryKB: resp.Memory,
		Passed:   status == domain.StatusAccepted,
	}, nil
}

// HealthCheck reports whether the backend answers on the instance
func (c *Client) HealthCheck(ctx context.Context, addr string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(addr)+"/languages", nil)
	if err != nil {
		return false, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// do issues one request and translates backend pushback into the marker
// errors the gateway's retry policy matches on.
func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", errs.ErrRateLimited, url)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", errs.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("backend rejected request: status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	return respBody, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("X-Auth-Token", c.cfg.AuthToken)
	}
}

func (c *Client) baseURL(addr string) string {
	return fmt.Sprintf("http://%s:%d", addr, c.cfg.Port)
}

// mapStatus translates the backend's numeric status onto the domain status.
func mapStatus(id int) domain.ExecStatus {
	switch id {
	case 1:
		return domain.StatusQueued
	case 2:
		return domain.StatusProcessing
	case 3:
		return domain.StatusAccepted
	case 4:
		return domain.StatusWrongOutput
	case 5:
		return domain.StatusTimeout
	case 6:
		return domain.StatusCompilationError
	case 7, 8, 9, 10, 11, 12:
		// The backend reports memory-limit kills as signal-terminated
		// runtime errors; there is no distinct status id for them.
		return domain.StatusRuntimeError
	default:
		return domain.StatusInternalError
	}
}

// parseTimeMs converts the backend's fractional-seconds string to
// milliseconds. Unparseable values read as zero.
func parseTimeMs(s string) int64 {
	if s == "" {
		return 0
	}
	var sec float64
	if _, err := fmt.Sscanf(s, "%f", &sec); err != nil {
		return 0
	}
	return int64(sec * 1000)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
