package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/flowsense/internal/domain/model"
)

// client wraps http.Client with the service base URL.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type samplesRequest struct {
	Samples []model.BiometricSample `json:"samples"`
}

type samplesResponse struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
}

func userPath(userID, suffix string) string {
	return "/v1/users/" + url.PathEscape(userID) + suffix
}

// health returns nil when GET /healthz answers 200.
func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func (c *client) postCycle(ctx context.Context, rec model.CycleRecord) error {
	return c.call(ctx, http.MethodPost, userPath(rec.UserID, "/cycles"), rec, nil, http.StatusCreated)
}

// postSamples returns how many samples were accepted and how many were duplicates.
func (c *client) postSamples(ctx context.Context, userID string, samples []model.BiometricSample) (int, int, error) {
	var out samplesResponse
	err := c.call(ctx, http.MethodPost, userPath(userID, "/samples"), samplesRequest{Samples: samples}, &out,
		http.StatusCreated, http.StatusOK)
	if err != nil {
		return 0, 0, err
	}
	return out.Accepted, out.Duplicates, nil
}

func (c *client) insights(ctx context.Context, userID string, start, end time.Time) (model.InsightsReport, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	var report model.InsightsReport
	err := c.call(ctx, http.MethodGet, userPath(userID, "/insights")+"?"+q.Encode(), nil, &report, http.StatusOK)
	return report, err
}

// call sends body as JSON and decodes the response into out when the status
// is one of want.
func (c *client) call(ctx context.Context, method, path string, body, out any, want ...int) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	ok := false
	for _, code := range want {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedCode, method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
