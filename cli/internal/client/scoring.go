package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/pkg/scoring"
)

// ScoringClient talks to the scoring service HTTP API.
type ScoringClient struct {
	baseURL string
	client  *http.Client
}

// NewScoringClient creates a ScoringClient pointing at the given base URL.
func NewScoringClient(baseURL string) *ScoringClient {
	return &ScoringClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Client exposes the underlying http.Client for specialized calls.
func (c *ScoringClient) Client() *http.Client { return c.client }

// Score fetches a fresh report. A nil now lets the service pick the latest
// transfer time.
func (c *ScoringClient) Score(ctx context.Context, now *time.Time) (*scoring.Report, error) {
	u := c.baseURL + "/api/v1/score"
	if now != nil {
		q := url.Values{}
		q.Set("now", strconv.FormatInt(now.Unix(), 10))
		u += "?" + q.Encode()
	}

	var report scoring.Report
	if err := c.get(ctx, u, &report); err != nil {
		return nil, err
	}
	if report.Wallets == nil {
		report.Wallets = []scoring.WalletScore{}
	}
	return &report, nil
}

// Health checks the liveness endpoint.
func (c *ScoringClient) Health(ctx context.Context) error {
	var body struct {
		OK bool `json:"ok"`
	}
	if err := c.get(ctx, c.baseURL+"/health", &body); err != nil {
		return err
	}
	if !body.OK {
		return fmt.Errorf("service reported not ok")
	}
	return nil
}

func (c *ScoringClient) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("scoring service returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("scoring service returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
