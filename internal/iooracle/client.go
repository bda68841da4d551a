// Package iooracle is the HTTP client for the optional text-to-SQL
// drafting service.
package iooracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/oracle"
)

type client struct {
	url   string
	token string
	http  *http.Client
}

// New creates a Drafter against the configured endpoint. Returns nil
// when no endpoint is configured; callers treat a nil Drafter as
// "oracle disabled".
func New(cfg config.OracleConfig) oracle.Drafter {
	if cfg.URL == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &client{
		url:   cfg.URL,
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
	}
}

type draftRequest struct {
	Prompt   string `json:"prompt"`
	ThreadID string `json:"thread_id,omitempty"`
}

type draftResponse struct {
	Text     string `json:"text"`
	ThreadID string `json:"thread_id"`
}

func (c *client) DraftSQL(
	ctx context.Context, prompt, threadID string,
) (oracle.Draft, error) {
	var res oracle.Draft

	body, err := json.Marshal(draftRequest{Prompt: prompt, ThreadID: threadID})
	if err != nil {
		return res, err
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return res, fmt.Errorf("calling drafting service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return res, fmt.Errorf(
			"drafting service returned %d: %s", resp.StatusCode, msg)
	}

	var dr draftResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return res, fmt.Errorf("decoding drafting response: %w", err)
	}
	return oracle.Draft{Text: dr.Text, ThreadID: dr.ThreadID}, nil
}
