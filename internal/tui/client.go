// Package tui is the live session monitor: a single-view bubbletea
// dashboard that polls the daemon's HTTP API, trimmed from the teacher's
// multi-pane task manager to the one thing worth watching live here — a
// scheduler's enabled set, scheduled operation, and trace.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin HTTP client over the daemon's read-only status API.
type Client struct {
	addr string
	http *http.Client
}

// NewClient builds a Client pointed at the daemon listening on addr.
func NewClient(addr string) *Client {
	return &Client{
		addr: addr,
		http: &http.Client{Timeout: 3 * time.Second},
	}
}

// SessionStatus mirrors rpc.SessionStatus's wire shape.
type SessionStatus struct {
	SchedulerID     string   `json:"schedulerId"`
	Attached        bool     `json:"attached"`
	Disabled        bool     `json:"disabled"`
	Iteration       int      `json:"iteration"`
	ScheduledOpID   string   `json:"scheduledOperationId"`
	EnabledOpIDs    []string `json:"enabledOperationIds"`
	MainOperationID string   `json:"mainOperationId"`
	Trace           string   `json:"trace"`
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.addr + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// GetSessionStatus fetches the live status of sessionID.
func (c *Client) GetSessionStatus(sessionID string) (*SessionStatus, error) {
	body, err := c.get("/sessions/" + sessionID + "/status")
	if err != nil {
		return nil, err
	}
	var status SessionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

// Healthy reports whether the daemon answers /health.
func (c *Client) Healthy() bool {
	_, err := c.get("/health")
	return err == nil
}
