package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout bounds every daemon API call issued by the CLI.
const DefaultClientTimeout = 10 * time.Second

var apiClient = &http.Client{Timeout: DefaultClientTimeout}

func apiGet(path string) ([]byte, error) {
	resp, err := apiClient.Get(apiAddr + path)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
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

func apiPost(path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := apiClient.Post(apiAddr+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
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

// rpcCall posts to /rpc/<method> and decodes the generic wire reply.
func rpcCall(method string, req map[string]interface{}) (map[string]interface{}, error) {
	body, err := apiPost("/rpc/"+method, req)
	if err != nil {
		return nil, err
	}
	var reply map[string]interface{}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if code, ok := reply["errorCode"].(float64); ok && code != 0 {
		msg, _ := reply["errorMessage"].(string)
		return reply, fmt.Errorf("%s failed (code %d): %s", method, int(code), msg)
	}
	return reply, nil
}

// HealthResponse matches the daemon's /health response structure.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Reports string `json:"reports"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// CheckHealth returns the daemon's parsed health response, even on
// non-200 replies, so callers can inspect the payload alongside the error.
func CheckHealth() (*HealthResponse, error) {
	resp, err := apiClient.Get(apiAddr + "/health")
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, string(body))
	}
	return &health, nil
}
