package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Health calls GET /health. An unhealthy server yields an *APIError with
// StatusCode 503.
func (c *Client) Health() (*HealthData, error) {
	resp, err := getResource[HealthResponse](c, "/health")
	if err != nil {
		return nil, err
	}
	return healthData(resp)
}

// Ready calls GET /health/ready.
func (c *Client) Ready() error {
	return c.get("/health/ready", nil)
}

// healthData re-decodes the generic Data payload.
func healthData(resp *HealthResponse) (*HealthData, error) {
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode health data: %w", err)
	}
	var data HealthData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode health data: %w", err)
	}
	if resp.Status != "healthy" {
		return &data, &APIError{StatusCode: http.StatusServiceUnavailable, Code: CodeUnavailable, Message: resp.Error}
	}
	return &data, nil
}
