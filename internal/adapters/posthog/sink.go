package posthog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Config holds PostHog capture endpoint configuration.
type Config struct {
	Host   string `envconfig:"POSTHOG_HOST" default:"https://app.posthog.com"`
	APIKey string `envconfig:"POSTHOG_API_KEY"`
}

// Sink forwards tracking events to the PostHog capture API.
// Delivery is best-effort: the caller treats every error as
// non-fatal, and PostHog's own ingestion handles retries.
type Sink struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewSink(cfg Config) (*Sink, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog API key not configured")
	}
	return &Sink{
		host:   cfg.Host,
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

type captureRequest struct {
	APIKey     string            `json:"api_key"`
	Event      string            `json:"event"`
	DistinctID string            `json:"distinct_id"`
	Properties map[string]string `json:"properties,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// Capture sends one event to POST {host}/capture/.
func (s *Sink) Capture(ctx context.Context, eventName string, properties map[string]string) error {
	distinctID := properties["visitor_id"]
	if distinctID == "" {
		distinctID = "anonymous"
	}

	payload, err := json.Marshal(captureRequest{
		APIKey:     s.apiKey,
		Event:      eventName,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding capture payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/capture/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending capture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("capture rejected with status %d", resp.StatusCode)
	}
	return nil
}
