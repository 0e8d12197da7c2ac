// Package loki pushes telemetry events to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields are the telemetry event fields promoted to stream labels.
type eventFields struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Client pushes lines to one Loki instance under a fixed job label.
type Client struct {
	baseURL string
	job     string
	http    *http.Client
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100). A nil httpClient uses a
// client with a 10s timeout.
func NewClient(baseURL, job string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("loki: base URL is empty")
	}
	if job == "" {
		job = "prospect"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), job: job, http: httpClient}, nil
}

// PushEventJSON pushes a raw telemetry event (a Kafka message value). Event type and source become
// labels and created_at the entry time; unparseable input is pushed as-is at the current time.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	ts := time.Now().UTC()
	var f eventFields
	if err := json.Unmarshal(raw, &f); err == nil {
		if f.EventType != "" {
			labels["event_type"] = f.EventType
		}
		if f.Source != "" {
			labels["source"] = f.Source
		}
		if !f.CreatedAt.IsZero() {
			ts = f.CreatedAt
		}
	}
	return c.Push(ctx, ts, string(raw), labels)
}

// Push sends one log line. Returns an error if the request fails or Loki answers non-2xx.
func (c *Client) Push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	stream := make(map[string]string, len(labels)+1)
	stream["job"] = c.job
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			stream[k] = s
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
