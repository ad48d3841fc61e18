package simulate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// pushedEvent is one server-sent event received on a stream.
type pushedEvent struct {
	Name    string
	ActorID string
	Payload map[string]any
}

// streamConn is one live client: an open SSE stream plus the connection
// identifier the server handed back in the connected event.
type streamConn struct {
	ConnectionID string
	Token        string
	Events       <-chan pushedEvent

	cancel context.CancelFunc
}

func (s *streamConn) Close() { s.cancel() }

// client wraps the HTTP surface the simulator exercises.
type client struct {
	base    string
	httpCli *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		base:    strings.TrimRight(baseURL, "/"),
		httpCli: &http.Client{Timeout: timeout},
	}
}

// checkHealth verifies the service answers on /healthz.
func (c *client) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// openStream opens an SSE stream for the given token and waits for the
// server's connected event to learn the connection id. Pushed events are
// forwarded on a buffered channel; the stream closes when ctx is cancelled.
func (c *client) openStream(ctx context.Context, token string) (*streamConn, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	u := c.base + "/stream?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any per-request timeout.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	events := make(chan pushedEvent, 256)
	go func() {
		defer resp.Body.Close()
		defer close(events)
		readStream(resp.Body, events)
	}()

	conn := &streamConn{Token: token, Events: events, cancel: cancel}

	// First pushed event carries the connection id.
	select {
	case first, ok := <-events:
		if !ok {
			cancel()
			return nil, fmt.Errorf("stream closed before connected event")
		}
		id, _ := first.Payload["connection_id"].(string)
		if first.Name != "connected" || id == "" {
			cancel()
			return nil, fmt.Errorf("unexpected first event %q", first.Name)
		}
		conn.ConnectionID = id
	case <-time.After(DefaultTimeout):
		cancel()
		return nil, fmt.Errorf("timed out waiting for connected event")
	}

	return conn, nil
}

// readStream parses the SSE wire format line by line.
func readStream(body interface{ Read([]byte) (int, error) }, out chan<- pushedEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var envelope struct {
				Event string `json:"event"`
				Actor *struct {
					ID string `json:"id"`
				} `json:"actor"`
				Payload map[string]any `json:"payload"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &envelope); err != nil {
				continue
			}
			if name == "" {
				name = envelope.Event
			}
			ev := pushedEvent{Name: name, Payload: envelope.Payload}
			if envelope.Actor != nil {
				ev.ActorID = envelope.Actor.ID
			}
			out <- ev
			name = ""
		}
	}
}

// dispatch posts one inbound event on behalf of an open connection.
func (c *client) dispatch(ctx context.Context, conn *streamConn, event string, payload map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"connection_id": conn.ConnectionID,
		"event":         event,
		"payload":       payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/dispatch", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conn.Token)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("dispatch returned status %d", resp.StatusCode)
	}
	return nil
}
