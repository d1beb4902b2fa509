package accesslog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// LogsPath is the REST collection the recorder writes to.
const LogsPath = "/rest/v1/access_logs"

// HTTPTransport sends recorder writes to a marquee server over REST.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	timeout time.Duration

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

// NewHTTPTransport targets the server at baseURL. timeout bounds both the
// create call and each detached beacon.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Create posts the entry and returns the id the server assigned.
func (t *HTTPTransport) Create(ctx context.Context, e Entry) (string, error) {
	entry := e.EntryTime
	body, err := json.Marshal(CreateRequest{
		ActorID:   e.ActorID,
		SessionID: e.SessionID,
		UserAgent: e.UserAgent,
		EntryTime: &entry,
	})
	if err != nil {
		return "", fmt.Errorf("accesslog: encode entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+LogsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("accesslog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("accesslog: create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("accesslog: create: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("accesslog: decode create response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("accesslog: create: server returned no id")
	}
	return out.ID, nil
}

// Beacon fires the exit write on its own goroutine with its own deadline,
// detached from any caller context. The response is drained and dropped.
// Once Wait has been called no new beacons are queued.
func (t *HTTPTransport) Beacon(id string, exit time.Time) bool {
	if id == "" {
		return false
	}
	body, err := json.Marshal(ExitRequest{ExitTime: &exit})
	if err != nil {
		return false
	}
	endpoint := t.baseURL + LogsPath + "?id=" + url.QueryEscape("eq."+id)

	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		log.Printf("accesslog: beacon %s dropped, transport is shutting down", id)
		return false
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.client.Do(req)
		if err != nil {
			log.Printf("accesslog: beacon %s: %v", id, err)
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	return true
}

// Wait stops the transport from queueing further beacons, then blocks until
// the queued ones finish or ctx ends. Processes call it on shutdown so
// pending exits get their chance to land.
func (t *HTTPTransport) Wait(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
