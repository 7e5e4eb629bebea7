package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SSETransport subscribes to a text/event-stream feed over HTTP.
type SSETransport struct {
	URL    string
	Client *http.Client
	Header http.Header
}

func NewSSETransport(url string) *SSETransport {
	return &SSETransport{URL: url, Client: http.DefaultClient}
}

func (t *SSETransport) Dial(ctx context.Context) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream: dial %s: %w", t.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream: dial %s: unexpected status %d", t.URL, resp.StatusCode)
	}

	return &sseConn{resp: resp, scanner: bufio.NewScanner(resp.Body)}, nil
}

type sseConn struct {
	resp    *http.Response
	scanner *bufio.Scanner
}

// Read consumes one SSE frame. Data lines carry a JSON-encoded Event; frames
// that do not parse yield ErrMalformedEvent so the manager can skip them.
func (c *sseConn) Read() (Event, error) {
	var data strings.Builder
	for c.scanner.Scan() {
		line := c.scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue // keep-alive or comment-only frame
			}
			var ev Event
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
			}
			return ev, nil
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		default:
			// event:/id:/retry: fields are not needed; the payload is
			// self-describing.
		}
	}
	if err := c.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("stream: read: %w", err)
	}
	return Event{}, fmt.Errorf("stream: connection closed")
}

func (c *sseConn) Close() error {
	return c.resp.Body.Close()
}
