package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

const (
	contentTypeEventStream = "text/event-stream"

	// defaultEventName is used when the server omits the event field.
	defaultEventName = "message"

	// maxLineBytes bounds a single SSE line.
	maxLineBytes = 1 << 20
)

// SSEDialer opens Server-Sent Events connections. It remembers the
// last event id seen on a stream and replays it via Last-Event-ID on
// the next dial so a well-behaved server can resume after a drop.
type SSEDialer struct {
	// Client is the HTTP client used to dial. Defaults to a client
	// with no timeout: the stream is intentionally long-lived and is
	// torn down by cancelling the dial context.
	Client *http.Client

	// Header is added to every dial request.
	Header http.Header

	mu          sync.Mutex
	lastEventID string
}

// StatusError reports a non-success HTTP response on dial.
type StatusError struct {
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// LastEventID returns the id that will be sent on the next dial.
func (d *SSEDialer) LastEventID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastEventID
}

func (d *SSEDialer) setLastEventID(id string) {
	d.mu.Lock()
	d.lastEventID = id
	d.mu.Unlock()
}

// Dial implements Dialer. It returns once response headers arrive,
// which is the transport-level "open" signal.
func (d *SSEDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &OpError{Op: "dial", Endpoint: endpoint, Err: err}
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", contentTypeEventStream)
	req.Header.Set("Cache-Control", "no-cache")
	if id := d.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	client := d.Client
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &OpError{Op: "dial", Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &OpError{Op: "dial", Endpoint: endpoint, Err: &StatusError{Code: resp.StatusCode}}
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err != nil || mt != contentTypeEventStream {
		resp.Body.Close()
		return nil, &OpError{
			Op:       "dial",
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	return &sseConn{
		endpoint: endpoint,
		body:     resp.Body,
		scanner:  scanner,
		dialer:   d,
	}, nil
}

// sseConn reads one SSE stream.
type sseConn struct {
	endpoint string
	body     io.ReadCloser
	scanner  *bufio.Scanner
	dialer   *SSEDialer
}

// Recv parses lines until a complete event is dispatched. Blocking
// reads are interrupted by cancelling the dial context, which aborts
// the underlying response body.
func (c *sseConn) Recv(ctx context.Context) (Message, error) {
	name := ""
	data := ""
	id := ""
	haveData := false

	for {
		if err := ctx.Err(); err != nil {
			return Message{}, &OpError{Op: "recv", Endpoint: c.endpoint, Err: err}
		}
		if !c.scanner.Scan() {
			err := c.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			return Message{}, &OpError{Op: "recv", Endpoint: c.endpoint, Err: err}
		}

		line := strings.TrimSuffix(c.scanner.Text(), "\r")

		if line == "" {
			// Dispatch boundary. Events with neither a name nor data
			// are keep-alives and are skipped.
			if !haveData && name == "" {
				continue
			}
			msg := Message{Name: name, Data: data, ID: id}
			if msg.Name == "" {
				msg.Name = defaultEventName
			}
			if id != "" {
				c.dialer.setLastEventID(id)
			}
			return msg, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			if haveData {
				data += "\n"
			}
			data += value
			haveData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				id = value
			}
		case "retry":
			// Reconnect pacing is owned by the backoff scheduler.
		}
	}
}

// Close implements Conn.
func (c *sseConn) Close() error {
	return c.body.Close()
}
