package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/praevisio/internal/events"
)

// streamCookie must match the cookie name the server reads.
const streamCookie = "praevisio_sse_token"

// ErrStreamClosed is returned by Stream when the server ends the stream.
var ErrStreamClosed = errors.New("stream closed by server")

// Stream opens the SSE stream with credential sent as the stream cookie and
// calls fn for every payload. It returns nil when ctx is cancelled.
func (c *HTTPClient) Stream(ctx context.Context, credential string, fn func(events.Vigilance) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vigilance/stream", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if credential != "" {
		req.AddCookie(&http.Cookie{Name: streamCookie, Value: credential})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			dataLine = strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
		case line == "" && dataLine != "":
			var v events.Vigilance
			if err := json.Unmarshal([]byte(dataLine), &v); err != nil {
				return fmt.Errorf("decoding stream payload: %w", err)
			}
			dataLine = ""
			if err := fn(v); err != nil {
				return err
			}
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return ErrStreamClosed
}
