package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/events"
)

// streamFrame is one frame read off the stream: a data payload or a
// comment line.
type streamFrame struct {
	Data    string
	Comment string
}

// frameReader parses SSE frames from resp until the body closes.
func frameReader(resp *http.Response) <-chan streamFrame {
	ch := make(chan streamFrame, 32)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "data: "):
				ch <- streamFrame{Data: strings.TrimPrefix(line, "data: ")}
			case strings.HasPrefix(line, ":"):
				ch <- streamFrame{Comment: strings.TrimPrefix(line, ":")}
			}
		}
	}()
	return ch
}

// nextPayload waits for the next data frame and decodes it.
func nextPayload(t *testing.T, ch <-chan streamFrame) events.Vigilance {
	t.Helper()
	timer := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				t.Fatal("stream closed before payload")
			}
			if f.Data == "" {
				continue
			}
			var v events.Vigilance
			if err := json.Unmarshal([]byte(f.Data), &v); err != nil {
				t.Fatalf("decoding payload %q: %v", f.Data, err)
			}
			return v
		case <-timer:
			t.Fatal("timed out waiting for payload")
		}
	}
}

// openStream connects to the stream endpoint. mutate may add credentials.
func openStream(t *testing.T, baseURL, query string, mutate func(*http.Request)) (*http.Response, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	url := baseURL + "/api/vigilance/stream"
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	if mutate != nil {
		mutate(req)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("opening stream: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		resp.Body.Close()
	})
	return resp, cancel
}

func withCookie(value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: StreamCookie, Value: value})
	}
}

func newStreamServer(t *testing.T) (*testEnv, *httptest.Server) {
	t.Helper()
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.handler)
	t.Cleanup(ts.Close)
	return env, ts
}

func TestStream_StaticCookie(t *testing.T) {
	_, ts := newStreamServer(t)
	resp, _ := openStream(t, ts.URL, "", withCookie(testStaticToken))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	first := nextPayload(t, frameReader(resp))
	if first.Event != events.EventInit {
		t.Fatalf("first event = %q, want init", first.Event)
	}
}

func TestStream_QueryCredentials(t *testing.T) {
	env, ts := newStreamServer(t)
	tok, err := env.tokens.Generate(context.Background(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	for _, query := range []string{"token=" + tok.Value, "auth=" + tok.Value, "token=" + testStaticToken} {
		resp, cancel := openStream(t, ts.URL, query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", query, resp.StatusCode)
		}
		if v := nextPayload(t, frameReader(resp)); v.Event != events.EventInit {
			t.Fatalf("%s: first event = %q", query, v.Event)
		}
		cancel()
	}
}

func TestStream_Unauthorized(t *testing.T) {
	env, ts := newStreamServer(t)
	expired, err := env.tokens.Generate(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		query  string
		mutate func(*http.Request)
	}{
		{name: "none"},
		{name: "unknown token", query: "token=deadbeef"},
		{name: "expired token", query: "token=" + expired.Value},
		{name: "wrong cookie", mutate: withCookie("nope")},
		{name: "empty query", query: "token=&auth="},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := openStream(t, ts.URL, tc.query, tc.mutate)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != "unauthorized" {
				t.Fatalf("error = %q, want unauthorized", body["error"])
			}
		})
	}
	if n := env.vig.Bus().Len(); n != 0 {
		t.Fatalf("rejected streams left %d subscribers", n)
	}
}

func TestStream_CookieTakesPrecedence(t *testing.T) {
	_, ts := newStreamServer(t)

	// A bad cookie is not rescued by a good query token.
	resp, _ := openStream(t, ts.URL, "token="+testStaticToken, withCookie("nope"))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad cookie + good query: expected 401, got %d", resp.StatusCode)
	}

	resp, _ = openStream(t, ts.URL, "token=nope", withCookie(testStaticToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("good cookie + bad query: expected 200, got %d", resp.StatusCode)
	}
}

func TestStream_TokenBeatsAuth(t *testing.T) {
	_, ts := newStreamServer(t)
	resp, _ := openStream(t, ts.URL, "token=nope&auth="+testStaticToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStream_ReceivesUpdates(t *testing.T) {
	env, ts := newStreamServer(t)
	resp, _ := openStream(t, ts.URL, "", withCookie(testStaticToken))
	frames := frameReader(resp)

	if v := nextPayload(t, frames); v.Event != events.EventInit {
		t.Fatalf("first event = %q", v.Event)
	}
	if err := env.vig.EmitEvent(context.Background(), "hello stream"); err != nil {
		t.Fatal(err)
	}
	v := nextPayload(t, frames)
	if v.Event != events.EventUpdate || v.Message != "hello stream" {
		t.Fatalf("payload = %+v", v)
	}

	env.vig.Clear(context.Background())
	if v := nextPayload(t, frames); v.Event != events.EventCleared {
		t.Fatalf("payload after clear = %q, want cleared", v.Event)
	}
}

func TestStream_DisconnectUnsubscribes(t *testing.T) {
	env, ts := newStreamServer(t)
	resp, cancel := openStream(t, ts.URL, "", withCookie(testStaticToken))
	nextPayload(t, frameReader(resp))

	if n := env.vig.Bus().Len(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	cancel()
	waitFor(t, 2*time.Second, func() bool { return env.vig.Bus().Len() == 0 })
}

func TestStream_Keepalive(t *testing.T) {
	env, _ := newStreamServer(t)
	env.srv.keepalive = 20 * time.Millisecond
	ts := httptest.NewServer(env.srv.NewHTTPHandler())
	t.Cleanup(ts.Close)

	resp, _ := openStream(t, ts.URL, "", withCookie(testStaticToken))
	frames := frameReader(resp)
	timer := time.After(2 * time.Second)
	for {
		select {
		case f := <-frames:
			if f.Comment == "keepalive" {
				return
			}
		case <-timer:
			t.Fatal("no keepalive comment received")
		}
	}
}

func TestStreamCredential(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/vigilance/stream?auth=a", nil)
	if got := streamCredential(req); got != "a" {
		t.Fatalf("got %q, want a", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/vigilance/stream?auth=a&token=t", nil)
	if got := streamCredential(req); got != "t" {
		t.Fatalf("got %q, want t", got)
	}
	req.AddCookie(&http.Cookie{Name: StreamCookie, Value: "c"})
	if got := streamCredential(req); got != "c" {
		t.Fatalf("got %q, want c", got)
	}
}
