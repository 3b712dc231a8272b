package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
	responseType string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	if h.responseType != "" {
		w.Header().Set("Content-Type", h.responseType)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler, token string) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, token)
	return c, srv
}

const stateJSON = `{"indices":{"globalRisk":35,"stability":65},"flows":{},"events":["2026-05-04 10:30:00 - hi"]}`

func TestNewHTTPClient_TrimsSlash(t *testing.T) {
	c := NewHTTPClient("http://localhost:8080/", "")
	if c.baseURL != "http://localhost:8080" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	h := &testHandler{responseBody: `{"token":"abc","expiresAt":1700000000000}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	tok, err := c.IssueToken(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if h.method != http.MethodPost || h.path != "/api/vigilance/token" {
		t.Fatalf("request = %s %s", h.method, h.path)
	}
	if h.body != "" {
		t.Fatalf("body = %q, want empty for the server default", h.body)
	}
	if tok.Value != "abc" || !tok.Deadline().Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("token = %+v", tok)
	}
}

func TestIssueToken_CustomTTL(t *testing.T) {
	h := &testHandler{responseBody: `{"token":"abc","expiresAt":1}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	ttl := 90 * time.Second
	if _, err := c.IssueToken(context.Background(), &ttl); err != nil {
		t.Fatal(err)
	}
	if h.body != `{"ttl":90}` {
		t.Fatalf("body = %q", h.body)
	}
	if h.contentType != "application/json" {
		t.Fatalf("Content-Type = %q", h.contentType)
	}
}

func TestState(t *testing.T) {
	h := &testHandler{responseBody: stateJSON}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	st, err := c.State(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Indices.GlobalRisk != 35 || len(st.Events) != 1 {
		t.Fatalf("state = %+v", st)
	}
	if h.auth != "" {
		t.Fatalf("no Authorization header expected, got %q", h.auth)
	}
}

func TestReport(t *testing.T) {
	h := &testHandler{responseBody: "# Vigilance report\n", responseType: "text/markdown"}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	got, err := c.Report(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "# Vigilance report\n" {
		t.Fatalf("report = %q", got)
	}
}

func TestEmit_SendsBearer(t *testing.T) {
	h := &testHandler{responseBody: stateJSON}
	c, srv := newTestClient(h, "secret")
	defer srv.Close()

	if _, err := c.Emit(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if h.auth != "Bearer secret" {
		t.Fatalf("Authorization = %q", h.auth)
	}
	if h.path != "/api/vigilance/events" || h.body != `{"message":"hi"}` {
		t.Fatalf("request = %s %q", h.path, h.body)
	}
}

func TestToggleFlows(t *testing.T) {
	h := &testHandler{responseBody: `{"running":true}`}
	c, srv := newTestClient(h, "secret")
	defer srv.Close()

	running, err := c.StartFlows(context.Background())
	if err != nil || !running {
		t.Fatalf("StartFlows = %v, %v", running, err)
	}
	if h.path != "/api/vigilance/flows/start" {
		t.Fatalf("path = %q", h.path)
	}

	h.responseBody = `{"running":false}`
	running, err = c.StopFlows(context.Background())
	if err != nil || running {
		t.Fatalf("StopFlows = %v, %v", running, err)
	}
	if h.path != "/api/vigilance/flows/stop" {
		t.Fatalf("path = %q", h.path)
	}
}

func TestClear(t *testing.T) {
	h := &testHandler{responseBody: stateJSON}
	c, srv := newTestClient(h, "secret")
	defer srv.Close()

	if _, err := c.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.method != http.MethodPost || h.path != "/api/vigilance/clear" {
		t.Fatalf("request = %s %s", h.method, h.path)
	}
}

func TestHealth(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status != "ok" {
		t.Fatalf("status = %q", status)
	}
}

func TestAPIError_JSONBody(t *testing.T) {
	h := &testHandler{statusCode: http.StatusTooManyRequests, responseBody: `{"error":"rate limited"}`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	_, err := c.IssueToken(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "rate limited" {
		t.Fatalf("APIError = %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "429") {
		t.Fatalf("Error() = %q", apiErr.Error())
	}
}

func TestAPIError_PlainBody(t *testing.T) {
	h := &testHandler{statusCode: http.StatusBadGateway, responseBody: "upstream down\n", responseType: "text/plain"}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	_, err := c.Report(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "upstream down" {
		t.Fatalf("Message = %q", apiErr.Message)
	}
}

func TestDecodeError(t *testing.T) {
	h := &testHandler{responseBody: `not json`}
	c, srv := newTestClient(h, "")
	defer srv.Close()

	if _, err := c.State(context.Background()); err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Fatalf("err = %v", err)
	}
}

func TestConnectionError(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "")
	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
