package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/model"
)

// HTTPClient implements VigilanceClient using the praevisio HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ VigilanceClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Tokens ---

// IssueToken requests an ephemeral stream token. A nil ttl leaves the
// lifetime to the server.
func (c *HTTPClient) IssueToken(ctx context.Context, ttl *time.Duration) (*Token, error) {
	var body any
	if ttl != nil {
		body = map[string]float64{"ttl": ttl.Seconds()}
	}
	var tok Token
	if err := c.doJSON(ctx, http.MethodPost, "/api/vigilance/token", body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// --- State ---

func (c *HTTPClient) State(ctx context.Context) (*model.State, error) {
	var st model.State
	if err := c.doJSON(ctx, http.MethodGet, "/api/vigilance/state", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Report returns the Markdown report verbatim.
func (c *HTTPClient) Report(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/vigilance/report", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", apiError(resp.StatusCode, data)
	}
	return string(data), nil
}

// --- Admin ---

func (c *HTTPClient) Emit(ctx context.Context, message string) (*model.State, error) {
	body := map[string]string{"message": message}
	var st model.State
	if err := c.doJSON(ctx, http.MethodPost, "/api/vigilance/events", body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) Clear(ctx context.Context) (*model.State, error) {
	var st model.State
	if err := c.doJSON(ctx, http.MethodPost, "/api/vigilance/clear", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) StartFlows(ctx context.Context) (bool, error) {
	return c.toggleFlows(ctx, "start")
}

func (c *HTTPClient) StopFlows(ctx context.Context) (bool, error) {
	return c.toggleFlows(ctx, "stop")
}

func (c *HTTPClient) toggleFlows(ctx context.Context, action string) (bool, error) {
	var resp struct {
		Running bool `json:"running"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/vigilance/flows/"+action, nil, &resp); err != nil {
		return false, err
	}
	return resp.Running, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
