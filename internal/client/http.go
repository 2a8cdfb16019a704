package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/alfredjeanlab/sortgate/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// defaultTimeout bounds a single request. Forced syncs may take as long as
// the server's sync timeout, so this is generous.
const defaultTimeout = 60 * time.Second

// HTTPClient implements GatewayClient using the sortgate HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ GatewayClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Reference data ---

func (c *HTTPClient) Items(ctx context.Context) (*RecordsResponse, error) {
	var resp RecordsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/items", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) TrashBins(ctx context.Context) (*RecordsResponse, error) {
	var resp RecordsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/trashBins", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) TrashBinItems(ctx context.Context, trashBinID int64) (*BinItemsResponse, error) {
	var resp BinItemsResponse
	path := "/trashBinItems/" + strconv.FormatInt(trashBinID, 10)
	if err := c.doJSON(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Selections ---

// Send submits one selection. Names are path-escaped, so they may contain
// slashes and spaces.
func (c *HTTPClient) Send(ctx context.Context, w model.SelectionWrite) (*SelectionResponse, error) {
	var resp SelectionResponse
	path := "/sentData/" + url.PathEscape(w.Location) + "/" + url.PathEscape(w.Item) + "/" + strconv.FormatBool(w.Dirty)
	if err := c.doJSON(ctx, http.MethodPost, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Operations ---

func (c *HTTPClient) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Sync(ctx context.Context) (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sync", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", &resp); err != nil {
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

// Unavailable reports whether the server answered 503, meaning the backing
// store is down and nothing usable was cached.
func (e *APIError) Unavailable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

// doJSON performs a bodiless HTTP request and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
