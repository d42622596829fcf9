// Package arr talks to the custom-format API exposed by Radarr and Sonarr
// instances. Both services share the same v3 customformat endpoints, so a
// single client covers either kind.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/groblegark/formsync/internal/model"
)

// RemoteFormat is a custom format as the remote service represents it.
// ID is assigned by the remote on creation.
type RemoteFormat struct {
	ID                              int64                 `json:"id,omitempty"`
	Name                            string                `json:"name"`
	IncludeCustomFormatWhenRenaming bool                  `json:"includeCustomFormatWhenRenaming"`
	Specifications                  []RemoteSpecification `json:"specifications"`
}

// RemoteSpecification mirrors the remote's specification shape: fields are a
// list of name/value pairs rather than an object.
type RemoteSpecification struct {
	Name           string  `json:"name"`
	Implementation string  `json:"implementation"`
	Negate         bool    `json:"negate"`
	Required       bool    `json:"required"`
	Fields         []Field `json:"fields"`
}

// Field is one name/value entry in a remote specification.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Client is the remote custom-format API surface the reconciler needs.
type Client interface {
	ListCustomFormats(ctx context.Context) ([]RemoteFormat, error)
	CreateCustomFormat(ctx context.Context, f RemoteFormat) (RemoteFormat, error)
	UpdateCustomFormat(ctx context.Context, f RemoteFormat) (RemoteFormat, error)
}

// APIError represents an error response from a remote instance.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPClient implements Client against a single instance's HTTP API,
// authenticating with the instance's API key header.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the instance at baseURL
// (e.g. "http://radarr:7878").
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ForInstance creates a client from a stored instance record.
func ForInstance(inst *model.Instance) Client {
	return NewHTTPClient(inst.URL, inst.APIKey)
}

func (c *HTTPClient) ListCustomFormats(ctx context.Context) ([]RemoteFormat, error) {
	var formats []RemoteFormat
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/customformat", nil, &formats); err != nil {
		return nil, err
	}
	return formats, nil
}

func (c *HTTPClient) CreateCustomFormat(ctx context.Context, f RemoteFormat) (RemoteFormat, error) {
	var created RemoteFormat
	if err := c.doJSON(ctx, http.MethodPost, "/api/v3/customformat", f, &created); err != nil {
		return RemoteFormat{}, err
	}
	return created, nil
}

func (c *HTTPClient) UpdateCustomFormat(ctx context.Context, f RemoteFormat) (RemoteFormat, error) {
	var updated RemoteFormat
	path := fmt.Sprintf("/api/v3/customformat/%d", f.ID)
	if err := c.doJSON(ctx, http.MethodPut, path, f, &updated); err != nil {
		return RemoteFormat{}, err
	}
	return updated, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
