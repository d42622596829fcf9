package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/groblegark/formsync/internal/engine"
	"github.com/groblegark/formsync/internal/model"
)

// HTTPClient implements Client using the formsync HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

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

// --- Formats ---

func (c *HTTPClient) CreateFormat(ctx context.Context, req *CreateFormatRequest) (*model.Format, error) {
	var format model.Format
	if err := c.doJSON(ctx, http.MethodPost, "/v1/formats", req, &format); err != nil {
		return nil, err
	}
	return &format, nil
}

func (c *HTTPClient) GetFormat(ctx context.Context, id string) (*model.Format, error) {
	var format model.Format
	if err := c.doJSON(ctx, http.MethodGet, "/v1/formats/"+url.PathEscape(id), nil, &format); err != nil {
		return nil, err
	}
	return &format, nil
}

func (c *HTTPClient) ListFormats(ctx context.Context, req *ListFormatsRequest) (*ListFormatsResponse, error) {
	q := url.Values{}
	if req.Service != "" {
		q.Set("service", req.Service)
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	if req.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", req.Offset))
	}

	path := "/v1/formats"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListFormatsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateFormat(ctx context.Context, id string, req *UpdateFormatRequest) (*model.Format, error) {
	var format model.Format
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/formats/"+url.PathEscape(id), req, &format); err != nil {
		return nil, err
	}
	return &format, nil
}

func (c *HTTPClient) DeleteFormat(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/formats/"+url.PathEscape(id), nil, nil)
}

// --- Instances ---

func (c *HTTPClient) CreateInstance(ctx context.Context, req *CreateInstanceRequest) (*model.Instance, error) {
	var inst model.Instance
	if err := c.doJSON(ctx, http.MethodPost, "/v1/instances", req, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (c *HTTPClient) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	var inst model.Instance
	if err := c.doJSON(ctx, http.MethodGet, "/v1/instances/"+url.PathEscape(id), nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (c *HTTPClient) ListInstances(ctx context.Context) ([]*model.Instance, error) {
	var resp struct {
		Instances []*model.Instance `json:"instances"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/instances", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Instances, nil
}

func (c *HTTPClient) DeleteInstance(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/instances/"+url.PathEscape(id), nil, nil)
}

// --- Deployments ---

func (c *HTTPClient) Deploy(ctx context.Context, instanceID string, formatIDs []string) (*engine.BatchResult, error) {
	body := map[string][]string{"format_ids": formatIDs}
	var result engine.BatchResult
	path := "/v1/instances/" + url.PathEscape(instanceID) + "/deploy"
	if err := c.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ListDeployments(ctx context.Context, req *ListDeploymentsRequest) ([]*model.DeploymentStatus, error) {
	return c.listDeployments(ctx, "/v1/deployments", req)
}

func (c *HTTPClient) ListUpdates(ctx context.Context, req *ListDeploymentsRequest) ([]*model.DeploymentStatus, error) {
	return c.listDeployments(ctx, "/v1/deployments/updates", req)
}

func (c *HTTPClient) listDeployments(ctx context.Context, path string, req *ListDeploymentsRequest) ([]*model.DeploymentStatus, error) {
	q := url.Values{}
	if req.InstanceID != "" {
		q.Set("instance_id", req.InstanceID)
	}
	if req.Service != "" {
		q.Set("service", req.Service)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Deployments []*model.DeploymentStatus `json:"deployments"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Deployments, nil
}

func (c *HTTPClient) Untrack(ctx context.Context, deploymentID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/deployments/"+url.PathEscape(deploymentID), nil, nil)
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

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
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
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content — success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

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
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
