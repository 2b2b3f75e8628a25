// Package hfapi is a minimal client for the HuggingFace Inference API, shared
// by the remote embedding and generation backends.
package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the serverless inference endpoint.
const DefaultBaseURL = "https://api-inference.huggingface.co/models"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

var ErrEmptyModel = errors.New("hfapi: model id is required")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hfapi: request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client posts JSON payloads to model endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client. An empty baseURL uses DefaultBaseURL and a nil
// httpClient uses http.DefaultClient.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Post sends payload to the endpoint of model and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, model string, payload, out any) error {
	if strings.TrimSpace(model) == "" {
		return ErrEmptyModel
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("hfapi: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/" + escapeModel(model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hfapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hfapi: send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hfapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("hfapi: decode response: %w", err)
	}
	return nil
}

// escapeModel escapes each path segment of an "org/name" model id.
func escapeModel(model string) string {
	parts := strings.Split(strings.Trim(model, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
