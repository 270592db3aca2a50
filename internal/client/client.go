// Package client talks to the LearnVex HTTP API. It implements the loader
// and persister used by structure editor sessions.
package client

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
	"time"

	"github.com/starford/learnvex/internal/models"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client is an API client authenticated with a static bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the API mounted at baseURL (for example
// "http://localhost:8080/api"). httpClient may be nil.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// StatusError is returned for non-2xx responses that carry no reorder
// Response body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %d %s", e.Code, e.Message)
}

// Structure fetches the saved structure of a course.
func (c *Client) Structure(ctx context.Context, courseID string) (models.Structure, error) {
	var out models.Structure
	status, body, err := c.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(courseID)+"/structure", nil)
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, statusError(status, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("api: decode structure: %w", err)
	}
	return out, nil
}

// ReorderChapters sends the full chapter ordering of a course.
func (c *Client) ReorderChapters(ctx context.Context, courseID string, chapters []models.PositionUpdate) (models.Response, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/chapters/order"
	return c.reorder(ctx, path, chapters)
}

// ReorderLessons sends the full lesson ordering of one chapter.
func (c *Client) ReorderLessons(ctx context.Context, courseID, chapterID string, lessons []models.PositionUpdate) (models.Response, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/chapters/" + url.PathEscape(chapterID) + "/lessons/order"
	return c.reorder(ctx, path, lessons)
}

// reorder returns the server's Response. A non-2xx status is an error even
// when the body decodes; the decoded Response is still returned so callers
// can show its message.
func (c *Client) reorder(ctx context.Context, path string, items []models.PositionUpdate) (models.Response, error) {
	payload, err := json.Marshal(struct {
		Items []models.PositionUpdate `json:"items"`
	}{Items: items})
	if err != nil {
		return models.Response{}, err
	}
	status, body, err := c.do(ctx, http.MethodPut, path, payload)
	if err != nil {
		return models.Response{}, err
	}

	var resp models.Response
	decodeErr := json.Unmarshal(body, &resp)
	if status < 200 || status > 299 {
		if decodeErr == nil && resp.Message != "" {
			return resp, &StatusError{Code: status, Message: resp.Message}
		}
		return models.Response{}, statusError(status, body)
	}
	if decodeErr != nil {
		return models.Response{}, fmt.Errorf("api: decode response: %w", decodeErr)
	}
	if !resp.OK() {
		return resp, errors.New(resp.Message)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("api: read body: %w", err)
	}
	return res.StatusCode, data, nil
}

// statusError builds a StatusError from an {"error": "..."} body when present.
func statusError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	return &StatusError{Code: status, Message: e.Error}
}
