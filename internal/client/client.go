// Package client is a typed HTTP client for the post board API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ButyrinIA/postboard/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	healthTimeout  = 3 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on a copy of the current HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOptions selects a page of posts. Zero values use server defaults.
type ListOptions struct {
	Page   int
	Limit  int
	UserID *int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.UserID != nil {
		v.Set("userId", strconv.Itoa(*o.UserID))
	}
	return v
}

func (c *Client) ListPosts(ctx context.Context, opts ListOptions) (*models.PaginatedPosts, error) {
	path := "/posts"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var resp models.PaginatedPosts
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreatePost(ctx context.Context, input models.CreatePostInput) (*models.PostWithAuthor, error) {
	var resp models.PostWithAuthor
	if err := c.do(ctx, http.MethodPost, "/posts", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdatePost(ctx context.Context, id int, input models.EditPostInput) (*models.PostWithAuthor, error) {
	var resp models.PostWithAuthor
	if err := c.do(ctx, http.MethodPut, "/posts/"+strconv.Itoa(id), input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePost removes a post and returns the server's acknowledgement.
func (c *Client) DeletePost(ctx context.Context, id int) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, "/posts/"+strconv.Itoa(id), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]models.Author, error) {
	var resp []models.Author
	if err := c.do(ctx, http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ClearPosts(ctx context.Context) (*models.BulkResult, error) {
	var resp models.BulkResult
	if err := c.do(ctx, http.MethodDelete, "/dev/clear", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SeedPosts(ctx context.Context) (*models.BulkResult, error) {
	var resp models.BulkResult
	if err := c.do(ctx, http.MethodPost, "/dev/seed", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks that the API is reachable. It never waits longer than a
// few seconds regardless of ctx.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return &Error{Kind: KindServer, Status: http.StatusOK, Message: "unexpected health status " + resp.Status}
	}
	return nil
}

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "send request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func decodeError(status int, body []byte) *Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == "" {
		eb.Error = strings.TrimSpace(string(body))
		if eb.Error == "" {
			eb.Error = http.StatusText(status)
		}
	}

	e := &Error{Status: status, Message: eb.Error, Fields: eb.Errors}
	switch {
	case status == http.StatusBadRequest && len(eb.Errors) > 0:
		e.Kind = KindValidation
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 400 && status < 500:
		e.Kind = KindBadRequest
	default:
		e.Kind = KindServer
	}
	return e
}
