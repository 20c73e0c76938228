package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 << 10
)

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the dashboard REST backend.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url is empty")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: base,
		token:   opts.Token,
		http:    hc,
		logger:  logger,
	}, nil
}

// ListProjects fetches one page of projects using the listing scoped to role.
func (c *Client) ListProjects(ctx context.Context, role Role, p ListParams) (Page[Project], error) {
	var page Page[Project]
	err := c.do(ctx, http.MethodGet, Projects.List(role)+"?"+p.Values().Encode(), nil, &page)
	return page, err
}

// ListTasks fetches one page of tasks using the listing scoped to role.
func (c *Client) ListTasks(ctx context.Context, role Role, p ListParams) (Page[Task], error) {
	var page Page[Task]
	err := c.do(ctx, http.MethodGet, Tasks.List(role)+"?"+p.Values().Encode(), nil, &page)
	return page, err
}

func (c *Client) GetProject(ctx context.Context, id int) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodGet, Projects.Get(id), nil, &p)
	return p, err
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodPost, Projects.Create(), in, &p)
	return p, err
}

func (c *Client) UpdateProject(ctx context.Context, id int, in ProjectInput) (Project, error) {
	var p Project
	err := c.do(ctx, http.MethodPut, Projects.Update(id), in, &p)
	return p, err
}

func (c *Client) DeleteProject(ctx context.Context, id int) (MutationResult, error) {
	return c.delete(ctx, Projects.Delete(id))
}

func (c *Client) DeleteTask(ctx context.Context, id int) (MutationResult, error) {
	return c.delete(ctx, Tasks.Delete(id))
}

func (c *Client) UserCount(ctx context.Context) (UserCount, error) {
	var uc UserCount
	err := c.do(ctx, http.MethodGet, UsersCount, nil, &uc)
	return uc, err
}

func (c *Client) delete(ctx context.Context, path string) (MutationResult, error) {
	var res MutationResult
	err := c.do(ctx, http.MethodDelete, path, nil, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("request failed", "method", method, "path", path, "request_id", reqID, "error", err)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := readServerError(resp)
		c.logger.Warn("server rejected request", "method", method, "path", path, "request_id", reqID, "status", resp.StatusCode, "message", serr.Message)
		return serr
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read " + path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}

func readServerError(resp *http.Response) *ServerError {
	serr := &ServerError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return serr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		serr.Message = strings.TrimSpace(payload.Message)
	}
	return serr
}
