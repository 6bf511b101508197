// Package api is the HTTP client for a moodlog server. *Client implements
// store.Backend, so the TUI and CLI can run against a remote journal.
package api

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

	"github.com/sadopc/moodlog/internal/store"
)

const DefaultBaseURL = "http://127.0.0.1:5001"

// RequestIDHeader carries the attempt ID of a goal completion.
const RequestIDHeader = "X-Request-ID"

// Statistics is the body of GET /api/mood/statistics.
type Statistics struct {
	Statistics struct {
		TotalEntries int     `json:"total_entries"`
		AverageMood  float64 `json:"average_mood"`
	} `json:"statistics"`
	MoodDistribution map[int]int `json:"mood_distribution"`
	CurrentStreak    int         `json:"current_streak"`
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("moodlog server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("moodlog server returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var _ store.Journal = (*Client)(nil)

type requestIDKey struct{}

// WithRequestID attaches id to ctx. The client sends it as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the ID attached by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *Client) ListEntries(ctx context.Context, f store.EntryFilter) ([]store.Entry, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var out []store.Entry
	if err := c.do(ctx, http.MethodGet, "/api/mood", q, nil, &out); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

func (c *Client) CreateEntry(ctx context.Context, in store.EntryInput) (*store.Entry, error) {
	var out store.Entry
	if err := c.do(ctx, http.MethodPost, "/api/mood", nil, in, &out); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return &out, nil
}

// UpdateEntry sends a partial update; nil fields of in are not sent.
func (c *Client) UpdateEntry(ctx context.Context, id int64, in store.EntryUpdate) (*store.Entry, error) {
	var out store.Entry
	if err := c.do(ctx, http.MethodPatch, entryPath(id), nil, in, &out); err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, entryPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return nil
}

func (c *Client) ListTags(ctx context.Context) ([]store.Tag, error) {
	var out []store.Tag
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	var out Statistics
	if err := c.do(ctx, http.MethodGet, "/api/mood/statistics", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return &out, nil
}

func (c *Client) ListGoals(ctx context.Context) ([]store.Goal, error) {
	var out []store.Goal
	if err := c.do(ctx, http.MethodGet, "/api/goals", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return out, nil
}

func (c *Client) CreateGoal(ctx context.Context, in store.GoalInput) (*store.Goal, error) {
	var out store.Goal
	if err := c.do(ctx, http.MethodPost, "/api/goals", nil, in, &out); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateGoal(ctx context.Context, goalID int64, in store.GoalUpdate) (*store.Goal, error) {
	var out store.Goal
	if err := c.do(ctx, http.MethodPatch, goalPath(goalID, ""), nil, in, &out); err != nil {
		return nil, fmt.Errorf("update goal %d: %w", goalID, err)
	}
	return &out, nil
}

func (c *Client) DeleteGoal(ctx context.Context, goalID int64) error {
	if err := c.do(ctx, http.MethodDelete, goalPath(goalID, ""), nil, nil, nil); err != nil {
		return fmt.Errorf("delete goal %d: %w", goalID, err)
	}
	return nil
}

func (c *Client) IncrementGoalProgress(ctx context.Context, goalID int64) (*store.Goal, error) {
	var out store.Goal
	if err := c.do(ctx, http.MethodPost, goalPath(goalID, "/progress"), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("increment goal %d: %w", goalID, err)
	}
	return &out, nil
}

func (c *Client) ListGoalCompletions(ctx context.Context, goalID int64, start, end string) ([]store.Completion, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	var out []store.Completion
	if err := c.do(ctx, http.MethodGet, goalPath(goalID, "/completions"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("list completions for goal %d: %w", goalID, err)
	}
	for i := range out {
		out[i].GoalID = goalID
	}
	return out, nil
}

func entryPath(id int64) string {
	return "/api/mood/" + strconv.FormatInt(id, 10)
}

func goalPath(goalID int64, suffix string) string {
	return "/api/goals/" + strconv.FormatInt(goalID, 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	u := baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if id := RequestID(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
