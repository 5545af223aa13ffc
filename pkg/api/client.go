// Package api is the client for the workflow engine's webhooks: daily task
// generation and the grading trigger. Both are plain POST endpoints; the
// grading trigger is fire-and-forget and its response never carries a
// verdict.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kantoku-app/kantoku/pkg/task"
)

const (
	generateTasksPath    = "/webhook/generate-tasks"
	reviewSubmissionPath = "/webhook/review-submission"
)

// Client talks to one workflow engine instance.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a webhook client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	UserID           string `json:"user_id"`
	DailyGoalMinutes int    `json:"daily_goal_minutes"`
}

type generateResponse struct {
	Tasks []json.RawMessage `json:"tasks"`
}

// GenerateTasks asks the workflow to build today's task set for a user and
// parses every returned payload. A payload that fails to decode fails the
// whole call: a dropped task would be indistinguishable from an empty plan,
// and the caller needs to know the difference.
func (c *Client) GenerateTasks(ctx context.Context, userID uuid.UUID, dailyGoalMinutes int) ([]*task.Task, error) {
	body, err := json.Marshal(generateRequest{
		UserID:           userID.String(),
		DailyGoalMinutes: dailyGoalMinutes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+generateTasksPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate tasks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generate tasks: status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, fmt.Errorf("generate tasks: decode response: %w", err)
	}

	tasks := make([]*task.Task, 0, len(gen.Tasks))
	for i, raw := range gen.Tasks {
		t, err := task.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("generated task %d: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// TriggerReview asks the workflow to grade a submission. The grader works
// asynchronously and writes its result back to the submissions table; a 2xx
// here only means the request was accepted.
func (c *Client) TriggerReview(ctx context.Context, submissionID uuid.UUID) error {
	u := fmt.Sprintf("%s%s?submission_id=%s",
		c.BaseURL, reviewSubmissionPath, url.QueryEscape(submissionID.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("trigger review: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("trigger review: status %s", resp.Status)
	}
	return nil
}
