package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gridprep/internal"
	"gridprep/internal/errors"
	"gridprep/models"
)

// taskResult is the poll response for a long-running conversion.
type taskResult struct {
	models.TaskEnvelope
	Result json.RawMessage `json:"result,omitempty"`
}

// decodeMaybeTask decodes a response body into out, transparently resolving
// the async task envelope: when the body carries a task id instead of the
// final payload, the shared poll loop runs until a terminal state. Call sites
// never duplicate polling.
func (c *Client) decodeMaybeTask(ctx context.Context, raw json.RawMessage, fallback string, out any) error {
	if out == nil {
		return nil
	}

	var envelope models.TaskEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.TaskID != "" {
		resolved, err := c.pollTask(ctx, envelope.TaskID)
		if err != nil {
			return err
		}
		raw = resolved
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", fallback, err)
	}
	return nil
}

// pollTask polls the task endpoint until the task reaches a terminal state,
// then returns the task's result payload.
func (c *Client) pollTask(ctx context.Context, taskID string) (json.RawMessage, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	internal.DefaultLogger.Debug("[DataService] Polling task %s", taskID)
	for {
		status, err := c.fetchTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case models.TaskStatusCompleted:
			return status.Result, nil
		case models.TaskStatusFailed:
			msg := status.Error
			if msg == "" {
				msg = "task failed"
			}
			return nil, errors.New(errors.CodeTaskFailed, msg)
		}

		if time.Now().After(deadline) {
			return nil, errors.New(errors.CodeTaskTimeout,
				fmt.Sprintf("task %s did not finish within %s", taskID, c.pollTimeout))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (*taskResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/tasks/"+taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("build task request: %w", err)
	}
	raw, err := c.do(req, "task status check failed")
	if err != nil {
		return nil, err
	}
	var status taskResult
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode task status: %w", err)
	}
	return &status, nil
}
