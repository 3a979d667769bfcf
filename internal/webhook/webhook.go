// Package webhook posts task snapshots to the callback URL a task was created with.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/logger"
)

const DefaultTimeout = 10 * time.Second

// Payload is the body posted to a task callback.
type Payload struct {
	TaskID      uuid.UUID `json:"taskId"`
	TaskType    string    `json:"taskType"`
	Status      string    `json:"status"`
	FinalState  bool      `json:"finalState"`
	ChangedBy   string    `json:"changedBy"`
	ChangedDate time.Time `json:"changedDate"`
}

// Client delivers callbacks over HTTP.
type Client struct {
	http    *http.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// New creates a Client. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: httpClient, timeout: timeout}
}

// Deliver posts the task snapshot to its callback and waits for a 2xx response.
func (c *Client) Deliver(ctx context.Context, task *domain.Task) error {
	if task.Callback == nil {
		return nil
	}

	body, err := json.Marshal(Payload{
		TaskID:      task.ID,
		TaskType:    task.TaskType,
		Status:      task.Status,
		FinalState:  task.FinalState,
		ChangedBy:   task.ChangedBy,
		ChangedDate: task.ChangedDate,
	})
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *task.Callback, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("callback returned status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}

// Notify delivers in the background. The command that triggered it has
// already succeeded, so failures are only logged.
func (c *Client) Notify(ctx context.Context, task *domain.Task) {
	detached := context.WithoutCancel(ctx)
	snapshot := task.Clone()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Deliver(detached, snapshot); err != nil {
			logger.FromContext(detached).Warn("callback delivery failed",
				"task_id", snapshot.ID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until background deliveries finish.
func (c *Client) Wait() {
	c.wg.Wait()
}
