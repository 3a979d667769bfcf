package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GruborIvan/taskmanager/internal/domain"
	"github.com/GruborIvan/taskmanager/internal/webhook"
)

func taskWithCallback(url string) *domain.Task {
	task := domain.NewTask(domain.NewTaskParams{
		TaskType:  "Approval",
		Source:    domain.Source{ID: "erp"},
		Status:    "Approved",
		Callback:  &url,
		CreatedBy: "alice",
	}, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	task.FinalState = true
	return task
}

func TestDeliver_PostsSnapshot(t *testing.T) {
	var got webhook.Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	task := taskWithCallback(srv.URL)
	require.NoError(t, webhook.New(srv.Client(), time.Second).Deliver(context.Background(), task))

	assert.Equal(t, task.ID, got.TaskID)
	assert.Equal(t, "Approved", got.Status)
	assert.True(t, got.FinalState)
}

func TestDeliver_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := webhook.New(srv.Client(), time.Second).Deliver(context.Background(), taskWithCallback(srv.URL))
	assert.ErrorContains(t, err, "callback returned status 502")
}

func TestDeliver_NoCallback(t *testing.T) {
	task := taskWithCallback("http://unused")
	task.Callback = nil
	assert.NoError(t, webhook.New(nil, 0).Deliver(context.Background(), task))
}

func TestNotify_SurvivesCancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := webhook.New(srv.Client(), time.Second)
	client.Notify(ctx, taskWithCallback(srv.URL))
	cancel()
	client.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestNotify_FailureIsSwallowed(t *testing.T) {
	client := webhook.New(nil, 50*time.Millisecond)
	client.Notify(context.Background(), taskWithCallback("http://127.0.0.1:1/unreachable"))
	client.Wait()
}
