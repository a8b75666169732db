package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BuzzLyutic/task-api/internal/model"
	"github.com/BuzzLyutic/task-api/internal/repo"
	"github.com/BuzzLyutic/task-api/internal/service"
)

// memRepo is an in-memory TaskRepository. Setting err makes every call fail.
type memRepo struct {
	mu    sync.Mutex
	tasks []model.Task
	err   error
}

func (m *memRepo) Create(_ context.Context, t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return t, m.err
	}
	t.ID = fmt.Sprintf("task-%d", len(m.tasks)+1)
	m.tasks = append(m.tasks, t)
	return t, nil
}

func (m *memRepo) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tasks)), m.err
}

func (m *memRepo) Ping(context.Context) error { return m.err }

func (m *memRepo) Backend() string { return "memory" }

type createdBody struct {
	Message string     `json:"message"`
	Task    model.Task `json:"task"`
}

func setupRouter(t *testing.T, r *memRepo, limiter *rate.Limiter) http.Handler {
	t.Helper()
	h := NewTaskHandler(service.NewTaskService(r), zap.NewNop())
	return NewRouter(h, RouterOptions{Logger: zap.NewNop(), Limiter: limiter})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTaskHandler_Create(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		repoErr       error
		wantCode      int
		wantError     string
		wantPersisted int64
	}{
		{
			name:          "successful creation",
			body:          `{"title":"Buy milk","description":"2% milk","status":"pending"}`,
			wantCode:      http.StatusCreated,
			wantPersisted: 1,
		},
		{
			name:      "missing title",
			body:      `{"description":"2% milk","status":"pending"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Title, description, and status are required",
		},
		{
			name:      "missing description",
			body:      `{"title":"Buy milk","status":"pending"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Title, description, and status are required",
		},
		{
			name:      "missing status",
			body:      `{"title":"Buy milk","description":"2% milk"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Title, description, and status are required",
		},
		{
			name:      "empty strings count as missing",
			body:      `{"title":"","description":"","status":""}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Title, description, and status are required",
		},
		{
			name:      "empty body",
			body:      "",
			wantCode:  http.StatusBadRequest,
			wantError: "Title, description, and status are required",
		},
		{
			name:      "invalid status",
			body:      `{"title":"Buy milk","description":"2% milk","status":"done"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid status. Must be one of: pending, in-progress, completed",
		},
		{
			name:      "malformed json",
			body:      `{"title":`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid json",
		},
		{
			name:      "wrong field type",
			body:      `{"title":5,"description":"2% milk","status":"pending"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "invalid json",
		},
		{
			name:      "database unavailable",
			body:      `{"title":"Buy milk","description":"2% milk","status":"pending"}`,
			repoErr:   fmt.Errorf("%w: server selection timeout", repo.ErrorConnection),
			wantCode:  http.StatusInternalServerError,
			wantError: "Internal server error",
		},
		{
			name:      "insert failure",
			body:      `{"title":"Buy milk","description":"2% milk","status":"pending"}`,
			repoErr:   fmt.Errorf("%w: duplicate key", repo.ErrorInsert),
			wantCode:  http.StatusInternalServerError,
			wantError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &memRepo{err: tt.repoErr}
			router := setupRouter(t, r, nil)

			w := do(t, router, http.MethodPost, "/tasks", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Len(t, r.tasks, int(tt.wantPersisted))

			if tt.wantError != "" {
				var got map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
				assert.Equal(t, map[string]string{"error": tt.wantError}, got)
			}
		})
	}
}

func TestTaskHandler_CreateResponse(t *testing.T) {
	r := &memRepo{}
	router := setupRouter(t, r, nil)
	arrival := time.Now()

	w := do(t, router, http.MethodPost, "/tasks", `{"title":" Buy milk ","description":"2% milk","status":"in-progress"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"id", "title", "description", "status", "createdAt", "updatedAt"} {
		assert.Contains(t, raw["task"], key)
	}

	var body createdBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Task created successfully", body.Message)
	assert.NotEmpty(t, body.Task.ID)
	assert.Equal(t, " Buy milk ", body.Task.Title, "fields are stored verbatim")
	assert.Equal(t, "2% milk", body.Task.Description)
	assert.Equal(t, model.StatusInProgress, body.Task.Status)
	assert.False(t, body.Task.CreatedAt.Before(arrival))
	assert.False(t, body.Task.UpdatedAt.Before(body.Task.CreatedAt))
	assert.Equal(t, r.tasks[0], body.Task)
}

func TestTaskHandler_CreateBodyLimit(t *testing.T) {
	task := func(descLen int) string {
		return `{"title":"Buy milk","description":"` + strings.Repeat("x", descLen) + `","status":"pending"}`
	}

	t.Run("oversized body is rejected", func(t *testing.T) {
		r := &memRepo{}
		w := do(t, setupRouter(t, r, nil), http.MethodPost, "/tasks", task(maxBodyBytes+1))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"request body too large"}`, w.Body.String())
		assert.Empty(t, r.tasks)
	})

	t.Run("body under the limit is accepted", func(t *testing.T) {
		r := &memRepo{}
		w := do(t, setupRouter(t, r, nil), http.MethodPost, "/tasks", task(maxBodyBytes/2))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, r.tasks, 1)
	})
}

func TestTaskHandler_CreateIsNotIdempotent(t *testing.T) {
	r := &memRepo{}
	router := setupRouter(t, r, nil)
	payload := `{"title":"Buy milk","description":"2% milk","status":"pending"}`

	var first, second createdBody
	w1 := do(t, router, http.MethodPost, "/tasks", payload)
	w2 := do(t, router, http.MethodPost, "/tasks", payload)
	require.NoError(t, json.NewDecoder(w1.Body).Decode(&first))
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&second))

	assert.NotEqual(t, first.Task.ID, second.Task.ID)
	assert.Len(t, r.tasks, 2)
}

func TestTaskHandler_Welcome(t *testing.T) {
	r := &memRepo{err: repo.ErrorConnection}
	router := setupRouter(t, r, nil)

	for _, body := range []string{"", `{"anything":true}`, "not json"} {
		w := do(t, router, http.MethodGet, "/", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, WelcomeMessage, w.Body.String())
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	}
}

func TestTaskHandler_TestTask(t *testing.T) {
	r := &memRepo{}
	router := setupRouter(t, r, nil)

	w := do(t, router, http.MethodPost, "/test-task", `{"title":"ignored"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Message string          `json:"message"`
		Task    model.TaskInput `json:"task"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Test task created successfully", body.Message)
	assert.Equal(t, model.TaskInput{Title: "Test Task", Description: "This is a test", Status: "pending"}, body.Task)
	assert.Equal(t, sampleTask, body.Task)

	n, _ := r.Count(context.Background())
	assert.Zero(t, n, "test task must not be persisted")
}

func TestTaskHandler_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		w := do(t, setupRouter(t, &memRepo{}, nil), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("unavailable", func(t *testing.T) {
		w := do(t, setupRouter(t, &memRepo{err: repo.ErrorConnection}, nil), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
	})
}

func TestRouter_RateLimit(t *testing.T) {
	r := &memRepo{}
	router := setupRouter(t, r, rate.NewLimiter(rate.Every(time.Hour), 1))
	payload := `{"title":"Buy milk","description":"2% milk","status":"pending"}`

	assert.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/tasks", payload).Code)

	w := do(t, router, http.MethodPost, "/tasks", payload)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
	assert.Len(t, r.tasks, 1)

	// other routes are not limited
	assert.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/test-task", "").Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := setupRouter(t, &memRepo{}, nil)
	do(t, router, http.MethodPost, "/tasks", `{"title":"a","description":"b","status":"completed"}`)

	w := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tasks_created_total{backend="memory"}`)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",route="/tasks",status="201"}`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := setupRouter(t, &memRepo{}, nil)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/tasks/1", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, router, http.MethodGet, "/tasks", "").Code)
}

func TestTaskHandler_ConcurrentCreates(t *testing.T) {
	r := &memRepo{}
	router := setupRouter(t, r, nil)
	body, _ := json.Marshal(model.TaskInput{Title: "Buy milk", Description: "2% milk", Status: model.StatusPending})

	const n = 25
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	assert.Len(t, r.tasks, n)
}
