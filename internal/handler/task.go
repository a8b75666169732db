package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-api/internal/model"
	"github.com/BuzzLyutic/task-api/internal/repo"
	"github.com/BuzzLyutic/task-api/internal/service"
	"github.com/BuzzLyutic/task-api/pkg/respond"
)

const (
	WelcomeMessage     = "Welcome to the Task API!"
	internalErrMessage = "Internal server error"

	maxBodyBytes = 1 << 20
)

// sampleTask is what the test route echoes back. It is never stored.
var sampleTask = model.TaskInput{
	Title:       "Test Task",
	Description: "This is a test",
	Status:      model.StatusPending,
}

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

type taskResponse struct {
	Message string `json:"message"`
	Task    any    `json:"task"`
}

func (h *TaskHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	respond.Text(w, r, http.StatusOK, WelcomeMessage)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.TaskInput
	// An empty body is an empty task and fails validation below.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, r, http.StatusBadRequest, "request body too large")
			return
		}
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusCreated, taskResponse{
		Message: "Task created successfully",
		Task:    task,
	})
}

// TestTask echoes a fixed sample task. Nothing is stored.
func (h *TaskHandler) TestTask(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Test task data",
		zap.String("title", sampleTask.Title),
		zap.String("description", sampleTask.Description),
		zap.String("status", string(sampleTask.Status)),
	)
	respond.JSON(w, r, http.StatusCreated, taskResponse{
		Message: "Test task created successfully",
		Task:    sampleTask,
	})
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.String("backend", h.service.Backend()), zap.Error(err))
		respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, repo.ErrorConnection):
		h.logger.Error("Error connecting to database", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, internalErrMessage)
	default:
		h.logger.Error("Error creating task", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, internalErrMessage)
	}
}
