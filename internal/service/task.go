package service

import (
	"context"
	"time"

	"github.com/BuzzLyutic/task-api/internal/metrics"
	"github.com/BuzzLyutic/task-api/internal/model"
	"github.com/BuzzLyutic/task-api/internal/repo"
)

type TaskService struct {
	repo repo.TaskRepository
	now  func() time.Time
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
		now:  time.Now,
	}
}

// Create validates the input, stamps both timestamps and stores the task.
// Nothing reaches the repository when validation fails.
func (s *TaskService) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	valid, err := Validate(in)
	if err != nil {
		return model.Task{}, err
	}

	now := ceilMillis(s.now().UTC())
	task := model.Task{
		Title:       valid.Title,
		Description: valid.Description,
		Status:      valid.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return created, err
	}
	metrics.TasksCreated.WithLabelValues(s.repo.Backend()).Inc()
	return created, nil
}

func (s *TaskService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *TaskService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *TaskService) Backend() string {
	return s.repo.Backend()
}

// ceilMillis rounds up to the next millisecond, the precision of a BSON date,
// so the returned record matches the stored one and never predates the call.
func ceilMillis(t time.Time) time.Time {
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}
