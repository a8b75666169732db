package repo

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/task-api/internal/model"
)

var (
	// ErrorConnection means the backend could not be reached or refused the credentials.
	ErrorConnection = errors.New("database connection failed")
	// ErrorInsert means the backend was reachable but rejected the write.
	ErrorInsert = errors.New("insert failed")
	// ErrorQuery means the backend was reachable but a read or schema statement failed.
	ErrorQuery = errors.New("query failed")
)

// TaskRepository stores tasks. Create returns the task with its assigned ID.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Backend() string
}
