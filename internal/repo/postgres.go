package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/task-api/internal/model"
)

//go:embed schema.sql
var schema string

type PostgresTaskRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTaskRepo(pool *pgxpool.Pool) *PostgresTaskRepo {
	return &PostgresTaskRepo{
		pool: pool,
	}
}

func (r *PostgresTaskRepo) Backend() string { return "postgres" }

// EnsureSchema creates the tasks table if it does not exist yet.
func (r *PostgresTaskRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return r.mapError(err, ErrorQuery)
	}
	return nil
}

func (r *PostgresTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, t.Title, t.Description, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return t, r.mapError(err, ErrorInsert)
	}
	t.ID = id.String()
	return t, nil
}

func (r *PostgresTaskRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n); err != nil {
		return 0, r.mapError(err, ErrorQuery)
	}
	return n, nil
}

func (r *PostgresTaskRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrorConnection, err)
	}
	return nil
}

// mapError tags err as a connection failure or, failing that, as fallback.
func (r *PostgresTaskRepo) mapError(err, fallback error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", ErrorConnection, err)
	}
	return fmt.Errorf("%w: %w", fallback, err)
}
