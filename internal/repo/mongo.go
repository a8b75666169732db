package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BuzzLyutic/task-api/internal/model"
)

// CollectionProvider hands out the tasks collection, connecting on demand.
type CollectionProvider interface {
	Collection(ctx context.Context) (*mongo.Collection, error)
	Ping(ctx context.Context) error
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type MongoTaskRepo struct {
	provider CollectionProvider
}

func NewMongoTaskRepo(provider CollectionProvider) *MongoTaskRepo {
	return &MongoTaskRepo{
		provider: provider,
	}
}

func (r *MongoTaskRepo) Backend() string { return "mongo" }

func (r *MongoTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	coll, err := r.provider.Collection(ctx)
	if err != nil {
		return t, fmt.Errorf("%w: %w", ErrorConnection, err)
	}

	res, err := coll.InsertOne(ctx, taskDocument{
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	})
	if err != nil {
		return t, r.mapError(err, ErrorInsert)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return t, fmt.Errorf("%w: unexpected id type %T", ErrorInsert, res.InsertedID)
	}
	t.ID = id.Hex()
	return t, nil
}

func (r *MongoTaskRepo) Count(ctx context.Context) (int64, error) {
	coll, err := r.provider.Collection(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrorConnection, err)
	}
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, r.mapError(err, ErrorQuery)
	}
	return n, nil
}

func (r *MongoTaskRepo) Ping(ctx context.Context) error {
	if err := r.provider.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrorConnection, err)
	}
	return nil
}

func (r *MongoTaskRepo) mapError(err, fallback error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %w", ErrorConnection, err)
	}
	return fmt.Errorf("%w: %w", fallback, err)
}
