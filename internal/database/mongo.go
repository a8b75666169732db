package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const TasksCollection = "tasks"

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoProvider owns a single MongoDB client. The client is created on the
// first successful Connect or Collection call and reused until Close.
// Concurrent callers share one connection attempt; none of them holds a lock
// while it is in flight.
type MongoProvider struct {
	cfg    MongoConfig
	logger *zap.Logger

	connect singleflight.Group

	mu     sync.Mutex
	client *mongo.Client
}

func NewMongoProvider(cfg MongoConfig, logger *zap.Logger) *MongoProvider {
	return &MongoProvider{
		cfg:    cfg,
		logger: logger,
	}
}

// Connect establishes the client if none exists yet.
func (p *MongoProvider) Connect(ctx context.Context) error {
	_, err := p.getClient(ctx)
	return err
}

// Collection returns the tasks collection, connecting first if needed.
func (p *MongoProvider) Collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(p.cfg.Database).Collection(TasksCollection), nil
}

func (p *MongoProvider) Ping(ctx context.Context) error {
	client, err := p.getClient(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client. The provider may connect again afterwards.
func (p *MongoProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(ctx)
	p.client = nil
	return err
}

func (p *MongoProvider) getClient(ctx context.Context) (*mongo.Client, error) {
	// The driver keeps its own pool and re-dials dropped sockets.
	if client := p.current(); client != nil {
		return client, nil
	}

	ch := p.connect.DoChan("connect", func() (any, error) {
		return p.dial()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("connect to mongodb: %w", ctx.Err())
	}
}

func (p *MongoProvider) current() *mongo.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client
}

// dial runs detached from any single request so that one caller giving up
// does not fail the others waiting on the same attempt. ConnectTimeout
// bounds it through server selection.
func (p *MongoProvider) dial() (*mongo.Client, error) {
	if client := p.current(); client != nil {
		return client, nil
	}

	ctx := context.Background()
	if p.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ConnectTimeout)
		defer cancel()
	}

	opts := options.Client().ApplyURI(p.cfg.URI)
	if p.cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(p.cfg.ConnectTimeout)
		opts.SetConnectTimeout(p.cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	p.logger.Info("Successfully connected to MongoDB", zap.String("database", p.cfg.Database))
	return client, nil
}
