package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const defaultTimeout = 10 * time.Second

// Config describes the MongoDB deployment backing the chat store.
type Config struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
}

func (c Config) clientOptions() *options.ClientOptions {
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(c.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		// Appends read their own sequence numbers back; stale secondaries
		// would break the gap-free ordering.
		SetReadPreference(readpref.Primary()).
		SetWriteConcern(writeconcern.Majority())
	if c.AppName != "" {
		opts.SetAppName(c.AppName)
	}
	return opts
}

// Connect opens a client, pings the primary and selects the database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	opts := cfg.clientOptions()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, *opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}
	return client, client.Database(cfg.Database), nil
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes creates the indexes every repository relies on. The unique
// ones are load-bearing: direct pair uniqueness and message ordering are
// enforced by them.
func EnsureIndexes(ctx context.Context, repos ...indexer) error {
	for _, r := range repos {
		if err := r.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return nil
}

// retryRead runs an idempotent read and repeats it once when the driver
// reports a network error or a timeout.
func retryRead(read func() error) error {
	err := read()
	if err != nil && isTransient(err) {
		err = read()
	}
	return err
}

func isTransient(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
