package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectionOptions carries the mongo connection tuning. Zero values fall
// back to the defaults below, so tests can pass only URI and Database.
type ConnectionOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	SelectTimeout  time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

func (o *ConnectionOptions) withDefaults() ConnectionOptions {
	out := *o
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = 10 * time.Second
	}
	if out.SelectTimeout == 0 {
		out.SelectTimeout = 5 * time.Second
	}
	if out.MaxPoolSize == 0 {
		out.MaxPoolSize = 100
	}
	if out.MinPoolSize == 0 {
		out.MinPoolSize = 10
	}
	return out
}

// ConnectMongoDB opens the mongo database holding carts and receipt blobs.
func ConnectMongoDB(ctx context.Context, opts *ConnectionOptions) (*mongo.Database, error) {
	o := opts.withDefaults()

	clientOpts := options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.SelectTimeout).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(o.Database), nil
}
