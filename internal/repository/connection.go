package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoTimeout  = 10 * time.Second
	defaultMongoPoolSize = 20
	mongoAppName         = "squeeze"
)

// MongoConfig describes the business directory database.
type MongoConfig struct {
	URI      string
	Database string
	// Timeout bounds both the connect and the startup ping. Zero means 10s.
	Timeout     time.Duration
	MaxPoolSize uint64
}

func (c MongoConfig) clientOptions() *options.ClientOptions {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}
	pool := c.MaxPoolSize
	if pool == 0 {
		pool = defaultMongoPoolSize
	}
	return options.Client().
		ApplyURI(c.URI).
		SetAppName(mongoAppName).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetMaxPoolSize(pool)
}

// ConnectMongoDB opens the directory database and checks it answers within
// the configured timeout. The client is disconnected again if it does not.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	if cfg.Database == "" {
		return nil, errors.New("mongo database name is required")
	}
	opts := cfg.clientOptions()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, *opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(cfg.Database), nil
}
