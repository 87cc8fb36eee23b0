package database

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Open connects to MongoDB and verifies the connection with a ping.  The
// initial connection is retried with exponential backoff up to attempts
// times; after that the driver's own server monitoring handles reconnects.
func Open(ctx context.Context, uri, name string, attempts int, logger echo.Logger) (*mongo.Client, *mongo.Database, error) {
	if attempts < 1 {
		attempts = 1
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(25).
		SetConnectTimeout(10 * time.Second)

	backoff := time.Second
	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := connect(ctx, opts)
		if err == nil {
			return client, client.Database(name), nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		logger.Warnf("mongo: connect attempt %d/%d failed: %v; retrying in %s", i, attempts, err, backoff)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
	return nil, nil, fmt.Errorf("mongo: connect: %w", lastErr)
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
