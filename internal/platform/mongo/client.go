package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultConnectTimeout = 10 * time.Second

// Config carries the connection string and database name.
type Config struct {
	URI      string
	Database string
}

// Client owns a driver client bound to one database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the cluster and verifies it with a primary ping.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo: uri is required")
	}
	name := strings.TrimSpace(cfg.Database)
	if name == "" {
		return nil, errors.New("mongo: database is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Client{client: client, db: client.Database(name)}, nil
}

// Database returns the configured database handle.
func (c *Client) Database() *mongo.Database { return c.db }

// Collection returns a handle on the named collection.
func (c *Client) Collection(name string) *mongo.Collection { return c.db.Collection(name) }

// Close disconnects from the cluster.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
