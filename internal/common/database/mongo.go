package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-services/internal/common/config"
)

// MongoClient connects to the CMS document store that publishes store
// records.
type MongoClient struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

func NewMongo(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	timeout := config.GetDuration(cfg.Timeout)

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &MongoClient{
		Client:     client,
		Collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (c *MongoClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func (c *MongoClient) Close(ctx context.Context) error {
	if c.Client != nil {
		return c.Client.Disconnect(ctx)
	}
	return nil
}
