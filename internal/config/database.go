package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type MongoDBClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDBClient connects to MongoDB and ties the connection to the fx lifecycle.
// Confirmation writes run in multi-document transactions, so the server must be
// a replica set (a single-node replica set is enough).
func NewMongoDBClient(lc fx.Lifecycle, cfg *AppConfig, logger *zap.Logger) (*MongoDBClient, *mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	db := client.Database(cfg.MongoDatabase)

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			return EnsureIndexes(startCtx, db)
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("closing MongoDB connection")
			return client.Disconnect(stopCtx)
		},
	})
	return &MongoDBClient{Client: client, Database: db}, db, nil
}

// EnsureIndexes creates the uniqueness and lookup indexes the domain relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
		},
		"acknowledgements": {
			{Keys: bson.M{"campaign_id": 1}, Options: options.Index().SetUnique(true)},
			{Keys: bson.M{"generated_by": 1}},
		},
		"campaigns": {
			{Keys: bson.M{"creator": 1}},
			{Keys: bson.M{"participants": 1}},
			{Keys: bson.M{"status": 1}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
