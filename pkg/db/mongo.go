// Package db bootstraps the MongoDB connection the chat service persists
// through and owns the index definitions the store layer relies on.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 5 * time.Second

	// ChannelCollection and MessageCollection are the two collections this
	// service owns.
	ChannelCollection = "channels"
	MessageCollection = "messages"
)

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect dials the cluster and verifies it is reachable before returning.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	return &Mongo{Client: client, Database: client.Database(database)}, nil
}

// EnsureIndexes creates the indexes the store contracts depend on: the unique
// (gardenId, name) pair on channels, and the sort/filter indexes on messages.
// Safe to call on every startup; existing indexes are left untouched.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.Database.Collection(ChannelCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "gardenId", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("garden_name_unique"),
	})
	if err != nil {
		return fmt.Errorf("db: channel indexes: %w", err)
	}

	_, err = m.Database.Collection(MessageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("created_sort"),
		},
		{
			Keys:    bson.D{{Key: "channelId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("channel_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("db: message indexes: %w", err)
	}

	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
