// Package mongostore implements the store contract on MongoDB. Every
// operation maps to a single document read or write; the duplicate-channel
// rule is enforced by the unique (gardenId, name) index.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gardenly/chat-service/pkg/db"
	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

type Store struct {
	channels *mongo.Collection
	messages *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func New(database *mongo.Database) *Store {
	return &Store{
		channels: database.Collection(db.ChannelCollection),
		messages: database.Collection(db.MessageCollection),
	}
}

func (s *Store) InsertChannel(ctx context.Context, ch *model.Channel) error {
	if ch.ID.IsZero() {
		ch.ID = primitive.NewObjectID()
	}
	if _, err := s.channels.InsertOne(ctx, ch); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("channel %q in garden %q: %w", ch.Name, ch.GardenID, store.ErrDuplicateChannel)
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *Store) ChannelByID(ctx context.Context, id primitive.ObjectID) (*model.Channel, error) {
	var ch model.Channel
	if err := s.channels.FindOne(ctx, bson.M{"_id": id}).Decode(&ch); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("channel %s: %w", id.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("find channel: %w", err)
	}
	return &ch, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.channels.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	channels := []model.Channel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return channels, nil
}

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) MessageByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	var m model.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &m, nil
}

func (s *Store) UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string, at time.Time) error {
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"content": content, "updatedAt": at}})
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.messages.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context) ([]model.Message, error) {
	return s.findMessages(ctx, bson.M{})
}

func (s *Store) ListChannelMessages(ctx context.Context, channelID primitive.ObjectID) ([]model.Message, error) {
	return s.findMessages(ctx, bson.M{"channelId": channelID})
}

func (s *Store) findMessages(ctx context.Context, filter bson.M) ([]model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := []model.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}
