// Package memstore implements the store contract in memory. It backs tests
// and local runs that do not want a MongoDB instance; semantics match
// mongostore, including the duplicate-channel rule and list ordering.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

type Store struct {
	mu       sync.RWMutex
	channels []model.Channel
	messages []model.Message
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) InsertChannel(ctx context.Context, ch *model.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.channels {
		if s.channels[i].GardenID == ch.GardenID && s.channels[i].Name == ch.Name {
			return fmt.Errorf("channel %q in garden %q: %w", ch.Name, ch.GardenID, store.ErrDuplicateChannel)
		}
	}
	if ch.ID.IsZero() {
		ch.ID = primitive.NewObjectID()
	}
	s.channels = append(s.channels, *ch)
	return nil
}

func (s *Store) ChannelByID(ctx context.Context, id primitive.ObjectID) (*model.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.channels {
		if s.channels[i].ID == id {
			ch := s.channels[i]
			return &ch, nil
		}
	}
	return nil, fmt.Errorf("channel %s: %w", id.Hex(), store.ErrNotFound)
}

func (s *Store) ListChannels(ctx context.Context) ([]model.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Channel, len(s.channels))
	copy(out, s.channels)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *Store) MessageByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			m := s.messages[i]
			return &m, nil
		}
	}
	return nil, fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
}

func (s *Store) UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			s.messages[i].UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
}

func (s *Store) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", id.Hex(), store.ErrNotFound)
}

func (s *Store) ListMessages(ctx context.Context) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.messages, nil), nil
}

func (s *Store) ListChannelMessages(ctx context.Context, channelID primitive.ObjectID) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedCopy(s.messages, func(m *model.Message) bool { return m.ChannelID == channelID }), nil
}

// sortedCopy returns matching messages in ascending creation order. The sort
// is stable so same-timestamp messages keep insertion order, matching the
// (createdAt, _id) sort the MongoDB store uses.
func sortedCopy(messages []model.Message, match func(*model.Message) bool) []model.Message {
	out := []model.Message{}
	for i := range messages {
		if match == nil || match(&messages[i]) {
			out = append(out, messages[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
