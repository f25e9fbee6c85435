// Package chat holds the domain rules of the message ledger and the channel
// directory: content bounds, channel scoping, and the author-only rule on
// edit and delete. The rules live here rather than in the transport so they
// hold for every entry point that can reach a mutation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

// MaxContentLength is the upper bound on message content, counted in runes
// after trimming.
const MaxContentLength = 3000

// ErrForbidden reports an edit or delete attempted by someone other than the
// message's author.
var ErrForbidden = errors.New("chat: forbidden")

// ValidationError reports content or payload that fails the domain rules.
// The connection that sent it stays open; the error goes back to it alone.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "chat: " + e.Reason
}

// Service is the message ledger and channel directory. All persisted
// mutations in the chat core go through it.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateChannel registers a new channel. The name is trimmed before the
// uniqueness check; (gardenID, name) collisions fail with
// store.ErrDuplicateChannel.
func (s *Service) CreateChannel(ctx context.Context, name, gardenID string) (*model.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Reason: "channel name is empty"}
	}
	if gardenID == "" {
		return nil, &ValidationError{Reason: "garden id is empty"}
	}

	now := time.Now().UTC()
	ch := &model.Channel{
		Name:      name,
		GardenID:  gardenID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertChannel(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// ListChannels returns every channel across all gardens, oldest first.
func (s *Service) ListChannels(ctx context.Context) ([]model.Channel, error) {
	return s.store.ListChannels(ctx)
}

// Append validates and persists a new message. The author fields are
// snapshotted onto the message as given and never re-resolved afterwards.
func (s *Service) Append(ctx context.Context, author model.Identity, content, channelID string) (*model.Message, error) {
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}

	chID, err := primitive.ObjectIDFromHex(channelID)
	if err != nil {
		return nil, &ValidationError{Reason: "malformed channel id"}
	}
	channel, err := s.store.ChannelByID(ctx, chID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &ValidationError{Reason: "channel does not exist"}
		}
		return nil, fmt.Errorf("append: %w", err)
	}

	now := time.Now().UTC()
	m := &model.Message{
		Content: content,
		Author: model.AuthorSnapshot{
			ID:    author.ID,
			Name:  author.Name,
			Color: author.Color,
		},
		ChannelID: channel.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("append: %w", err)
	}
	m.ChannelName = channel.Name
	return m, nil
}

// Edit replaces a message's content. The ownership check runs against the
// persisted author at call time: existence first, then ownership, then the
// content rules.
func (s *Service) Edit(ctx context.Context, messageID, newContent, requesterID string) (*model.Message, error) {
	id, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, fmt.Errorf("message %q: %w", messageID, store.ErrNotFound)
	}
	m, err := s.store.MessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Author.ID != requesterID {
		return nil, fmt.Errorf("edit message %s: %w", id.Hex(), ErrForbidden)
	}

	newContent, err = validContent(newContent)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.store.UpdateMessageContent(ctx, id, newContent, now); err != nil {
		return nil, err
	}
	m.Content = newContent
	m.UpdatedAt = now
	return m, nil
}

// Delete permanently removes a message, author-only like Edit. The removed
// message is returned so callers can announce its id and channel.
func (s *Service) Delete(ctx context.Context, messageID, requesterID string) (*model.Message, error) {
	id, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, fmt.Errorf("message %q: %w", messageID, store.ErrNotFound)
	}
	m, err := s.store.MessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Author.ID != requesterID {
		return nil, fmt.Errorf("delete message %s: %w", id.Hex(), ErrForbidden)
	}

	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns every message across all channels in ascending
// creation order, with channel names resolved for the wire.
func (s *Service) ListMessages(ctx context.Context) ([]model.Message, error) {
	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[primitive.ObjectID]string, len(channels))
	for i := range channels {
		names[channels[i].ID] = channels[i].Name
	}
	for i := range messages {
		messages[i].ChannelName = names[messages[i].ChannelID]
	}
	return messages, nil
}

// ChannelMessages returns one channel's messages in ascending creation
// order. The channel must exist.
func (s *Service) ChannelMessages(ctx context.Context, channelID string) ([]model.Message, error) {
	id, err := primitive.ObjectIDFromHex(channelID)
	if err != nil {
		return nil, &ValidationError{Reason: "malformed channel id"}
	}
	channel, err := s.store.ChannelByID(ctx, id)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListChannelMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].ChannelName = channel.Name
	}
	return messages, nil
}

// validContent applies the ledger's content rules: trimmed, non-empty, and
// at most MaxContentLength runes.
func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &ValidationError{Reason: "message content is empty"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &ValidationError{Reason: fmt.Sprintf("message content exceeds %d characters", MaxContentLength)}
	}
	return content, nil
}
