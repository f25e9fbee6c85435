// Package store defines the persistence contract the chat service writes
// through. mongostore implements it on MongoDB; memstore implements it in
// memory for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gardenly/chat-service/pkg/model"
)

var (
	// ErrNotFound reports that the referenced document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateChannel reports a (gardenId, name) collision on insert.
	ErrDuplicateChannel = errors.New("store: duplicate channel")
)

// Store is the document-store contract behind the Channel Directory and the
// Message Ledger. Every call is a single-document operation; no cross-entity
// transaction is needed because a message is never updated together with its
// channel.
type Store interface {
	// InsertChannel persists a new channel, assigning its id when unset.
	// Fails with ErrDuplicateChannel when (gardenId, name) already exists.
	InsertChannel(ctx context.Context, ch *model.Channel) error

	// ChannelByID returns one channel or ErrNotFound.
	ChannelByID(ctx context.Context, id primitive.ObjectID) (*model.Channel, error)

	// ListChannels returns every channel across all gardens, oldest first.
	ListChannels(ctx context.Context) ([]model.Channel, error)

	// InsertMessage persists a new message, assigning its id when unset.
	InsertMessage(ctx context.Context, m *model.Message) error

	// MessageByID returns one message or ErrNotFound.
	MessageByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error)

	// UpdateMessageContent replaces a message's content and update time.
	// Fails with ErrNotFound when the message does not exist.
	UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string, at time.Time) error

	// DeleteMessage removes a message permanently, or ErrNotFound.
	DeleteMessage(ctx context.Context, id primitive.ObjectID) error

	// ListMessages returns every message across all channels in ascending
	// creation order.
	ListMessages(ctx context.Context) ([]model.Message, error)

	// ListChannelMessages returns one channel's messages in ascending
	// creation order.
	ListChannelMessages(ctx context.Context, channelID primitive.ObjectID) ([]model.Message, error)
}
