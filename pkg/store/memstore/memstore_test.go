package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

func insertChannel(t *testing.T, s *Store, garden, name string) *model.Channel {
	t.Helper()
	ch := &model.Channel{Name: name, GardenID: garden, CreatedAt: time.Now()}
	require.NoError(t, s.InsertChannel(context.Background(), ch))
	return ch
}

func insertMessage(t *testing.T, s *Store, channel primitive.ObjectID, content string, at time.Time) *model.Message {
	t.Helper()
	m := &model.Message{
		Content:   content,
		Author:    model.AuthorSnapshot{ID: "u1", Name: "Ada", Color: "#fff"},
		ChannelID: channel,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, s.InsertMessage(context.Background(), m))
	return m
}

func TestInsertChannel(t *testing.T) {
	ctx := context.Background()
	s := New()

	ch := insertChannel(t, s, "g1", "greenhouse")
	assert.False(t, ch.ID.IsZero(), "insert should assign an id")

	t.Run("duplicate in same garden", func(t *testing.T) {
		err := s.InsertChannel(ctx, &model.Channel{Name: "greenhouse", GardenID: "g1"})
		assert.ErrorIs(t, err, store.ErrDuplicateChannel)
	})

	t.Run("same name in another garden", func(t *testing.T) {
		err := s.InsertChannel(ctx, &model.Channel{Name: "greenhouse", GardenID: "g2"})
		assert.NoError(t, err)
	})
}

func TestChannelByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch := insertChannel(t, s, "g1", "beds")

	got, err := s.ChannelByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "beds", got.Name)

	_, err = s.ChannelByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessageOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch := insertChannel(t, s, "g1", "beds")
	other := insertChannel(t, s, "g1", "compost")

	base := time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)
	insertMessage(t, s, ch.ID, "third", base.Add(2*time.Second))
	insertMessage(t, s, ch.ID, "first", base)
	insertMessage(t, s, other.ID, "elsewhere", base.Add(time.Second))
	insertMessage(t, s, ch.ID, "second", base.Add(time.Second))

	t.Run("all messages ascending", func(t *testing.T) {
		msgs, err := s.ListMessages(ctx)
		require.NoError(t, err)
		require.Len(t, msgs, 4)
		assert.Equal(t, "first", msgs[0].Content)
		assert.Equal(t, "third", msgs[3].Content)
	})

	t.Run("channel filter", func(t *testing.T) {
		msgs, err := s.ListChannelMessages(ctx, ch.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{"first", "second", "third"}, contents(msgs))
	})

	t.Run("same timestamp keeps insertion order", func(t *testing.T) {
		msgs, err := s.ListChannelMessages(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)

		insertMessage(t, s, other.ID, "tied", base.Add(time.Second))
		msgs, err = s.ListChannelMessages(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, []string{"elsewhere", "tied"}, contents(msgs))
	})

	t.Run("empty channel yields empty slice", func(t *testing.T) {
		msgs, err := s.ListChannelMessages(ctx, primitive.NewObjectID())
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})
}

func TestUpdateMessageContent(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch := insertChannel(t, s, "g1", "beds")
	m := insertMessage(t, s, ch.ID, "typo", time.Now())

	at := time.Now().Add(time.Minute)
	require.NoError(t, s.UpdateMessageContent(ctx, m.ID, "fixed", at))

	got, err := s.MessageByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Content)
	assert.Equal(t, at, got.UpdatedAt)

	err = s.UpdateMessageContent(ctx, primitive.NewObjectID(), "x", at)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()
	s := New()
	ch := insertChannel(t, s, "g1", "beds")
	m := insertMessage(t, s, ch.ID, "gone soon", time.Now())

	require.NoError(t, s.DeleteMessage(ctx, m.ID))

	_, err := s.MessageByID(ctx, m.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.DeleteMessage(ctx, m.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Content
	}
	return out
}
