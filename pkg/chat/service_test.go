package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
	"github.com/gardenly/chat-service/pkg/store/memstore"
)

var (
	ada = model.Identity{ID: "u1", Name: "Ada", Color: "#2e7d32"}
	bo  = model.Identity{ID: "u2", Name: "Bo", Color: "#c62828"}
)

func newTestService(t *testing.T) (*Service, *model.Channel) {
	t.Helper()
	svc := NewService(memstore.New())
	ch, err := svc.CreateChannel(context.Background(), "greenhouse", "g1")
	require.NoError(t, err)
	return svc, ch
}

func TestCreateChannel(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	t.Run("trims the name", func(t *testing.T) {
		ch, err := svc.CreateChannel(ctx, "  beds  ", "g1")
		require.NoError(t, err)
		assert.Equal(t, "beds", ch.Name)
		assert.False(t, ch.ID.IsZero())
	})

	t.Run("duplicate after trim", func(t *testing.T) {
		_, err := svc.CreateChannel(ctx, "beds ", "g1")
		assert.ErrorIs(t, err, store.ErrDuplicateChannel)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.CreateChannel(ctx, "   ", "g1")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "channel name is empty", verr.Reason)
	})

	t.Run("blank garden", func(t *testing.T) {
		_, err := svc.CreateChannel(ctx, "beds", "")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	svc, ch := newTestService(t)

	t.Run("snapshots the author", func(t *testing.T) {
		m, err := svc.Append(ctx, ada, "Water the tomatoes", ch.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Water the tomatoes", m.Content)
		assert.Equal(t, ada.ID, m.Author.ID)
		assert.Equal(t, ada.Name, m.Author.Name)
		assert.Equal(t, ada.Color, m.Author.Color)
		assert.Equal(t, ch.ID, m.ChannelID)
		assert.Equal(t, "greenhouse", m.ChannelName)
		assert.False(t, m.ID.IsZero())
	})

	t.Run("trims content", func(t *testing.T) {
		m, err := svc.Append(ctx, ada, "  spaced out  ", ch.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "spaced out", m.Content)
	})

	t.Run("whitespace-only content", func(t *testing.T) {
		_, err := svc.Append(ctx, ada, " \n\t ", ch.ID.Hex())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "message content is empty", verr.Reason)
	})

	t.Run("content at the bound", func(t *testing.T) {
		_, err := svc.Append(ctx, ada, strings.Repeat("ä", MaxContentLength), ch.ID.Hex())
		assert.NoError(t, err)
	})

	t.Run("content over the bound", func(t *testing.T) {
		_, err := svc.Append(ctx, ada, strings.Repeat("ä", MaxContentLength+1), ch.ID.Hex())
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("malformed channel id", func(t *testing.T) {
		_, err := svc.Append(ctx, ada, "hello", "not-a-hex-id")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "malformed channel id", verr.Reason)
	})

	t.Run("unknown channel", func(t *testing.T) {
		_, err := svc.Append(ctx, ada, "hello", primitive.NewObjectID().Hex())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "channel does not exist", verr.Reason)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	svc, ch := newTestService(t)
	m, err := svc.Append(ctx, ada, "original", ch.ID.Hex())
	require.NoError(t, err)

	t.Run("author edits", func(t *testing.T) {
		edited, err := svc.Edit(ctx, m.ID.Hex(), "revised", ada.ID)
		require.NoError(t, err)
		assert.Equal(t, "revised", edited.Content)
		assert.True(t, edited.UpdatedAt.After(edited.CreatedAt) || edited.UpdatedAt.Equal(edited.CreatedAt))

		stored, err := svc.ChannelMessages(ctx, ch.ID.Hex())
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "revised", stored[0].Content)
	})

	t.Run("non-author is rejected", func(t *testing.T) {
		_, err := svc.Edit(ctx, m.ID.Hex(), "hijacked", bo.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		stored, err := svc.ChannelMessages(ctx, ch.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "revised", stored[0].Content, "rejected edit must not touch the ledger")
	})

	t.Run("ownership is checked before content", func(t *testing.T) {
		_, err := svc.Edit(ctx, m.ID.Hex(), "", bo.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("empty replacement content", func(t *testing.T) {
		_, err := svc.Edit(ctx, m.ID.Hex(), "   ", ada.ID)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := svc.Edit(ctx, primitive.NewObjectID().Hex(), "x", ada.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("malformed message id", func(t *testing.T) {
		_, err := svc.Edit(ctx, "zzz", "x", ada.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, ch := newTestService(t)
	m, err := svc.Append(ctx, ada, "ephemeral", ch.ID.Hex())
	require.NoError(t, err)

	t.Run("non-author is rejected", func(t *testing.T) {
		_, err := svc.Delete(ctx, m.ID.Hex(), bo.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("author deletes", func(t *testing.T) {
		removed, err := svc.Delete(ctx, m.ID.Hex(), ada.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, removed.ID)
		assert.Equal(t, ch.ID, removed.ChannelID)

		stored, err := svc.ChannelMessages(ctx, ch.ID.Hex())
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("already deleted", func(t *testing.T) {
		_, err := svc.Delete(ctx, m.ID.Hex(), ada.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()
	svc, ch := newTestService(t)
	other, err := svc.CreateChannel(ctx, "compost", "g1")
	require.NoError(t, err)

	_, err = svc.Append(ctx, ada, "one", ch.ID.Hex())
	require.NoError(t, err)
	_, err = svc.Append(ctx, bo, "two", other.ID.Hex())
	require.NoError(t, err)

	t.Run("resolves channel names", func(t *testing.T) {
		msgs, err := svc.ListMessages(ctx)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "greenhouse", msgs[0].ChannelName)
		assert.Equal(t, "compost", msgs[1].ChannelName)
	})

	t.Run("channel scoped", func(t *testing.T) {
		msgs, err := svc.ChannelMessages(ctx, other.ID.Hex())
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "two", msgs[0].Content)
		assert.Equal(t, "compost", msgs[0].ChannelName)
	})

	t.Run("unknown channel", func(t *testing.T) {
		_, err := svc.ChannelMessages(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
