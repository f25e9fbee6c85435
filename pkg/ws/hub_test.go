package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/model"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case data := <-c.send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestBroadcastAllDeliversOncePerConnection(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := NewHub(r, zap.NewNop())

	clients := []*Client{
		testClient("c1", model.Identity{ID: "u1"}),
		testClient("c2", model.Identity{ID: "u2"}),
		testClient("c3", model.Identity{ID: "u2"}),
	}
	for _, c := range clients {
		r.Admit(c)
	}

	h.BroadcastAll(model.ErrorEvent{Type: model.EventError, Code: model.CodeInternal})

	for _, c := range clients {
		queued := drain(c)
		require.Len(t, queued, 1, "connection %s", c.id)

		var ev model.ErrorEvent
		require.NoError(t, json.Unmarshal(queued[0], &ev))
		assert.Equal(t, model.EventError, ev.Type)
	}
}

func TestBroadcastAllDropsFullConnection(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := NewHub(r, zap.NewNop())

	healthy := testClient("healthy", model.Identity{ID: "u1"})
	stalled := &Client{
		id:       "stalled",
		identity: model.Identity{ID: "u2"},
		send:     make(chan []byte, 1),
		done:     make(chan struct{}),
	}
	r.Admit(healthy)
	r.Admit(stalled)

	// First event fills the stalled peer's buffer; the second cannot be
	// queued and costs it the connection.
	h.BroadcastAll(model.NewDeletedEvent(primitive.NewObjectID()))
	h.BroadcastAll(model.NewDeletedEvent(primitive.NewObjectID()))

	assert.Equal(t, 1, r.Len())
	assert.Len(t, drain(healthy), 2)
	assert.Len(t, drain(stalled), 1)

	select {
	case <-stalled.done:
	default:
		t.Fatal("stalled connection should have been closed")
	}
}

func TestBroadcastAllSkipsClosedConnection(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := NewHub(r, zap.NewNop())

	c := testClient("c1", model.Identity{ID: "u1"})
	r.Admit(c)
	c.close()

	h.BroadcastAll(model.NewDeletedEvent(primitive.NewObjectID()))

	assert.Equal(t, 0, r.Len(), "closed connection should be evicted on delivery failure")
	assert.Empty(t, drain(c))
}

func TestSendTo(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	h := NewHub(r, zap.NewNop())

	target := testClient("target", model.Identity{ID: "u1"})
	other := testClient("other", model.Identity{ID: "u2"})
	r.Admit(target)
	r.Admit(other)

	h.SendTo(target, model.ErrorEvent{Type: model.EventError, Code: model.CodeForbidden})

	assert.Len(t, drain(target), 1)
	assert.Empty(t, drain(other), "SendTo must not fan out")
}
