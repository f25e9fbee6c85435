package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/auth"
	"github.com/gardenly/chat-service/pkg/chat"
	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

// dbOpTimeout bounds every persistence call made on behalf of one inbound
// event so a slow store cannot pin a session goroutine forever.
const dbOpTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the platform gateway in front of this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MutationJournal receives every successfully applied mutation after its
// broadcast. Implementations must not block the session.
type MutationJournal interface {
	Record(channelID string, event any)
}

// Handler runs one session per websocket connection: it authenticates the
// handshake, admits the connection, delivers the initial snapshot, and then
// applies inbound events one at a time. Mutations reach the ledger before
// they are broadcast; failures go back to the sender only.
type Handler struct {
	verifier *auth.Verifier
	service  *chat.Service
	registry *Registry
	hub      *Hub
	tracker  *Tracker
	journal  MutationJournal
	log      *zap.Logger

	sendMu keyedMutex
}

// NewHandler wires a session handler. journal may be nil when no downstream
// feed is configured.
func NewHandler(verifier *auth.Verifier, service *chat.Service, registry *Registry, hub *Hub, tracker *Tracker, journal MutationJournal, log *zap.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		service:  service,
		registry: registry,
		hub:      hub,
		tracker:  tracker,
		journal:  journal,
		log:      log,
	}
}

// ServeHTTP is the websocket entry point. The connection upgrades first and
// is then verified, so a rejected credential can be answered with a close
// frame the client can read instead of a bare HTTP error.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, err := h.verifier.FromRequest(r)
	if err != nil {
		h.log.Warn("authentication rejected", zap.Error(err))
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication rejected")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	client := newClient(conn, *identity)
	h.registry.Admit(client)
	go client.writePump()

	// Admission precedes the snapshot query: an event landing between the
	// two may reach this connection twice (snapshot and live), never zero
	// times. Ids make the duplicate detectable client-side.
	if err := h.sendSnapshot(client); err != nil {
		h.log.Error("initial snapshot failed",
			zap.String("connection", client.id),
			zap.Error(err))
		h.registry.Remove(client.id)
		return
	}

	go client.readPump(h)
}

func (h *Handler) sendSnapshot(c *Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbOpTimeout)
	defer cancel()

	messages, err := h.service.ListMessages(ctx)
	if err != nil {
		return err
	}
	channels, err := h.service.ListChannels(ctx)
	if err != nil {
		return err
	}
	h.hub.SendTo(c, model.NewInitialLoadEvent(messages, channels))
	return nil
}

// dispatch applies one inbound event. Sessions call it serially per
// connection, so a client observes its own operations in submission order.
func (h *Handler) dispatch(c *Client, raw []byte) {
	ev, err := model.DecodeClientEvent(raw)
	if err != nil {
		var unknown *model.UnknownEventError
		op := ""
		if errors.As(err, &unknown) {
			op = unknown.Type
		}
		h.log.Debug("event rejected",
			zap.String("op", op),
			zap.String("connection", c.id),
			zap.Error(err))
		h.hub.SendTo(c, model.ErrorEvent{
			Type:   model.EventError,
			Op:     op,
			Code:   model.CodeBadRequest,
			Reason: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbOpTimeout)
	defer cancel()

	switch ev := ev.(type) {
	case model.SendMessage:
		h.handleSend(ctx, c, ev)
	case model.EditMessage:
		h.handleEdit(ctx, c, ev)
	case model.DeleteMessage:
		h.handleDelete(ctx, c, ev)
	case model.Activity:
		h.handleActivity(c, ev)
	}
}

// handleSend appends to the ledger and broadcasts the result. The channel
// lock makes append+broadcast one non-interleaved step per channel, which is
// what gives all connections the same per-channel order; sends to different
// channels never contend.
func (h *Handler) handleSend(ctx context.Context, c *Client, ev model.SendMessage) {
	author := c.identity
	if ev.DisplayColor != "" {
		author.Color = ev.DisplayColor
	}

	unlock := h.sendMu.lock(ev.ChannelID)
	msg, err := h.service.Append(ctx, author, ev.Content, ev.ChannelID)
	if err != nil {
		unlock()
		h.nack(c, model.EventMessage, err, "", ev.ChannelID)
		return
	}
	h.tracker.Clear(ev.ChannelID, c.identity.ID)
	event := model.NewTextEvent(msg)
	h.hub.BroadcastAll(event)
	unlock()

	if h.journal != nil {
		h.journal.Record(msg.ChannelID.Hex(), event)
	}
}

func (h *Handler) handleEdit(ctx context.Context, c *Client, ev model.EditMessage) {
	msg, err := h.service.Edit(ctx, ev.MessageID, ev.NewContent, c.identity.ID)
	if err != nil {
		h.nack(c, model.EventEditMessage, err, ev.MessageID, "")
		return
	}
	event := model.NewEditedEvent(msg)
	h.hub.BroadcastAll(event)

	if h.journal != nil {
		h.journal.Record(msg.ChannelID.Hex(), event)
	}
}

func (h *Handler) handleDelete(ctx context.Context, c *Client, ev model.DeleteMessage) {
	msg, err := h.service.Delete(ctx, ev.MessageID, c.identity.ID)
	if err != nil {
		h.nack(c, model.EventDeleteMessage, err, ev.MessageID, "")
		return
	}
	event := model.NewDeletedEvent(msg.ID)
	h.hub.BroadcastAll(event)

	if h.journal != nil {
		h.journal.Record(msg.ChannelID.Hex(), event)
	}
}

// handleActivity refreshes the typing indicator and broadcasts it. No
// channel existence check: the state is ephemeral and expires on its own.
func (h *Handler) handleActivity(c *Client, ev model.Activity) {
	chID, err := primitive.ObjectIDFromHex(ev.ChannelID)
	if err != nil {
		h.nack(c, model.EventActivity, &chat.ValidationError{Reason: "malformed channel id"}, "", ev.ChannelID)
		return
	}

	color := ev.DisplayColor
	if color == "" {
		color = c.identity.Color
	}
	h.tracker.Signal(ev.ChannelID, c.identity.ID, c.identity.Name, color)
	h.hub.BroadcastAll(model.NewActivityEvent(chID, c.identity.Name, color))
}

// nack reports a failed operation back to the connection that requested it.
// Failures are never broadcast; only applied mutations are. Op echoes the
// inbound event type and the id fields echo the target so the client can
// correlate the failure without guessing.
func (h *Handler) nack(c *Client, op string, err error, messageID, channelID string) {
	code := model.CodeInternal
	reason := "internal error"

	var ve *chat.ValidationError
	switch {
	case errors.As(err, &ve):
		code, reason = model.CodeValidation, ve.Reason
	case errors.Is(err, store.ErrNotFound):
		code, reason = model.CodeNotFound, "message does not exist"
	case errors.Is(err, chat.ErrForbidden):
		code, reason = model.CodeForbidden, "only the author may edit or delete a message"
	}

	if code == model.CodeInternal {
		h.log.Error("event failed",
			zap.String("op", op),
			zap.String("connection", c.id),
			zap.Error(err))
	} else {
		h.log.Debug("event rejected",
			zap.String("op", op),
			zap.String("code", code),
			zap.String("connection", c.id),
			zap.Error(err))
	}

	h.hub.SendTo(c, model.ErrorEvent{
		Type:      model.EventError,
		Op:        op,
		Code:      code,
		Reason:    reason,
		MessageID: messageID,
		ChannelID: channelID,
	})
}

// keyedMutex hands out one mutex per channel id. Entries are refcounted and
// dropped when the last holder releases, so the map only ever holds channels
// with a send in flight; ids that fail validation leave nothing behind.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the key is free and returns the matching release.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
