package model

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event type tags, client to server. Every inbound envelope carries one of
// these in its "type" field.
const (
	EventMessage       = "message"
	EventEditMessage   = "editMessage"
	EventDeleteMessage = "deleteMessage"
	EventActivity      = "activity"
)

// Event type tags, server to client. editMessage, deleteMessage and
// activity reuse the inbound tag.
const (
	EventInitialLoad = "initialLoad"
	EventText        = "text"
	EventError       = "error"
)

// ClientEvent is one decoded inbound event. The set is closed: DecodeClientEvent
// yields exactly one of SendMessage, EditMessage, DeleteMessage or Activity,
// so a type switch over ClientEvent can be checked for completeness instead
// of dispatching on raw strings.
type ClientEvent interface {
	clientEvent()
}

// SendMessage posts new content to a channel. DisplayColor is the color the
// author is using right now; it is snapshotted onto the stored message.
type SendMessage struct {
	Content      string `json:"content"`
	ChannelID    string `json:"channelId"`
	DisplayColor string `json:"displayColor"`
}

// EditMessage replaces the content of an existing message. Only the original
// author's request succeeds.
type EditMessage struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// DeleteMessage removes an existing message, author-only like EditMessage.
type DeleteMessage struct {
	MessageID string `json:"messageId"`
}

// Activity signals that the sender is typing in a channel. No stop signal
// exists; the indicator expires server-side.
type Activity struct {
	ChannelID    string `json:"channelId"`
	DisplayColor string `json:"displayColor"`
}

func (SendMessage) clientEvent()   {}
func (EditMessage) clientEvent()   {}
func (DeleteMessage) clientEvent() {}
func (Activity) clientEvent()      {}

// UnknownEventError reports an envelope whose type tag is not part of the
// protocol.
type UnknownEventError struct {
	Type string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// DecodeClientEvent parses a single inbound envelope into its typed form.
func DecodeClientEvent(data []byte) (ClientEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event envelope: %w", err)
	}

	switch envelope.Type {
	case EventMessage:
		var ev SendMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
		}
		return ev, nil
	case EventEditMessage:
		var ev EditMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
		}
		return ev, nil
	case EventDeleteMessage:
		var ev DeleteMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
		}
		return ev, nil
	case EventActivity:
		var ev Activity
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", envelope.Type, err)
		}
		return ev, nil
	default:
		return nil, &UnknownEventError{Type: envelope.Type}
	}
}

// MessagePayload is the flattened transport form of a Message: author and
// channel fields are lifted to the top level the way the frontend consumes
// them in initialLoad and text events.
type MessagePayload struct {
	ID           primitive.ObjectID `json:"id"`
	Content      string             `json:"content"`
	ChannelID    primitive.ObjectID `json:"channelId"`
	ChannelName  string             `json:"channelName"`
	Author       string             `json:"author"`
	AuthorID     string             `json:"authorId"`
	DisplayColor string             `json:"displayColor"`
	Timestamp    time.Time          `json:"timestamp"`
}

// FlattenMessage reshapes a stored message for the wire.
func FlattenMessage(m *Message) MessagePayload {
	return MessagePayload{
		ID:           m.ID,
		Content:      m.Content,
		ChannelID:    m.ChannelID,
		ChannelName:  m.ChannelName,
		Author:       m.Author.Name,
		AuthorID:     m.Author.ID,
		DisplayColor: m.Author.Color,
		Timestamp:    m.CreatedAt,
	}
}

// InitialLoadEvent is sent once to a connection right after admission.
type InitialLoadEvent struct {
	Type     string           `json:"type"`
	Messages []MessagePayload `json:"messages"`
	Channels []Channel        `json:"channels"`
}

// NewInitialLoadEvent flattens the snapshot for transport. Both slices are
// always non-nil so the client sees [] rather than null.
func NewInitialLoadEvent(messages []Message, channels []Channel) InitialLoadEvent {
	payloads := make([]MessagePayload, 0, len(messages))
	for i := range messages {
		payloads = append(payloads, FlattenMessage(&messages[i]))
	}
	if channels == nil {
		channels = []Channel{}
	}
	return InitialLoadEvent{Type: EventInitialLoad, Messages: payloads, Channels: channels}
}

// TextEvent broadcasts a newly appended message.
type TextEvent struct {
	Type string `json:"type"`
	MessagePayload
}

// NewTextEvent builds the broadcast for a just-appended message.
func NewTextEvent(m *Message) TextEvent {
	return TextEvent{Type: EventText, MessagePayload: FlattenMessage(m)}
}

// EditedEvent broadcasts an applied edit. Timestamp is the update time.
type EditedEvent struct {
	Type      string             `json:"type"`
	ID        primitive.ObjectID `json:"id"`
	Content   string             `json:"content"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewEditedEvent builds the broadcast for an applied edit.
func NewEditedEvent(m *Message) EditedEvent {
	return EditedEvent{Type: EventEditMessage, ID: m.ID, Content: m.Content, Timestamp: m.UpdatedAt}
}

// DeletedEvent broadcasts an applied delete.
type DeletedEvent struct {
	Type string             `json:"type"`
	ID   primitive.ObjectID `json:"id"`
}

// NewDeletedEvent builds the broadcast for an applied delete.
func NewDeletedEvent(id primitive.ObjectID) DeletedEvent {
	return DeletedEvent{Type: EventDeleteMessage, ID: id}
}

// ActivityPayload identifies who is typing in an ActivityEvent.
type ActivityPayload struct {
	DisplayName  string `json:"displayName"`
	DisplayColor string `json:"displayColor"`
}

// ActivityEvent broadcasts a typing signal.
type ActivityEvent struct {
	Type      string             `json:"type"`
	ChannelID primitive.ObjectID `json:"channelId"`
	Payload   ActivityPayload    `json:"payload"`
}

// NewActivityEvent builds the typing broadcast.
func NewActivityEvent(channelID primitive.ObjectID, name, color string) ActivityEvent {
	return ActivityEvent{
		Type:      EventActivity,
		ChannelID: channelID,
		Payload:   ActivityPayload{DisplayName: name, DisplayColor: color},
	}
}

// Error codes carried by ErrorEvent.
const (
	CodeValidation = "validation"
	CodeNotFound   = "notFound"
	CodeForbidden  = "forbidden"
	CodeBadRequest = "badRequest"
	CodeInternal   = "internal"
)

// ErrorEvent is the negative acknowledgment for one failed inbound event.
// It goes to the originating connection only. Op echoes the inbound type and
// the id fields echo the target, which is all the correlation the client
// needs to surface the failure.
type ErrorEvent struct {
	Type      string `json:"type"`
	Op        string `json:"op"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
	MessageID string `json:"messageId,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
}
