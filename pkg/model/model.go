package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated principal behind a connection, as decoded
// from the session token.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"displayName"`
	Color string `json:"displayColor"`
}

// AuthorSnapshot pins the author's display fields to a message at send time.
// Historical messages keep showing the name and color the author had when
// they sent them, even if the profile changes later; nothing is re-resolved
// against the users service on read.
type AuthorSnapshot struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"displayName"`
	Color string `bson:"color" json:"displayColor"`
}

// Channel is a named conversation scoped to a garden. The (gardenId, name)
// pair is unique, case-sensitive, with the name trimmed on write; the unique
// compound index enforces it.
type Channel struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	GardenID  string             `bson:"gardenId" json:"gardenId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Message is a single utterance in a channel. Only the original author may
// edit or delete it.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Content   string             `bson:"content" json:"content"`
	Author    AuthorSnapshot     `bson:"author" json:"author"`
	ChannelID primitive.ObjectID `bson:"channelId" json:"channelId"`
	// ChannelName is resolved from the channel document on read paths that
	// feed the wire; it is never stored with the message.
	ChannelName string    `bson:"-" json:"channelName,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
