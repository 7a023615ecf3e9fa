package models

import "time"

// ChatMessage is an append-only room message. Deletion is a tombstone so the
// room history keeps its shape for every reader.
type ChatMessage struct {
	ID         string `json:"id"`
	RoomType   string `json:"type"`
	Department string `json:"department"`
	Semester   string `json:"semester,omitempty"`
	Shift      string `json:"shift,omitempty"`

	SenderID   string   `json:"senderId"`
	SenderName string   `json:"senderName"`
	Text       string   `json:"text"`
	Images     []string `json:"images,omitempty"`

	Replies   []ChatReply    `json:"replies,omitempty"`
	Reactions []ChatReaction `json:"reactions,omitempty"`
	// SeenBy grows monotonically as recipients observe the message.
	SeenBy []string `json:"seenBy,omitempty"`

	Deleted       bool       `json:"deleted,omitempty"`
	DeletedByName string     `json:"deletedByName,omitempty"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ChatReply is a lightweight nested response to a message.
type ChatReply struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChatReaction records one user's reaction; at most one per user, toggled
// off when the same reaction is sent again.
type ChatReaction struct {
	UserID   string `json:"userId"`
	Reaction string `json:"reaction"`
}
