package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/store"
)

// ChatRepository persists room messages. Room scope is
// "{type}/{department}[/{semester}/{shift}]".
type ChatRepository struct {
	store store.Store
}

// NewChatRepository creates a new instance of ChatRepository.
func NewChatRepository(s store.Store) *ChatRepository {
	return &ChatRepository{store: s}
}

// RoomScope builds the store partition for a chat room.
func RoomScope(roomType, department, semester, shift string) string {
	scope := roomType + "/" + department
	if semester != "" {
		scope += "/" + semester
		if shift != "" {
			scope += "/" + shift
		}
	}
	return scope
}

func messageScope(msg *models.ChatMessage) string {
	return RoomScope(msg.RoomType, msg.Department, msg.Semester, msg.Shift)
}

// Create stores a new message, assigning id and creation time.
func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return r.put(ctx, msg, "create message")
}

// Update overwrites a message document after an edit, reply, reaction, seen
// marker or tombstone.
func (r *ChatRepository) Update(ctx context.Context, msg *models.ChatMessage) error {
	return r.put(ctx, msg, "update message")
}

func (r *ChatRepository) put(ctx context.Context, msg *models.ChatMessage, op string) error {
	doc, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionChat, messageScope(msg), msg.ID, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Find returns one message of a room.
func (r *ChatRepository) Find(ctx context.Context, scope, id string) (*models.ChatMessage, error) {
	doc, err := r.store.Get(ctx, store.CollectionChat, scope, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(doc, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return &msg, nil
}

// List returns the most recent messages of a room in chronological order,
// capped at limit (0 means no cap).
func (r *ChatRepository) List(ctx context.Context, scope string, limit int) ([]models.ChatMessage, error) {
	docs, err := r.store.List(ctx, store.CollectionChat, scope)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]models.ChatMessage, 0, len(docs))
	for _, doc := range docs {
		var msg models.ChatMessage
		if err := json.Unmarshal(doc, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}
