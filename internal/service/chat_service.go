package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/access"
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
)

type chatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	Update(ctx context.Context, msg *models.ChatMessage) error
	Find(ctx context.Context, scope, id string) (*models.ChatMessage, error)
	List(ctx context.Context, scope string, limit int) ([]models.ChatMessage, error)
}

// ChatRoom addresses one room. Semester and Shift are empty for the
// department-wide room and set for a class room.
type ChatRoom struct {
	Department string `json:"department" validate:"required"`
	Semester   string `json:"semester"`
	Shift      string `json:"shift"`
}

// Type labels the room for storage and the wire.
func (r ChatRoom) Type() string {
	if r.Semester == "" {
		return "department"
	}
	return "class"
}

func (r ChatRoom) scope() string {
	return repository.RoomScope(r.Type(), r.Department, r.Semester, r.Shift)
}

func (r ChatRoom) topic() realtime.Topic {
	return realtime.Topic{Kind: realtime.KindChat, Department: r.Department, Semester: r.Semester, Shift: r.Shift}
}

// SendMessageRequest is the payload for posting a message.
type SendMessageRequest struct {
	Room   ChatRoom `json:"room"`
	Text   string   `json:"text"`
	Images []string `json:"images" validate:"max=3"`
}

// ChatService implements the room messaging use cases.
type ChatService struct {
	repo         chatRepository
	notifier     realtime.Notifier
	validator    *validator.Validate
	logger       *zap.Logger
	historyLimit int
}

// NewChatService constructs a ChatService. historyLimit caps History reads.
func NewChatService(repo chatRepository, notifier realtime.Notifier, validate *validator.Validate, logger *zap.Logger, historyLimit int) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &ChatService{repo: repo, notifier: notifier, validator: validate, logger: logger, historyLimit: historyLimit}
}

// Send posts a message to a room. A message needs text or at least one image.
func (s *ChatService) Send(ctx context.Context, claims *models.JWTClaims, req SendMessageRequest) (*models.ChatMessage, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Images) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message needs text or an image")
	}

	msg := &models.ChatMessage{
		RoomType:   req.Room.Type(),
		Department: req.Room.Department,
		Semester:   req.Room.Semester,
		Shift:      req.Room.Shift,
		SenderID:   claims.UserID,
		SenderName: claims.FullName,
		Text:       text,
		Images:     req.Images,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store message")
	}

	s.publish(ctx, req.Room, realtime.Event{Action: realtime.ActionCreate, Data: msg})
	return msg, nil
}

// History returns the most recent messages of a room in chronological order.
// Storage failure degrades to an empty history.
func (s *ChatService) History(ctx context.Context, room ChatRoom, limit int) ([]models.ChatMessage, error) {
	if err := s.validator.Struct(room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room")
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	messages, err := s.repo.List(ctx, room.scope(), limit)
	if err != nil {
		s.logger.Error("chat history degraded to empty", zap.String("room", room.scope()), zap.Error(err))
		return []models.ChatMessage{}, nil
	}
	return messages, nil
}

// Edit replaces the text of the caller's own message.
func (s *ChatService) Edit(ctx context.Context, claims *models.JWTClaims, room ChatRoom, id, text string) (*models.ChatMessage, error) {
	msg, err := s.load(ctx, room, id)
	if err != nil {
		return nil, err
	}
	if claims == nil || claims.UserID != msg.SenderID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the sender can edit a message")
	}
	if msg.Deleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "message was deleted")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "edited text must not be empty")
	}

	now := time.Now().UTC()
	msg.Text = text
	msg.UpdatedAt = &now
	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update message")
	}

	s.publish(ctx, room, realtime.Event{Action: realtime.ActionUpdate, Data: msg})
	return msg, nil
}

// Delete tombstones a message. The sender or an admin may delete; the entry
// stays in the history with its content blanked.
func (s *ChatService) Delete(ctx context.Context, claims *models.JWTClaims, room ChatRoom, id string) (*models.ChatMessage, error) {
	msg, err := s.load(ctx, room, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanDelete(claims, msg.SenderID); err != nil {
		return nil, err
	}
	if msg.Deleted {
		return msg, nil
	}

	now := time.Now().UTC()
	msg.Deleted = true
	msg.DeletedByName = claims.FullName
	msg.DeletedAt = &now
	msg.Text = ""
	msg.Images = nil
	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete message")
	}

	s.publish(ctx, room, realtime.Event{Action: realtime.ActionUpdate, Data: msg})
	return msg, nil
}

// Reply appends a nested reply to a message.
func (s *ChatService) Reply(ctx context.Context, claims *models.JWTClaims, room ChatRoom, id, text string) (*models.ChatMessage, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reply text must not be empty")
	}
	msg, err := s.load(ctx, room, id)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "message was deleted")
	}

	msg.Replies = append(msg.Replies, models.ChatReply{
		ID:         uuid.NewString(),
		SenderID:   claims.UserID,
		SenderName: claims.FullName,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	})
	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store reply")
	}

	s.publish(ctx, room, realtime.Event{Action: realtime.ActionUpdate, Data: msg})
	return msg, nil
}

// React toggles the caller's reaction. Sending the same reaction again
// removes it; a different reaction replaces the previous one. One reaction
// per user per message.
func (s *ChatService) React(ctx context.Context, claims *models.JWTClaims, room ChatRoom, id, reaction string) (*models.ChatMessage, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	reaction = strings.TrimSpace(reaction)
	if reaction == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reaction must not be empty")
	}
	msg, err := s.load(ctx, room, id)
	if err != nil {
		return nil, err
	}

	kept := msg.Reactions[:0]
	toggledOff := false
	for _, r := range msg.Reactions {
		if r.UserID == claims.UserID {
			if r.Reaction == reaction {
				toggledOff = true
			}
			continue
		}
		kept = append(kept, r)
	}
	msg.Reactions = kept
	if !toggledOff {
		msg.Reactions = append(msg.Reactions, models.ChatReaction{UserID: claims.UserID, Reaction: reaction})
	}

	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store reaction")
	}

	s.publish(ctx, room, realtime.Event{Action: realtime.ActionUpdate, Data: msg})
	return msg, nil
}

// MarkSeen records that the caller has seen the given messages. The seen set
// only grows.
func (s *ChatService) MarkSeen(ctx context.Context, claims *models.JWTClaims, room ChatRoom, ids []string) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	for _, id := range ids {
		msg, err := s.load(ctx, room, id)
		if err != nil {
			if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrNotFound.Code {
				continue
			}
			return err
		}
		if containsString(msg.SeenBy, claims.UserID) {
			continue
		}
		msg.SeenBy = append(msg.SeenBy, claims.UserID)
		if err := s.repo.Update(ctx, msg); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store seen marker")
		}
		s.publish(ctx, room, realtime.Event{Action: realtime.ActionUpdate, Data: msg})
	}
	return nil
}

func (s *ChatService) load(ctx context.Context, room ChatRoom, id string) (*models.ChatMessage, error) {
	msg, err := s.repo.Find(ctx, room.scope(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load message")
	}
	return msg, nil
}

func (s *ChatService) publish(ctx context.Context, room ChatRoom, event realtime.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, room.topic(), event); err != nil {
		s.logger.Warn("realtime publish failed", zap.String("room", room.scope()), zap.Error(err))
	}
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
