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

type questionRepository interface {
	Create(ctx context.Context, q *models.Question) error
	Update(ctx context.Context, q *models.Question) error
	Find(ctx context.Context, department, id string) (*models.Question, error)
	List(ctx context.Context, department string) ([]models.Question, error)
	Delete(ctx context.Context, department, id string) error
}

// AskQuestionRequest posts a question to a department board.
type AskQuestionRequest struct {
	Department string `json:"department" validate:"required"`
	Text       string `json:"text" validate:"required"`
	Image      string `json:"image"`
}

// AskService implements the departmental Q&A board.
type AskService struct {
	repo      questionRepository
	notifier  realtime.Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAskService constructs an AskService.
func NewAskService(repo questionRepository, notifier realtime.Notifier, validate *validator.Validate, logger *zap.Logger) *AskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AskService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Ask posts a new question.
func (s *AskService) Ask(ctx context.Context, claims *models.JWTClaims, req AskQuestionRequest) (*models.Question, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}

	q := &models.Question{
		Department: req.Department,
		SenderID:   claims.UserID,
		SenderName: claims.FullName,
		Text:       strings.TrimSpace(req.Text),
		Image:      req.Image,
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store question")
	}

	s.publish(ctx, q.Department, realtime.Event{Action: realtime.ActionCreate, Data: q})
	return q, nil
}

// List returns a department's questions, newest first. Teachers and admins
// may pass an empty department to see every board at once; students cannot.
// Storage failure degrades to an empty list.
func (s *AskService) List(ctx context.Context, claims *models.JWTClaims, department string) ([]models.Question, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if department == "" && claims.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department is required")
	}
	questions, err := s.repo.List(ctx, department)
	if err != nil {
		s.logger.Error("question listing degraded to empty", zap.String("department", department), zap.Error(err))
		return []models.Question{}, nil
	}
	return questions, nil
}

// Answer appends an answer to a question.
func (s *AskService) Answer(ctx context.Context, claims *models.JWTClaims, department, id, text string) (*models.Question, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer text must not be empty")
	}

	q, err := s.load(ctx, department, id)
	if err != nil {
		return nil, err
	}

	q.Answers = append(q.Answers, models.Answer{
		ID:         uuid.NewString(),
		SenderID:   claims.UserID,
		SenderName: claims.FullName,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	})
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store answer")
	}

	s.publish(ctx, q.Department, realtime.Event{Action: realtime.ActionUpdate, Data: q})
	return q, nil
}

// Delete removes a question subject to the ownership rule.
func (s *AskService) Delete(ctx context.Context, claims *models.JWTClaims, department, id string) error {
	q, err := s.load(ctx, department, id)
	if err != nil {
		return err
	}
	if err := access.CanDelete(claims, q.SenderID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, department, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete question")
	}

	s.publish(ctx, q.Department, realtime.Event{Action: realtime.ActionDelete, ID: id})
	return nil
}

func (s *AskService) load(ctx context.Context, department, id string) (*models.Question, error) {
	q, err := s.repo.Find(ctx, department, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load question")
	}
	return q, nil
}

func (s *AskService) publish(ctx context.Context, department string, event realtime.Event) {
	if s.notifier == nil {
		return
	}
	topic := realtime.Topic{Kind: realtime.KindAsk, Department: department}
	if err := s.notifier.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("realtime publish failed", zap.String("topic", topic.String()), zap.Error(err))
	}
}
