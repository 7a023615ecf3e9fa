package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/access"
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	"github.com/TPI-Manager/TPI-Manager/internal/status"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/export"
)

type recordRepository interface {
	Create(ctx context.Context, rec *models.Record) error
	Update(ctx context.Context, rec *models.Record) error
	Find(ctx context.Context, scope, id string) (*models.Record, error)
	List(ctx context.Context, scope string) ([]models.Record, error)
	Delete(ctx context.Context, scope, id string) error
}

// CreateRecordRequest carries the writable fields of a record.
type CreateRecordRequest struct {
	Title      string   `json:"title" validate:"required"`
	Body       string   `json:"body"`
	Days       []string `json:"days"`
	StartTime  string   `json:"startTime"`
	EndTime    string   `json:"endTime"`
	Department string   `json:"department"`
	Semester   string   `json:"semester"`
	Shift      string   `json:"shift"`
}

// RecordService serves one record collection: announcements, events or
// schedules. It derives status on every read and publishes realtime events
// on every write.
type RecordService struct {
	repo      recordRepository
	kind      realtime.TopicKind
	scoped    bool
	evaluator status.Evaluator
	notifier  realtime.Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService constructs a RecordService. scoped selects whether the
// collection is partitioned by department/semester/shift.
func NewRecordService(repo recordRepository, kind realtime.TopicKind, scoped bool, evaluator status.Evaluator, notifier realtime.Notifier, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RecordService{
		repo:      repo,
		kind:      kind,
		scoped:    scoped,
		evaluator: evaluator,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

func (s *RecordService) topic(department, semester, shift string) realtime.Topic {
	if !s.scoped {
		return realtime.Topic{Kind: s.kind}
	}
	return realtime.Topic{Kind: s.kind, Department: department, Semester: semester, Shift: shift}
}

func (s *RecordService) scope(department, semester, shift string) string {
	return s.topic(department, semester, shift).Scope()
}

// Create validates, persists and announces a new record. Only admins and
// teachers may publish.
func (s *RecordService) Create(ctx context.Context, claims *models.JWTClaims, req CreateRecordRequest) (*models.Record, error) {
	if err := access.CanPublish(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	if s.scoped && req.Department == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department is required")
	}

	rec := &models.Record{
		Title:       strings.TrimSpace(req.Title),
		Body:        req.Body,
		Days:        req.Days,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatorID:   claims.UserID,
		CreatorName: claims.FullName,
	}
	if s.scoped {
		rec.Department = req.Department
		rec.Semester = req.Semester
		rec.Shift = req.Shift
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store record")
	}

	s.evaluator.Apply(time.Now(), rec)
	s.publish(ctx, rec, realtime.Event{Action: realtime.ActionCreate, Data: rec})
	return rec, nil
}

// Update modifies a record the caller owns (or any record for admins).
func (s *RecordService) Update(ctx context.Context, claims *models.JWTClaims, department, semester, shift, id string, req CreateRecordRequest) (*models.Record, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	scope := s.scope(department, semester, shift)
	rec, err := s.repo.Find(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load record")
	}
	if err := access.CanModify(claims, rec.CreatorID); err != nil {
		return nil, err
	}

	rec.Title = strings.TrimSpace(req.Title)
	rec.Body = req.Body
	rec.Days = req.Days
	rec.StartTime = req.StartTime
	rec.EndTime = req.EndTime
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to update record")
	}

	s.evaluator.Apply(time.Now(), rec)
	s.publish(ctx, rec, realtime.Event{Action: realtime.ActionUpdate, Data: rec})
	return rec, nil
}

// List returns the records of a scope with status derived at call time. A
// storage failure degrades to an empty list so read-heavy screens stay up.
func (s *RecordService) List(ctx context.Context, department, semester, shift string) ([]models.Record, error) {
	records, err := s.repo.List(ctx, s.scope(department, semester, shift))
	if err != nil {
		s.logger.Error("record listing degraded to empty", zap.String("kind", string(s.kind)), zap.Error(err))
		return []models.Record{}, nil
	}
	now := time.Now()
	for i := range records {
		s.evaluator.Apply(now, &records[i])
	}
	return records, nil
}

// Delete removes a record subject to the ownership rule and announces the
// deletion.
func (s *RecordService) Delete(ctx context.Context, claims *models.JWTClaims, department, semester, shift, id string) error {
	scope := s.scope(department, semester, shift)
	rec, err := s.repo.Find(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to load record")
	}
	if err := access.CanDelete(claims, rec.CreatorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to delete record")
	}

	s.publish(ctx, rec, realtime.Event{Action: realtime.ActionDelete, ID: id})
	return nil
}

// Export renders the scope's records as csv or pdf.
func (s *RecordService) Export(ctx context.Context, department, semester, shift, format string) ([]byte, string, error) {
	records, err := s.List(ctx, department, semester, shift)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Title", "Days", "Start", "End", "Status", "Created By"},
	}
	for _, rec := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":      rec.Title,
			"Days":       strings.Join(rec.Days, ", "),
			"Start":      rec.StartTime,
			"End":        rec.EndTime,
			"Status":     string(rec.Status),
			"Created By": rec.CreatorName,
		})
	}

	switch format {
	case "csv":
		out, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "csv export failed")
		}
		return out, "text/csv", nil
	case "pdf":
		kind := string(s.kind)
		title := fmt.Sprintf("%s %s", strings.ToUpper(kind[:1])+kind[1:], s.scope(department, semester, shift))
		out, err := export.NewPDFExporter().Render(dataset, strings.TrimSpace(title))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "pdf export failed")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// SweepExpired deletes records whose end is an absolute timestamp in the
// past. Recurring daily windows are left alone; they come back tomorrow.
func (s *RecordService) SweepExpired(ctx context.Context) (int, error) {
	records, err := s.repo.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("sweep listing: %w", err)
	}

	now := time.Now()
	removed := 0
	for i := range records {
		rec := &records[i]
		if !status.AbsoluteEnd(rec.EndTime) {
			continue
		}
		s.evaluator.Apply(now, rec)
		if rec.Status != models.StatusExpired {
			continue
		}
		scope := s.scope(rec.Department, rec.Semester, rec.Shift)
		if err := s.repo.Delete(ctx, scope, rec.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			s.logger.Warn("sweep delete failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		removed++
		s.publish(ctx, rec, realtime.Event{Action: realtime.ActionDelete, ID: rec.ID})
	}
	if removed > 0 {
		s.logger.Info("swept expired records", zap.String("kind", string(s.kind)), zap.Int("removed", removed))
	}
	return removed, nil
}

func (s *RecordService) publish(ctx context.Context, rec *models.Record, event realtime.Event) {
	if s.notifier == nil {
		return
	}
	topic := s.topic(rec.Department, rec.Semester, rec.Shift)
	if err := s.notifier.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("realtime publish failed", zap.String("topic", topic.String()), zap.Error(err))
	}
}
