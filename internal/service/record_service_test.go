package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	"github.com/TPI-Manager/TPI-Manager/internal/status"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
)

type mockRecordRepo struct {
	records map[string]map[string]*models.Record
	listErr error
	nextID  int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]map[string]*models.Record)}
}

func mockRecordScope(rec *models.Record) string {
	parts := []string{}
	for _, p := range []string{rec.Department, rec.Semester, rec.Shift} {
		if p == "" {
			break
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}

func (m *mockRecordRepo) Create(ctx context.Context, rec *models.Record) error {
	m.nextID++
	rec.ID = fmt.Sprintf("r%d", m.nextID)
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	scope := mockRecordScope(rec)
	if m.records[scope] == nil {
		m.records[scope] = make(map[string]*models.Record)
	}
	clone := *rec
	m.records[scope][rec.ID] = &clone
	return nil
}

func (m *mockRecordRepo) Update(ctx context.Context, rec *models.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	clone := *rec
	m.records[mockRecordScope(rec)][rec.ID] = &clone
	return nil
}

func (m *mockRecordRepo) Find(ctx context.Context, scope, id string) (*models.Record, error) {
	if rec, ok := m.records[scope][id]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockRecordRepo) List(ctx context.Context, scope string) ([]models.Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Record
	for s, bucket := range m.records {
		if scope != "" && s != scope {
			continue
		}
		for _, rec := range bucket {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Delete(ctx context.Context, scope, id string) error {
	if _, ok := m.records[scope][id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.records[scope], id)
	return nil
}

type captureNotifier struct {
	events []realtime.Event
	topics []realtime.Topic
}

func (n *captureNotifier) Publish(ctx context.Context, topic realtime.Topic, event realtime.Event) error {
	n.topics = append(n.topics, topic)
	n.events = append(n.events, event)
	return nil
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, FullName: "Teacher One"}
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, FullName: "Student One"}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin, FullName: "Admin"}
}

func newEventService(repo *mockRecordRepo, notifier realtime.Notifier) *RecordService {
	return NewRecordService(repo, realtime.KindEvents, true, status.NewEvaluator(true), notifier, validator.New(), zap.NewNop())
}

func TestRecordCreateRequiresPublisherRole(t *testing.T) {
	svc := newEventService(newMockRecordRepo(), nil)

	_, err := svc.Create(context.Background(), studentClaims(), CreateRecordRequest{Title: "Exam", Department: "CST"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRecordCreatePublishesEvent(t *testing.T) {
	notifier := &captureNotifier{}
	svc := newEventService(newMockRecordRepo(), notifier)

	rec, err := svc.Create(context.Background(), teacherClaims(), CreateRecordRequest{
		Title:      "Midterm",
		Department: "CST",
		Semester:   "3rd",
		Shift:      "Morning",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", rec.CreatorID)
	assert.Equal(t, "Teacher One", rec.CreatorName)
	assert.Equal(t, models.StatusActive, rec.Status)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, realtime.ActionCreate, notifier.events[0].Action)
	assert.Equal(t, "events/CST/3rd/Morning", notifier.topics[0].String())
}

func TestRecordCreateScopedNeedsDepartment(t *testing.T) {
	svc := newEventService(newMockRecordRepo(), nil)

	_, err := svc.Create(context.Background(), teacherClaims(), CreateRecordRequest{Title: "Exam"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordListDerivesStatus(t *testing.T) {
	repo := newMockRecordRepo()
	svc := newEventService(repo, nil)

	start := time.Now().Add(time.Hour).Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	_, err := svc.Create(context.Background(), teacherClaims(), CreateRecordRequest{
		Title: "Seminar", Department: "CST", Semester: "3rd", Shift: "Morning",
		StartTime: start, EndTime: end,
	})
	require.NoError(t, err)

	records, err := svc.List(context.Background(), "CST", "3rd", "Morning")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StatusUpcoming, records[0].Status)
	require.NotNil(t, records[0].TimeToStart)
	assert.Greater(t, *records[0].TimeToStart, int64(0))
}

func TestRecordListDegradesToEmptyOnStorageFailure(t *testing.T) {
	repo := newMockRecordRepo()
	repo.listErr = fmt.Errorf("backend down")
	svc := newEventService(repo, nil)

	records, err := svc.List(context.Background(), "CST", "3rd", "Morning")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordDeleteOwnership(t *testing.T) {
	repo := newMockRecordRepo()
	notifier := &captureNotifier{}
	svc := newEventService(repo, notifier)

	rec, err := svc.Create(context.Background(), teacherClaims(), CreateRecordRequest{Title: "Exam", Department: "CST", Semester: "3rd", Shift: "Morning"})
	require.NoError(t, err)

	otherTeacher := &models.JWTClaims{UserID: "t2", Role: models.RoleTeacher, FullName: "Other"}
	err = svc.Delete(context.Background(), otherTeacher, "CST", "3rd", "Morning", rec.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Admin bypasses ownership.
	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "CST", "3rd", "Morning", rec.ID))
	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, realtime.ActionDelete, last.Action)
	assert.Equal(t, rec.ID, last.ID)
}

func TestRecordDeleteNotFound(t *testing.T) {
	svc := newEventService(newMockRecordRepo(), nil)

	err := svc.Delete(context.Background(), adminClaims(), "CST", "3rd", "Morning", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordExportCSV(t *testing.T) {
	svc := newEventService(newMockRecordRepo(), nil)

	_, err := svc.Create(context.Background(), teacherClaims(), CreateRecordRequest{
		Title: "Math", Days: []string{"Monday"}, StartTime: "09:00", EndTime: "10:00",
		Department: "CST", Semester: "3rd", Shift: "Morning",
	})
	require.NoError(t, err)

	out, contentType, err := svc.Export(context.Background(), "CST", "3rd", "Morning", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(out), "Math")
	assert.Contains(t, string(out), "Monday")

	_, _, err = svc.Export(context.Background(), "CST", "3rd", "Morning", "xlsx")
	require.Error(t, err)
}

func TestSweepExpiredOnlyRetiresAbsoluteWindows(t *testing.T) {
	repo := newMockRecordRepo()
	notifier := &captureNotifier{}
	svc := newEventService(repo, notifier)
	ctx := context.Background()

	_, err := svc.Create(ctx, teacherClaims(), CreateRecordRequest{
		Title: "One-off past", Department: "CST", Semester: "3rd", Shift: "Morning",
		StartTime: time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
		EndTime:   time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	// Recurring daily window stays even when today's slot has passed.
	_, err = svc.Create(ctx, teacherClaims(), CreateRecordRequest{
		Title: "Daily class", Department: "CST", Semester: "3rd", Shift: "Morning",
		StartTime: "00:01", EndTime: "00:02",
	})
	require.NoError(t, err)

	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := svc.List(ctx, "CST", "3rd", "Morning")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Daily class", records[0].Title)
}
