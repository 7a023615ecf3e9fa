package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
)

type mockQuestionRepo struct {
	questions map[string]map[string]*models.Question
	listErr   error
	nextID    int
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{questions: make(map[string]map[string]*models.Question)}
}

func (m *mockQuestionRepo) Create(ctx context.Context, q *models.Question) error {
	m.nextID++
	q.ID = fmt.Sprintf("q%d", m.nextID)
	if q.Answers == nil {
		q.Answers = []models.Answer{}
	}
	if m.questions[q.Department] == nil {
		m.questions[q.Department] = make(map[string]*models.Question)
	}
	clone := *q
	m.questions[q.Department][q.ID] = &clone
	return nil
}

func (m *mockQuestionRepo) Update(ctx context.Context, q *models.Question) error {
	clone := *q
	m.questions[q.Department][q.ID] = &clone
	return nil
}

func (m *mockQuestionRepo) Find(ctx context.Context, department, id string) (*models.Question, error) {
	if q, ok := m.questions[department][id]; ok {
		clone := *q
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockQuestionRepo) List(ctx context.Context, department string) ([]models.Question, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Question
	for dept, byID := range m.questions {
		if department != "" && dept != department {
			continue
		}
		for _, q := range byID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *mockQuestionRepo) Delete(ctx context.Context, department, id string) error {
	if _, ok := m.questions[department][id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.questions[department], id)
	return nil
}

func newAskTestService(repo *mockQuestionRepo, notifier realtime.Notifier) *AskService {
	return NewAskService(repo, notifier, validator.New(), zap.NewNop())
}

func TestAskPublishesQuestion(t *testing.T) {
	repo := newMockQuestionRepo()
	notifier := &captureNotifier{}
	svc := newAskTestService(repo, notifier)

	q, err := svc.Ask(context.Background(), studentClaims(), AskQuestionRequest{
		Department: "CST",
		Text:       "when is the midterm?",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", q.SenderID)
	assert.NotEmpty(t, q.ID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, realtime.ActionCreate, notifier.events[0].Action)
	assert.Equal(t, "ask/CST//", notifier.topics[0].String())
}

func TestAskRejectsMissingFields(t *testing.T) {
	svc := newAskTestService(newMockQuestionRepo(), nil)
	ctx := context.Background()

	_, err := svc.Ask(ctx, studentClaims(), AskQuestionRequest{Text: "no department"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Ask(ctx, studentClaims(), AskQuestionRequest{Department: "CST"})
	require.Error(t, err)
}

func TestAskListScopesStudentsToDepartment(t *testing.T) {
	repo := newMockQuestionRepo()
	svc := newAskTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.Ask(ctx, studentClaims(), AskQuestionRequest{Department: "CST", Text: "one"})
	require.NoError(t, err)
	_, err = svc.Ask(ctx, studentClaims(), AskQuestionRequest{Department: "EEE", Text: "two"})
	require.NoError(t, err)

	// A student must name a department.
	_, err = svc.List(ctx, studentClaims(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	scoped, err := svc.List(ctx, studentClaims(), "CST")
	require.NoError(t, err)
	require.Len(t, scoped, 1)

	// Teachers may read every board at once.
	all, err := svc.List(ctx, teacherClaims(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAskListDegradesToEmptyOnStorageFailure(t *testing.T) {
	repo := newMockQuestionRepo()
	repo.listErr = errors.New("backend down")
	svc := newAskTestService(repo, nil)

	questions, err := svc.List(context.Background(), teacherClaims(), "CST")
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestAskAnswerAppends(t *testing.T) {
	repo := newMockQuestionRepo()
	notifier := &captureNotifier{}
	svc := newAskTestService(repo, notifier)
	ctx := context.Background()

	q, err := svc.Ask(ctx, studentClaims(), AskQuestionRequest{Department: "CST", Text: "how long is the break?"})
	require.NoError(t, err)

	answered, err := svc.Answer(ctx, teacherClaims(), "CST", q.ID, "two weeks")
	require.NoError(t, err)
	require.Len(t, answered.Answers, 1)
	assert.Equal(t, "t1", answered.Answers[0].SenderID)
	assert.Equal(t, "two weeks", answered.Answers[0].Text)

	_, err = svc.Answer(ctx, teacherClaims(), "CST", q.ID, "   ")
	require.Error(t, err)

	_, err = svc.Answer(ctx, teacherClaims(), "CST", "missing", "text")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAskDeleteOwnership(t *testing.T) {
	repo := newMockQuestionRepo()
	notifier := &captureNotifier{}
	svc := newAskTestService(repo, notifier)
	ctx := context.Background()

	q, err := svc.Ask(ctx, studentClaims(), AskQuestionRequest{Department: "CST", Text: "delete me"})
	require.NoError(t, err)

	other := &models.JWTClaims{UserID: "s2", Role: models.RoleStudent, FullName: "Other"}
	err = svc.Delete(ctx, other, "CST", q.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, studentClaims(), "CST", q.ID))

	last := notifier.events[len(notifier.events)-1]
	assert.Equal(t, realtime.ActionDelete, last.Action)
	assert.Equal(t, q.ID, last.ID)

	err = svc.Delete(ctx, studentClaims(), "CST", q.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
