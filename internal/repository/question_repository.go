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

// QuestionRepository persists Q&A board entries, scoped by department.
type QuestionRepository struct {
	store store.Store
}

// NewQuestionRepository creates a new instance of QuestionRepository.
func NewQuestionRepository(s store.Store) *QuestionRepository {
	return &QuestionRepository{store: s}
}

// Create stores a new question, assigning id and creation time.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Answers == nil {
		q.Answers = []models.Answer{}
	}
	return r.put(ctx, q, "create question")
}

// Update overwrites a question document, typically after appending an answer.
func (r *QuestionRepository) Update(ctx context.Context, q *models.Question) error {
	return r.put(ctx, q, "update question")
}

func (r *QuestionRepository) put(ctx context.Context, q *models.Question, op string) error {
	doc, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode question: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionQuestions, q.Department, q.ID, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Find returns one question of a department.
func (r *QuestionRepository) Find(ctx context.Context, department, id string) (*models.Question, error) {
	doc, err := r.store.Get(ctx, store.CollectionQuestions, department, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	var q models.Question
	if err := json.Unmarshal(doc, &q); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}
	return &q, nil
}

// List returns questions newest first. An empty department lists the whole
// board across departments.
func (r *QuestionRepository) List(ctx context.Context, department string) ([]models.Question, error) {
	docs, err := r.store.List(ctx, store.CollectionQuestions, department)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions := make([]models.Question, 0, len(docs))
	for _, doc := range docs {
		var q models.Question
		if err := json.Unmarshal(doc, &q); err != nil {
			continue
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].CreatedAt.After(questions[j].CreatedAt)
	})
	return questions, nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, department, id string) error {
	if err := r.store.Delete(ctx, store.CollectionQuestions, department, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}
