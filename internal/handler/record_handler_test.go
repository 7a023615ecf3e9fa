package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPI-Manager/TPI-Manager/internal/middleware"
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/realtime"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	"github.com/TPI-Manager/TPI-Manager/internal/service"
	"github.com/TPI-Manager/TPI-Manager/internal/status"
)

type recordRepoStub struct {
	records map[string]map[string]*models.Record
	nextID  int
}

func newRecordRepoStub() *recordRepoStub {
	return &recordRepoStub{records: make(map[string]map[string]*models.Record)}
}

func stubScope(rec *models.Record) string {
	parts := []string{}
	for _, p := range []string{rec.Department, rec.Semester, rec.Shift} {
		if p == "" {
			break
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}

func (r *recordRepoStub) Create(ctx context.Context, rec *models.Record) error {
	r.nextID++
	rec.ID = fmt.Sprintf("r%d", r.nextID)
	scope := stubScope(rec)
	if r.records[scope] == nil {
		r.records[scope] = make(map[string]*models.Record)
	}
	clone := *rec
	r.records[scope][rec.ID] = &clone
	return nil
}

func (r *recordRepoStub) Update(ctx context.Context, rec *models.Record) error {
	clone := *rec
	r.records[stubScope(rec)][rec.ID] = &clone
	return nil
}

func (r *recordRepoStub) Find(ctx context.Context, scope, id string) (*models.Record, error) {
	if rec, ok := r.records[scope][id]; ok {
		clone := *rec
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *recordRepoStub) List(ctx context.Context, scope string) ([]models.Record, error) {
	out := make([]models.Record, 0)
	for _, rec := range r.records[scope] {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *recordRepoStub) Delete(ctx context.Context, scope, id string) error {
	if _, ok := r.records[scope][id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.records[scope], id)
	return nil
}

func newEventRouter(repo *recordRepoStub, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewRecordService(repo, realtime.KindEvents, true, status.NewEvaluator(true), nil, nil, nil)
	h := NewRecordHandler(svc, true, "events")

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	h.Register(r.Group("/events"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRecordHandlerCreateAndList(t *testing.T) {
	repo := newRecordRepoStub()
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, FullName: "Teacher One"}
	r := newEventRouter(repo, teacher)

	w := postJSON(t, r, "/events", service.CreateRecordRequest{
		Title:      "Robotics club",
		Department: "CST",
		Semester:   "3rd",
		Shift:      "Morning",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data models.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, models.StatusActive, created.Data.Status)

	req := httptest.NewRequest(http.MethodGet, "/events/CST/3rd/Morning", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Data []models.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "Robotics club", listed.Data[0].Title)
}

func TestRecordHandlerCreateRejectsStudents(t *testing.T) {
	student := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, FullName: "Student One"}
	r := newEventRouter(newRecordRepoStub(), student)

	w := postJSON(t, r, "/events", service.CreateRecordRequest{
		Title:      "Not allowed",
		Department: "CST",
		Semester:   "3rd",
		Shift:      "Morning",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordHandlerCreateInvalidBody(t *testing.T) {
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	r := newEventRouter(newRecordRepoStub(), teacher)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandlerDeleteNotFound(t *testing.T) {
	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}
	r := newEventRouter(newRecordRepoStub(), admin)

	req := httptest.NewRequest(http.MethodDelete, "/events/CST/3rd/Morning/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandlerExportUnknownFormat(t *testing.T) {
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	r := newEventRouter(newRecordRepoStub(), teacher)

	req := httptest.NewRequest(http.MethodGet, "/events/CST/3rd/Morning/export?format=xlsx", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
