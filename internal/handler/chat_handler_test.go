package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPI-Manager/TPI-Manager/internal/middleware"
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	"github.com/TPI-Manager/TPI-Manager/internal/service"
)

type chatRepoStub struct {
	messages map[string]map[string]*models.ChatMessage
	order    map[string][]string
	nextID   int
}

func newChatRepoStub() *chatRepoStub {
	return &chatRepoStub{
		messages: make(map[string]map[string]*models.ChatMessage),
		order:    make(map[string][]string),
	}
}

func stubRoomScope(msg *models.ChatMessage) string {
	return repository.RoomScope(msg.RoomType, msg.Department, msg.Semester, msg.Shift)
}

func (r *chatRepoStub) Create(ctx context.Context, msg *models.ChatMessage) error {
	r.nextID++
	msg.ID = fmt.Sprintf("m%d", r.nextID)
	scope := stubRoomScope(msg)
	if r.messages[scope] == nil {
		r.messages[scope] = make(map[string]*models.ChatMessage)
	}
	clone := *msg
	r.messages[scope][msg.ID] = &clone
	r.order[scope] = append(r.order[scope], msg.ID)
	return nil
}

func (r *chatRepoStub) Update(ctx context.Context, msg *models.ChatMessage) error {
	clone := *msg
	r.messages[stubRoomScope(msg)][msg.ID] = &clone
	return nil
}

func (r *chatRepoStub) Find(ctx context.Context, scope, id string) (*models.ChatMessage, error) {
	if msg, ok := r.messages[scope][id]; ok {
		clone := *msg
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *chatRepoStub) List(ctx context.Context, scope string, limit int) ([]models.ChatMessage, error) {
	ids := r.order[scope]
	if limit > 0 && len(ids) > limit {
		ids = ids[len(ids)-limit:]
	}
	out := make([]models.ChatMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.messages[scope][id])
	}
	return out, nil
}

func newChatRouter(repo *chatRepoStub, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewChatService(repo, nil, nil, nil, 0)
	h := NewChatHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	h.Register(r.Group("/chat"))
	return r
}

func TestChatHandlerClassRoomAddressing(t *testing.T) {
	repo := newChatRepoStub()
	student := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent, FullName: "Student One"}
	r := newChatRouter(repo, student)

	// Post into the class room.
	payload, err := json.Marshal(service.SendMessageRequest{
		Room: service.ChatRoom{Department: "CST", Semester: "3rd", Shift: "Morning"},
		Text: "hello class",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data models.ChatMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	// History addresses the same room with query parameters.
	req = httptest.NewRequest(http.MethodGet, "/chat/CST?semester=3rd&shift=Morning", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var history struct {
		Data []models.ChatMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Data, 1)
	assert.Equal(t, "hello class", history.Data[0].Text)

	// The department-wide room stays separate.
	req = httptest.NewRequest(http.MethodGet, "/chat/CST", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Empty(t, history.Data)

	// Message operations use the identical convention.
	edit, err := json.Marshal(map[string]string{"text": "edited"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut,
		"/chat/CST/messages/"+created.Data.ID+"?semester=3rd&shift=Morning", bytes.NewReader(edit))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var edited struct {
		Data models.ChatMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &edited))
	assert.Equal(t, "edited", edited.Data.Text)
}
