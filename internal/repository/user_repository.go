// Package repository maps domain models onto the document store. Each
// repository owns one collection and its scope layout; services never touch
// store keys directly.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/store"
)

// ErrNotFound is re-exported so services do not import the store package.
var ErrNotFound = store.ErrNotFound

// UserRepository persists accounts partitioned by role, plus refresh tokens
// and the audit trail.
type UserRepository struct {
	store store.Store
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

// FindByRole returns the user with the given id inside one role partition.
func (r *UserRepository) FindByRole(ctx context.Context, role models.UserRole, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, store.CollectionUsers, string(role), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by role: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// FindByID scans role partitions in privilege order and returns the first
// account with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, role := range models.Roles {
		user, err := r.FindByRole(ctx, role, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		return user, nil
	}
	return nil, store.ErrNotFound
}

// Create stores a new account in its role partition. Returns an error
// wrapping store semantics; callers check duplicates via FindByRole first.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionUsers, string(user.Role), user.ID, doc); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update overwrites an existing account document.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionUsers, string(user.Role), user.ID, doc); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListByRole returns every account in one role partition.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	docs, err := r.store.List(ctx, store.CollectionUsers, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		var user models.User
		if err := json.Unmarshal(doc, &user); err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateRefreshToken stores a refresh token document.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	doc, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionTokens, "", token.Token, doc); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks up a refresh token by its opaque value.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	doc, err := r.store.Get(ctx, store.CollectionTokens, "", token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	var rt models.RefreshToken
	if err := json.Unmarshal(doc, &rt); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a refresh token revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	rt, err := r.FindRefreshToken(ctx, token)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rt.Revoked = true
	rt.RevokedAt = &now
	doc, err := json.Marshal(rt)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	if err := r.store.Put(ctx, store.CollectionTokens, "", rt.Token, doc); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// CreateAuditLog appends an audit entry, partitioned by month.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}
	scope := entry.CreatedAt.UTC().Format("2006-01")
	if err := r.store.Put(ctx, store.CollectionAudit, scope, entry.ID, doc); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
