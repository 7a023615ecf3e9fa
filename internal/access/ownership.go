// Package access holds the server-side authorization predicates. Every
// mutation endpoint re-derives the decision from the authenticated claims;
// client-supplied role or ownership flags are never trusted.
package access

import (
	"github.com/TPI-Manager/TPI-Manager/internal/models"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
)

// CanDelete reports whether the acting user may delete a record owned by
// ownerID. Admins may delete anything; everyone else only their own records.
func CanDelete(claims *models.JWTClaims, ownerID string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin {
		return nil
	}
	if ownerID != "" && claims.UserID == ownerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
}

// CanModify mirrors CanDelete for edits; the ownership rule is the same.
func CanModify(claims *models.JWTClaims, ownerID string) error {
	return CanDelete(claims, ownerID)
}

// CanPublish reports whether the acting user may create announcements,
// events, or schedule entries. Students may not.
func CanPublish(claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unauthorized")
	}
}
