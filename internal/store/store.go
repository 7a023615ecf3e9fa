// Package store provides the document store every portal feature persists
// through. One interface, three interchangeable backends (Postgres, flat JSON
// files, Redis) selected by configuration, so no feature needs a parallel
// code path per backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is a scoped JSON document store. A document lives at
// (collection, scope, id); scope is an optional partition path such as
// "CST/3rd/Morning" and may be empty for global collections. Listing with an
// empty scope returns every document in the collection.
//
// Writes are last-write-wins; no multi-document transactions are offered and
// none are needed by the portal.
type Store interface {
	Get(ctx context.Context, collection, scope, id string) ([]byte, error)
	Put(ctx context.Context, collection, scope, id string, doc []byte) error
	Delete(ctx context.Context, collection, scope, id string) error
	List(ctx context.Context, collection, scope string) ([][]byte, error)
}

// Collections used across the portal.
const (
	CollectionUsers         = "users"
	CollectionTokens        = "tokens"
	CollectionAudit         = "audit"
	CollectionAnnouncements = "announcements"
	CollectionEvents        = "events"
	CollectionSchedules     = "schedules"
	CollectionChat          = "chat"
	CollectionQuestions     = "questions"
)

// validateKey rejects path metacharacters in key parts so that backends
// building filesystem paths or key strings cannot be escaped.
func validateKey(collection, scope, id string) error {
	// Collection and id are single segments; only scope may carry slashes.
	for _, part := range []string{collection, id} {
		if strings.Contains(part, "/") {
			return fmt.Errorf("invalid key segment %q", part)
		}
	}
	for _, part := range append([]string{collection, id}, strings.Split(scope, "/")...) {
		if part == ".." || strings.ContainsAny(part, `\`) {
			return fmt.Errorf("invalid key segment %q", part)
		}
	}
	if collection == "" {
		return fmt.Errorf("collection required")
	}
	return nil
}
