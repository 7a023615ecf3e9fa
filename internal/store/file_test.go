package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "chat", "department/CST/3rd/Morning", "m1", []byte(`{"id":"m1"}`)))

	doc, err := s.Get(ctx, "chat", "department/CST/3rd/Morning", "m1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1"}`, string(doc))

	require.NoError(t, s.Delete(ctx, "chat", "department/CST/3rd/Morning", "m1"))
	_, err = s.Get(ctx, "chat", "department/CST/3rd/Morning", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreGetMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "users", "student", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDeleteMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = s.Delete(context.Background(), "users", "student", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreListScoped(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "events", "CST/3rd/Morning", "e1", []byte(`{"id":"e1"}`)))
	require.NoError(t, s.Put(ctx, "events", "CST/3rd/Morning", "e2", []byte(`{"id":"e2"}`)))
	require.NoError(t, s.Put(ctx, "events", "EEE/5th/Day", "e3", []byte(`{"id":"e3"}`)))

	scoped, err := s.List(ctx, "events", "CST/3rd/Morning")
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	all, err := s.List(ctx, "events", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFileStoreListEmptyCollection(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	docs, err := s.List(context.Background(), "questions", "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), "users", "..", "u1", []byte(`{}`))
	assert.Error(t, err)
	err = s.Put(context.Background(), "users", "student", "../escape", []byte(`{}`))
	assert.Error(t, err)
}
