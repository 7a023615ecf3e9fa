package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore persists each document as a JSON file under
// baseDir/collection/scope/id.json. Useful for single-node deployments with
// no database at hand.
type FileStore struct {
	baseDir string
}

// NewFileStore ensures the base directory exists.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(collection, scope, id string) string {
	parts := []string{s.baseDir, collection}
	if scope != "" {
		parts = append(parts, strings.Split(scope, "/")...)
	}
	parts = append(parts, id+".json")
	return filepath.Join(parts...)
}

// Get reads a document file.
func (s *FileStore) Get(ctx context.Context, collection, scope, id string) ([]byte, error) {
	if err := validateKey(collection, scope, id); err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(s.path(collection, scope, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

// Put writes a document file, creating parent directories as needed.
func (s *FileStore) Put(ctx context.Context, collection, scope, id string, doc []byte) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	path := s.path(collection, scope, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare document directory: %w", err)
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Delete removes a document file.
func (s *FileStore) Delete(ctx context.Context, collection, scope, id string) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	if err := os.Remove(s.path(collection, scope, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// List walks the collection (or scope) directory collecting documents.
// A missing directory is an empty collection, not an error.
func (s *FileStore) List(ctx context.Context, collection, scope string) ([][]byte, error) {
	if err := validateKey(collection, scope, "-"); err != nil {
		return nil, err
	}
	root := filepath.Join(s.baseDir, collection)
	if scope != "" {
		root = filepath.Join(append([]string{root}, strings.Split(scope, "/")...)...)
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk documents: %w", err)
	}
	sort.Strings(paths)

	docs := make([][]byte, 0, len(paths))
	for _, path := range paths {
		doc, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
