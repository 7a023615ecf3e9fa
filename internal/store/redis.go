package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each (collection, scope) partition in a Redis hash keyed
// "doc:{collection}:{scope}", with document ids as hash fields.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(collection, scope string) string {
	return "doc:" + collection + ":" + scope
}

// Get fetches one document field.
func (s *RedisStore) Get(ctx context.Context, collection, scope, id string) ([]byte, error) {
	if err := validateKey(collection, scope, id); err != nil {
		return nil, err
	}
	doc, err := s.client.HGet(ctx, redisKey(collection, scope), id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return doc, nil
}

// Put writes one document field.
func (s *RedisStore) Put(ctx context.Context, collection, scope, id string, doc []byte) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, redisKey(collection, scope), id, doc).Err(); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Delete removes one document field.
func (s *RedisStore) Delete(ctx context.Context, collection, scope, id string) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	removed, err := s.client.HDel(ctx, redisKey(collection, scope), id).Result()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every document in a scope, or across all scopes of the
// collection when scope is empty (scanning "doc:{collection}:*").
func (s *RedisStore) List(ctx context.Context, collection, scope string) ([][]byte, error) {
	if err := validateKey(collection, scope, "-"); err != nil {
		return nil, err
	}
	if scope != "" {
		return s.listHash(ctx, redisKey(collection, scope))
	}

	var docs [][]byte
	iter := s.client.Scan(ctx, 0, "doc:"+collection+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !strings.HasPrefix(key, "doc:"+collection+":") {
			continue
		}
		partition, err := s.listHash(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, partition...)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return docs, nil
}

func (s *RedisStore) listHash(ctx context.Context, key string) ([][]byte, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	docs := make([][]byte, 0, len(fields))
	for _, doc := range fields {
		docs = append(docs, []byte(doc))
	}
	return docs, nil
}
