package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKey = "hanabi:tables"

// RedisStore keeps every record as one field of a hash.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Save(ctx context.Context, id uint64, data []byte) error {
	if err := s.client.HSet(ctx, redisKey, strconv.FormatUint(id, 10), data).Err(); err != nil {
		return fmt.Errorf("failed to save table %d: %w", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	fields, err := s.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	records := make([]Record, 0, len(fields))
	for field, value := range fields {
		id, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected field %q in %s", field, redisKey)
		}
		records = append(records, Record{ID: id, Data: []byte(value)})
	}
	sortRecords(records)
	return records, nil
}

func (s *RedisStore) Delete(ctx context.Context, id uint64) error {
	n, err := s.client.HDel(ctx, redisKey, strconv.FormatUint(id, 10)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete table %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
