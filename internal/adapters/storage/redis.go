package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

var redisKeyPrefix = "kv/"

// RedisStore хранит каждое пространство имен в отдельном hash-ключе Redis.
type RedisStore struct {
	Client *redis.Client
}

var _ ports.KVStore = (*RedisStore)(nil)

// NewRedisStore подключается к Redis и проверяет соединение.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{Client: rdb}, nil
}

func redisHashKey(namespace string) string {
	return redisKeyPrefix + namespace
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := s.Client.HGet(ctx, redisHashKey(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s/%s: %w", domain.ErrPersistence, namespace, key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := s.Client.HSet(ctx, redisHashKey(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("%w: put %s/%s: %w", domain.ErrPersistence, namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := s.Client.HDel(ctx, redisHashKey(namespace), key).Err(); err != nil {
		return fmt.Errorf("%w: delete %s/%s: %w", domain.ErrPersistence, namespace, key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, namespace, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	seen := make(map[string]struct{})
	match := escapeGlob(prefix) + "*"
	for {
		page, next, err := s.Client.HScan(ctx, redisHashKey(namespace), cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: keys %s: %w", domain.ErrPersistence, namespace, err)
		}
		keys = appendScanFields(keys, seen, page)
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

// appendScanFields добавляет поля страницы HSCAN (чередующиеся пары поле/значение).
// HSCAN может вернуть одно поле на нескольких страницах, поэтому повторы отбрасываются.
func appendScanFields(keys []string, seen map[string]struct{}, page []string) []string {
	for i := 0; i < len(page); i += 2 {
		field := page[i]
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		keys = append(keys, field)
	}
	return keys
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

// escapeGlob экранирует спецсимволы шаблона Redis MATCH.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
