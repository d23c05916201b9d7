// Package cache кэширует ответы платформы о правах администратора.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

// AdminCache — ports.Authorizer с TTL-кэшем поверх другого Authorizer.
// Ошибки не кэшируются.
type AdminCache struct {
	next  ports.Authorizer
	cache *expirable.LRU[string, bool]
}

// NewAdminCache создает новый экземпляр AdminCache.
func NewAdminCache(next ports.Authorizer, size int, ttl time.Duration) *AdminCache {
	return &AdminCache{
		next:  next,
		cache: expirable.NewLRU[string, bool](size, nil, ttl),
	}
}

func adminKey(chatID domain.ChatID, userID domain.UserID) string {
	return string(chatID) + ":" + string(userID)
}

// IsAdmin возвращает ответ из кэша или спрашивает платформу.
func (c *AdminCache) IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	key := adminKey(chatID, userID)
	if admin, ok := c.cache.Get(key); ok {
		return admin, nil
	}

	admin, err := c.next.IsAdmin(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	c.cache.Add(key, admin)
	return admin, nil
}

// Invalidate сбрасывает ответ для пользователя, например после смены его прав.
func (c *AdminCache) Invalidate(chatID domain.ChatID, userID domain.UserID) {
	c.cache.Remove(adminKey(chatID, userID))
}

// Len возвращает число закэшированных ответов.
func (c *AdminCache) Len() int {
	return c.cache.Len()
}
