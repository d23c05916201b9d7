package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

// CooldownRepository хранит время последних отправок по категориям под ключом "{chat_id}".
type CooldownRepository struct {
	store ports.KVStore
}

// NewCooldownRepository создает новый экземпляр CooldownRepository.
func NewCooldownRepository(store ports.KVStore) *CooldownRepository {
	return &CooldownRepository{store: store}
}

// Load возвращает карту категория → время последней отправки. Пустая карта, если записей нет.
func (r *CooldownRepository) Load(ctx context.Context, chatID domain.ChatID) (map[domain.Category]time.Time, error) {
	data, ok, err := r.store.Get(ctx, NamespaceSchedule, string(chatID))
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Category]time.Time)
	if !ok {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode schedule %s: %w", domain.ErrPersistence, chatID, err)
	}
	return out, nil
}

// Save перезаписывает карту отправок чата.
func (r *CooldownRepository) Save(ctx context.Context, chatID domain.ChatID, sent map[domain.Category]time.Time) error {
	data, err := json.Marshal(sent)
	if err != nil {
		return fmt.Errorf("%w: encode schedule: %w", domain.ErrPersistence, err)
	}
	return r.store.Put(ctx, NamespaceSchedule, string(chatID), data)
}

// Delete удаляет все отметки чата.
func (r *CooldownRepository) Delete(ctx context.Context, chatID domain.ChatID) error {
	return r.store.Delete(ctx, NamespaceSchedule, string(chatID))
}
