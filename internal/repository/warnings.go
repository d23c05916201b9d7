package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

// WarningRepository хранит записи предупреждений под ключом "{chat_id}:{user_id}".
type WarningRepository struct {
	store ports.KVStore
}

// NewWarningRepository создает новый экземпляр WarningRepository.
func NewWarningRepository(store ports.KVStore) *WarningRepository {
	return &WarningRepository{store: store}
}

func warningKey(chatID domain.ChatID, userID domain.UserID) string {
	return string(chatID) + ":" + string(userID)
}

// Load возвращает запись или nil, если предупреждений еще не было.
func (r *WarningRepository) Load(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (*domain.WarningRecord, error) {
	data, ok, err := r.store.Get(ctx, NamespaceWarnings, warningKey(chatID, userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rec domain.WarningRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode warning record %s: %w", domain.ErrPersistence, warningKey(chatID, userID), err)
	}
	// Ключ — источник истины для идентификаторов.
	rec.ChatID, rec.UserID = chatID, userID
	return &rec, nil
}

// Save сохраняет запись целиком.
func (r *WarningRepository) Save(ctx context.Context, rec *domain.WarningRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode warning record: %w", domain.ErrPersistence, err)
	}
	return r.store.Put(ctx, NamespaceWarnings, warningKey(rec.ChatID, rec.UserID), data)
}

// Delete удаляет запись и сообщает, существовала ли она.
func (r *WarningRepository) Delete(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	key := warningKey(chatID, userID)
	_, ok, err := r.store.Get(ctx, NamespaceWarnings, key)
	if err != nil || !ok {
		return false, err
	}
	if err := r.store.Delete(ctx, NamespaceWarnings, key); err != nil {
		return false, err
	}
	return true, nil
}

// ListChat возвращает все непустые записи чата, упорядоченные по ключу.
func (r *WarningRepository) ListChat(ctx context.Context, chatID domain.ChatID) ([]domain.WarningRecord, error) {
	prefix := string(chatID) + ":"
	keys, err := r.store.Keys(ctx, NamespaceWarnings, prefix)
	if err != nil {
		return nil, err
	}

	records := make([]domain.WarningRecord, 0, len(keys))
	for _, key := range keys {
		userID := domain.UserID(strings.TrimPrefix(key, prefix))
		rec, err := r.Load(ctx, chatID, userID)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.Count() > 0 {
			records = append(records, *rec)
		}
	}
	return records, nil
}
