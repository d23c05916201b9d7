package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

// ChatRegistry хранит чаты, в которых состоит бот, и их настройки автоматического контента.
type ChatRegistry struct {
	store ports.KVStore
	// minInterval — минимально допустимый индивидуальный интервал.
	minInterval time.Duration
}

// NewChatRegistry создает новый экземпляр ChatRegistry.
func NewChatRegistry(store ports.KVStore, minInterval time.Duration) *ChatRegistry {
	return &ChatRegistry{store: store, minInterval: minInterval}
}

// Register добавляет чат или обновляет его название. Время вступления сохраняется с первой регистрации.
func (r *ChatRegistry) Register(ctx context.Context, chatID domain.ChatID, title string, at time.Time) error {
	existing, err := r.loadInfo(ctx, chatID)
	if err != nil {
		return err
	}
	info := domain.ChatInfo{ChatID: chatID, Title: title, JoinedAt: at}
	if existing != nil {
		if existing.Title == title {
			return nil
		}
		info.JoinedAt = existing.JoinedAt
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("%w: encode chat: %w", domain.ErrPersistence, err)
	}
	return r.store.Put(ctx, NamespaceChats, string(chatID), data)
}

// Remove удаляет чат и его настройки.
func (r *ChatRegistry) Remove(ctx context.Context, chatID domain.ChatID) error {
	for _, ns := range []string{NamespaceChats, NamespaceAutoSettings, NamespaceGroupIntervals} {
		if err := r.store.Delete(ctx, ns, string(chatID)); err != nil {
			return err
		}
	}
	return nil
}

// Get возвращает чат с настройками или ErrNotFound.
func (r *ChatRegistry) Get(ctx context.Context, chatID domain.ChatID) (*domain.ChatInfo, error) {
	info, err := r.loadInfo(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("chat %s: %w", chatID, domain.ErrNotFound)
	}
	if err := r.loadSettings(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// List возвращает все зарегистрированные чаты с настройками.
func (r *ChatRegistry) List(ctx context.Context) ([]domain.ChatInfo, error) {
	keys, err := r.store.Keys(ctx, NamespaceChats, "")
	if err != nil {
		return nil, err
	}
	chats := make([]domain.ChatInfo, 0, len(keys))
	for _, key := range keys {
		info, err := r.loadInfo(ctx, domain.ChatID(key))
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		if err := r.loadSettings(ctx, info); err != nil {
			return nil, err
		}
		chats = append(chats, *info)
	}
	return chats, nil
}

// SetAutoContent включает или выключает автоматические сообщения в чате.
func (r *ChatRegistry) SetAutoContent(ctx context.Context, chatID domain.ChatID, enabled bool) error {
	return r.store.Put(ctx, NamespaceAutoSettings, string(chatID), []byte(strconv.FormatBool(enabled)))
}

// ToggleAutoContent переключает настройку и возвращает новое значение.
// По умолчанию автоматические сообщения включены.
func (r *ChatRegistry) ToggleAutoContent(ctx context.Context, chatID domain.ChatID) (bool, error) {
	current, err := r.autoContent(ctx, chatID)
	if err != nil {
		return false, err
	}
	if err := r.SetAutoContent(ctx, chatID, !current); err != nil {
		return false, err
	}
	return !current, nil
}

// maxIntervalHours — наибольший интервал, представимый в time.Duration.
const maxIntervalHours = math.MaxInt64 / int64(time.Hour)

// SetInterval задает индивидуальный интервал чата в часах.
func (r *ChatRegistry) SetInterval(ctx context.Context, chatID domain.ChatID, hours float64) error {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return fmt.Errorf("%w: interval must be a positive number of hours", domain.ErrInvalidArgument)
	}
	if hours > float64(maxIntervalHours) {
		return fmt.Errorf("%w: interval must be at most %d hours", domain.ErrInvalidArgument, maxIntervalHours)
	}
	if time.Duration(hours*float64(time.Hour)) < r.minInterval {
		return fmt.Errorf("%w: interval must be at least %s", domain.ErrInvalidArgument, domain.HumanDuration(r.minInterval))
	}
	value := strconv.FormatFloat(hours, 'f', -1, 64)
	return r.store.Put(ctx, NamespaceGroupIntervals, string(chatID), []byte(value))
}

// ClearInterval возвращает чат к интервалу по умолчанию.
func (r *ChatRegistry) ClearInterval(ctx context.Context, chatID domain.ChatID) error {
	return r.store.Delete(ctx, NamespaceGroupIntervals, string(chatID))
}

func (r *ChatRegistry) loadInfo(ctx context.Context, chatID domain.ChatID) (*domain.ChatInfo, error) {
	data, ok, err := r.store.Get(ctx, NamespaceChats, string(chatID))
	if err != nil || !ok {
		return nil, err
	}
	var info domain.ChatInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: decode chat %s: %w", domain.ErrPersistence, chatID, err)
	}
	info.ChatID = chatID
	return &info, nil
}

func (r *ChatRegistry) loadSettings(ctx context.Context, info *domain.ChatInfo) error {
	enabled, err := r.autoContent(ctx, info.ChatID)
	if err != nil {
		return err
	}
	info.AutoContentEnabled = enabled

	data, ok, err := r.store.Get(ctx, NamespaceGroupIntervals, string(info.ChatID))
	if err != nil {
		return err
	}
	info.IntervalOverrideHours = nil
	if ok {
		hours, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: decode interval %s: %w", domain.ErrPersistence, info.ChatID, err)
		}
		info.IntervalOverrideHours = &hours
	}
	return nil
}

func (r *ChatRegistry) autoContent(ctx context.Context, chatID domain.ChatID) (bool, error) {
	data, ok, err := r.store.Get(ctx, NamespaceAutoSettings, string(chatID))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	enabled, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, fmt.Errorf("%w: decode auto setting %s: %w", domain.ErrPersistence, chatID, err)
	}
	return enabled, nil
}
