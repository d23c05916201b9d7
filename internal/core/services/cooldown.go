package services

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"telegram-moderation-bot/internal/domain"
)

// CooldownStore — хранилище отметок отправки, которым пользуется CooldownTracker.
type CooldownStore interface {
	Load(ctx context.Context, chatID domain.ChatID) (map[domain.Category]time.Time, error)
	Save(ctx context.Context, chatID domain.ChatID, sent map[domain.Category]time.Time) error
	Delete(ctx context.Context, chatID domain.ChatID) error
}

// CooldownTracker отвечает на вопрос "пора ли отправлять категорию X в чат Y".
//
// ShouldSend ничего не записывает: время фиксируется только RecordSent после
// успешной отправки. При падении процесса между отправкой и записью возможен повтор.
type CooldownTracker struct {
	store CooldownStore
	// writers — блокировка записи на чат: чтение снимка, Save и публикация идут под ней целиком.
	writers *xsync.MapOf[domain.ChatID, *sync.Mutex]

	mu sync.RWMutex
	// chats — снимок загруженных чатов; отсутствие ключа означает, что чат еще не читался из хранилища.
	chats map[domain.ChatID]map[domain.Category]time.Time
}

// NewCooldownTracker создает новый экземпляр CooldownTracker.
func NewCooldownTracker(store CooldownStore) *CooldownTracker {
	return &CooldownTracker{
		store:   store,
		writers: xsync.NewMapOf[domain.ChatID, *sync.Mutex](),
		chats:   make(map[domain.ChatID]map[domain.Category]time.Time),
	}
}

func (t *CooldownTracker) lock(chatID domain.ChatID) func() {
	mu, _ := t.writers.LoadOrCompute(chatID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

// ShouldSend возвращает true, если записи нет или с последней отправки прошло не меньше interval.
func (t *CooldownTracker) ShouldSend(ctx context.Context, chatID domain.ChatID, category domain.Category, interval time.Duration, now time.Time) (bool, error) {
	last, ok, err := t.LastSent(ctx, chatID, category)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return now.Sub(last) >= interval, nil
}

// RecordSent фиксирует успешную отправку. Снимок обновляется только после записи в хранилище.
func (t *CooldownTracker) RecordSent(ctx context.Context, chatID domain.ChatID, category domain.Category, now time.Time) error {
	unlock := t.lock(chatID)
	defer unlock()

	current, err := t.snapshot(ctx, chatID)
	if err != nil {
		return err
	}

	next := make(map[domain.Category]time.Time, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[category] = now

	if err := t.store.Save(ctx, chatID, next); err != nil {
		return err
	}

	t.mu.Lock()
	t.chats[chatID] = next
	t.mu.Unlock()
	return nil
}

// LastSent возвращает время последней отправки категории в чат.
func (t *CooldownTracker) LastSent(ctx context.Context, chatID domain.ChatID, category domain.Category) (time.Time, bool, error) {
	sent, err := t.snapshot(ctx, chatID)
	if err != nil {
		return time.Time{}, false, err
	}
	last, ok := sent[category]
	return last, ok, nil
}

// Reset удаляет все отметки чата.
func (t *CooldownTracker) Reset(ctx context.Context, chatID domain.ChatID) error {
	unlock := t.lock(chatID)
	defer unlock()

	if err := t.store.Delete(ctx, chatID); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.chats, chatID)
	t.mu.Unlock()
	return nil
}

// snapshot возвращает неизменяемую карту отметок чата, при необходимости загружая ее.
// Карты в t.chats никогда не меняются на месте, поэтому их можно читать без блокировки.
func (t *CooldownTracker) snapshot(ctx context.Context, chatID domain.ChatID) (map[domain.Category]time.Time, error) {
	t.mu.RLock()
	sent, ok := t.chats[chatID]
	t.mu.RUnlock()
	if ok {
		return sent, nil
	}

	loaded, err := t.store.Load(ctx, chatID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Параллельный RecordSent мог успеть раньше: его снимок новее загруженного.
	if sent, ok := t.chats[chatID]; ok {
		return sent, nil
	}
	t.chats[chatID] = loaded
	return loaded, nil
}
