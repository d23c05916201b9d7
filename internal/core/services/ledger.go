package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"telegram-moderation-bot/internal/domain"
)

// WarningStore — долговременное хранилище записей предупреждений.
type WarningStore interface {
	Load(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (*domain.WarningRecord, error)
	Save(ctx context.Context, rec *domain.WarningRecord) error
	Delete(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error)
	ListChat(ctx context.Context, chatID domain.ChatID) ([]domain.WarningRecord, error)
}

// WarningResult — результат добавления предупреждения.
type WarningResult struct {
	Count      int
	Punishment domain.Punishment
}

// WarningLedger ведет журнал предупреждений и вычисляет наказание при каждом новом.
// Операции над одной парой (чат, пользователь) сериализуются.
type WarningLedger struct {
	store  WarningStore
	policy *EscalationPolicy
	locks  *xsync.MapOf[string, *sync.Mutex]
}

// NewWarningLedger создает новый экземпляр WarningLedger.
func NewWarningLedger(store WarningStore, policy *EscalationPolicy) *WarningLedger {
	return &WarningLedger{
		store:  store,
		policy: policy,
		locks:  xsync.NewMapOf[string, *sync.Mutex](),
	}
}

func (l *WarningLedger) lock(chatID domain.ChatID, userID domain.UserID) func() {
	mu, _ := l.locks.LoadOrCompute(historyKey(chatID, userID), func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

// AddWarning добавляет предупреждение. Предупреждение считается выданным только после
// успешной записи в хранилище; при ошибке записи счетчик не меняется.
func (l *WarningLedger) AddWarning(ctx context.Context, chatID domain.ChatID, userID domain.UserID, reason, issuer string, now time.Time) (WarningResult, error) {
	unlock := l.lock(chatID, userID)
	defer unlock()

	rec, err := l.store.Load(ctx, chatID, userID)
	if err != nil {
		return WarningResult{}, persistenceError("load warnings", err)
	}

	next := &domain.WarningRecord{ChatID: chatID, UserID: userID}
	if rec != nil {
		next.Warnings = make([]domain.Warning, len(rec.Warnings), len(rec.Warnings)+1)
		copy(next.Warnings, rec.Warnings)
	}
	next.Warnings = append(next.Warnings, domain.Warning{Reason: reason, Issuer: issuer, IssuedAt: now})

	if err := l.store.Save(ctx, next); err != nil {
		return WarningResult{}, persistenceError("save warnings", err)
	}

	count := next.Count()
	return WarningResult{Count: count, Punishment: l.policy.For(count)}, nil
}

// RemoveLast снимает последнее предупреждение и возвращает новый счетчик.
// Возвращает ErrNotFound, если предупреждений нет.
func (l *WarningLedger) RemoveLast(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (int, error) {
	unlock := l.lock(chatID, userID)
	defer unlock()

	rec, err := l.store.Load(ctx, chatID, userID)
	if err != nil {
		return 0, persistenceError("load warnings", err)
	}
	if rec.Count() == 0 {
		return 0, fmt.Errorf("warnings of %s: %w", userID, domain.ErrNotFound)
	}

	next := &domain.WarningRecord{ChatID: chatID, UserID: userID}
	next.Warnings = append([]domain.Warning(nil), rec.Warnings[:len(rec.Warnings)-1]...)
	if next.Count() == 0 {
		if _, err := l.store.Delete(ctx, chatID, userID); err != nil {
			return 0, persistenceError("delete warnings", err)
		}
		return 0, nil
	}
	if err := l.store.Save(ctx, next); err != nil {
		return 0, persistenceError("save warnings", err)
	}
	return next.Count(), nil
}

// ClearWarnings удаляет все предупреждения пользователя. Возвращает false, если записи не было.
func (l *WarningLedger) ClearWarnings(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	unlock := l.lock(chatID, userID)
	defer unlock()

	existed, err := l.store.Delete(ctx, chatID, userID)
	if err != nil {
		return false, persistenceError("delete warnings", err)
	}
	return existed, nil
}

// GetWarnings возвращает предупреждения пользователя, последнее — в конце.
func (l *WarningLedger) GetWarnings(ctx context.Context, chatID domain.ChatID, userID domain.UserID) ([]domain.Warning, error) {
	rec, err := l.store.Load(ctx, chatID, userID)
	if err != nil {
		return nil, persistenceError("load warnings", err)
	}
	if rec == nil {
		return []domain.Warning{}, nil
	}
	return rec.Warnings, nil
}

// Count возвращает количество предупреждений пользователя.
func (l *WarningLedger) Count(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (int, error) {
	warnings, err := l.GetWarnings(ctx, chatID, userID)
	return len(warnings), err
}

// ListChat возвращает все записи чата с ненулевым счетчиком.
func (l *WarningLedger) ListChat(ctx context.Context, chatID domain.ChatID) ([]domain.WarningRecord, error) {
	records, err := l.store.ListChat(ctx, chatID)
	if err != nil {
		return nil, persistenceError("list warnings", err)
	}
	return records, nil
}

// Policy возвращает используемую лестницу наказаний.
func (l *WarningLedger) Policy() *EscalationPolicy {
	return l.policy
}

func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
