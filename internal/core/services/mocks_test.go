package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"telegram-moderation-bot/internal/adapters/storage"
	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/repository"
)

// mockPlatform — мок для интерфейса ports.Platform.
type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) DeliverMessage(ctx context.Context, chatID domain.ChatID, text string) (domain.MessageID, error) {
	args := m.Called(ctx, chatID, text)
	return args.Get(0).(domain.MessageID), args.Error(1)
}

func (m *mockPlatform) DeleteMessage(ctx context.Context, chatID domain.ChatID, messageID domain.MessageID) error {
	return m.Called(ctx, chatID, messageID).Error(0)
}

func (m *mockPlatform) RestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID, until time.Time) error {
	return m.Called(ctx, chatID, userID, until).Error(0)
}

func (m *mockPlatform) UnrestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

func (m *mockPlatform) BanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

func (m *mockPlatform) UnbanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	return m.Called(ctx, chatID, userID).Error(0)
}

// mockAuthorizer — мок для интерфейса ports.Authorizer.
type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

// mockContent — мок для интерфейса ports.ContentProvider.
type mockContent struct {
	mock.Mock
}

func (m *mockContent) GetContent(ctx context.Context, category domain.Category) (string, error) {
	args := m.Called(ctx, category)
	return args.String(0), args.Error(1)
}

// failingStore — KVStore, у которого можно включить сбой записи.
type failingStore struct {
	*storage.MemoryStore
	mu       sync.Mutex
	failPuts bool
}

func newFailingStore() *failingStore {
	return &failingStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *failingStore) setFailPuts(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPuts = v
}

func (s *failingStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	fail := s.failPuts
	s.mu.Unlock()
	if fail {
		return domain.ErrPersistence
	}
	return s.MemoryStore.Put(ctx, namespace, key, value)
}

// manualTimers собирает отложенные функции вместо запуска реальных таймеров.
type manualTimers struct {
	mu    sync.Mutex
	delay []time.Duration
	funcs []func()
}

func (t *manualTimers) after(d time.Duration, f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = append(t.delay, d)
	t.funcs = append(t.funcs, f)
}

func (t *manualTimers) fireAll() {
	t.mu.Lock()
	funcs := t.funcs
	t.funcs = nil
	t.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

func newLedger(store *failingStore) *WarningLedger {
	policy, err := NewEscalationPolicy(defaultLevels())
	if err != nil {
		panic(err)
	}
	return NewWarningLedger(repository.NewWarningRepository(store), policy)
}
