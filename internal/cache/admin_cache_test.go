package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"telegram-moderation-bot/internal/domain"
)

type mockAuthorizer struct {
	mock.Mock
}

func (m *mockAuthorizer) IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func TestAdminCache(t *testing.T) {
	ctx := context.Background()

	t.Run("повторный запрос берется из кэша", func(t *testing.T) {
		next := &mockAuthorizer{}
		next.On("IsAdmin", mock.Anything, domain.ChatID("-100"), domain.UserID("1")).Return(true, nil).Once()
		c := NewAdminCache(next, 10, time.Minute)

		for i := 0; i < 3; i++ {
			admin, err := c.IsAdmin(ctx, "-100", "1")
			require.NoError(t, err)
			assert.True(t, admin)
		}
		next.AssertNumberOfCalls(t, "IsAdmin", 1)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("ошибки не кэшируются", func(t *testing.T) {
		next := &mockAuthorizer{}
		next.On("IsAdmin", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("timeout")).Once()
		next.On("IsAdmin", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
		c := NewAdminCache(next, 10, time.Minute)

		_, err := c.IsAdmin(ctx, "-100", "2")
		assert.Error(t, err)
		admin, err := c.IsAdmin(ctx, "-100", "2")
		require.NoError(t, err)
		assert.False(t, admin)
		next.AssertExpectations(t)
	})

	t.Run("Invalidate сбрасывает ответ", func(t *testing.T) {
		next := &mockAuthorizer{}
		next.On("IsAdmin", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
		next.On("IsAdmin", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		c := NewAdminCache(next, 10, time.Minute)

		admin, _ := c.IsAdmin(ctx, "-100", "3")
		assert.False(t, admin)
		c.Invalidate("-100", "3")
		admin, _ = c.IsAdmin(ctx, "-100", "3")
		assert.True(t, admin)
	})

	t.Run("ответ истекает по TTL", func(t *testing.T) {
		next := &mockAuthorizer{}
		next.On("IsAdmin", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Twice()
		c := NewAdminCache(next, 10, 20*time.Millisecond)

		_, err := c.IsAdmin(ctx, "-100", "4")
		require.NoError(t, err)
		assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
		_, err = c.IsAdmin(ctx, "-100", "4")
		require.NoError(t, err)
		next.AssertExpectations(t)
	})
}
