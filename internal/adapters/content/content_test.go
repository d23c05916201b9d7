package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-moderation-bot/internal/domain"
)

type fixedProvider string

func (p fixedProvider) GetContent(context.Context, domain.Category) (string, error) {
	return string(p), nil
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStaticProvider()

	for i := 0; i < 20; i++ {
		text, err := p.GetContent(ctx, domain.CategoryGeneral)
		require.NoError(t, err)
		assert.NotEmpty(t, text)
	}

	text, err := p.GetContent(ctx, domain.CategoryQuote)
	require.NoError(t, err)
	assert.Contains(t, Quotes, text)

	_, err = p.GetContent(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStaticProvider_DeterministicPick(t *testing.T) {
	p := NewStaticProvider()
	p.pick = func(int) int { return 0 }

	text, err := p.GetContent(context.Background(), domain.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, Motivations[0], text)
}

func TestParseQuote(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"объект content/author", `{"content":"Stay hungry","author":"Steve Jobs"}`, "📜 \"Stay hungry\" — Steve Jobs", false},
		{"объект quote без автора", `{"quote":"Stay foolish"}`, "📜 \"Stay foolish\"", false},
		{"массив zenquotes", `[{"q":"Less is more","a":"Mies"}]`, "📜 \"Less is more\" — Mies", false},
		{"пустой массив", `[]`, "", true},
		{"нет текста", `{"author":"Nobody"}`, "", true},
		{"не json", `<html>`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQuote([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteAPIProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("успешный ответ", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`{"content":"Ship it","author":"Team"}`))
		}))
		defer srv.Close()

		p := NewQuoteAPIProvider(srv.URL, time.Second, 0, fixedProvider("fallback"), nil)
		text, err := p.GetContent(ctx, domain.CategoryQuote)
		require.NoError(t, err)
		assert.Equal(t, "📜 \"Ship it\" — Team", text)
	})

	t.Run("повтор после ошибки сервера", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[{"q":"Retry","a":"HTTP"}]`))
		}))
		defer srv.Close()

		p := NewQuoteAPIProvider(srv.URL, time.Second, 2, fixedProvider("fallback"), nil)
		text, err := p.GetContent(ctx, domain.CategoryQuote)
		require.NoError(t, err)
		assert.Equal(t, "📜 \"Retry\" — HTTP", text)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("запасной провайдер при сбое", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		p := NewQuoteAPIProvider(srv.URL, time.Second, 0, fixedProvider("fallback"), nil)
		text, err := p.GetContent(ctx, domain.CategoryQuote)
		require.NoError(t, err)
		assert.Equal(t, "fallback", text)
	})
}

func TestMux(t *testing.T) {
	ctx := context.Background()
	m := NewMux(fixedProvider("general")).Handle(domain.CategoryQuote, fixedProvider("quote"))

	text, err := m.GetContent(ctx, domain.CategoryQuote)
	require.NoError(t, err)
	assert.Equal(t, "quote", text)

	text, err = m.GetContent(ctx, domain.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, "general", text)

	_, err = NewMux(nil).GetContent(ctx, domain.CategoryGeneral)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
