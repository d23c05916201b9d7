package content

import (
	"context"
	"fmt"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/ports"
)

// Mux направляет запрос категории к зарегистрированному провайдеру.
type Mux struct {
	routes   map[domain.Category]ports.ContentProvider
	fallback ports.ContentProvider
}

// NewMux создает маршрутизатор с провайдером по умолчанию.
func NewMux(fallback ports.ContentProvider) *Mux {
	return &Mux{routes: make(map[domain.Category]ports.ContentProvider), fallback: fallback}
}

// Handle регистрирует провайдер для категории.
func (m *Mux) Handle(category domain.Category, provider ports.ContentProvider) *Mux {
	m.routes[category] = provider
	return m
}

func (m *Mux) GetContent(ctx context.Context, category domain.Category) (string, error) {
	if p, ok := m.routes[category]; ok {
		return p.GetContent(ctx, category)
	}
	if m.fallback == nil {
		return "", fmt.Errorf("%w: no provider for category %q", domain.ErrInvalidArgument, category)
	}
	return m.fallback.GetContent(ctx, category)
}
