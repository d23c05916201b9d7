package ports

import (
	"context"
	"time"

	"telegram-moderation-bot/internal/domain"
)

// Platform определяет команды, которые бот отдает платформе обмена сообщениями.
// Все методы — сетевые вызовы; их нельзя выполнять под блокировками состояния.
type Platform interface {
	// DeliverMessage отправляет текст в чат и возвращает идентификатор отправленного сообщения.
	DeliverMessage(ctx context.Context, chatID domain.ChatID, text string) (domain.MessageID, error)
	DeleteMessage(ctx context.Context, chatID domain.ChatID, messageID domain.MessageID) error
	// RestrictMember лишает пользователя права писать до момента until.
	RestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID, until time.Time) error
	UnrestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error
	BanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error
	UnbanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error
}

// Authorizer — единый предикат проверки прав администратора.
type Authorizer interface {
	IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error)
}

// KVStore — долговременное хранилище ключ-значение с пространствами имен.
type KVStore interface {
	// Get возвращает значение и false, если ключ отсутствует.
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	// Keys возвращает ключи пространства имен с указанным префиксом.
	Keys(ctx context.Context, namespace, prefix string) ([]string, error)
	Close() error
}

// ContentProvider — источник текстов для автоматических сообщений.
type ContentProvider interface {
	GetContent(ctx context.Context, category domain.Category) (string, error)
}

// DocumentSender — необязательная возможность платформы отправлять файлы.
type DocumentSender interface {
	SendDocument(ctx context.Context, chatID domain.ChatID, name string, data []byte, caption string) error
}
