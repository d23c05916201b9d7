// Package bot связывает входящие события платформы с модератором, планировщиком и командами.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"telegram-moderation-bot/internal/core/services"
	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
	"telegram-moderation-bot/internal/repository"
)

// Deps — зависимости бота.
type Deps struct {
	Config     *config.Config
	Moderator  *services.Moderator
	Engagement *services.EngagementScheduler
	Tracker    *services.CooldownTracker
	Chats      *repository.ChatRegistry
	Platform   ports.Platform
	Auth       ports.Authorizer
	Logger     *slog.Logger
}

// Bot представляет собой обработчик событий, не зависящий от платформы.
type Bot struct {
	cfg        *config.Config
	moderator  *services.Moderator
	engagement *services.EngagementScheduler
	tracker    *services.CooldownTracker
	chats      *repository.ChatRegistry
	platform   ports.Platform
	auth       ports.Authorizer
	logger     *slog.Logger
	commands   map[string]command

	// known — чаты, уже записанные в реестр этим процессом, с последним известным названием.
	known *xsync.MapOf[domain.ChatID, string]

	now       func() time.Time
	afterFunc func(d time.Duration, f func())
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		cfg:        deps.Config,
		moderator:  deps.Moderator,
		engagement: deps.Engagement,
		tracker:    deps.Tracker,
		chats:      deps.Chats,
		platform:   deps.Platform,
		auth:       deps.Auth,
		logger:     logger,
		known:      xsync.NewMapOf[domain.ChatID, string](),
		now:        time.Now,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	b.commands = b.commandTable()
	return b
}

// HandleMessage обрабатывает входящее сообщение: команды выполняются, остальное проверяет модератор.
// Вызывается последовательно для сообщений одного чата.
func (b *Bot) HandleMessage(ctx context.Context, ev domain.MessageEvent) {
	logger := b.logger.With("chat_id", ev.ChatID, "user_id", ev.UserID)

	if !ev.Private {
		b.ensureRegistered(ctx, logger, ev.ChatID, ev.ChatTitle, ev.ReceivedAt)
	}

	if name, args, ok := parseCommand(ev.Text, b.cfg.Bot.CommandPrefix); ok {
		if ev.IsBot {
			return
		}
		b.handleCommand(ctx, logger, ev, name, args)
		return
	}

	action, err := b.moderator.HandleMessage(ctx, ev)
	if err != nil {
		logger.Error("Failed to moderate message", "action", action.Kind, "error", err)
		return
	}
	if action.Kind != domain.ActionNone {
		logger.Debug("Message moderated", "action", action.Kind, "warnings", action.WarningCount)
	}
}

// HandleMembership регистрирует чат при добавлении бота и удаляет его данные при исключении.
func (b *Bot) HandleMembership(ctx context.Context, ev domain.MembershipEvent) {
	logger := b.logger.With("chat_id", ev.ChatID)
	if ev.Joined {
		b.known.Delete(ev.ChatID)
		b.ensureRegistered(ctx, logger, ev.ChatID, ev.ChatTitle, ev.At)
		logger.Info("Bot added to chat", "title", ev.ChatTitle)
		return
	}

	b.known.Delete(ev.ChatID)
	if err := b.chats.Remove(ctx, ev.ChatID); err != nil {
		logger.Error("Failed to remove chat from registry", "error", err)
	}
	if err := b.tracker.Reset(ctx, ev.ChatID); err != nil {
		logger.Error("Failed to reset chat cooldowns", "error", err)
	}
	logger.Info("Bot removed from chat")
}

// ensureRegistered записывает чат в реестр один раз за время жизни процесса
// и повторно при смене названия.
func (b *Bot) ensureRegistered(ctx context.Context, logger *slog.Logger, chatID domain.ChatID, title string, at time.Time) {
	if known, ok := b.known.Load(chatID); ok && known == title {
		return
	}
	if at.IsZero() {
		at = b.now()
	}
	if err := b.chats.Register(ctx, chatID, title, at); err != nil {
		logger.Error("Failed to register chat", "error", err)
		return
	}
	b.known.Store(chatID, title)
}

// reply отправляет ответ в чат. Временные ответы удаляются через moderation.notice_ttl.
func (b *Bot) reply(ctx context.Context, logger *slog.Logger, chatID domain.ChatID, text string, transient bool) {
	id, err := b.platform.DeliverMessage(ctx, chatID, text)
	if err != nil {
		logger.Error("Failed to send reply", "error", err)
		return
	}
	ttl := b.cfg.Moderation.NoticeTTL
	if !transient || ttl <= 0 || id == "" {
		return
	}
	b.afterFunc(ttl, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.platform.DeleteMessage(delCtx, chatID, id); err != nil {
			logger.Debug("Failed to delete transient reply", "error", err)
		}
	})
}

// parseCommand выделяет имя команды и аргументы. Суффикс "@botname" отбрасывается.
func parseCommand(text, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	name := fields[0]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
