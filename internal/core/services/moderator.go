package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/metrics"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
)

// SystemIssuer — выдающий предупреждения автоматически.
const SystemIssuer = "system"

// noticeDeleteTimeout ограничивает отложенное удаление уведомления.
const noticeDeleteTimeout = 10 * time.Second

// Moderator объединяет детектор спама, модератор контента и журнал предупреждений
// в одно решение по каждому сообщению.
type Moderator struct {
	cfg      config.Moderation
	prefix   string
	spam     *SpamDetector
	content  *ContentModerator
	ledger   *WarningLedger
	platform ports.Platform
	auth     ports.Authorizer
	log      *slog.Logger
	// afterFunc откладывает удаление уведомлений; подменяется в тестах.
	afterFunc func(d time.Duration, f func())
	now       func() time.Time
}

// ModeratorOption — функциональная опция для настройки Moderator.
type ModeratorOption func(*Moderator)

// WithModeratorLogger устанавливает логгер модератора.
func WithModeratorLogger(l *slog.Logger) ModeratorOption {
	return func(m *Moderator) {
		if l != nil {
			m.log = l
		}
	}
}

// WithAfterFunc подменяет планировщик отложенных действий.
func WithAfterFunc(f func(d time.Duration, fn func())) ModeratorOption {
	return func(m *Moderator) {
		if f != nil {
			m.afterFunc = f
		}
	}
}

// WithClock подменяет источник текущего времени для ручных команд.
func WithClock(now func() time.Time) ModeratorOption {
	return func(m *Moderator) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModerator создает новый экземпляр Moderator.
func NewModerator(
	cfg config.Moderation,
	commandPrefix string,
	spam *SpamDetector,
	content *ContentModerator,
	ledger *WarningLedger,
	platform ports.Platform,
	auth ports.Authorizer,
	opts ...ModeratorOption,
) *Moderator {
	m := &Moderator{
		cfg:      cfg,
		prefix:   commandPrefix,
		spam:     spam,
		content:  content,
		ledger:   ledger,
		platform: platform,
		auth:     auth,
		log:      slog.Default(),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleMessage принимает решение по входящему сообщению. Ошибка возвращается только
// при сбое записи журнала; сбои платформы логируются и не прерывают обработку.
func (m *Moderator) HandleMessage(ctx context.Context, ev domain.MessageEvent) (domain.Action, error) {
	none := domain.Action{Kind: domain.ActionNone}
	if !m.cfg.Enabled || ev.Private || ev.IsBot {
		return none, nil
	}
	if strings.TrimSpace(ev.Text) == "" {
		return none, nil
	}
	if m.prefix != "" && strings.HasPrefix(ev.Text, m.prefix) {
		return none, nil
	}

	log := m.log.With("chat_id", ev.ChatID, "user_id", ev.UserID)

	if m.cfg.ExemptAdmins && m.auth != nil {
		admin, err := m.auth.IsAdmin(ctx, ev.ChatID, ev.UserID)
		if err != nil {
			log.Warn("Admin check failed, moderating as regular member", "error", err)
		} else if admin {
			return none, nil
		}
	}

	metrics.MessagesInspected.Inc()

	if verdict := m.spam.Classify(ev.ChatID, ev.UserID, ev.Text, ev.ReceivedAt); !verdict.IsClean() {
		metrics.SpamVerdicts.WithLabelValues(verdict.Kind.String()).Inc()
		log.Info("Spam detected", "kind", verdict.Kind, "offenses", m.spam.Offenses(ev.ChatID, ev.UserID))
		m.deleteBestEffort(ctx, log, ev.ChatID, ev.MessageID)
		return m.enforce(ctx, log, ev, verdict.Reason(), true)
	}

	if verdict := m.content.Classify(ev.Text); !verdict.IsClean() {
		metrics.ModerationVerdicts.WithLabelValues(verdict.Kind.String()).Inc()
		log.Info("Content violation", "kind", verdict.Kind, "term", verdict.MatchedTerm)
		deleted := verdict.Remedy() == domain.RemedyDeleteMessage
		if deleted {
			m.deleteBestEffort(ctx, log, ev.ChatID, ev.MessageID)
		}
		return m.enforce(ctx, log, ev, verdict.Reason(), deleted)
	}

	return none, nil
}

// enforce выдает предупреждение, уведомляет чат и при необходимости наказывает.
func (m *Moderator) enforce(ctx context.Context, log *slog.Logger, ev domain.MessageEvent, reason string, deleted bool) (domain.Action, error) {
	res, err := m.ledger.AddWarning(ctx, ev.ChatID, ev.UserID, reason, SystemIssuer, ev.ReceivedAt)
	if err != nil {
		log.Error("Failed to record warning", "error", err)
		if deleted {
			return domain.Action{Kind: domain.ActionDeleted}, err
		}
		return domain.Action{Kind: domain.ActionNone}, err
	}
	metrics.WarningsIssued.WithLabelValues(SystemIssuer).Inc()

	m.sendNotice(ctx, log, ev.ChatID, m.warningNotice(ev.DisplayName, res.Count, reason))

	if res.Punishment.IsNone() {
		return domain.Action{Kind: domain.ActionWarned, WarningCount: res.Count}, nil
	}

	m.punish(ctx, log, ev.ChatID, ev.UserID, ev.DisplayName, res.Punishment, ev.ReceivedAt)
	return domain.Action{Kind: domain.ActionPunished, WarningCount: res.Count, Punishment: res.Punishment}, nil
}

func (m *Moderator) warningNotice(name string, count int, reason string) string {
	if limit := m.ledger.Policy().BanThreshold(); limit > 0 {
		return fmt.Sprintf("⚠️ %s, warning %d/%d: %s", name, count, limit, reason)
	}
	return fmt.Sprintf("⚠️ %s, warning %d: %s", name, count, reason)
}

// punish применяет наказание. Сбой платформы логируется, журнал не откатывается.
func (m *Moderator) punish(ctx context.Context, log *slog.Logger, chatID domain.ChatID, userID domain.UserID, name string, p domain.Punishment, now time.Time) {
	switch p.Kind {
	case domain.PunishMute:
		if err := m.platform.RestrictMember(ctx, chatID, userID, now.Add(p.Duration)); err != nil {
			metrics.PunishmentsApplied.WithLabelValues(p.Kind.String(), "failed").Inc()
			metrics.AdapterFailures.WithLabelValues("restrict").Inc()
			log.Warn("Failed to mute member", "duration", p.Duration, "error", err)
			return
		}
		metrics.PunishmentsApplied.WithLabelValues(p.Kind.String(), "applied").Inc()
		log.Info("Member muted", "duration", p.Duration)
		m.announce(ctx, log, chatID, fmt.Sprintf("🔇 %s muted for %s", name, domain.HumanDuration(p.Duration)))

	case domain.PunishBan:
		if err := m.platform.BanMember(ctx, chatID, userID); err != nil {
			metrics.PunishmentsApplied.WithLabelValues(p.Kind.String(), "failed").Inc()
			metrics.AdapterFailures.WithLabelValues("ban").Inc()
			log.Warn("Failed to ban member", "error", err)
			return
		}
		metrics.PunishmentsApplied.WithLabelValues(p.Kind.String(), "applied").Inc()
		log.Info("Member banned")
		m.announce(ctx, log, chatID, fmt.Sprintf("🚫 %s has been banned", name))
		m.afterBan(ctx, log, chatID, userID)
	}
}

func (m *Moderator) afterBan(ctx context.Context, log *slog.Logger, chatID domain.ChatID, userID domain.UserID) {
	m.spam.Forget(chatID, userID)
	if !m.cfg.ClearOnBan {
		return
	}
	if _, err := m.ledger.ClearWarnings(ctx, chatID, userID); err != nil {
		log.Error("Failed to clear warnings after ban", "error", err)
	}
}

func (m *Moderator) deleteBestEffort(ctx context.Context, log *slog.Logger, chatID domain.ChatID, messageID domain.MessageID) {
	if messageID == "" {
		return
	}
	if err := m.platform.DeleteMessage(ctx, chatID, messageID); err != nil {
		metrics.AdapterFailures.WithLabelValues("delete").Inc()
		log.Warn("Failed to delete message", "message_id", messageID, "error", err)
	}
}

func (m *Moderator) announce(ctx context.Context, log *slog.Logger, chatID domain.ChatID, text string) {
	if _, err := m.platform.DeliverMessage(ctx, chatID, text); err != nil {
		metrics.AdapterFailures.WithLabelValues("send").Inc()
		log.Warn("Failed to send announcement", "error", err)
	}
}

// sendNotice отправляет временное уведомление и планирует его удаление.
// Если процесс завершится раньше, уведомление останется в чате.
func (m *Moderator) sendNotice(ctx context.Context, log *slog.Logger, chatID domain.ChatID, text string) {
	id, err := m.platform.DeliverMessage(ctx, chatID, text)
	if err != nil {
		metrics.AdapterFailures.WithLabelValues("send").Inc()
		log.Warn("Failed to send notice", "error", err)
		return
	}
	if m.cfg.NoticeTTL <= 0 || id == "" {
		return
	}
	m.afterFunc(m.cfg.NoticeTTL, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), noticeDeleteTimeout)
		defer cancel()
		m.deleteBestEffort(delCtx, log, chatID, id)
	})
}

// Warn выдает предупреждение от имени администратора и применяет наказание по лестнице.
func (m *Moderator) Warn(ctx context.Context, chatID domain.ChatID, userID domain.UserID, name, reason, issuer string) (WarningResult, error) {
	if reason == "" {
		reason = "warned by admin"
	}
	log := m.log.With("chat_id", chatID, "user_id", userID, "issuer", issuer)
	now := m.now()

	res, err := m.ledger.AddWarning(ctx, chatID, userID, reason, issuer, now)
	if err != nil {
		return WarningResult{}, err
	}
	metrics.WarningsIssued.WithLabelValues("admin").Inc()
	log.Info("Manual warning issued", "count", res.Count)

	if !res.Punishment.IsNone() {
		m.punish(ctx, log, chatID, userID, name, res.Punishment, now)
	}
	return res, nil
}

// Unwarn снимает последнее предупреждение.
func (m *Moderator) Unwarn(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (int, error) {
	return m.ledger.RemoveLast(ctx, chatID, userID)
}

// ClearWarnings полностью очищает журнал пользователя.
func (m *Moderator) ClearWarnings(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	return m.ledger.ClearWarnings(ctx, chatID, userID)
}

// Mute ограничивает пользователя на duration. Ошибка платформы возвращается администратору.
func (m *Moderator) Mute(ctx context.Context, chatID domain.ChatID, userID domain.UserID, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: mute duration must be positive", domain.ErrInvalidArgument)
	}
	if err := m.platform.RestrictMember(ctx, chatID, userID, m.now().Add(duration)); err != nil {
		return adapterError("restrict member", err)
	}
	metrics.PunishmentsApplied.WithLabelValues(domain.PunishMute.String(), "manual").Inc()
	return nil
}

// Unmute снимает ограничения.
func (m *Moderator) Unmute(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	if err := m.platform.UnrestrictMember(ctx, chatID, userID); err != nil {
		return adapterError("unrestrict member", err)
	}
	return nil
}

// Ban банит пользователя и выполняет ту же очистку, что и автоматический бан.
func (m *Moderator) Ban(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	if err := m.platform.BanMember(ctx, chatID, userID); err != nil {
		return adapterError("ban member", err)
	}
	metrics.PunishmentsApplied.WithLabelValues(domain.PunishBan.String(), "manual").Inc()
	m.afterBan(ctx, m.log.With("chat_id", chatID, "user_id", userID), chatID, userID)
	return nil
}

// Unban снимает бан.
func (m *Moderator) Unban(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	if err := m.platform.UnbanMember(ctx, chatID, userID); err != nil {
		return adapterError("unban member", err)
	}
	return nil
}

// Ledger возвращает журнал предупреждений для команд просмотра.
func (m *Moderator) Ledger() *WarningLedger {
	return m.ledger
}

// Spam возвращает детектор спама.
func (m *Moderator) Spam() *SpamDetector {
	return m.spam
}

func adapterError(op string, err error) error {
	if errors.Is(err, domain.ErrAdapter) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrAdapter, err)
}
