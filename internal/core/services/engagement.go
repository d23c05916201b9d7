package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/metrics"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
)

// ChatSource — реестр чатов, по которым проходит тик.
type ChatSource interface {
	List(ctx context.Context) ([]domain.ChatInfo, error)
	Get(ctx context.Context, chatID domain.ChatID) (*domain.ChatInfo, error)
}

// TickReport — итог одного тика планировщика.
type TickReport struct {
	RunID   string
	Sent    int
	Skipped int
	Failed  int
}

// EngagementScheduler рассылает автоматический контент по чатам с учетом кулдаунов.
// Собственных таймеров не держит: Tick вызывается внешним драйвером.
type EngagementScheduler struct {
	cfg      config.Engagement
	chats    ChatSource
	tracker  *CooldownTracker
	content  ports.ContentProvider
	platform ports.Platform
	limiter  *rate.Limiter
	log      *slog.Logger
}

// EngagementOption — функциональная опция для настройки EngagementScheduler.
type EngagementOption func(*EngagementScheduler)

// WithEngagementLogger устанавливает логгер планировщика.
func WithEngagementLogger(l *slog.Logger) EngagementOption {
	return func(s *EngagementScheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLimiter подменяет ограничитель частоты отправок.
func WithLimiter(l *rate.Limiter) EngagementOption {
	return func(s *EngagementScheduler) {
		if l != nil {
			s.limiter = l
		}
	}
}

// NewEngagementScheduler создает новый экземпляр EngagementScheduler.
func NewEngagementScheduler(
	cfg config.Engagement,
	chats ChatSource,
	tracker *CooldownTracker,
	content ports.ContentProvider,
	platform ports.Platform,
	opts ...EngagementOption,
) *EngagementScheduler {
	limit := rate.Inf
	if cfg.SendsPerSecond > 0 {
		limit = rate.Limit(cfg.SendsPerSecond)
	}
	s := &EngagementScheduler{
		cfg:      cfg,
		chats:    chats,
		tracker:  tracker,
		content:  content,
		platform: platform,
		limiter:  rate.NewLimiter(limit, 1),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IntervalFor возвращает действующий интервал категории для чата.
func (s *EngagementScheduler) IntervalFor(chat domain.ChatInfo, category domain.Category) time.Duration {
	if category == domain.CategoryQuote {
		return s.cfg.QuoteInterval
	}
	if chat.IntervalOverrideHours != nil {
		return time.Duration(*chat.IntervalOverrideHours * float64(time.Hour))
	}
	return s.cfg.DefaultInterval
}

func (s *EngagementScheduler) categories() []domain.Category {
	if s.cfg.QuoteEnabled {
		return []domain.Category{domain.CategoryGeneral, domain.CategoryQuote}
	}
	return []domain.Category{domain.CategoryGeneral}
}

// Tick проходит по всем чатам реестра и отправляет контент, у которого истек кулдаун.
// Ошибка одного чата не мешает остальным. Отмена контекста останавливает обход между отправками.
func (s *EngagementScheduler) Tick(ctx context.Context, now time.Time) (TickReport, error) {
	report := TickReport{RunID: uuid.NewString()}
	log := s.log.With("run_id", report.RunID)
	started := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(started).Seconds()) }()

	chats, err := s.chats.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list chats: %w", err)
	}

	for _, chat := range chats {
		if !chat.AutoContentEnabled {
			report.Skipped++
			continue
		}
		for _, category := range s.categories() {
			if err := ctx.Err(); err != nil {
				log.Info("Tick cancelled", "sent", report.Sent, "failed", report.Failed)
				return report, err
			}
			sent, err := s.sendIfDue(ctx, log, chat, category, now)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return report, err
			case err != nil:
				report.Failed++
				metrics.EngagementSends.WithLabelValues(string(category), "failed").Inc()
				log.Error("Failed to send engagement content", "chat_id", chat.ChatID, "category", category, "error", err)
			case sent:
				report.Sent++
				metrics.EngagementSends.WithLabelValues(string(category), "sent").Inc()
			default:
				report.Skipped++
			}
		}
	}

	log.Debug("Tick finished", "chats", len(chats), "sent", report.Sent, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// sendIfDue отправляет категорию в чат, если кулдаун истек. Отметка отправки
// записывается только после успешной доставки, так что при сбое следующий тик повторит попытку.
func (s *EngagementScheduler) sendIfDue(ctx context.Context, log *slog.Logger, chat domain.ChatInfo, category domain.Category, now time.Time) (bool, error) {
	due, err := s.tracker.ShouldSend(ctx, chat.ChatID, category, s.IntervalFor(chat, category), now)
	if err != nil || !due {
		return false, err
	}

	text, err := s.content.GetContent(ctx, category)
	if err != nil {
		return false, fmt.Errorf("get content: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	if _, err := s.platform.DeliverMessage(ctx, chat.ChatID, updateEnvelope(text, now)); err != nil {
		return false, adapterError("deliver message", err)
	}

	if err := s.tracker.RecordSent(ctx, chat.ChatID, category, now); err != nil {
		// Сообщение уже доставлено; следующий тик может отправить его повторно.
		log.Error("Failed to record engagement send", "chat_id", chat.ChatID, "category", category, "error", err)
	}
	log.Info("Engagement content sent", "chat_id", chat.ChatID, "category", category)
	return true, nil
}

// TriggerNow немедленно отправляет общий контент в чат по команде администратора
// и сбрасывает кулдаун общей категории.
func (s *EngagementScheduler) TriggerNow(ctx context.Context, chatID domain.ChatID, requester string, now time.Time) error {
	text, err := s.content.GetContent(ctx, domain.CategoryGeneral)
	if err != nil {
		return fmt.Errorf("get content: %w", err)
	}
	if _, err := s.platform.DeliverMessage(ctx, chatID, triggeredEnvelope(text, requester, now)); err != nil {
		return adapterError("deliver message", err)
	}
	metrics.EngagementSends.WithLabelValues(string(domain.CategoryGeneral), "manual").Inc()
	return s.tracker.RecordSent(ctx, chatID, domain.CategoryGeneral, now)
}

// NextDue возвращает момент следующей отправки категории в чат.
// Нулевое время означает, что отправка произойдет на ближайшем тике.
func (s *EngagementScheduler) NextDue(ctx context.Context, chatID domain.ChatID, category domain.Category) (time.Time, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return time.Time{}, err
	}
	last, ok, err := s.tracker.LastSent(ctx, chatID, category)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return last.Add(s.IntervalFor(*chat, category)), nil
}

func updateEnvelope(content string, now time.Time) string {
	return fmt.Sprintf("🤖 Assistant Update\n\n%s\n\n---\n🕐 %s • Use /help for more features!", content, now.Format(time.Kitchen))
}

func triggeredEnvelope(content, requester string, now time.Time) string {
	return fmt.Sprintf("🤖 Auto Response Triggered\n\n%s\n\n---\nRequested by: %s\n🕐 %s", content, requester, now.Format(time.Kitchen))
}
