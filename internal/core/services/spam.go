package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

type historyEntry struct {
	text string
	at   time.Time
}

// userHistory — ограниченная история сообщений пары (чат, пользователь).
type userHistory struct {
	mu            sync.Mutex
	entries       []historyEntry
	lastTriggered time.Time
	spamCount     int
	lastSeen      time.Time
}

// SpamDetector классифицирует сообщения по скользящему окну истории отправителя.
// Безопасен для одновременного использования из разных чатов.
type SpamDetector struct {
	cfg       config.Spam
	histories *xsync.MapOf[string, *userHistory]
	log       *slog.Logger
}

// SpamOption — функциональная опция для настройки SpamDetector.
type SpamOption func(*SpamDetector)

// WithSpamLogger устанавливает логгер детектора.
func WithSpamLogger(l *slog.Logger) SpamOption {
	return func(d *SpamDetector) {
		if l != nil {
			d.log = l
		}
	}
}

// NewSpamDetector создает новый экземпляр SpamDetector.
func NewSpamDetector(cfg config.Spam, opts ...SpamOption) *SpamDetector {
	d := &SpamDetector{
		cfg:       cfg,
		histories: xsync.NewMapOf[string, *userHistory](),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func historyKey(chatID domain.ChatID, userID domain.UserID) string {
	return string(chatID) + ":" + string(userID)
}

// Classify добавляет сообщение в историю пользователя и возвращает вердикт.
func (d *SpamDetector) Classify(chatID domain.ChatID, userID domain.UserID, text string, now time.Time) domain.SpamVerdict {
	h, _ := d.histories.LoadOrCompute(historyKey(chatID, userID), func() *userHistory {
		return &userHistory{entries: make([]historyEntry, 0, d.cfg.HistorySize)}
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, historyEntry{text: text, at: now})
	if over := len(h.entries) - d.cfg.HistorySize; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
	h.lastSeen = now

	if !h.lastTriggered.IsZero() && now.Sub(h.lastTriggered) < d.cfg.WarningCooldown {
		return domain.SpamVerdict{Kind: domain.SpamClean}
	}

	verdict := d.evaluate(h, text, now)
	if verdict.IsClean() {
		return verdict
	}

	h.lastTriggered = now
	h.spamCount++
	return verdict
}

func (d *SpamDetector) evaluate(h *userHistory, text string, now time.Time) domain.SpamVerdict {
	recent := 0
	distinct := make(map[string]struct{})
	for _, e := range h.entries {
		if now.Sub(e.at) < d.cfg.Window {
			recent++
			distinct[e.text] = struct{}{}
		}
	}

	switch {
	case recent >= d.cfg.FloodThreshold:
		return domain.SpamVerdict{Kind: domain.SpamFlood, MessageCount: recent, Window: d.cfg.Window}
	case recent >= d.cfg.SpamThreshold && len(distinct) <= d.cfg.MaxDistinctTexts:
		return domain.SpamVerdict{Kind: domain.SpamDuplicate, RepeatCount: recent}
	case isKeyboardMash(text, d.cfg.MashMinLength, d.cfg.MashMaxDistinct):
		return domain.SpamVerdict{Kind: domain.SpamKeyboardMash}
	}

	if recent < 3 && h.spamCount > 0 {
		h.spamCount--
	}
	return domain.SpamVerdict{Kind: domain.SpamClean}
}

// isKeyboardMash — длинный текст из очень малого набора символов, например "aaaaaaaaaaaaaaaaaaaaaa".
func isKeyboardMash(text string, minLength, maxDistinct int) bool {
	if utf8.RuneCountInString(text) <= minLength {
		return false
	}
	seen := make(map[rune]struct{}, maxDistinct)
	for _, r := range text {
		seen[r] = struct{}{}
		if len(seen) >= maxDistinct {
			return false
		}
	}
	return true
}

// Offenses возвращает текущий счетчик нарушений пользователя. Используется только для отображения.
func (d *SpamDetector) Offenses(chatID domain.ChatID, userID domain.UserID) int {
	h, ok := d.histories.Load(historyKey(chatID, userID))
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spamCount
}

// Forget удаляет историю пользователя, например после бана.
func (d *SpamDetector) Forget(chatID domain.ChatID, userID domain.UserID) {
	d.histories.Delete(historyKey(chatID, userID))
}

// Size возвращает число отслеживаемых историй.
func (d *SpamDetector) Size() int {
	return d.histories.Size()
}

// Cleanup удаляет истории, в которых не было сообщений дольше IdleTTL.
func (d *SpamDetector) Cleanup(now time.Time) int {
	removed := 0
	d.histories.Range(func(key string, _ *userHistory) bool {
		d.histories.Compute(key, func(h *userHistory, loaded bool) (*userHistory, bool) {
			if !loaded {
				return h, true
			}
			h.mu.Lock()
			idle := now.Sub(h.lastSeen) > d.cfg.IdleTTL
			h.mu.Unlock()
			if idle {
				removed++
			}
			return h, idle
		})
		return true
	})
	return removed
}

// StartCleanupTicker запускает фоновую очистку простаивающих историй до отмены контекста.
func (d *SpamDetector) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if removed := d.Cleanup(now); removed > 0 {
					d.log.Debug("Evicted idle spam histories", "removed", removed, "remaining", d.Size())
				}
			}
		}
	}()
}
