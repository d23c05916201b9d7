package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

// baseLinkPattern находит схемы URL, www-адреса и голые домены с распространенными зонами.
const baseLinkPattern = `(?:[a-z][a-z0-9+.-]*://\S+)` +
	`|(?:\bwww\.\S+)` +
	`|(?:\b[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:com|net|org|ru|io|me|gg|ly|co|info|xyz|top|site|online|app|dev|tk|biz|su|ua|de|uk)\b)`

// ContentModerator — классификатор сообщений без состояния. Проверки выполняются по порядку,
// срабатывает первая.
type ContentModerator struct {
	bannedWords   []string
	massMentions  []string
	capsRatio     float64
	capsMinLength int
	linkRegexp    *regexp.Regexp
}

// NewContentModerator создает новый экземпляр ContentModerator.
func NewContentModerator(cfg config.Moderation) *ContentModerator {
	patterns := []string{baseLinkPattern}
	for _, domainName := range cfg.InviteDomains {
		domainName = strings.TrimSpace(strings.ToLower(domainName))
		if domainName == "" {
			continue
		}
		patterns = append(patterns, `(?:\b`+regexp.QuoteMeta(domainName)+`\b)`)
	}

	return &ContentModerator{
		bannedWords:   lowerAll(cfg.BannedWords),
		massMentions:  lowerAll(cfg.MassMentions),
		capsRatio:     cfg.CapsRatio,
		capsMinLength: cfg.CapsMinLength,
		linkRegexp:    regexp.MustCompile(`(?i)` + strings.Join(patterns, "|")),
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Classify возвращает вердикт для текста сообщения.
func (m *ContentModerator) Classify(text string) domain.ModerationVerdict {
	lower := strings.ToLower(text)

	for _, word := range m.bannedWords {
		if strings.Contains(lower, word) {
			return domain.ModerationVerdict{Kind: domain.ViolationBadWord, MatchedTerm: word}
		}
	}

	if ratio, ok := m.capsViolation(text); ok {
		return domain.ModerationVerdict{Kind: domain.ViolationExcessiveCaps, Ratio: ratio}
	}

	if m.linkRegexp.MatchString(text) {
		return domain.ModerationVerdict{Kind: domain.ViolationLink}
	}

	for _, mention := range m.massMentions {
		if strings.Contains(lower, mention) {
			return domain.ModerationVerdict{Kind: domain.ViolationMassMention, MatchedTerm: mention}
		}
	}

	return domain.ModerationVerdict{Kind: domain.ViolationNone}
}

// capsViolation считает долю заглавных букв от общей длины текста в рунах.
func (m *ContentModerator) capsViolation(text string) (float64, bool) {
	length := utf8.RuneCountInString(text)
	if length <= m.capsMinLength {
		return 0, false
	}
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	ratio := float64(upper) / float64(length)
	return ratio, ratio > m.capsRatio
}
