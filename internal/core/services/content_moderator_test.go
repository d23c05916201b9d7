package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

func defaultModerationConfig() config.Moderation {
	return config.Moderation{
		Enabled:        true,
		ExemptAdmins:   true,
		BannedWords:    config.DefaultBannedWords,
		CapsRatio:      config.DefaultCapsRatio,
		CapsMinLength:  config.DefaultCapsMinLength,
		MassMentions:   config.DefaultMassMentions,
		InviteDomains:  config.DefaultInviteDomains,
		NoticeTTL:      config.DefaultNoticeTTL,
		ClearOnBan:     true,
		AdminCacheTTL:  config.DefaultAdminCacheTTL,
		AdminCacheSize: config.DefaultAdminCacheSize,
	}
}

func TestContentModerator_Classify(t *testing.T) {
	m := NewContentModerator(defaultModerationConfig())

	tests := []struct {
		text string
		want domain.ViolationKind
	}{
		{"check this out http://evil.example", domain.ViolationLink},
		{"HELLO EVERYONE THIS IS GREAT", domain.ViolationExcessiveCaps},
		{"hi @everyone", domain.ViolationMassMention},
		{"good morning team", domain.ViolationNone},
		{"what the Fuck is this", domain.ViolationBadWord},
		{"join t.me/joinchat/abc", domain.ViolationLink},
		{"visit www.example.org today", domain.ViolationLink},
		{"come to discord.gg/xyz", domain.ViolationLink},
		{"my site is example.com", domain.ViolationLink},
		{"ping @HERE please", domain.ViolationMassMention},
		{"OK", domain.ViolationNone},
		{"ПРИВЕТ ВСЕМ В ЧАТЕ", domain.ViolationExcessiveCaps},
		{"version 1.2.3 released", domain.ViolationNone},
		{"", domain.ViolationNone},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Classify(tt.text).Kind)
		})
	}
}

func TestContentModerator_FirstMatchWins(t *testing.T) {
	m := NewContentModerator(defaultModerationConfig())

	// Запрещенное слово важнее капса и ссылки.
	v := m.Classify("SHIT LOOK AT HTTP://SPAM.COM")
	assert.Equal(t, domain.ViolationBadWord, v.Kind)
	assert.Equal(t, "shit", v.MatchedTerm)
	assert.Equal(t, domain.RemedyDeleteMessage, v.Remedy())

	// Капс важнее ссылки.
	v = m.Classify("LOOK AT HTTP://SPAM.COM NOW")
	assert.Equal(t, domain.ViolationExcessiveCaps, v.Kind)
	assert.Equal(t, domain.RemedyWarnOnly, v.Remedy())
	assert.Greater(t, v.Ratio, 0.4)
}

func TestContentModerator_CapsBoundary(t *testing.T) {
	m := NewContentModerator(defaultModerationConfig())

	// Ровно 10 символов не проверяются на капс.
	assert.True(t, m.Classify("ABCDEFGHIJ").IsClean())
	// 11 символов, 4 заглавных: 0.36 < 0.4.
	assert.True(t, m.Classify("ABCDefghijk").IsClean())
	// 11 символов, 5 заглавных: 0.45 > 0.4.
	assert.Equal(t, domain.ViolationExcessiveCaps, m.Classify("ABCDEfghijk").Kind)
}

func TestContentModerator_CustomConfig(t *testing.T) {
	cfg := defaultModerationConfig()
	cfg.BannedWords = []string{" Casino "}
	cfg.InviteDomains = []string{"invite.example"}
	m := NewContentModerator(cfg)

	assert.Equal(t, domain.ViolationBadWord, m.Classify("best CASINO bonuses").Kind)
	assert.Equal(t, domain.ViolationLink, m.Classify("join invite.example/room").Kind)
	assert.True(t, m.Classify("fuck").IsClean(), "список слов заменяется целиком")
}
