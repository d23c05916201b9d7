package config

import "time"

// Default values for configuration.
const (
	// Bot defaults
	DefaultPlatform      = PlatformTelegram
	DefaultCommandPrefix = "/"
	DefaultWorkers       = 8
	DefaultPollTimeout   = 60

	// Storage defaults
	DefaultStorageDriver = StorageSQLite
	DefaultStoragePath   = "data/bot.db"

	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second

	// Moderation defaults
	DefaultCapsRatio      = 0.4
	DefaultCapsMinLength  = 10
	DefaultNoticeTTL      = 10 * time.Second
	DefaultAdminCacheTTL  = 5 * time.Minute
	DefaultAdminCacheSize = 4096

	// Spam defaults
	DefaultSpamHistorySize      = 20
	DefaultSpamWindow           = 30 * time.Second
	DefaultFloodThreshold       = 10
	DefaultSpamThreshold        = 5
	DefaultSpamMaxDistinctTexts = 2
	DefaultSpamWarningCooldown  = 30 * time.Second
	DefaultMashMinLength        = 20
	DefaultMashMaxDistinct      = 5
	DefaultSpamIdleTTL          = 10 * time.Minute

	// Engagement defaults
	DefaultEngagementSchedule = "@every 1m"
	DefaultGeneralInterval    = 3 * time.Hour
	DefaultMinInterval        = 1 * time.Hour
	DefaultQuoteInterval      = 10 * time.Minute
	DefaultSendsPerSecond     = 1.0
	DefaultQuoteAPITimeout    = 5 * time.Second
	DefaultQuoteAPIRetries    = 2

	// Export defaults
	DefaultWarnlistExcelThreshold = 30

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultBannedWords — базовый список запрещенных слов.
var DefaultBannedWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "cunt", "dickhead", "motherfucker",
}

// DefaultMassMentions — токены массового упоминания.
var DefaultMassMentions = []string{"@everyone", "@all", "@here"}

// DefaultInviteDomains — домены приглашений в другие чаты.
var DefaultInviteDomains = []string{
	"t.me", "telegram.me", "telegram.dog", "discord.gg", "discord.com/invite", "chat.whatsapp.com",
}

// DefaultEscalation — лестница наказаний по количеству предупреждений.
var DefaultEscalation = []EscalationLevel{
	{Warnings: 3, Action: "mute", Duration: time.Hour},
	{Warnings: 4, Action: "mute", Duration: 24 * time.Hour},
	{Warnings: 5, Action: "mute", Duration: 7 * 24 * time.Hour},
	{Warnings: 6, Action: "ban"},
}
