// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Поддерживаемые платформы.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Bot содержит конфигурацию подключения к платформе
type Bot struct {
	Platform      string `yaml:"platform"`
	Token         string `yaml:"token"`
	DiscordToken  string `yaml:"discord_token"`
	CommandPrefix string `yaml:"command_prefix"`
	// Workers — число параллельных обработчиков; сообщения одного чата всегда обрабатываются по порядку.
	Workers     int `yaml:"workers"`
	PollTimeout int `yaml:"poll_timeout_seconds"`
}

// Storage содержит конфигурацию хранилища
type Storage struct {
	Driver   string `yaml:"driver"` // memory, sqlite, redis
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// Server содержит конфигурацию HTTP API администратора
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// APIToken защищает /api/v1; пустое значение отключает API (остаются /health и /metrics).
	APIToken string `yaml:"api_token"`
}

// Moderation содержит настройки модератора контента и оркестратора
type Moderation struct {
	Enabled        bool          `yaml:"enabled"`
	ExemptAdmins   bool          `yaml:"exempt_admins"`
	BannedWords    []string      `yaml:"banned_words"`
	CapsRatio      float64       `yaml:"caps_ratio"`
	CapsMinLength  int           `yaml:"caps_min_length"`
	MassMentions   []string      `yaml:"mass_mentions"`
	InviteDomains  []string      `yaml:"invite_domains"`
	NoticeTTL      time.Duration `yaml:"notice_ttl"`
	ClearOnBan     bool          `yaml:"clear_on_ban"`
	AdminCacheTTL  time.Duration `yaml:"admin_cache_ttl"`
	AdminCacheSize int           `yaml:"admin_cache_size"`
}

// Spam содержит пороги детектора спама
type Spam struct {
	HistorySize      int           `yaml:"history_size"`
	Window           time.Duration `yaml:"window"`
	FloodThreshold   int           `yaml:"flood_threshold"`
	SpamThreshold    int           `yaml:"spam_threshold"`
	MaxDistinctTexts int           `yaml:"max_distinct_texts"`
	WarningCooldown  time.Duration `yaml:"warning_cooldown"`
	MashMinLength    int           `yaml:"mash_min_length"`
	MashMaxDistinct  int           `yaml:"mash_max_distinct"`
	IdleTTL          time.Duration `yaml:"idle_ttl"`
}

// EscalationLevel — ступень лестницы наказаний.
type EscalationLevel struct {
	Warnings int           `yaml:"warnings"`
	Action   string        `yaml:"action"` // mute, ban
	Duration time.Duration `yaml:"duration"`
}

// Engagement содержит настройки планировщика автоматических сообщений
type Engagement struct {
	Enabled         bool          `yaml:"enabled"`
	Schedule        string        `yaml:"schedule"` // cron-выражение драйвера тиков
	DefaultInterval time.Duration `yaml:"default_interval"`
	MinInterval     time.Duration `yaml:"min_interval"`
	QuoteEnabled    bool          `yaml:"quote_enabled"`
	QuoteInterval   time.Duration `yaml:"quote_interval"`
	QuoteAPIURL     string        `yaml:"quote_api_url"`
	QuoteAPITimeout time.Duration `yaml:"quote_api_timeout"`
	QuoteAPIRetries int           `yaml:"quote_api_retries"`
	SendsPerSecond  float64       `yaml:"sends_per_second"`
}

// Export содержит настройки выгрузки журнала предупреждений
type Export struct {
	ExcelThreshold int `yaml:"excel_threshold"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Bot        Bot               `yaml:"bot"`
	Storage    Storage           `yaml:"storage"`
	Server     Server            `yaml:"server"`
	Moderation Moderation        `yaml:"moderation"`
	Spam       Spam              `yaml:"spam"`
	Escalation []EscalationLevel `yaml:"escalation"`
	Engagement Engagement        `yaml:"engagement"`
	Export     Export            `yaml:"export"`
	Logging    Logging           `yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию.
func defaultConfig() *Config {
	return &Config{
		Bot: Bot{
			Platform:      DefaultPlatform,
			CommandPrefix: DefaultCommandPrefix,
			Workers:       DefaultWorkers,
			PollTimeout:   DefaultPollTimeout,
		},
		Storage: Storage{
			Driver: DefaultStorageDriver,
			Path:   DefaultStoragePath,
		},
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Moderation: Moderation{
			Enabled:        true,
			ExemptAdmins:   true,
			BannedWords:    append([]string(nil), DefaultBannedWords...),
			CapsRatio:      DefaultCapsRatio,
			CapsMinLength:  DefaultCapsMinLength,
			MassMentions:   append([]string(nil), DefaultMassMentions...),
			InviteDomains:  append([]string(nil), DefaultInviteDomains...),
			NoticeTTL:      DefaultNoticeTTL,
			ClearOnBan:     true,
			AdminCacheTTL:  DefaultAdminCacheTTL,
			AdminCacheSize: DefaultAdminCacheSize,
		},
		Spam: Spam{
			HistorySize:      DefaultSpamHistorySize,
			Window:           DefaultSpamWindow,
			FloodThreshold:   DefaultFloodThreshold,
			SpamThreshold:    DefaultSpamThreshold,
			MaxDistinctTexts: DefaultSpamMaxDistinctTexts,
			WarningCooldown:  DefaultSpamWarningCooldown,
			MashMinLength:    DefaultMashMinLength,
			MashMaxDistinct:  DefaultMashMaxDistinct,
			IdleTTL:          DefaultSpamIdleTTL,
		},
		Escalation: append([]EscalationLevel(nil), DefaultEscalation...),
		Engagement: Engagement{
			Enabled:         true,
			Schedule:        DefaultEngagementSchedule,
			DefaultInterval: DefaultGeneralInterval,
			MinInterval:     DefaultMinInterval,
			QuoteInterval:   DefaultQuoteInterval,
			QuoteAPITimeout: DefaultQuoteAPITimeout,
			QuoteAPIRetries: DefaultQuoteAPIRetries,
			SendsPerSecond:  DefaultSendsPerSecond,
		},
		Export: Export{
			ExcelThreshold: DefaultWarnlistExcelThreshold,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Default возвращает конфигурацию со значениями по умолчанию без чтения файлов и окружения.
func Default() *Config {
	return defaultConfig()
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл (если он есть),
// затем переменные окружения, включая .env.
func LoadConfig(filename string) (*Config, error) {
	// Отсутствие .env — нормальная ситуация, переменные могут быть заданы окружением.
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML(filename, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла поверх cfg.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// applyEnv переопределяет секреты и основные параметры из переменных окружения.
func applyEnv(cfg *Config) error {
	setString(&cfg.Bot.Token, "BOT_TOKEN")
	setString(&cfg.Bot.DiscordToken, "DISCORD_TOKEN")
	setString(&cfg.Bot.Platform, "BOT_PLATFORM")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.Path, "STORAGE_PATH")
	setString(&cfg.Storage.RedisURL, "REDIS_URL")
	setString(&cfg.Server.APIToken, "ADMIN_API_TOKEN")
	setString(&cfg.Engagement.QuoteAPIURL, "QUOTE_API_URL")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	switch c.Bot.Platform {
	case PlatformTelegram:
		if c.Bot.Token == "" || c.Bot.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
			return fmt.Errorf("bot.token is not configured")
		}
	case PlatformDiscord:
		if c.Bot.DiscordToken == "" {
			return fmt.Errorf("bot.discord_token is not configured")
		}
	default:
		return fmt.Errorf("bot.platform должен быть одним из: telegram, discord")
	}
	if c.Bot.CommandPrefix == "" {
		return fmt.Errorf("bot.command_prefix cannot be empty")
	}
	if c.Bot.Workers <= 0 {
		return fmt.Errorf("bot.workers must be positive")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path cannot be empty for sqlite")
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url cannot be empty for redis")
		}
	default:
		return fmt.Errorf("storage.driver должен быть одним из: memory, sqlite, redis")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Moderation.CapsRatio <= 0 || c.Moderation.CapsRatio > 1 {
		return fmt.Errorf("moderation.caps_ratio должен быть в диапазоне (0, 1]")
	}
	if c.Moderation.CapsMinLength < 0 {
		return fmt.Errorf("moderation.caps_min_length должно быть неотрицательным")
	}
	if c.Moderation.NoticeTTL < 0 {
		return fmt.Errorf("moderation.notice_ttl должно быть неотрицательным")
	}
	if c.Moderation.AdminCacheSize <= 0 {
		return fmt.Errorf("moderation.admin_cache_size must be positive")
	}

	if err := c.Spam.validate(); err != nil {
		return err
	}
	if err := ValidateEscalation(c.Escalation); err != nil {
		return err
	}

	if c.Engagement.Enabled {
		if c.Engagement.Schedule == "" {
			return fmt.Errorf("engagement.schedule cannot be empty")
		}
		if c.Engagement.DefaultInterval <= 0 {
			return fmt.Errorf("engagement.default_interval должно быть положительным")
		}
		if c.Engagement.MinInterval <= 0 || c.Engagement.MinInterval > c.Engagement.DefaultInterval {
			return fmt.Errorf("engagement.min_interval должно быть положительным и не больше default_interval")
		}
		if c.Engagement.QuoteEnabled && c.Engagement.QuoteInterval <= 0 {
			return fmt.Errorf("engagement.quote_interval должно быть положительным")
		}
		if c.Engagement.SendsPerSecond <= 0 {
			return fmt.Errorf("engagement.sends_per_second должно быть положительным")
		}
	}

	if c.Export.ExcelThreshold <= 0 {
		return fmt.Errorf("export.excel_threshold must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}

func (s Spam) validate() error {
	if s.HistorySize <= 0 {
		return fmt.Errorf("spam.history_size must be positive")
	}
	if s.Window <= 0 {
		return fmt.Errorf("spam.window must be positive")
	}
	if s.SpamThreshold <= 0 || s.FloodThreshold < s.SpamThreshold {
		return fmt.Errorf("spam.spam_threshold must be positive and not greater than spam.flood_threshold")
	}
	if s.FloodThreshold > s.HistorySize {
		return fmt.Errorf("spam.flood_threshold cannot exceed spam.history_size")
	}
	if s.MaxDistinctTexts <= 0 {
		return fmt.Errorf("spam.max_distinct_texts must be positive")
	}
	if s.WarningCooldown < 0 {
		return fmt.Errorf("spam.warning_cooldown must be non-negative")
	}
	if s.IdleTTL <= 0 {
		return fmt.Errorf("spam.idle_ttl must be positive")
	}
	return nil
}

// ValidateEscalation проверяет, что ступени упорядочены по числу предупреждений
// и тяжесть наказания не убывает.
func ValidateEscalation(levels []EscalationLevel) error {
	prevWarnings := 0
	var prevDuration time.Duration
	banned := false
	for i, l := range levels {
		if l.Warnings <= prevWarnings {
			return fmt.Errorf("escalation[%d].warnings должно быть больше предыдущей ступени", i)
		}
		prevWarnings = l.Warnings
		switch l.Action {
		case "mute":
			if banned {
				return fmt.Errorf("escalation[%d]: mute не может следовать за ban", i)
			}
			if l.Duration <= 0 {
				return fmt.Errorf("escalation[%d].duration должно быть положительным", i)
			}
			if l.Duration < prevDuration {
				return fmt.Errorf("escalation[%d].duration не может быть меньше предыдущей ступени", i)
			}
			prevDuration = l.Duration
		case "ban":
			banned = true
		default:
			return fmt.Errorf("escalation[%d].action должен быть mute или ban", i)
		}
	}
	return nil
}
