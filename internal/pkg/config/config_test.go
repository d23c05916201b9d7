package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
bot:
  platform: telegram
  token: "123:abc"
  workers: 4
storage:
  driver: redis
  redis_url: "redis://localhost:6379/0"
server:
  host: "127.0.0.1"
  port: 8081
  shutdown_timeout: 5s
moderation:
  banned_words: ["scam", "casino"]
  caps_ratio: 0.5
  notice_ttl: 15s
  clear_on_ban: false
spam:
  flood_threshold: 12
  warning_cooldown: 45s
escalation:
  - warnings: 2
    action: mute
    duration: 30m
  - warnings: 4
    action: ban
engagement:
  default_interval: 6h
  quote_enabled: true
  quote_interval: 15m
logging:
  level: debug
  format: text
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Run("значения из файла накладываются на значения по умолчанию", func(t *testing.T) {
		path := createTempConfigFile(t, fullYAML)
		cfg := defaultConfig()
		require.NoError(t, loadFromYAML(path, cfg))

		assert.Equal(t, "123:abc", cfg.Bot.Token)
		assert.Equal(t, 4, cfg.Bot.Workers)
		assert.Equal(t, DefaultCommandPrefix, cfg.Bot.CommandPrefix)
		assert.Equal(t, StorageRedis, cfg.Storage.Driver)
		assert.Equal(t, 8081, cfg.Server.Port)
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, []string{"scam", "casino"}, cfg.Moderation.BannedWords)
		assert.Equal(t, 0.5, cfg.Moderation.CapsRatio)
		assert.Equal(t, 15*time.Second, cfg.Moderation.NoticeTTL)
		assert.False(t, cfg.Moderation.ClearOnBan)
		assert.True(t, cfg.Moderation.ExemptAdmins)
		assert.Equal(t, 12, cfg.Spam.FloodThreshold)
		assert.Equal(t, DefaultSpamThreshold, cfg.Spam.SpamThreshold)
		assert.Equal(t, 45*time.Second, cfg.Spam.WarningCooldown)
		require.Len(t, cfg.Escalation, 2)
		assert.Equal(t, 30*time.Minute, cfg.Escalation[0].Duration)
		assert.Equal(t, "ban", cfg.Escalation[1].Action)
		assert.Equal(t, 6*time.Hour, cfg.Engagement.DefaultInterval)
		assert.True(t, cfg.Engagement.QuoteEnabled)
		assert.Equal(t, "text", cfg.Logging.Format)

		require.NoError(t, cfg.Validate())
	})

	t.Run("ошибка для отсутствующего файла", func(t *testing.T) {
		err := loadFromYAML(filepath.Join(t.TempDir(), "missing.yml"), defaultConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("ошибка для некорректного YAML", func(t *testing.T) {
		path := createTempConfigFile(t, "bot: [unclosed")
		err := loadFromYAML(path, defaultConfig())
		require.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("без файла используются значения по умолчанию и окружение", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "env-token")
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("SERVER_PORT", "9090")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Bot.Token)
		assert.Equal(t, StorageMemory, cfg.Storage.Driver)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0:9090", cfg.Address())
		require.NoError(t, cfg.Validate())
	})

	t.Run("некорректный SERVER_PORT", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "eighty")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Bot.Token = "123:abc"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"нет токена", func(c *Config) { c.Bot.Token = "" }, "bot.token"},
		{"discord без токена", func(c *Config) { c.Bot.Platform = PlatformDiscord }, "bot.discord_token"},
		{"неизвестная платформа", func(c *Config) { c.Bot.Platform = "irc" }, "bot.platform"},
		{"неизвестный драйвер", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"redis без url", func(c *Config) { c.Storage.Driver = StorageRedis }, "storage.redis_url"},
		{"порт вне диапазона", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"caps_ratio больше 1", func(c *Config) { c.Moderation.CapsRatio = 1.5 }, "caps_ratio"},
		{"spam больше flood", func(c *Config) { c.Spam.SpamThreshold = 11 }, "spam.spam_threshold"},
		{"flood больше истории", func(c *Config) { c.Spam.FloodThreshold = 30 }, "history_size"},
		{"min_interval больше default", func(c *Config) { c.Engagement.MinInterval = 4 * time.Hour }, "min_interval"},
		{"неверный уровень логов", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"неверный формат логов", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateEscalation(t *testing.T) {
	require.NoError(t, ValidateEscalation(DefaultEscalation))
	require.NoError(t, ValidateEscalation(nil))

	tests := []struct {
		name   string
		levels []EscalationLevel
	}{
		{"неупорядоченные ступени", []EscalationLevel{{Warnings: 4, Action: "mute", Duration: time.Hour}, {Warnings: 3, Action: "mute", Duration: 2 * time.Hour}}},
		{"мут короче предыдущего", []EscalationLevel{{Warnings: 3, Action: "mute", Duration: 2 * time.Hour}, {Warnings: 4, Action: "mute", Duration: time.Hour}}},
		{"мут после бана", []EscalationLevel{{Warnings: 3, Action: "ban"}, {Warnings: 4, Action: "mute", Duration: time.Hour}}},
		{"неизвестное действие", []EscalationLevel{{Warnings: 3, Action: "kick"}}},
		{"мут без длительности", []EscalationLevel{{Warnings: 3, Action: "mute"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateEscalation(tt.levels))
		})
	}
}
