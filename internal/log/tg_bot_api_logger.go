package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
// Библиотека пишет сюда в основном ошибки long polling, поэтому уровень — Warn.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.Logger.Warn(strings.TrimSpace(fmt.Sprintln(v...)), slog.String("source", "tgbotapi"))
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("source", "tgbotapi"))
}
