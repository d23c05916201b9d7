package server

import (
	"time"

	"telegram-moderation-bot/internal/domain"
)

// ChatDTO — чат реестра в ответах API.
type ChatDTO struct {
	ChatID        string    `json:"chat_id"`
	Title         string    `json:"title"`
	JoinedAt      time.Time `json:"joined_at"`
	AutoContent   bool      `json:"auto_content"`
	IntervalHours *float64  `json:"interval_hours,omitempty"`
}

func newChatDTO(c domain.ChatInfo) ChatDTO {
	return ChatDTO{
		ChatID:        string(c.ChatID),
		Title:         c.Title,
		JoinedAt:      c.JoinedAt,
		AutoContent:   c.AutoContentEnabled,
		IntervalHours: c.IntervalOverrideHours,
	}
}

// WarningDTO — одно предупреждение.
type WarningDTO struct {
	Reason   string    `json:"reason"`
	Issuer   string    `json:"issuer"`
	IssuedAt time.Time `json:"issued_at"`
}

// UserWarningsDTO — журнал предупреждений пользователя в чате.
type UserWarningsDTO struct {
	ChatID   string       `json:"chat_id"`
	UserID   string       `json:"user_id"`
	Count    int          `json:"count"`
	Warnings []WarningDTO `json:"warnings"`
}

func newUserWarningsDTO(chatID domain.ChatID, userID domain.UserID, warnings []domain.Warning) UserWarningsDTO {
	out := UserWarningsDTO{
		ChatID:   string(chatID),
		UserID:   string(userID),
		Count:    len(warnings),
		Warnings: make([]WarningDTO, 0, len(warnings)),
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, WarningDTO(w))
	}
	return out
}

// WarnRequest — тело запроса на выдачу предупреждения.
type WarnRequest struct {
	Reason string `json:"reason"`
	Issuer string `json:"issuer"`
	Name   string `json:"name,omitempty"`
}

// WarnResponse — результат выдачи предупреждения.
type WarnResponse struct {
	Count      int    `json:"count"`
	Punishment string `json:"punishment"`
}

// SettingsRequest — изменение настроек автоматического контента.
// Нулевой IntervalHours возвращает интервал по умолчанию.
type SettingsRequest struct {
	AutoContent   *bool    `json:"auto_content,omitempty"`
	IntervalHours *float64 `json:"interval_hours,omitempty"`
}

// TriggerRequest — запрос на немедленную отправку контента.
type TriggerRequest struct {
	Requester string `json:"requester"`
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
