// Package domain содержит модели предметной области бота-модератора.
package domain

import (
	"fmt"
	"time"
)

// ChatID, UserID и MessageID — непрозрачные идентификаторы от адаптера платформы.
// Используются только как ключи, никогда не интерпретируются.
type (
	ChatID    string
	UserID    string
	MessageID string
)

// MessageEvent — нормализованное входящее сообщение от адаптера платформы.
type MessageEvent struct {
	ChatID      ChatID
	ChatTitle   string
	UserID      UserID
	MessageID   MessageID
	DisplayName string
	Text        string
	ReceivedAt  time.Time
	// Private означает личный диалог с ботом, а не групповой чат.
	Private bool
	// IsBot — сообщение отправлено другим ботом.
	IsBot bool
	// ReplyToUserID — автор сообщения, на которое отвечают; цель команд модерации.
	ReplyToUserID UserID
	ReplyToName   string
}

// MembershipEvent сообщает о добавлении бота в чат или удалении из него.
type MembershipEvent struct {
	ChatID    ChatID
	ChatTitle string
	Joined    bool
	At        time.Time
}

// SpamKind — вариант вердикта детектора спама.
type SpamKind int

const (
	SpamClean SpamKind = iota
	SpamFlood
	SpamDuplicate
	SpamKeyboardMash
)

func (k SpamKind) String() string {
	switch k {
	case SpamFlood:
		return "flood"
	case SpamDuplicate:
		return "duplicate_spam"
	case SpamKeyboardMash:
		return "keyboard_mash"
	default:
		return "clean"
	}
}

// SpamVerdict — результат классификации одного сообщения детектором спама.
// Создается заново для каждого сообщения и никогда не хранится.
type SpamVerdict struct {
	Kind         SpamKind
	MessageCount int
	Window       time.Duration
	RepeatCount  int
}

// IsClean сообщает, что нарушений не найдено.
func (v SpamVerdict) IsClean() bool { return v.Kind == SpamClean }

// Reason возвращает текст причины для предупреждения.
func (v SpamVerdict) Reason() string {
	switch v.Kind {
	case SpamFlood:
		return fmt.Sprintf("flood: %d messages in %s", v.MessageCount, v.Window)
	case SpamDuplicate:
		return fmt.Sprintf("spam: same message repeated %d times", v.RepeatCount)
	case SpamKeyboardMash:
		return "spam: keyboard mash"
	default:
		return ""
	}
}

// ViolationKind — вариант вердикта модератора контента.
type ViolationKind int

const (
	ViolationNone ViolationKind = iota
	ViolationBadWord
	ViolationExcessiveCaps
	ViolationLink
	ViolationMassMention
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationBadWord:
		return "bad_word"
	case ViolationExcessiveCaps:
		return "excessive_caps"
	case ViolationLink:
		return "link"
	case ViolationMassMention:
		return "mass_mention"
	default:
		return "clean"
	}
}

// Remedy — действие, которое подразумевает вердикт.
type Remedy int

const (
	RemedyNone Remedy = iota
	RemedyDeleteMessage
	RemedyWarnOnly
)

// ModerationVerdict — результат проверки текста модератором контента.
type ModerationVerdict struct {
	Kind        ViolationKind
	MatchedTerm string
	Ratio       float64
}

// IsClean сообщает, что нарушений не найдено.
func (v ModerationVerdict) IsClean() bool { return v.Kind == ViolationNone }

// Remedy возвращает действие для вердикта: капс только предупреждается,
// остальные нарушения приводят к удалению сообщения.
func (v ModerationVerdict) Remedy() Remedy {
	switch v.Kind {
	case ViolationNone:
		return RemedyNone
	case ViolationExcessiveCaps:
		return RemedyWarnOnly
	default:
		return RemedyDeleteMessage
	}
}

// Reason возвращает текст причины для предупреждения.
func (v ModerationVerdict) Reason() string {
	switch v.Kind {
	case ViolationBadWord:
		return "inappropriate language"
	case ViolationExcessiveCaps:
		return fmt.Sprintf("excessive caps (%.0f%%)", v.Ratio*100)
	case ViolationLink:
		return "links are not allowed"
	case ViolationMassMention:
		return "mass mention"
	default:
		return ""
	}
}

// Warning — одно выданное предупреждение. Неизменяемо после создания.
type Warning struct {
	Reason   string    `json:"reason"`
	Issuer   string    `json:"issuer"`
	IssuedAt time.Time `json:"issued_at"`
}

// WarningRecord — история предупреждений пары (чат, пользователь).
// Инвариант: количество предупреждений всегда равно len(Warnings).
type WarningRecord struct {
	ChatID   ChatID    `json:"chat_id"`
	UserID   UserID    `json:"user_id"`
	Warnings []Warning `json:"warnings"`
}

// Count возвращает количество предупреждений.
func (r *WarningRecord) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Warnings)
}

// PunishmentKind — тип наказания.
type PunishmentKind int

const (
	PunishNone PunishmentKind = iota
	PunishMute
	PunishBan
)

func (k PunishmentKind) String() string {
	switch k {
	case PunishMute:
		return "mute"
	case PunishBan:
		return "ban"
	default:
		return "none"
	}
}

// Punishment — наказание, следующее из количества предупреждений.
type Punishment struct {
	Kind     PunishmentKind
	Duration time.Duration // только для PunishMute
}

// IsNone сообщает об отсутствии наказания.
func (p Punishment) IsNone() bool { return p.Kind == PunishNone }

// Compare сравнивает тяжесть наказаний: -1, 0 или 1.
// Мут сравнивается по длительности, бан тяжелее любого мута.
func (p Punishment) Compare(other Punishment) int {
	if p.Kind != other.Kind {
		if p.Kind < other.Kind {
			return -1
		}
		return 1
	}
	if p.Kind == PunishMute && p.Duration != other.Duration {
		if p.Duration < other.Duration {
			return -1
		}
		return 1
	}
	return 0
}

func (p Punishment) String() string {
	if p.Kind == PunishMute {
		return "mute " + HumanDuration(p.Duration)
	}
	return p.Kind.String()
}

// ActionKind — итог обработки сообщения модератором.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionDeleted
	ActionWarned
	ActionPunished
)

func (k ActionKind) String() string {
	switch k {
	case ActionDeleted:
		return "deleted"
	case ActionWarned:
		return "warned"
	case ActionPunished:
		return "punished"
	default:
		return "no_action"
	}
}

// Action описывает, что модератор сделал с сообщением.
type Action struct {
	Kind         ActionKind
	WarningCount int
	Punishment   Punishment
}

// Category — категория автоматического контента.
type Category string

const (
	CategoryGeneral Category = "general_content"
	CategoryQuote   Category = "quote_content"
)

// CooldownState — время последней отправки категории в чат.
type CooldownState struct {
	ChatID     ChatID
	Category   Category
	LastSentAt time.Time
}

// ChatInfo — запись реестра чатов, в которых состоит бот.
type ChatInfo struct {
	ChatID             ChatID    `json:"chat_id"`
	Title              string    `json:"title"`
	JoinedAt           time.Time `json:"joined_at"`
	AutoContentEnabled bool      `json:"-"`
	// IntervalOverrideHours — индивидуальный интервал чата, nil если используется значение по умолчанию.
	IntervalOverrideHours *float64 `json:"-"`
}

// HumanDuration форматирует длительность в короткий вид: 1h, 24h, 7d, 30m.
func HumanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d%(24*time.Hour) == 0 && d >= 48*time.Hour:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return d.String()
	}
}
