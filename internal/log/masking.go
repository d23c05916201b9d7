package log

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// minSecretLength — более короткие литеральные секреты не маскируются.
const minSecretLength = 8

type maskRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Правила для учетных данных, которые встречаются в ошибках библиотек:
// URL Bot API, токены Discord в заголовках, пароли в адресе Redis.
var maskRules = []maskRule{
	{regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`), "bot***:***masked-token***"},
	{regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{35,}`), "***:***masked-token***"},
	{regexp.MustCompile(`\b[MNO][A-Za-z\d_-]{23,27}\.[A-Za-z\d_-]{6}\.[A-Za-z\d_-]{27,40}\b`), "***masked-discord-token***"},
	{regexp.MustCompile(`(rediss?://[^:/@\s]*:)[^@\s]+@`), "${1}***@"},
}

// Masker скрывает секреты в тексте логов: по шаблонам и по точному совпадению
// со значениями из конфигурации (например, токен API администратора).
type Masker struct {
	secrets *strings.Replacer
}

// NewMasker создает маскировщик. Пустые и слишком короткие секреты игнорируются.
func NewMasker(secrets ...string) *Masker {
	var pairs []string
	for _, s := range secrets {
		if len(s) < minSecretLength {
			continue
		}
		pairs = append(pairs, s, "***")
	}
	m := &Masker{}
	if len(pairs) > 0 {
		m.secrets = strings.NewReplacer(pairs...)
	}
	return m
}

// Mask возвращает текст со скрытыми секретами.
func (m *Masker) Mask(text string) string {
	if m.secrets != nil {
		text = m.secrets.Replace(text)
	}
	for _, rule := range maskRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// value маскирует значение атрибута. Ошибки и fmt.Stringer приводятся к строке,
// LogValuer раскрывается до маскировки.
func (m *Masker) value(v slog.Value) slog.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(m.Mask(v.String()))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.StringValue(m.Mask(x.Error()))
		case fmt.Stringer:
			return slog.StringValue(m.Mask(x.String()))
		}
		return v
	case slog.KindGroup:
		return slog.GroupValue(m.attrs(v.Group())...)
	default:
		return v
	}
}

func (m *Masker) attrs(in []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(in))
	for i, a := range in {
		out[i] = slog.Attr{Key: a.Key, Value: m.value(a.Value)}
	}
	return out
}

// MaskingHandler пропускает записи через Masker перед передачей следующему обработчику.
type MaskingHandler struct {
	next   slog.Handler
	masker *Masker
}

// NewMaskingHandler оборачивает next.
func NewMaskingHandler(next slog.Handler, masker *Masker) *MaskingHandler {
	if masker == nil {
		masker = NewMasker()
	}
	return &MaskingHandler{next: next, masker: masker}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle собирает новую запись: исходную slog может переиспользовать после возврата.
func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, h.masker.Mask(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(slog.Attr{Key: a.Key, Value: h.masker.value(a.Value)})
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MaskingHandler{next: h.next.WithAttrs(h.masker.attrs(attrs)), masker: h.masker}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name), masker: h.masker}
}

// NewMaskedLogger создает логгер, который скрывает токены ботов, пароли Redis
// и переданные секреты конфигурации.
func NewMaskedLogger(handler slog.Handler, secrets ...string) *slog.Logger {
	return slog.New(NewMaskingHandler(handler, NewMasker(secrets...)))
}
