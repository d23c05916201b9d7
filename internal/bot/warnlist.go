package bot

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
)

// Ширина колонок текстовой таблицы /warnlist.
const (
	userColWidth   = 14
	countColWidth  = 5
	reasonColWidth = 26
)

// messageLimit возвращает максимальную длину текстового сообщения платформы.
func (b *Bot) messageLimit() int {
	if b.cfg.Bot.Platform == config.PlatformDiscord {
		return 2000
	}
	return 4096
}

func (b *Bot) cmdWarnlist(ctx context.Context, req request) (string, error) {
	records, err := b.moderator.Ledger().ListChat(ctx, req.ev.ChatID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "✅ No warnings in this chat.", nil
	}
	ban := b.moderator.Ledger().Policy().BanThreshold()
	sender, canSend := b.platform.(ports.DocumentSender)

	if canSend && len(records) > b.cfg.Export.ExcelThreshold {
		req.logger.Info("Warning list is over threshold, sending excel file", "users", len(records))
		data, err := buildWarnlistExcel(records, b.now(), req.logger)
		if err != nil {
			return "", err
		}
		name := fmt.Sprintf("warnings_%s.xlsx", b.now().Format("2006-01-02_15-04-05"))
		caption := fmt.Sprintf("Warnings in this chat: %d users.", len(records))
		if err := sender.SendDocument(ctx, req.ev.ChatID, name, data, caption); err != nil {
			return "", err
		}
		return "", nil
	}

	text := renderWarnlist(records, ban)
	if len(text) <= b.messageLimit() {
		return text, nil
	}
	if !canSend {
		return truncateUTF8(text, b.messageLimit()), nil
	}

	req.logger.Warn("Warning list is too long, sending as a file", "length", len(text))
	data, err := buildWarnlistCSV(records)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("warnings_%s.csv", b.now().Format("2006-01-02_15-04-05"))
	caption := fmt.Sprintf("Warnings in this chat: %d users. The list is too long for one message, so it is attached as a file.", len(records))
	if err := sender.SendDocument(ctx, req.ev.ChatID, name, data, caption); err != nil {
		return "", err
	}
	return "", nil
}

// renderWarnlist форматирует журнал чата моноширинной таблицей.
func renderWarnlist(records []domain.WarningRecord, ban int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Warnings in this chat: %d users\n\n", len(records))

	fmt.Fprintf(&sb, "| %s%s | %s%s | %s%s |\n",
		"User", generatePadding("User", userColWidth),
		"Warns", generatePadding("Warns", countColWidth),
		"Last reason", generatePadding("Last reason", reasonColWidth),
	)
	fmt.Fprintf(&sb, "|%s|%s|%s|\n",
		strings.Repeat("-", userColWidth+2),
		strings.Repeat("-", countColWidth+2),
		strings.Repeat("-", reasonColWidth+2),
	)

	for _, rec := range records {
		count := strconv.Itoa(rec.Count())
		if ban > 0 {
			count += "/" + strconv.Itoa(ban)
		}
		reason := ""
		if n := len(rec.Warnings); n > 0 {
			reason = strings.ReplaceAll(strings.ToValidUTF8(rec.Warnings[n-1].Reason, ""), "\n", " ")
		}

		userLines := wrapString(string(rec.UserID), userColWidth)
		countLines := wrapString(count, countColWidth)
		reasonLines := wrapString(reason, reasonColWidth)

		maxLines := max(len(userLines), len(countLines), len(reasonLines))
		for i := 0; i < maxLines; i++ {
			userPart := lineAt(userLines, i)
			countPart := lineAt(countLines, i)
			reasonPart := lineAt(reasonLines, i)
			fmt.Fprintf(&sb, "| %s%s | %s%s | %s%s |\n",
				userPart, generatePadding(userPart, userColWidth),
				countPart, generatePadding(countPart, countColWidth),
				reasonPart, generatePadding(reasonPart, reasonColWidth),
			)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

// truncateUTF8 обрезает текст до limit байт по границе руны.
func truncateUTF8(s string, limit int) string {
	const ellipsis = "\n…"
	if len(s) <= limit {
		return s
	}
	cut := limit - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// buildWarnlistExcel выгружает журнал в xlsx: одна строка на предупреждение.
func buildWarnlistExcel(records []domain.WarningRecord, now time.Time, logger *slog.Logger) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	sheetName := "Warnings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Export date", "User", "Count", "#", "Reason", "Issuer", "Issued at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	exportDate := now.Format(time.RFC3339)
	row := 2
	for _, rec := range records {
		for i, w := range rec.Warnings {
			values := []any{exportDate, string(rec.UserID), rec.Count(), i + 1, w.Reason, w.Issuer, w.IssuedAt.Format(time.RFC3339)}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheetName, cell, v)
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// buildWarnlistCSV выгружает журнал в CSV: одна строка на пользователя.
func buildWarnlistCSV(records []domain.WarningRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"User", "Count", "Last reason", "Last issued at"})
	for _, rec := range records {
		last := rec.Warnings[len(rec.Warnings)-1]
		_ = w.Write([]string{string(rec.UserID), strconv.Itoa(rec.Count()), last.Reason, last.IssuedAt.Format(time.RFC3339)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Некоторые клиенты рендерят CJK-символы шире, чем считает runewidth.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}
	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString переносит строку по ширине колонки, предпочитая границы слов.
// Слово длиннее колонки разрывается посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		if runewidth.StringWidth(word) > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitByWidth(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+runewidth.StringWidth(word) > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}
		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}

func splitByWidth(word string, width int) []string {
	var lines []string
	runes := []rune(word)
	for len(runes) > 0 {
		i, currentWidth := 0, 0
		for i < len(runes) {
			w := runewidth.RuneWidth(runes[i])
			if currentWidth+w > width {
				break
			}
			currentWidth += w
			i++
		}
		if i == 0 {
			i = 1
		}
		lines = append(lines, string(runes[:i]))
		runes = runes[i:]
	}
	return lines
}
