package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"telegram-moderation-bot/internal/domain"
)

const (
	startCommand         = "start"
	helpCommand          = "help"
	rulesCommand         = "rules"
	statusCommand        = "status"
	warnCommand          = "warn"
	unwarnCommand        = "unwarn"
	clearWarningsCommand = "clearwarns"
	warningsCommand      = "warnings"
	warnlistCommand      = "warnlist"
	muteCommand          = "mute"
	unmuteCommand        = "unmute"
	banCommand           = "ban"
	unbanCommand         = "unban"
	setIntervalCommand   = "setinterval"
	toggleAutoCommand    = "toggleauto"
	autoCommand          = "auto"
	autoResponseCommand  = "autoresponse"
)

// defaultMuteDuration используется, если в /mute не указана длительность.
const defaultMuteDuration = time.Hour

// commandOrder задает порядок команд в /help.
var commandOrder = []string{
	startCommand, helpCommand, rulesCommand, statusCommand, warningsCommand,
	warnCommand, unwarnCommand, clearWarningsCommand, warnlistCommand,
	muteCommand, unmuteCommand, banCommand, unbanCommand,
	setIntervalCommand, toggleAutoCommand, autoCommand,
}

type request struct {
	ev     domain.MessageEvent
	args   []string
	logger *slog.Logger
}

type command struct {
	run       func(ctx context.Context, req request) (string, error)
	adminOnly bool
	groupOnly bool
	usage     string
	summary   string
}

// userError — ошибка с готовым текстом для администратора.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *userError) Unwrap() error { return e.err }

func newUserError(msg string, err error) error {
	return &userError{msg: msg, err: err}
}

// userMessage переводит ошибку команды в ответ для пользователя.
func userMessage(err error) string {
	var ue *userError
	switch {
	case errors.As(err, &ue):
		return "❌ " + ue.msg
	case errors.Is(err, domain.ErrForbidden):
		return "❌ Only admins can use this command!"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "❌ " + strings.TrimPrefix(err.Error(), domain.ErrInvalidArgument.Error()+": ")
	case errors.Is(err, domain.ErrNotFound):
		return "❌ Not found."
	case errors.Is(err, domain.ErrAdapter):
		return "❌ The platform rejected the action. Make sure the bot is an admin with enough rights."
	case errors.Is(err, domain.ErrPersistence):
		return "❌ Could not save changes, please try again later."
	default:
		return "❌ Something went wrong, please try again later."
	}
}

func (b *Bot) commandTable() map[string]command {
	auto := command{run: b.cmdAuto, adminOnly: true, groupOnly: true, usage: "/auto", summary: "Send auto content now"}
	return map[string]command{
		startCommand:         {run: b.cmdStart, usage: "/start", summary: "Introduction"},
		helpCommand:          {run: b.cmdHelp, usage: "/help", summary: "This list"},
		rulesCommand:         {run: b.cmdRules, usage: "/rules", summary: "Group rules and the warning ladder"},
		statusCommand:        {run: b.cmdStatus, usage: "/status", summary: "Bot status for this chat"},
		warningsCommand:      {run: b.cmdWarnings, groupOnly: true, usage: "/warnings", summary: "Your warnings (reply to see someone else's)"},
		warnCommand:          {run: b.cmdWarn, adminOnly: true, groupOnly: true, usage: "/warn [reason]", summary: "Warn the replied user"},
		unwarnCommand:        {run: b.cmdUnwarn, adminOnly: true, groupOnly: true, usage: "/unwarn", summary: "Remove the last warning"},
		clearWarningsCommand: {run: b.cmdClearWarnings, adminOnly: true, groupOnly: true, usage: "/clearwarns", summary: "Remove all warnings"},
		warnlistCommand:      {run: b.cmdWarnlist, adminOnly: true, groupOnly: true, usage: "/warnlist", summary: "All warnings in this chat"},
		muteCommand:          {run: b.cmdMute, adminOnly: true, groupOnly: true, usage: "/mute [30m|2h|1d]", summary: "Mute the replied user"},
		unmuteCommand:        {run: b.cmdUnmute, adminOnly: true, groupOnly: true, usage: "/unmute", summary: "Lift a mute"},
		banCommand:           {run: b.cmdBan, adminOnly: true, groupOnly: true, usage: "/ban", summary: "Ban the replied user"},
		unbanCommand:         {run: b.cmdUnban, adminOnly: true, groupOnly: true, usage: "/unban", summary: "Lift a ban"},
		setIntervalCommand:   {run: b.cmdSetInterval, adminOnly: true, groupOnly: true, usage: "/setinterval [hours|default]", summary: "Auto content interval"},
		toggleAutoCommand:    {run: b.cmdToggleAuto, adminOnly: true, groupOnly: true, usage: "/toggleauto", summary: "Turn auto content on or off"},
		autoCommand:          auto,
		autoResponseCommand:  auto,
	}
}

// handleCommand проверяет права и выполняет команду. Ошибки показываются
// временным ответом, который удаляется вместе с уведомлениями.
func (b *Bot) handleCommand(ctx context.Context, logger *slog.Logger, ev domain.MessageEvent, name string, args []string) {
	cmd, ok := b.commands[name]
	if !ok {
		if ev.Private {
			b.reply(ctx, logger, ev.ChatID, "I don't know this command. Use /help to see what I can do.", false)
		}
		return
	}
	logger = logger.With("command", name)

	if cmd.groupOnly && ev.Private {
		b.reply(ctx, logger, ev.ChatID, "❌ This command only works in groups!", false)
		return
	}
	if cmd.adminOnly {
		admin, err := b.auth.IsAdmin(ctx, ev.ChatID, ev.UserID)
		if err != nil {
			logger.Warn("Admin check failed, denying command", "error", err)
		}
		if !admin {
			b.reply(ctx, logger, ev.ChatID, fmt.Sprintf("❌ Only admins can use /%s!", name), true)
			return
		}
	}

	text, err := cmd.run(ctx, request{ev: ev, args: args, logger: logger})
	if err != nil {
		logger.Warn("Command failed", "error", err)
		b.reply(ctx, logger, ev.ChatID, userMessage(err), true)
		return
	}
	logger.Info("Command executed")
	if text != "" {
		b.reply(ctx, logger, ev.ChatID, text, false)
	}
}

// resolveTarget определяет пользователя команды: автор сообщения, на которое ответили,
// или числовой идентификатор (упоминание) первым аргументом.
func resolveTarget(req request) (domain.UserID, string, []string, error) {
	if req.ev.ReplyToUserID != "" {
		name := req.ev.ReplyToName
		if name == "" {
			name = string(req.ev.ReplyToUserID)
		}
		return req.ev.ReplyToUserID, name, req.args, nil
	}
	if len(req.args) > 0 {
		if id, ok := parseUserRef(req.args[0]); ok {
			return id, "user " + string(id), req.args[1:], nil
		}
	}
	return "", "", nil, newUserError("Reply to a message of the user or pass their numeric id.", nil)
}

// parseUserRef принимает числовой идентификатор или упоминание вида <@123>.
func parseUserRef(s string) (domain.UserID, bool) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
	s = strings.TrimPrefix(s, "!")
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	return domain.UserID(s), true
}

// parseMuteDuration понимает формат time.ParseDuration, суффикс "d" для дней
// и число без единиц как минуты.
func parseMuteDuration(s string) (time.Duration, error) {
	var d time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, newUserError("Invalid duration. Examples: 30m, 2h, 1d.", err)
		}
		d = time.Duration(days * float64(24*time.Hour))
	default:
		if minutes, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(minutes * float64(time.Minute))
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, newUserError("Invalid duration. Examples: 30m, 2h, 1d.", err)
		}
		d = parsed
	}
	if d <= 0 {
		return 0, newUserError("Duration must be positive.", nil)
	}
	return d, nil
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func (b *Bot) cmdStart(_ context.Context, _ request) (string, error) {
	return "👋 Hi! I keep group chats clean and lively.\n\n" +
		"• I remove spam, flooding, links and offensive messages and warn the sender.\n" +
		"• Repeated warnings lead to a mute and finally a ban.\n" +
		"• I post useful content from time to time.\n\n" +
		"Add me to a group as an admin and use /help to see all commands.", nil
}

func (b *Bot) cmdHelp(_ context.Context, _ request) (string, error) {
	var sb strings.Builder
	sb.WriteString("📖 Commands\n\n")
	for _, name := range commandOrder {
		cmd := b.commands[name]
		sb.WriteString(cmd.usage)
		sb.WriteString(" - ")
		sb.WriteString(cmd.summary)
		if cmd.adminOnly {
			sb.WriteString(" (admins)")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (b *Bot) cmdRules(_ context.Context, _ request) (string, error) {
	var sb strings.Builder
	sb.WriteString("📜 Group rules\n\n")
	sb.WriteString("1. No spam or flooding\n")
	sb.WriteString("2. No offensive language\n")
	sb.WriteString("3. No links or invite links\n")
	sb.WriteString("4. No excessive caps\n")
	fmt.Fprintf(&sb, "5. No mass mentions (%s)\n", strings.Join(b.cfg.Moderation.MassMentions, ", "))

	thresholds := b.moderator.Ledger().Policy().Thresholds()
	counts := make([]int, 0, len(thresholds))
	for n := range thresholds {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	if len(counts) > 0 {
		sb.WriteString("\nWarnings:")
		for _, n := range counts {
			fmt.Fprintf(&sb, "\n• %d → %s", n, thresholds[n])
		}
	}
	return sb.String(), nil
}

func (b *Bot) cmdStatus(ctx context.Context, req request) (string, error) {
	var sb strings.Builder
	sb.WriteString("📊 Bot status\n\n")
	fmt.Fprintf(&sb, "Moderation: %s\n", onOff(b.cfg.Moderation.Enabled))
	if req.ev.Private {
		return sb.String(), nil
	}

	chat, err := b.chats.Get(ctx, req.ev.ChatID)
	if err != nil {
		return "", err
	}
	switch {
	case !b.cfg.Engagement.Enabled:
		sb.WriteString("Auto content: off\n")
	case !chat.AutoContentEnabled:
		sb.WriteString("Auto content: disabled for this group\n")
	default:
		interval := b.engagement.IntervalFor(*chat, domain.CategoryGeneral)
		fmt.Fprintf(&sb, "Auto content: every %s\n", domain.HumanDuration(interval))
		next, err := b.engagement.NextDue(ctx, req.ev.ChatID, domain.CategoryGeneral)
		if err != nil {
			return "", err
		}
		if next.IsZero() || !next.After(b.now()) {
			sb.WriteString("Next update: on the next check\n")
		} else {
			fmt.Fprintf(&sb, "Next update: %s\n", next.Format(time.Kitchen))
		}
	}

	count, err := b.moderator.Ledger().Count(ctx, req.ev.ChatID, req.ev.UserID)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "Your warnings: %d/%d", count, b.moderator.Ledger().Policy().BanThreshold())
	return sb.String(), nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (b *Bot) cmdWarnings(ctx context.Context, req request) (string, error) {
	userID, name := req.ev.UserID, req.ev.DisplayName
	if req.ev.ReplyToUserID != "" || len(req.args) > 0 {
		var err error
		if userID, name, _, err = resolveTarget(req); err != nil {
			return "", err
		}
	}

	warnings, err := b.moderator.Ledger().GetWarnings(ctx, req.ev.ChatID, userID)
	if err != nil {
		return "", err
	}
	ban := b.moderator.Ledger().Policy().BanThreshold()
	if len(warnings) == 0 {
		return fmt.Sprintf("✅ %s has no warnings.", name), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 %s has %d/%d warnings:", name, len(warnings), ban)
	for i, w := range warnings {
		fmt.Fprintf(&sb, "\n%d. %s (%s)", i+1, w.Reason, w.IssuedAt.Format("2006-01-02 15:04"))
	}
	return sb.String(), nil
}

func (b *Bot) cmdWarn(ctx context.Context, req request) (string, error) {
	userID, name, rest, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	reason := strings.Join(rest, " ")
	res, err := b.moderator.Warn(ctx, req.ev.ChatID, userID, name, reason, string(req.ev.UserID))
	if err != nil {
		return "", err
	}
	if reason == "" {
		reason = "warned by admin"
	}
	return fmt.Sprintf("⚠️ %s warned (%d/%d): %s", name, res.Count, b.moderator.Ledger().Policy().BanThreshold(), reason), nil
}

func (b *Bot) cmdUnwarn(ctx context.Context, req request) (string, error) {
	userID, name, _, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	count, err := b.moderator.Unwarn(ctx, req.ev.ChatID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", newUserError(name+" has no warnings.", err)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Removed the last warning of %s (%d/%d).", name, count, b.moderator.Ledger().Policy().BanThreshold()), nil
}

func (b *Bot) cmdClearWarnings(ctx context.Context, req request) (string, error) {
	userID, name, _, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	cleared, err := b.moderator.ClearWarnings(ctx, req.ev.ChatID, userID)
	if err != nil {
		return "", err
	}
	if !cleared {
		return "", newUserError(name+" has no warnings.", nil)
	}
	return fmt.Sprintf("✅ All warnings of %s removed.", name), nil
}

func (b *Bot) cmdMute(ctx context.Context, req request) (string, error) {
	userID, name, rest, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	duration := defaultMuteDuration
	if len(rest) > 0 {
		if duration, err = parseMuteDuration(rest[0]); err != nil {
			return "", err
		}
	}
	if err := b.moderator.Mute(ctx, req.ev.ChatID, userID, duration); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔇 %s muted for %s", name, domain.HumanDuration(duration)), nil
}

func (b *Bot) cmdUnmute(ctx context.Context, req request) (string, error) {
	userID, name, _, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	if err := b.moderator.Unmute(ctx, req.ev.ChatID, userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔊 %s can write again.", name), nil
}

func (b *Bot) cmdBan(ctx context.Context, req request) (string, error) {
	userID, name, _, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	if err := b.moderator.Ban(ctx, req.ev.ChatID, userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🚫 %s has been banned", name), nil
}

func (b *Bot) cmdUnban(ctx context.Context, req request) (string, error) {
	userID, name, _, err := resolveTarget(req)
	if err != nil {
		return "", err
	}
	if err := b.moderator.Unban(ctx, req.ev.ChatID, userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s has been unbanned.", name), nil
}

func (b *Bot) cmdSetInterval(ctx context.Context, req request) (string, error) {
	if len(req.args) == 0 {
		chat, err := b.chats.Get(ctx, req.ev.ChatID)
		if err != nil {
			return "", err
		}
		current := b.engagement.IntervalFor(*chat, domain.CategoryGeneral)
		return fmt.Sprintf("📊 Current auto content interval: %s hours\n"+
			"To change: /setinterval [hours]\n"+
			"Example: /setinterval 6 for 6 hours", formatHours(current.Hours())), nil
	}

	if arg := strings.ToLower(req.args[0]); arg == "default" || arg == "reset" {
		if err := b.chats.ClearInterval(ctx, req.ev.ChatID); err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Auto content interval reset to the default (%s).", domain.HumanDuration(b.cfg.Engagement.DefaultInterval)), nil
	}

	hours, err := strconv.ParseFloat(req.args[0], 64)
	if err != nil {
		return "", newUserError("Please provide a valid number of hours!", err)
	}
	if err := b.chats.SetInterval(ctx, req.ev.ChatID, hours); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Auto content interval set to %s hours!\nThe bot will now send updates every %s hours.",
		formatHours(hours), formatHours(hours)), nil
}

func (b *Bot) cmdToggleAuto(ctx context.Context, req request) (string, error) {
	enabled, err := b.chats.ToggleAutoContent(ctx, req.ev.ChatID)
	if err != nil {
		return "", err
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	return fmt.Sprintf("✅ Auto content %s for this group!", status), nil
}

func (b *Bot) cmdAuto(ctx context.Context, req request) (string, error) {
	requester := req.ev.DisplayName
	if requester == "" {
		requester = string(req.ev.UserID)
	}
	if err := b.engagement.TriggerNow(ctx, req.ev.ChatID, requester, b.now()); err != nil {
		return "", err
	}
	return "", nil
}
