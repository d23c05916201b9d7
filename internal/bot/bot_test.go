package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{name: "простая команда", text: "/help", wantName: "help", wantArgs: []string{}, wantOK: true},
		{name: "с аргументами", text: "/mute 2h extra", wantName: "mute", wantArgs: []string{"2h", "extra"}, wantOK: true},
		{name: "с именем бота", text: "/Warn@mod_bot spam", wantName: "warn", wantArgs: []string{"spam"}, wantOK: true},
		{name: "обычный текст", text: "hello /help", wantOK: false},
		{name: "только префикс", text: "/", wantOK: false},
		{name: "только имя бота", text: "/@mod_bot", wantOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, args, ok := parseCommand(tc.text, "/")
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantName, name)
				assert.Equal(t, tc.wantArgs, args)
			}
		})
	}
}

func TestParseMuteDuration(t *testing.T) {
	testCases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30m", want: 30 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "1.5d", want: 36 * time.Hour},
		{in: "15", want: 15 * time.Minute},
		{in: "0", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "xd", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseMuteDuration(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseUserRef(t *testing.T) {
	id, ok := parseUserRef("12345")
	assert.True(t, ok)
	assert.Equal(t, domain.UserID("12345"), id)

	id, ok = parseUserRef("<@!987>")
	assert.True(t, ok)
	assert.Equal(t, domain.UserID("987"), id)

	_, ok = parseUserRef("@alice")
	assert.False(t, ok)
	_, ok = parseUserRef("<@>")
	assert.False(t, ok)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "❌ interval must be at least 1h",
		userMessage(fmt.Errorf("%w: interval must be at least 1h", domain.ErrInvalidArgument)))
	assert.Equal(t, "❌ Bob has no warnings.", userMessage(newUserError("Bob has no warnings.", domain.ErrNotFound)))
	assert.Contains(t, userMessage(fmt.Errorf("ban: %w", domain.ErrAdapter)), "enough rights")
	assert.Contains(t, userMessage(errors.New("boom")), "Something went wrong")
}

func TestBot_RegistersChatOnFirstGroupMessage(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "good morning team"))

	chat, err := f.chats.Get(ctx, testChat)
	require.NoError(t, err)
	assert.Equal(t, "Test group", chat.Title)
	assert.True(t, chat.AutoContentEnabled)

	private := groupMessage(memberID, "Alice", "hello")
	private.ChatID = "42"
	private.Private = true
	f.bot.HandleMessage(ctx, private)
	_, err = f.chats.Get(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound, "личные диалоги не попадают в реестр")
}

func TestBot_HandleMembership(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMembership(ctx, domain.MembershipEvent{ChatID: testChat, ChatTitle: "Test group", Joined: true, At: base})
	_, err := f.chats.Get(ctx, testChat)
	require.NoError(t, err)

	f.bot.HandleMembership(ctx, domain.MembershipEvent{ChatID: testChat, Joined: false, At: base})
	_, err = f.chats.Get(ctx, testChat)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// после повторного добавления чат снова регистрируется, а не берется из кэша процесса
	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "back again"))
	_, err = f.chats.Get(ctx, testChat)
	assert.NoError(t, err)
}

func TestBot_ModeratesRegularMessages(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(offenderID, "Bob", "hi @everyone"))

	count, err := f.ledger.Count(ctx, testChat, offenderID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, f.platform.deleted, domain.MessageID("m-hi @everyone"))
	assert.Contains(t, f.platform.lastMessage(t), "Bob, warning 1/6")

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "hi @everyone"))
	count, err = f.ledger.Count(ctx, testChat, adminID)
	require.NoError(t, err)
	assert.Zero(t, count, "администраторы не модерируются")
}

func TestBot_AdminOnlyCommands(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, replyTo(groupMessage(memberID, "Alice", "/warn rude"), offenderID, "Bob"))

	assert.Equal(t, "❌ Only admins can use /warn!", f.platform.lastMessage(t))
	count, err := f.ledger.Count(ctx, testChat, offenderID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBot_GroupOnlyCommandInPrivate(t *testing.T) {
	f := newBotFixture(t)
	ev := groupMessage(adminID, "Admin", "/toggleauto")
	ev.Private = true

	f.bot.HandleMessage(context.Background(), ev)
	assert.Equal(t, "❌ This command only works in groups!", f.platform.lastMessage(t))
}

func TestBot_UnknownCommand(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/dance"))
	assert.Empty(t, f.platform.messages, "в группе неизвестные команды игнорируются")

	ev := groupMessage(memberID, "Alice", "/dance")
	ev.Private = true
	f.bot.HandleMessage(ctx, ev)
	assert.Contains(t, f.platform.lastMessage(t), "/help")
}

func TestBot_WarnEscalation(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/warn rude"), offenderID, "Bob"))
	}

	assert.Equal(t, "⚠️ Bob warned (3/6): rude", f.platform.lastMessage(t))
	until, muted := f.platform.restricted[offenderID]
	require.True(t, muted, "третье предупреждение ведет к муту")
	assert.Equal(t, base.Add(time.Hour), until)

	warnings, err := f.ledger.GetWarnings(ctx, testChat, offenderID)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	assert.Equal(t, string(adminID), warnings[0].Issuer)
}

func TestBot_WarnByUserID(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/warn 3 flooding the chat"))

	assert.Equal(t, "⚠️ user 3 warned (1/6): flooding the chat", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/warn"))
	assert.Contains(t, f.platform.lastMessage(t), "Reply to a message")
}

func TestBot_UnwarnAndClear(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/unwarn"), offenderID, "Bob"))
	assert.Equal(t, "❌ Bob has no warnings.", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/warn"), offenderID, "Bob"))
	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/warn"), offenderID, "Bob"))
	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/unwarn"), offenderID, "Bob"))
	assert.Equal(t, "✅ Removed the last warning of Bob (1/6).", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/clearwarns"), offenderID, "Bob"))
	assert.Equal(t, "✅ All warnings of Bob removed.", f.platform.lastMessage(t))
	count, err := f.ledger.Count(ctx, testChat, offenderID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBot_WarningsCommand(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/warnings"))
	assert.Equal(t, "✅ Alice has no warnings.", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/warn off-topic"), memberID, "Alice"))
	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/warnings"))
	assert.Equal(t, "📋 Alice has 1/6 warnings:\n1. off-topic (2024-05-01 12:00)", f.platform.lastMessage(t))
}

func TestBot_MuteUnmuteBanUnban(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/mute 2h"), offenderID, "Bob"))
	assert.Equal(t, "🔇 Bob muted for 2h", f.platform.lastMessage(t))
	assert.Equal(t, base.Add(2*time.Hour), f.platform.restricted[offenderID])

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/mute forever"), offenderID, "Bob"))
	assert.Contains(t, f.platform.lastMessage(t), "Invalid duration")

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/unmute"), offenderID, "Bob"))
	assert.NotContains(t, f.platform.restricted, offenderID)

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/ban"), offenderID, "Bob"))
	assert.Equal(t, "🚫 Bob has been banned", f.platform.lastMessage(t))
	assert.True(t, f.platform.banned[offenderID])

	f.bot.HandleMessage(ctx, replyTo(groupMessage(adminID, "Admin", "/unban"), offenderID, "Bob"))
	assert.False(t, f.platform.banned[offenderID])
}

func TestBot_BanFailureIsReportedToAdmin(t *testing.T) {
	f := newBotFixture(t)
	f.platform.failBan = true

	f.bot.HandleMessage(context.Background(), replyTo(groupMessage(adminID, "Admin", "/ban"), offenderID, "Bob"))
	assert.Contains(t, f.platform.lastMessage(t), "enough rights")
}

func TestBot_SetInterval(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/setinterval"))
	assert.Contains(t, f.platform.lastMessage(t), "Current auto content interval: 3 hours")

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/setinterval 6"))
	assert.Contains(t, f.platform.lastMessage(t), "set to 6 hours")
	chat, err := f.chats.Get(ctx, testChat)
	require.NoError(t, err)
	require.NotNil(t, chat.IntervalOverrideHours)
	assert.Equal(t, 6.0, *chat.IntervalOverrideHours)

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/setinterval 0.5"))
	assert.Contains(t, f.platform.lastMessage(t), "at least")

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/setinterval abc"))
	assert.Equal(t, "❌ Please provide a valid number of hours!", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/setinterval default"))
	chat, err = f.chats.Get(ctx, testChat)
	require.NoError(t, err)
	assert.Nil(t, chat.IntervalOverrideHours)
}

func TestBot_ToggleAuto(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/toggleauto"))
	assert.Equal(t, "✅ Auto content disabled for this group!", f.platform.lastMessage(t))

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/toggleauto"))
	assert.Equal(t, "✅ Auto content enabled for this group!", f.platform.lastMessage(t))
}

func TestBot_AutoTriggersContent(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/autoresponse"))

	text := f.platform.lastMessage(t)
	assert.True(t, strings.HasPrefix(text, "🤖 Auto Response Triggered"))
	assert.Contains(t, text, "Stay hydrated!")
	assert.Contains(t, text, "Requested by: Admin")

	f.bot.HandleMessage(ctx, groupMessage(adminID, "Admin", "/status"))
	assert.Contains(t, f.platform.lastMessage(t), "Next update: 3:00PM")
}

func TestBot_StatusAndRules(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/status"))
	status := f.platform.lastMessage(t)
	assert.Contains(t, status, "Moderation: on")
	assert.Contains(t, status, "Your warnings: 0/6")

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/rules"))
	rules := f.platform.lastMessage(t)
	assert.Contains(t, rules, "@everyone, @all, @here")
	assert.Contains(t, rules, "• 3 → mute 1h")
	assert.Contains(t, rules, "• 6 → ban")

	f.bot.HandleMessage(ctx, groupMessage(memberID, "Alice", "/help"))
	assert.Contains(t, f.platform.lastMessage(t), "/warn [reason] - Warn the replied user (admins)")
}

func TestBot_TransientErrorRepliesAreDeleted(t *testing.T) {
	f := newBotFixture(t)
	var mu sync.Mutex
	var scheduled []func()
	f.bot.afterFunc = func(d time.Duration, fn func()) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, f.cfg.Moderation.NoticeTTL, d)
		scheduled = append(scheduled, fn)
	}

	f.bot.HandleMessage(context.Background(), groupMessage(memberID, "Alice", "/ban"))
	require.Len(t, scheduled, 1)
	scheduled[0]()
	assert.Equal(t, []domain.MessageID{"bot-1"}, f.platform.deleted)
}

func TestBot_CommandFromBotIsIgnored(t *testing.T) {
	f := newBotFixture(t, func(cfg *config.Config) { cfg.Moderation.Enabled = false })
	ev := groupMessage(adminID, "Other bot", "/toggleauto")
	ev.IsBot = true

	f.bot.HandleMessage(context.Background(), ev)
	assert.Empty(t, f.platform.messages)
}
