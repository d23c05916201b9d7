package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-moderation-bot/internal/domain"
)

// UpdatesAPI — подмножество методов tgbotapi.BotAPI, которое использует цикл обновлений.
type UpdatesAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramLoop получает обновления Telegram и передает их боту через диспетчер.
type TelegramLoop struct {
	api         UpdatesAPI
	selfID      int64
	bot         *Bot
	dispatcher  *Dispatcher
	pollTimeout int
	logger      *slog.Logger
}

// NewTelegramLoop создает новый экземпляр TelegramLoop. selfID — идентификатор аккаунта бота.
func NewTelegramLoop(api UpdatesAPI, selfID int64, bot *Bot, dispatcher *Dispatcher, pollTimeout int, logger *slog.Logger) *TelegramLoop {
	return &TelegramLoop{
		api:         api,
		selfID:      selfID,
		bot:         bot,
		dispatcher:  dispatcher,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// RegisterCommands публикует список команд в меню клиента Telegram.
func (l *TelegramLoop) RegisterCommands() error {
	cmds := make([]tgbotapi.BotCommand, 0, len(commandOrder))
	for _, name := range commandOrder {
		cmds = append(cmds, tgbotapi.BotCommand{Command: name, Description: l.bot.commands[name].summary})
	}
	if _, err := l.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

// Run запускает основной цикл обработки обновлений от Telegram.
func (l *TelegramLoop) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = l.pollTimeout
	u.AllowedUpdates = []string{"message", "my_chat_member"}

	updates := l.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Context cancelled, stopping update loop...")
			l.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			l.route(ctx, update)
		}
	}
}

func (l *TelegramLoop) route(ctx context.Context, update tgbotapi.Update) {
	if ev, ok := l.membershipEvent(update); ok {
		l.submit(ctx, ev.ChatID, func(ctx context.Context) { l.bot.HandleMembership(ctx, ev) })
		return
	}
	if update.Message == nil {
		return
	}
	ev, ok := MessageEvent(update.Message)
	if !ok {
		return
	}
	l.submit(ctx, ev.ChatID, func(ctx context.Context) { l.bot.HandleMessage(ctx, ev) })
}

func (l *TelegramLoop) submit(ctx context.Context, chatID domain.ChatID, job func(context.Context)) {
	if err := l.dispatcher.Submit(ctx, string(chatID), job); err != nil {
		l.logger.Warn("Dropped update during shutdown", "chat_id", chatID, "error", err)
	}
}

// membershipEvent распознает добавление бота в чат и исключение из него.
func (l *TelegramLoop) membershipEvent(update tgbotapi.Update) (domain.MembershipEvent, bool) {
	if m := update.MyChatMember; m != nil {
		if m.NewChatMember.User != nil && m.NewChatMember.User.ID != l.selfID {
			return domain.MembershipEvent{}, false
		}
		ev := domain.MembershipEvent{
			ChatID:    chatIDOf(m.Chat.ID),
			ChatTitle: m.Chat.Title,
			At:        time.Unix(int64(m.Date), 0),
		}
		wasIn, isIn := isPresent(m.OldChatMember.Status), isPresent(m.NewChatMember.Status)
		if wasIn == isIn {
			return domain.MembershipEvent{}, false
		}
		ev.Joined = isIn
		return ev, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.MembershipEvent{}, false
	}
	ev := domain.MembershipEvent{ChatID: chatIDOf(msg.Chat.ID), ChatTitle: msg.Chat.Title, At: msg.Time()}
	for _, u := range msg.NewChatMembers {
		if u.ID == l.selfID {
			ev.Joined = true
			return ev, true
		}
	}
	if msg.LeftChatMember != nil && msg.LeftChatMember.ID == l.selfID {
		return ev, true
	}
	return domain.MembershipEvent{}, false
}

func isPresent(status string) bool {
	switch status {
	case "member", "administrator", "creator", "restricted":
		return true
	default:
		return false
	}
}

func chatIDOf(id int64) domain.ChatID {
	return domain.ChatID(strconv.FormatInt(id, 10))
}

func userIDOf(id int64) domain.UserID {
	return domain.UserID(strconv.FormatInt(id, 10))
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.UserName != "" {
		name = "@" + u.UserName
	}
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return name
}

// MessageEvent переводит сообщение Telegram в нормализованное событие.
// Сообщения без автора (посты каналов) пропускаются.
func MessageEvent(msg *tgbotapi.Message) (domain.MessageEvent, bool) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return domain.MessageEvent{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	ev := domain.MessageEvent{
		ChatID:      chatIDOf(msg.Chat.ID),
		ChatTitle:   msg.Chat.Title,
		UserID:      userIDOf(msg.From.ID),
		MessageID:   domain.MessageID(strconv.Itoa(msg.MessageID)),
		DisplayName: displayName(msg.From),
		Text:        text,
		ReceivedAt:  msg.Time(),
		Private:     msg.Chat.IsPrivate(),
		IsBot:       msg.From.IsBot,
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		ev.ReplyToUserID = userIDOf(reply.From.ID)
		ev.ReplyToName = displayName(reply.From)
	}
	return ev, true
}
