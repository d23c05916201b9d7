// Package discord реализует адаптер платформы поверх discordgo.
// Идентификатор чата — идентификатор текстового канала; гильдия определяется по каналу.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/puzpuzpuz/xsync/v3"

	"telegram-moderation-bot/internal/domain"
)

// maxTimeout — максимальная длительность тайм-аута участника в Discord.
const maxTimeout = 28 * 24 * time.Hour

// Session — подмножество методов *discordgo.Session, которое использует адаптер.
type Session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelFileSendWithMessage(channelID, content, name string, r io.Reader, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Platform реализует ports.Platform и ports.Authorizer для Discord.
type Platform struct {
	session Session
	// guilds кэширует гильдию канала: она не меняется за время жизни канала.
	guilds *xsync.MapOf[string, string]
	now    func() time.Time
}

// NewPlatform создает новый экземпляр Platform.
func NewPlatform(session Session) *Platform {
	return &Platform{
		session: session,
		guilds:  xsync.NewMapOf[string, string](),
		now:     time.Now,
	}
}

func wrapAPIError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrAdapter, err)
}

// RememberGuild запоминает гильдию канала из входящего события.
func (p *Platform) RememberGuild(channelID, guildID string) {
	if guildID != "" {
		p.guilds.Store(channelID, guildID)
	}
}

func (p *Platform) guildOf(ctx context.Context, chatID domain.ChatID) (string, error) {
	if guildID, ok := p.guilds.Load(string(chatID)); ok {
		return guildID, nil
	}
	ch, err := p.session.Channel(string(chatID), discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapAPIError("get channel", err)
	}
	if ch.GuildID == "" {
		return "", fmt.Errorf("%w: channel %s is not in a guild", domain.ErrInvalidArgument, chatID)
	}
	p.guilds.Store(string(chatID), ch.GuildID)
	return ch.GuildID, nil
}

func (p *Platform) DeliverMessage(ctx context.Context, chatID domain.ChatID, text string) (domain.MessageID, error) {
	msg, err := p.session.ChannelMessageSend(string(chatID), text, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapAPIError("send message", err)
	}
	return domain.MessageID(msg.ID), nil
}

func (p *Platform) DeleteMessage(ctx context.Context, chatID domain.ChatID, messageID domain.MessageID) error {
	if err := p.session.ChannelMessageDelete(string(chatID), string(messageID), discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("delete message", err)
	}
	return nil
}

// RestrictMember выдает тайм-аут. Discord ограничивает его 28 днями.
func (p *Platform) RestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID, until time.Time) error {
	guildID, err := p.guildOf(ctx, chatID)
	if err != nil {
		return err
	}
	if limit := p.now().Add(maxTimeout); until.After(limit) {
		until = limit
	}
	if err := p.session.GuildMemberTimeout(guildID, string(userID), &until, discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("timeout member", err)
	}
	return nil
}

func (p *Platform) UnrestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	guildID, err := p.guildOf(ctx, chatID)
	if err != nil {
		return err
	}
	if err := p.session.GuildMemberTimeout(guildID, string(userID), nil, discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("clear timeout", err)
	}
	return nil
}

func (p *Platform) BanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	guildID, err := p.guildOf(ctx, chatID)
	if err != nil {
		return err
	}
	if err := p.session.GuildBanCreateWithReason(guildID, string(userID), "warning limit reached", 0, discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("ban member", err)
	}
	return nil
}

func (p *Platform) UnbanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	guildID, err := p.guildOf(ctx, chatID)
	if err != nil {
		return err
	}
	if err := p.session.GuildBanDelete(guildID, string(userID), discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("unban member", err)
	}
	return nil
}

// IsAdmin считает администраторами владельцев прав Administrator или ManageMessages в канале.
func (p *Platform) IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	perms, err := p.session.UserChannelPermissions(string(userID), string(chatID), discordgo.WithContext(ctx))
	if err != nil {
		return false, wrapAPIError("channel permissions", err)
	}
	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageMessages) != 0, nil
}

// SendDocument отправляет файл в канал.
func (p *Platform) SendDocument(ctx context.Context, chatID domain.ChatID, name string, data []byte, caption string) error {
	if _, err := p.session.ChannelFileSendWithMessage(string(chatID), caption, name, bytes.NewReader(data), discordgo.WithContext(ctx)); err != nil {
		return wrapAPIError("send file", err)
	}
	return nil
}
