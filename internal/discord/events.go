package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"telegram-moderation-bot/internal/domain"
)

// displayName возвращает имя автора для уведомлений.
func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// ToMessageEvent переводит событие discordgo в нормализованное сообщение.
// Возвращает false для событий без автора.
func ToMessageEvent(m *discordgo.MessageCreate) (domain.MessageEvent, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return domain.MessageEvent{}, false
	}
	received := m.Timestamp
	if received.IsZero() {
		received = time.Now()
	}
	ev := domain.MessageEvent{
		ChatID:      domain.ChatID(m.ChannelID),
		UserID:      domain.UserID(m.Author.ID),
		MessageID:   domain.MessageID(m.ID),
		DisplayName: displayName(m.Author, m.Member),
		Text:        m.Content,
		ReceivedAt:  received,
		Private:     m.GuildID == "",
		IsBot:       m.Author.Bot,
	}
	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil {
		ev.ReplyToUserID = domain.UserID(ref.Author.ID)
		ev.ReplyToName = displayName(ref.Author, nil)
	}
	return ev, true
}

// MessageSink принимает нормализованные сообщения.
type MessageSink func(ctx context.Context, ev domain.MessageEvent)

// MessageCreateHandler возвращает обработчик для Session.AddHandler. Сообщения самого бота пропускаются.
func (p *Platform) MessageCreateHandler(ctx context.Context, sink MessageSink) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if s != nil && s.State != nil && s.State.User != nil && m.Author != nil && m.Author.ID == s.State.User.ID {
			return
		}
		ev, ok := ToMessageEvent(m)
		if !ok {
			return
		}
		p.RememberGuild(m.ChannelID, m.GuildID)
		sink(ctx, ev)
	}
}

// MembershipSink принимает события членства бота в каналах.
type MembershipSink func(ctx context.Context, ev domain.MembershipEvent)

// ChannelDeleteHandler сообщает об удалении канала как о выходе бота из чата.
func (p *Platform) ChannelDeleteHandler(ctx context.Context, sink MembershipSink) func(*discordgo.Session, *discordgo.ChannelDelete) {
	return func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
		if c == nil || c.Channel == nil {
			return
		}
		p.guilds.Delete(c.ID)
		sink(ctx, domain.MembershipEvent{ChatID: domain.ChatID(c.ID), ChatTitle: c.Name, Joined: false, At: p.now()})
	}
}

// GuildDeleteHandler при исключении бота из гильдии сообщает о выходе из всех известных каналов гильдии.
// Недоступность гильдии из-за сбоя Discord событием выхода не считается.
func (p *Platform) GuildDeleteHandler(ctx context.Context, sink MembershipSink) func(*discordgo.Session, *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		if g == nil || g.Guild == nil || g.Unavailable {
			return
		}
		var channels []string
		p.guilds.Range(func(channelID, guildID string) bool {
			if guildID == g.ID {
				channels = append(channels, channelID)
			}
			return true
		})
		for _, channelID := range channels {
			p.guilds.Delete(channelID)
			sink(ctx, domain.MembershipEvent{ChatID: domain.ChatID(channelID), Joined: false, At: p.now()})
		}
	}
}
