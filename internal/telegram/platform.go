// Package telegram реализует адаптер платформы поверх Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-moderation-bot/internal/domain"
)

// BotAPI — подмножество методов tgbotapi.BotAPI, которое использует адаптер.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Platform реализует ports.Platform и ports.Authorizer для Telegram.
type Platform struct {
	api BotAPI
}

// NewPlatform создает новый экземпляр Platform.
func NewPlatform(api BotAPI) *Platform {
	return &Platform{api: api}
}

// ParseChatID переводит непрозрачный идентификатор чата в числовой идентификатор Telegram.
func ParseChatID(id domain.ChatID) (int64, error) {
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: chat id %q", domain.ErrInvalidArgument, id)
	}
	return v, nil
}

// ParseUserID переводит непрозрачный идентификатор пользователя в числовой идентификатор Telegram.
func ParseUserID(id domain.UserID) (int64, error) {
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id %q", domain.ErrInvalidArgument, id)
	}
	return v, nil
}

func memberConfig(chatID domain.ChatID, userID domain.UserID) (tgbotapi.ChatMemberConfig, error) {
	chat, err := ParseChatID(chatID)
	if err != nil {
		return tgbotapi.ChatMemberConfig{}, err
	}
	user, err := ParseUserID(userID)
	if err != nil {
		return tgbotapi.ChatMemberConfig{}, err
	}
	return tgbotapi.ChatMemberConfig{ChatID: chat, UserID: user}, nil
}

func wrapAPIError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrAdapter, err)
}

func (p *Platform) request(ctx context.Context, op string, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.api.Request(c); err != nil {
		return wrapAPIError(op, err)
	}
	return nil
}

// DeliverMessage отправляет текст без разметки.
func (p *Platform) DeliverMessage(ctx context.Context, chatID domain.ChatID, text string) (domain.MessageID, error) {
	chat, err := ParseChatID(chatID)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := p.api.Send(tgbotapi.NewMessage(chat, text))
	if err != nil {
		return "", wrapAPIError("send message", err)
	}
	return domain.MessageID(strconv.Itoa(msg.MessageID)), nil
}

// DeleteMessage удаляет сообщение.
func (p *Platform) DeleteMessage(ctx context.Context, chatID domain.ChatID, messageID domain.MessageID) error {
	chat, err := ParseChatID(chatID)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(string(messageID))
	if err != nil {
		return fmt.Errorf("%w: message id %q", domain.ErrInvalidArgument, messageID)
	}
	return p.request(ctx, "delete message", tgbotapi.NewDeleteMessage(chat, id))
}

// RestrictMember лишает пользователя права отправлять сообщения до until.
func (p *Platform) RestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID, until time.Time) error {
	member, err := memberConfig(chatID, userID)
	if err != nil {
		return err
	}
	return p.request(ctx, "restrict member", tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: member,
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	})
}

// UnrestrictMember возвращает стандартные права участника группы.
func (p *Platform) UnrestrictMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	member, err := memberConfig(chatID, userID)
	if err != nil {
		return err
	}
	return p.request(ctx, "unrestrict member", tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: member,
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	})
}

// BanMember навсегда удаляет пользователя из чата.
func (p *Platform) BanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	member, err := memberConfig(chatID, userID)
	if err != nil {
		return err
	}
	return p.request(ctx, "ban member", tgbotapi.BanChatMemberConfig{ChatMemberConfig: member})
}

// UnbanMember снимает бан, не трогая участников, которые не были забанены.
func (p *Platform) UnbanMember(ctx context.Context, chatID domain.ChatID, userID domain.UserID) error {
	member, err := memberConfig(chatID, userID)
	if err != nil {
		return err
	}
	return p.request(ctx, "unban member", tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: member, OnlyIfBanned: true})
}

// IsAdmin проверяет, является ли пользователь администратором или создателем чата.
func (p *Platform) IsAdmin(ctx context.Context, chatID domain.ChatID, userID domain.UserID) (bool, error) {
	member, err := memberConfig(chatID, userID)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	cm, err := p.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: member.ChatID, UserID: member.UserID},
	})
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			return false, fmt.Errorf("user %s in chat %s: %w", userID, chatID, domain.ErrNotFound)
		}
		return false, wrapAPIError("get chat member", err)
	}
	return cm.IsAdministrator() || cm.IsCreator(), nil
}

// SendDocument отправляет файл с подписью.
func (p *Platform) SendDocument(ctx context.Context, chatID domain.ChatID, name string, data []byte, caption string) error {
	chat, err := ParseChatID(chatID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chat, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := p.api.Send(doc); err != nil {
		return wrapAPIError("send document", err)
	}
	return nil
}
