package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"telegram-moderation-bot/internal/adapters/storage"
	"telegram-moderation-bot/internal/core/services"
	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/repository"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	chatID domain.ChatID
	text   string
}

type sentDocument struct {
	chatID  domain.ChatID
	name    string
	caption string
	size    int
}

// fakePlatform записывает все вызовы платформы.
type fakePlatform struct {
	mu         sync.Mutex
	nextID     int
	messages   []sentMessage
	deleted    []domain.MessageID
	restricted map[domain.UserID]time.Time
	banned     map[domain.UserID]bool
	documents  []sentDocument
	failBan    bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		restricted: make(map[domain.UserID]time.Time),
		banned:     make(map[domain.UserID]bool),
	}
}

func (p *fakePlatform) DeliverMessage(_ context.Context, chatID domain.ChatID, text string) (domain.MessageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.messages = append(p.messages, sentMessage{chatID: chatID, text: text})
	return domain.MessageID(fmt.Sprintf("bot-%d", p.nextID)), nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _ domain.ChatID, messageID domain.MessageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) RestrictMember(_ context.Context, _ domain.ChatID, userID domain.UserID, until time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restricted[userID] = until
	return nil
}

func (p *fakePlatform) UnrestrictMember(_ context.Context, _ domain.ChatID, userID domain.UserID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.restricted, userID)
	return nil
}

func (p *fakePlatform) BanMember(_ context.Context, _ domain.ChatID, userID domain.UserID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failBan {
		return fmt.Errorf("%w: not enough rights", domain.ErrAdapter)
	}
	p.banned[userID] = true
	return nil
}

func (p *fakePlatform) UnbanMember(_ context.Context, _ domain.ChatID, userID domain.UserID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.banned, userID)
	return nil
}

func (p *fakePlatform) SendDocument(_ context.Context, chatID domain.ChatID, name string, data []byte, caption string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents = append(p.documents, sentDocument{chatID: chatID, name: name, caption: caption, size: len(data)})
	return nil
}

func (p *fakePlatform) lastMessage(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.messages, "бот ничего не отправил")
	return p.messages[len(p.messages)-1].text
}

// fakeAuth считает администраторами перечисленных пользователей.
type fakeAuth struct {
	admins map[domain.UserID]bool
}

func (a *fakeAuth) IsAdmin(_ context.Context, _ domain.ChatID, userID domain.UserID) (bool, error) {
	return a.admins[userID], nil
}

type staticContent string

func (c staticContent) GetContent(context.Context, domain.Category) (string, error) {
	return string(c), nil
}

type botFixture struct {
	bot      *Bot
	cfg      *config.Config
	platform *fakePlatform
	chats    *repository.ChatRegistry
	ledger   *services.WarningLedger
}

const (
	testChat   domain.ChatID = "-100"
	adminID    domain.UserID = "1"
	memberID   domain.UserID = "2"
	offenderID domain.UserID = "3"
)

func newBotFixture(t *testing.T, mutate ...func(cfg *config.Config)) *botFixture {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()

	policy, err := services.NewEscalationPolicy(cfg.Escalation)
	require.NoError(t, err)
	ledger := services.NewWarningLedger(repository.NewWarningRepository(store), policy)
	platform := newFakePlatform()
	auth := &fakeAuth{admins: map[domain.UserID]bool{adminID: true}}
	noTimers := func(time.Duration, func()) {}

	moderator := services.NewModerator(
		cfg.Moderation, cfg.Bot.CommandPrefix,
		services.NewSpamDetector(cfg.Spam), services.NewContentModerator(cfg.Moderation),
		ledger, platform, auth,
		services.WithModeratorLogger(logger),
		services.WithAfterFunc(noTimers),
		services.WithClock(func() time.Time { return base }),
	)
	chats := repository.NewChatRegistry(store, cfg.Engagement.MinInterval)
	tracker := services.NewCooldownTracker(repository.NewCooldownRepository(store))
	engagement := services.NewEngagementScheduler(cfg.Engagement, chats, tracker, staticContent("Stay hydrated!"), platform,
		services.WithEngagementLogger(logger),
		services.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)

	b := NewBot(Deps{
		Config:     cfg,
		Moderator:  moderator,
		Engagement: engagement,
		Tracker:    tracker,
		Chats:      chats,
		Platform:   platform,
		Auth:       auth,
		Logger:     logger,
	})
	b.now = func() time.Time { return base }
	b.afterFunc = noTimers

	return &botFixture{bot: b, cfg: cfg, platform: platform, chats: chats, ledger: ledger}
}

func groupMessage(user domain.UserID, name, text string) domain.MessageEvent {
	return domain.MessageEvent{
		ChatID:      testChat,
		ChatTitle:   "Test group",
		UserID:      user,
		MessageID:   domain.MessageID("m-" + text),
		DisplayName: name,
		Text:        text,
		ReceivedAt:  base,
	}
}

func replyTo(ev domain.MessageEvent, user domain.UserID, name string) domain.MessageEvent {
	ev.ReplyToUserID = user
	ev.ReplyToName = name
	return ev
}
