package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"telegram-moderation-bot/internal/adapters/content"
	"telegram-moderation-bot/internal/adapters/storage"
	"telegram-moderation-bot/internal/bot"
	"telegram-moderation-bot/internal/cache"
	"telegram-moderation-bot/internal/core/services"
	"telegram-moderation-bot/internal/discord"
	"telegram-moderation-bot/internal/domain"
	"telegram-moderation-bot/internal/log"
	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
	"telegram-moderation-bot/internal/repository"
	"telegram-moderation-bot/internal/scheduler"
	"telegram-moderation-bot/internal/server"
	"telegram-moderation-bot/internal/telegram"
)

const (
	defaultConfigPath = "config.yml"
	dispatchQueueSize = 64
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка и валидация конфигурации
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера: токены из конфигурации и известные форматы учетных данных скрываются
	opts := &slog.HandlerOptions{Level: log.ParseLevel(cfg.Logging.Level)}
	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := log.NewMaskedLogger(handler, cfg.Bot.Token, cfg.Bot.DiscordToken, cfg.Server.APIToken)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Хранилище и репозитории
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()
	logger.Info("Storage opened", "driver", cfg.Storage.Driver)

	chats := repository.NewChatRegistry(store, cfg.Engagement.MinInterval)
	warnings := repository.NewWarningRepository(store)
	cooldowns := repository.NewCooldownRepository(store)

	// 4. Сервисы предметной области
	policy, err := services.NewEscalationPolicy(cfg.Escalation)
	if err != nil {
		return fmt.Errorf("invalid escalation ladder: %w", err)
	}
	spam := services.NewSpamDetector(cfg.Spam, services.WithSpamLogger(logger.With("component", "spam")))
	ledger := services.NewWarningLedger(warnings, policy)
	tracker := services.NewCooldownTracker(cooldowns)
	contentMod := services.NewContentModerator(cfg.Moderation)

	static := content.NewStaticProvider()
	provider := content.NewMux(static)
	if cfg.Engagement.QuoteAPIURL != "" {
		provider.Handle(domain.CategoryQuote, content.NewQuoteAPIProvider(
			cfg.Engagement.QuoteAPIURL,
			cfg.Engagement.QuoteAPITimeout,
			cfg.Engagement.QuoteAPIRetries,
			static,
			logger.With("component", "quote_api"),
		))
	}

	// 5. Платформа
	var (
		platform   ports.Platform
		authorizer ports.Authorizer
		tgAPI      *tgbotapi.BotAPI
		dgSession  *discordgo.Session
		dgPlatform *discord.Platform
	)
	switch cfg.Bot.Platform {
	case config.PlatformDiscord:
		dgSession, err = discordgo.New("Bot " + cfg.Bot.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		dgSession.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
		dgPlatform = discord.NewPlatform(dgSession)
		platform, authorizer = dgPlatform, dgPlatform
	default:
		if err := tgbotapi.SetLogger(&log.TGBotAPIAdapter{Logger: logger}); err != nil {
			return fmt.Errorf("failed to set telegram logger: %w", err)
		}
		tgAPI, err = tgbotapi.NewBotAPI(cfg.Bot.Token)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		logger.Info("Authorized on Telegram", "account", tgAPI.Self.UserName)
		tp := telegram.NewPlatform(tgAPI)
		platform, authorizer = tp, tp
	}
	admins := cache.NewAdminCache(authorizer, cfg.Moderation.AdminCacheSize, cfg.Moderation.AdminCacheTTL)

	moderator := services.NewModerator(
		cfg.Moderation,
		cfg.Bot.CommandPrefix,
		spam,
		contentMod,
		ledger,
		platform,
		admins,
		services.WithModeratorLogger(logger.With("component", "moderator")),
	)
	engagement := services.NewEngagementScheduler(
		cfg.Engagement,
		chats,
		tracker,
		provider,
		platform,
		services.WithEngagementLogger(logger.With("component", "engagement")),
	)

	b := bot.NewBot(bot.Deps{
		Config:     cfg,
		Moderator:  moderator,
		Engagement: engagement,
		Tracker:    tracker,
		Chats:      chats,
		Platform:   platform,
		Auth:       admins,
		Logger:     logger.With("component", "bot"),
	})
	dispatcher := bot.NewDispatcher(cfg.Bot.Workers, dispatchQueueSize, logger.With("component", "dispatcher"))

	srv := server.New(server.Deps{
		Config:   cfg,
		Chats:    chats,
		Enforcer: moderator,
		Warnings: ledger,
		Trigger:  engagement,
		Logger:   logger,
	})

	// 6. Запуск компонентов
	g, gctx := errgroup.WithContext(ctx)

	spam.StartCleanupTicker(gctx, cfg.Spam.IdleTTL)

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})

	var driver *scheduler.Driver
	if cfg.Engagement.Enabled {
		driver, err = scheduler.NewDriver(cfg.Engagement.Schedule, engagement, logger.With("component", "scheduler"))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		g.Go(func() error { return driver.Run(gctx) })
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", "addr", cfg.Address())
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		if driver != nil {
			driver.Stop(shutdownCtx)
		}
		return nil
	})

	submit := func(ctx context.Context, chatID domain.ChatID, job func(context.Context)) {
		if err := dispatcher.Submit(ctx, string(chatID), job); err != nil {
			logger.Warn("Dropped event during shutdown", "chat_id", chatID, "error", err)
		}
	}

	switch {
	case tgAPI != nil:
		loop := bot.NewTelegramLoop(tgAPI, tgAPI.Self.ID, b, dispatcher, cfg.Bot.PollTimeout, logger.With("component", "telegram"))
		if err := loop.RegisterCommands(); err != nil {
			logger.Warn("Failed to register bot commands", "error", err)
		}
		g.Go(func() error { return loop.Run(gctx) })
	case dgSession != nil:
		onMessage := func(ctx context.Context, ev domain.MessageEvent) {
			submit(ctx, ev.ChatID, func(ctx context.Context) { b.HandleMessage(ctx, ev) })
		}
		onMembership := func(ctx context.Context, ev domain.MembershipEvent) {
			submit(ctx, ev.ChatID, func(ctx context.Context) { b.HandleMembership(ctx, ev) })
		}
		dgSession.AddHandler(dgPlatform.MessageCreateHandler(gctx, onMessage))
		dgSession.AddHandler(dgPlatform.ChannelDeleteHandler(gctx, onMembership))
		dgSession.AddHandler(dgPlatform.GuildDeleteHandler(gctx, onMembership))
		if err := dgSession.Open(); err != nil {
			return fmt.Errorf("failed to open discord gateway: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return dgSession.Close()
		})
	}

	logger.Info("Bot started", "platform", cfg.Bot.Platform, "workers", cfg.Bot.Workers)

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Application exited gracefully")
	return nil
}
