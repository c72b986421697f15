package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chatrelay-backend/internal/api"
	"chatrelay-backend/internal/blob"
	"chatrelay-backend/internal/config"
	"chatrelay-backend/internal/handlers"
	"chatrelay-backend/internal/integrations"
	"chatrelay-backend/internal/integrations/slack"
	"chatrelay-backend/internal/integrations/telegram"
	"chatrelay-backend/internal/livesync"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/internal/services"
	"chatrelay-backend/internal/store"
	"chatrelay-backend/internal/store/memory"
	"chatrelay-backend/internal/store/postgres"
	"chatrelay-backend/internal/supervisor"
)

func main() {
	logging.Info().Msg("[Main] Starting chatrelay backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("[Main] Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Persistence and blob store
	st := openStore(ctx, cfg)
	defer st.Close()

	var (
		blobs   blob.Store = blob.Disabled{}
		uploads handlers.BlobUploader
	)
	if cfg.HasCloudinary() {
		cld, err := blob.NewCloudinaryStore(blob.CloudinaryConfig{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.BlobFolder,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("[Main] Failed to initialize blob store")
		}
		blobs, uploads = cld, cld
		logging.Info().Str("folder", cfg.BlobFolder).Msg("[Main] Cloudinary blob store initialized")
	} else {
		logging.Warn().Msg("[Main] No blob store configured; media messages will be answered with an apology")
	}

	// 3. Platform client behind a circuit breaker
	var (
		client      integrations.Client
		tgClient    *telegram.Client
		slackClient *slack.Client
	)
	switch cfg.Platform {
	case config.PlatformSlack:
		slackClient, err = slack.New(slack.Config{
			BotToken:      cfg.SlackBotToken,
			SigningSecret: cfg.SlackSigningSecret,
			MaxFileBytes:  cfg.MaxUploadBytes(),
		})
		if err == nil {
			client = slackClient
		}
	default:
		tgClient, err = telegram.New(cfg.TelegramBotToken, integrations.NewDownloader(cfg.MaxUploadBytes()))
		if err == nil {
			client = tgClient
		}
	}
	if err != nil {
		if cfg.IsProduction() {
			logging.Fatal().Err(err).Str("platform", cfg.Platform).Msg("[Main] Failed to initialize platform client")
		}
		logging.Error().Err(err).Str("platform", cfg.Platform).Msg("[Main] Platform client offline; messages are stored but not delivered")
		client = integrations.Offline{Platform: cfg.Platform, Cause: err}
	}

	registry := integrations.NewRegistry()
	registry.Register(integrations.NewGuarded(client, integrations.DefaultBreakerConfig()))
	platform := registry.MustGet(cfg.Platform)
	if res, err := platform.TestConnection(ctx); err != nil || !res.Success {
		logging.Warn().Err(err).Interface("result", res).Msg("[Main] Platform connection check failed")
	}

	// 4. Services
	hub := livesync.NewHub()
	conv := services.NewConversationService(st)
	inbound := services.NewInboundRelay(conv, platform, blobs, hub, services.InboundConfig{
		ImageMaxDimension: cfg.ImageMaxDimension,
		Greeting:          cfg.TelegramGreeting,
		EventTimeout:      2 * time.Minute,
	})
	outbound := services.NewOutboundRelay(conv, platform, hub)
	state := services.NewStateService(conv, platform, hub)
	authService, err := services.NewAuthService(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("[Main] Failed to initialize auth service")
	}

	// 5. Handlers and router
	routerDeps := api.RouterDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService),
		ConversationHandler: handlers.NewConversationHandlers(conv, outbound, state),
		UploadHandler:       handlers.NewUploadHandler(uploads, cfg.MaxUploadBytes(), cfg.ImageMaxDimension),
		WSHandler:           handlers.NewWSHandler(hub, cfg.AllowedOrigins()),
		HealthHandler:       handlers.NewHealthHandler(conv, cfg.Platform),
		Verifier:            authService,
		AllowedOrigins:      cfg.AllowedOrigins(),
	}
	if slackClient != nil {
		routerDeps.SlackWebhookHandler = handlers.NewSlackWebhookHandlers(cfg.SlackSigningSecret, slackClient, inbound)
	}
	router := api.NewRouter(routerDeps)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 6. Supervision
	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddMessagingService(supervisor.NewHubService(hub))
	if tgClient != nil {
		tree.AddMessagingService(telegram.NewPoller(tgClient, inbound, cfg.TelegramPollSecs))
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("port", cfg.HTTPPort).Str("platform", cfg.Platform).Msg("[Main] Server starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("[Main] Supervisor stopped with error")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("[Main] Services did not stop within the shutdown timeout")
	}
	logging.Info().Msg("[Main] Server shutdown complete.")
}

// openStore connects to the configured store. Outside production a failed
// connection degrades to a store whose every call reports ErrUnavailable.
func openStore(ctx context.Context, cfg *config.Config) store.Store {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logging.Warn().Msg("[Main] Using in-memory store; data is lost on restart")
		return memory.New()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		if cfg.IsProduction() {
			logging.Fatal().Err(err).Msg("[Main] Unable to connect to database")
		}
		logging.Error().Err(err).Msg("[Main] Database unavailable; serving with persistence disabled")
		return store.Unavailable{Cause: err}
	}
	logging.Info().Msg("[Main] Postgres store connected and migrated")
	return pg
}
