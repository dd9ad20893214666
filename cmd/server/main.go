package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/cache"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/config"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/handlers"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/handlers/ws"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/httpx"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/middleware"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/storage"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/workers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("hscode-realtime", false)
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init("hscode-realtime", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := repository.InitDB(cfg.DSN(), cfg.Debug)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Redis is optional: presence mirroring, the unread read-through and the
	// group events stream are skipped without it.
	redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Ping(); err != nil {
		logging.Warn().Err(err).Msg("redis connection failed, running without cache")
		redisCache = nil
	} else {
		logging.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	}
	onlineCache := cache.NewOnlineCache(redisCache)
	unreadCache := cache.NewUnreadCache(redisCache)

	// Storage is best-effort; document and image endpoints return 503 without it.
	var s3Store *storage.S3Storage
	var objectStore storage.ObjectStore
	if cfg.S3Configured() {
		st, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("failed to initialize object storage")
		} else {
			s3Store = st
			objectStore = st
			logging.Info().Str("bucket", cfg.S3.Bucket).Msg("object storage initialized")
		}
	} else {
		logging.Warn().Msg("object storage not configured")
	}
	mediaBaseURL := cfg.Server.PublicBaseURL + "/api/media"

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	unreadRepo := repository.NewUnreadRepository(db)
	chatRepo := repository.NewDirectChatRepository(db)

	// Initialize services. The hub needs the presence service and every
	// service emits through the hub, so notifiers are wired afterwards.
	registry := presence.NewRegistry()
	presenceService := service.NewPresenceService(groupRepo, registry, nil, onlineCache)
	unreadService := service.NewUnreadService(unreadRepo, groupRepo, registry, nil, unreadCache)
	leadService := service.NewLeadService(leadRepo, groupRepo, unreadService, nil, objectStore, service.LeadOptions{
		BroadcastScope:   cfg.Leads.BroadcastScope,
		MaxDocuments:     cfg.Leads.MaxDocuments,
		MaxDocumentBytes: cfg.Leads.MaxDocumentBytes,
		MediaBaseURL:     mediaBaseURL,
	})
	chatService := service.NewChatService(chatRepo, userRepo, registry, nil, cfg.MaxMessageLength)
	groupService := service.NewGroupService(groupRepo, userRepo, unreadService, presenceService, nil, objectStore, mediaBaseURL)

	hub := ws.NewHub(presenceService, ws.HubOptions{
		PingInterval: cfg.Realtime.PingInterval,
		PongTimeout:  cfg.Realtime.PongTimeout,
		SendBuffer:   cfg.Realtime.SendBuffer,
		SendTimeout:  cfg.Realtime.SendTimeout,
	})
	presenceService.SetNotifier(hub)
	unreadService.SetNotifier(hub)
	leadService.SetNotifier(hub)
	chatService.SetNotifier(hub)
	groupService.SetNotifier(hub)

	if redisCache != nil {
		worker := workers.NewGroupEventsWorker(redisCache.Client(), groupService, cfg.Redis.GroupEvents, cfg.Redis.ConsumerName)
		go worker.Start(ctx)
	}

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub, presenceService, unreadService, chatService, cfg.Realtime.PongTimeout)
	groupHandler := handlers.NewGroupHandler(groupService, unreadService)
	leadHandler := handlers.NewLeadHandler(leadService)
	chatHandler := handlers.NewChatHandler(chatService)
	adminHandler := handlers.NewAdminHandler(leadService, groupService)
	mediaHandler := handlers.NewMediaHandler(s3Store, leadService)

	bodyLimit := int(cfg.Leads.MaxDocumentBytes)*cfg.Leads.MaxDocuments + 2*1024*1024
	app := fiber.New(fiber.Config{
		AppName:   "HSCODE Realtime",
		BodyLimit: bodyLimit,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	auth := middleware.AuthRequired(cfg.Server.JWTSecret)
	mirror := middleware.MirrorUser(userRepo)

	api := app.Group("/api", middleware.OriginAllowed(cfg.Server.AllowedOrigins), auth, mirror)

	// Group routes
	api.Get("/groups", groupHandler.GetMyGroups)
	api.Post("/groups/:id/join", groupHandler.JoinGroup)
	api.Post("/groups/:id/leave", groupHandler.LeaveGroup)
	api.Get("/groups/:id/online", groupHandler.Online)
	api.Post("/groups/:id/read", groupHandler.MarkRead)
	api.Get("/unread", groupHandler.Unread)

	// Lead routes
	api.Get("/groups/:id/leads", leadHandler.History)
	api.Post(
		"/groups/:id/leads",
		limiter.New(limiter.Config{
			Max:        30,
			Expiration: 10 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if uid, err := httpx.LocalUint(c, "userID"); err == nil {
					return "lead:" + strconv.FormatUint(uint64(uid), 10)
				}
				return c.IP()
			},
		}),
		leadHandler.Submit,
	)
	api.Get("/leads/mine", leadHandler.Mine)
	api.Get("/leads/marquee", leadHandler.Marquee)
	api.Post("/leads/:id/resend", leadHandler.Resend)
	api.Post("/leads/:id/broadcast", leadHandler.RequestBroadcast)

	// Direct chat routes
	api.Get("/chats", chatHandler.List)
	api.Post("/chats/:peer_id", chatHandler.Open)
	api.Get("/chats/:id/messages", chatHandler.History)
	api.Post("/chats/:id/messages", chatHandler.Send)
	api.Post("/chats/:id/read", chatHandler.MarkRead)

	api.Get("/media/*", mediaHandler.Get)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.Get("/leads", adminHandler.ListLeads)
	admin.Get("/leads/broadcasts", adminHandler.ListBroadcasts)
	admin.Post("/leads/:id/approve", adminHandler.Approve)
	admin.Post("/leads/:id/reject", adminHandler.Reject)
	admin.Post("/leads/:id/broadcast/approve", adminHandler.ApproveBroadcast)
	admin.Post("/leads/:id/broadcast/decline", adminHandler.DeclineBroadcast)
	admin.Post("/groups", adminHandler.CreateGroup)
	admin.Post("/groups/bulk", adminHandler.CreateGroupsBulk)
	admin.Put("/groups/:id", adminHandler.UpdateGroup)
	admin.Delete("/groups/:id", adminHandler.DeleteGroup)
	admin.Put("/groups/:id/image", adminHandler.SetGroupImage)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(cfg.Server.AllowedOrigins),
		auth,
		mirror,
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"connections":  hub.Count(),
			"online_users": presenceService.OnlineCount(),
		})
	})

	go func() {
		<-ctx.Done()
		logging.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logging.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logging.Info().Int("port", cfg.Server.Port).Msg("server starting")
	if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		logging.Fatal().Err(err).Msg("failed to start server")
	}

	if err := redisCache.Close(); err != nil {
		logging.Warn().Err(err).Msg("redis close failed")
	}
}
