package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tigar/puzzle2rsvp/internal/archiver"
	"github.com/tigar/puzzle2rsvp/internal/config"
	"github.com/tigar/puzzle2rsvp/internal/database"
	"github.com/tigar/puzzle2rsvp/internal/feed"
	"github.com/tigar/puzzle2rsvp/internal/gate"
	"github.com/tigar/puzzle2rsvp/internal/handlers"
	"github.com/tigar/puzzle2rsvp/internal/models"
	"github.com/tigar/puzzle2rsvp/internal/notify"
	"github.com/tigar/puzzle2rsvp/internal/ratelimit"
	"github.com/tigar/puzzle2rsvp/internal/store"
	"github.com/tigar/puzzle2rsvp/internal/verifier"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/acme/autocert"
)

const AppVersion = "1.0.0"

func main() {
	cfg := config.Load()
	logger := newLogger()

	logger.Info(fmt.Sprintf("puzzle2rsvp server v%s", AppVersion))

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	invites := store.NewInviteDB(db)
	events := store.NewEventDB(db)

	// Seed events and verifiers from static configuration
	registry := verifier.NewRegistry()
	eventConfigs, err := verifier.LoadConfig(cfg.EventsPath)
	if err != nil {
		logger.Error("failed to load events config", "path", cfg.EventsPath, "error", err)
		os.Exit(1)
	}
	if err := verifier.Seed(context.Background(), events, registry, eventConfigs); err != nil {
		logger.Error("failed to seed events", "error", err)
		os.Exit(1)
	}
	logger.Info("events seeded", "count", len(eventConfigs))

	// Live feed hub for admin dashboards
	hub := feed.NewHub(logger)
	go hub.Run()

	notifier := notify.New(db, cfg.VAPIDKeys, logger)

	puzzleGate := gate.NewPuzzleGate(invites, registry, logger, func(invite models.Invite) {
		hub.Publish(feed.Event{
			Type:      feed.EventPuzzleSolved,
			EventSlug: invite.EventSlug,
			GuestName: invite.GuestName,
			At:        time.Now(),
		})
		go notifier.NotifySolved(invite)
	})

	rsvpGate := gate.NewRSVPGate(invites, logger, func(invite models.Invite) {
		hub.Publish(feed.Event{
			Type:      feed.EventRSVPReceived,
			EventSlug: invite.EventSlug,
			GuestName: invite.GuestName,
			At:        time.Now(),
		})
		go notifier.NotifyRSVP(invite)
	})

	limiter := newLimiter(cfg, logger)

	h := handlers.New(cfg, logger, invites, events, puzzleGate, rsvpGate, limiter, hub, notifier)
	router := setupRouter(h, logger)

	// Archive past events in the background
	arch := archiver.New(events, logger)
	arch.Start()
	defer arch.Stop()

	runServer(router, cfg, logger)
}

func newLimiter(cfg *config.Config, logger *slog.Logger) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryBucket(cfg.AttemptRate, cfg.AttemptBurst)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Info("attempt throttle using redis", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisBucket(client, cfg.AttemptRate, cfg.AttemptBurst)
}

func setupRouter(h *handlers.Handlers, logger *slog.Logger) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(slogGinLogger(logger))

	// CORS middleware (for web app)
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Public routes
	api := router.Group("/api")
	{
		api.GET("/invite/:token", h.GetInviteState)
		api.POST("/events/:slug/attempt", h.ThrottleMiddleware(), h.AttemptPuzzle)
		api.POST("/rsvp/:token", h.SubmitRSVP)
		api.POST("/admin/login", h.Login)
	}

	// Protected admin routes
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.GET("/events", h.ListEvents)
		admin.POST("/events/:slug/invites", h.CreateInvite)
		admin.GET("/events/:slug/invites", h.ListInvites)
		admin.GET("/feed", h.HandleFeed)
		admin.GET("/push/key", h.GetVAPIDPublicKey)
		admin.POST("/push/subscribe", h.SubscribePush)
		admin.DELETE("/push/subscribe", h.UnsubscribePush)
	}

	return router
}

func runServer(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     log.New(newTLSErrorWriter(logger), "", 0),
	}

	var m *autocert.Manager
	if cfg.Domain != "" {
		m = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.Domain),
			Cache:      autocert.DirCache("certs"),
		}
		srv.TLSConfig = m.TLSConfig()
	}

	go func() {
		var err error
		if m != nil {
			logger.Info("https server starting", "port", cfg.Port, "domain", cfg.Domain)
			err = srv.ListenAndServeTLS("", "")
		} else {
			logger.Info("http server starting", "port", cfg.Port)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
