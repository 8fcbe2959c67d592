package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lyceum/internal/config"
	"lyceum/internal/db"
	"lyceum/internal/events"
	"lyceum/internal/identity"
	"lyceum/internal/metrics"
	"lyceum/internal/models"
	"lyceum/internal/router"
	"lyceum/internal/services"
	"lyceum/internal/store/gormstore"
	"lyceum/internal/store/memdb"
	"lyceum/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info("[server] no .env file found, using environment")
	}

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] invalid configuration: %v", err)
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := services.Deps{}
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("[server] using in-memory storage, data is lost on restart")
		mem := memdb.New()
		deps.Comments, deps.Votes, deps.Users, deps.Posts = mem.Comments(), mem.Votes(), mem.Users(), mem.Posts()
	default:
		gdb, err := db.Open(cfg.DatabaseURL, cfg.DBDebug)
		if err != nil {
			log.Fatalf("[server] database: %v", err)
		}
		defer db.Close(gdb)
		deps.Comments = gormstore.NewCommentStore(gdb)
		deps.Votes = gormstore.NewVoteStore(gdb)
		deps.Users = gormstore.NewUserStore(gdb)
		deps.Posts = gormstore.NewPostStore(gdb)
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()
	deps.Events = publisher

	listings, err := utils.NewCache[[]models.Post](cfg.CacheSize, cfg.CacheTTL.Duration)
	if err != nil {
		log.Fatalf("[server] cache: %v", err)
	}
	deps.Listings = listings

	// 异步排名服务
	ranking := services.NewRankingService(deps.Posts, deps.Comments, deps.Votes, listings, cfg.RankingInterval.Duration)
	go ranking.Run(ctx)
	ranking.StartScheduledRefresh(ctx)
	deps.Ranking = ranking

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("[server] metrics: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})

	engine := router.New(sessionStore, router.Services{
		Comments: services.NewCommentService(deps),
		Votes:    services.NewVoteService(deps),
		Posts:    services.NewPostService(deps),
		Users:    deps.Users,
		Verifier: identity.NewTokenVerifier(cfg.JWTSecret),
		Google: router.GoogleOAuth{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			SiteURL:      cfg.SiteURL,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("[server] lyceum starting on :%s (storage=%s)", cfg.Port, cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("[server] shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] shutdown: %v", err)
	}
	cancel()
}

func setupLogging(cfg config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("[server] unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
