package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "embed"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/agent"
	"github.com/wolfman30/clinic-scheduler/internal/api/router"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/booking"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/nlu"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/webchat"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Doctor catalogue: embedded by default, file override for deployments.
	var dir *directory.Directory
	var err error
	if cfg.DoctorsFile != "" {
		dir, err = directory.LoadFile(cfg.DoctorsFile)
	} else {
		dir, err = directory.Load()
	}
	if err != nil {
		logger.Error("failed to load doctor catalogue", "error", err)
		os.Exit(1)
	}

	// The in-memory ledger is the single booking authority. Postgres, when
	// configured, receives a non-authoritative archive copy.
	led := ledger.NewMemoryLedger()
	var archive *ledger.ArchiveStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		archive = ledger.NewArchiveStore(db, logger)
		if err := archive.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to ensure archive schema", "error", err)
			os.Exit(1)
		}
		logger.Info("booking archive enabled")
	}

	var sessions agent.SessionStore
	if cfg.RedisAddr != "" && !cfg.UseMemorySessions {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		sessions = agent.NewRedisSessionStore(client, cfg.SessionTTL)
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		sessions = agent.NewMemorySessionStore()
		logger.Info("using in-memory session store")
	}

	m := metrics.NewSchedulingMetrics(nil)
	engine := availability.NewEngine(dir, led, m, nil)
	bookings := booking.NewService(engine, led, archive, m, logger)
	ag := agent.New(nlu.NewRuleInterpreter(), sessions, engine, bookings, dir, m, logger, agent.Config{
		RetainContactFields: cfg.RetainContactFields,
		MaxShownSlots:       cfg.MaxShownSlots,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               handlers.NewChatHandler(ag, logger),
		Scheduling:         handlers.NewSchedulingHandler(engine, bookings, logger),
		Webchat:            webchat.NewHandler(ag, widgetJS, logger),
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
