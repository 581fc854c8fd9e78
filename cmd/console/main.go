package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/bom-console/internal/api"
	"github.com/Spok95/bom-console/internal/bot"
	"github.com/Spok95/bom-console/internal/config"
	"github.com/Spok95/bom-console/internal/console"
	"github.com/Spok95/bom-console/internal/dialog"
	"github.com/Spok95/bom-console/internal/domain/catalog"
	"github.com/Spok95/bom-console/internal/domain/inventory"
	"github.com/Spok95/bom-console/internal/domain/labor"
	"github.com/Spok95/bom-console/internal/domain/lowstock"
	"github.com/Spok95/bom-console/internal/domain/materials"
	"github.com/Spok95/bom-console/internal/domain/products"
	"github.com/Spok95/bom-console/internal/infra/backend"
	"github.com/Spok95/bom-console/internal/infra/cache"
	"github.com/Spok95/bom-console/internal/infra/db"
	httpx "github.com/Spok95/bom-console/internal/infra/http"
	"github.com/Spok95/bom-console/internal/infra/logger"
	"github.com/Spok95/bom-console/internal/infra/webhook"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	path := "config/example.yaml"
	if p := os.Getenv("APP_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// состояния диалогов: Postgres, если задан, иначе память процесса
	var states bot.StateStore = dialog.NewMemory()
	if cfg.Postgres.DSN != "" {
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			log.Error("migrations failed", "err", err)
			return
		}
		log.Info("migrations applied")

		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("db connect failed", "err", err)
			return
		}
		defer pool.Close()
		log.Info("db connected")
		states = dialog.NewRepo(pool, cfg.Postgres.SessionTTL)
	}

	var estimates cache.Store = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", "err", err)
		} else {
			defer func() { _ = rdb.Close() }()
			estimates = cache.NewRedis(rdb, "bom:labor:")
			log.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}

	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	matRepo := materials.NewRepo(client)
	invRepo := inventory.NewRepo(client)
	catRepo := catalog.NewRepo(client)

	mailer := webhook.New(cfg.Notifier.WebhookURL, cfg.Backend.Timeout)
	notifier := lowstock.NewNotifier(mailer, matRepo, catRepo, invRepo,
		lowstock.NewNotifiedSet(), cfg.Notifier.OrderBuffer, log)

	svc := console.New(console.Deps{
		Log:       log,
		Materials: matRepo,
		Inventory: invRepo,
		Catalog:   catRepo,
		Products:  products.NewRepo(client, log),
		Labor:     labor.NewService(client, estimates, cfg.Labor.CacheTTL, log),
		Store:     inventory.NewStore(matRepo, log),
		Notifier:  notifier,
		Debounce:  cfg.Labor.Debounce,
	})
	snap := svc.Refresh(ctx)
	log.Info("inventory loaded", "materials", snap.Len())

	if cfg.Telegram.Token != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		b := bot.New(tg, log, states, svc, cfg.Telegram.AdminChatID)
		notifier.SetAlerter(b)
		go func() {
			if err := b.Run(ctx, cfg.Telegram.Timeout); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped", "err", err)
			}
		}()
		log.Info("telegram bot started", "username", tg.Self.UserName)
	} else {
		log.Warn("telegram token is empty, bot disabled")
	}

	if mailer.Enabled() && cfg.Notifier.ScanInterval > 0 {
		go scanLoop(ctx, svc, cfg.Notifier.ScanInterval, log)
	} else {
		log.Warn("low-stock webhook is not configured, periodic scan disabled")
	}

	srv, err := httpx.New(httpx.Options{
		Addr:          cfg.HTTP.Addr,
		ExposeMetrics: cfg.Metrics.Enabled,
		RateLimit:     cfg.HTTP.RateLimit,
	}, log, api.NewHandler(svc).Register)
	if err != nil {
		log.Error("http init failed", "err", err)
		return
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

// scanLoop периодическая проверка дефицита; первый проход сразу после старта.
func scanLoop(ctx context.Context, svc *console.Service, every time.Duration, log *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		svc.ScanLowStock(ctx)
		select {
		case <-ctx.Done():
			log.Info("low-stock scan loop stopped")
			return
		case <-t.C:
		}
	}
}
