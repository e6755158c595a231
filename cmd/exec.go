package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"org-dashboard/config"
	"org-dashboard/internal/gateway"
	"org-dashboard/internal/handlers"
	"org-dashboard/internal/services"
	_ "org-dashboard/migrations"
	"org-dashboard/monitoring"
	"org-dashboard/security"
	"org-dashboard/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	monitor := monitoring.NewMonitor(app)

	// Initialize PubNub
	notifier := services.NewNotifier(
		services.NewPubNubPublisher(newPubNub(cfg)),
		cfg.PubNubScheduleChannel,
		utils.NewCircuitBreaker("pubnub", utils.BreakerSettings{
			OnStateChange: func(name string, from, to utils.State) {
				slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
				monitor.TrackBreakerState(name, int(to))
			},
		}),
	)

	// Storage and signed URLs
	signer, err := gateway.NewSigner(cfg, redisClient, monitor)
	if err != nil {
		return err
	}
	bucket := gateway.NewFilesystemBucket(app)
	gw := gateway.New(app, cfg, bucket, signer, monitor)

	// Initialize services
	scheduleService := services.NewScheduleService(gw, notifier)
	noticeService := services.NewNoticeService(gw)
	userService := services.NewUserService(gw)
	movieService := services.NewMovieService(gw)
	authService := services.NewAuthService(gw, newLimiter(redisClient, monitor, "password_reset", cfg.ResetRateLimit, cfg.ResetRateWindow))
	sweeper := services.NewMediaSweeper(gw)

	// Initialize handlers
	routes := &handlers.Routes{
		Schedules:      handlers.NewScheduleHandler(scheduleService, cfg.Location),
		Notices:        handlers.NewNoticeHandler(noticeService),
		Users:          handlers.NewUserHandler(userService),
		Movies:         handlers.NewMovieHandler(movieService),
		Media:          handlers.NewMediaHandler(bucket, signer),
		Auth:           handlers.NewAuthHandler(authService, userService),
		SignInLimiter:  newLimiter(redisClient, monitor, "sign_in", cfg.SignInRateLimit, cfg.SignInRateWindow),
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		Health: func(ctx context.Context) error {
			return utils.RedisHealthCheck(ctx, redisClient)
		},
	}
	if cfg.EnableMetrics {
		routes.Metrics = promhttp.Handler()
	}

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	setupRecordHooks(app, notifier, movieService)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		routes.Register(e)
		log.Println("Server routes registered")

		go monitor.Run(ctx)

		if err := sweeper.Start(cfg.MediaSweepSchedule); err != nil {
			return err
		}
		log.Printf("Media sweep scheduled: %s", cfg.MediaSweepSchedule)

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		sweeper.Stop()
		cancel()
		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		return fmt.Errorf("start pocketbase: %w", err)
	}
	return nil
}

func newPubNub(cfg *config.Config) *pubnub.PubNub {
	if cfg.PubNubPublishKey == "" || cfg.PubNubSubscribeKey == "" {
		log.Println("PubNub keys not set, schedule notifications disabled")
		return nil
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = "org-dashboard-server"

	return pubnub.NewPubNub(pnConfig)
}

func newLimiter(redisClient *redis.Client, monitor *monitoring.Monitor, scope string, limit int, window time.Duration) *security.RateLimiter {
	return security.NewRateLimiter(security.NewRedisStore(redisClient, scope, limit, window), scope, monitor).
		WithFallback(security.NewMemoryStore(limit, window))
}

// setupRecordHooks covers changes made through the PocketBase dashboard and
// collections API rather than the /api/v1 routes.
func setupRecordHooks(app *pocketbase.PocketBase, notifier *services.Notifier, movies *services.MovieService) {
	notify := func(action string, scheduleID func(*core.Record) string) func(e *core.RecordRequestEvent) error {
		return func(e *core.RecordRequestEvent) error {
			if err := e.Next(); err != nil {
				return err
			}
			notifier.SchedulesChanged(action, scheduleID(e.Record))
			return nil
		}
	}
	ownID := func(r *core.Record) string { return r.Id }
	parentID := func(r *core.Record) string { return r.GetString("schedule") }

	app.OnRecordCreateRequest(services.SchedulesCollection).BindFunc(notify("created", ownID))
	app.OnRecordUpdateRequest(services.SchedulesCollection).BindFunc(notify("updated", ownID))
	app.OnRecordDeleteRequest(services.SchedulesCollection).BindFunc(notify("deleted", ownID))
	app.OnRecordCreateRequest(services.AttendancesCollection).BindFunc(notify("attendance", parentID))
	app.OnRecordUpdateRequest(services.AttendancesCollection).BindFunc(notify("attendance", parentID))

	// Stored objects outlive a movie row deleted from the dashboard unless
	// removed here; the sweeper catches whatever this misses.
	app.OnRecordDeleteRequest(services.MoviesCollection).BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}
		if err := movies.RemoveObjects(e.Request.Context(), e.Record); err != nil {
			slog.Error("Failed to remove objects of deleted movie",
				"movieID", e.Record.Id,
				"error", err,
				"hook", "OnRecordDeleteRequest",
			)
		}
		return nil
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
