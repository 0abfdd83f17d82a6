package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"astrobot/internal/bot"
	"astrobot/internal/config"
	"astrobot/internal/picker"
	"astrobot/internal/session"
	"astrobot/internal/storage"
	"astrobot/internal/storage/ch"
	"astrobot/internal/storage/stubs"
)

// sweepInterval is how often expired in-memory picker states are dropped
const sweepInterval = 10 * time.Minute

// stateStore is a picker state store owned by the application
type stateStore interface {
	picker.Store
	Close() error
}

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	states stateStore
	memory *session.MemoryStore // set for the in-memory backend only
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if envErr != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting astrology bot...")

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initStateStore(); err != nil {
		return nil, err
	}
	if err := app.initBot(); err != nil {
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

// newLogger builds a production logger, or a development one for LOG_LEVEL=debug
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// initDatabase initializes the database connection
func (a *App) initDatabase() error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to ClickHouse",
			zap.String("host", a.config.ClickHouseHost),
			zap.Int("port", a.config.ClickHousePort),
			zap.String("database", a.config.ClickHouseDatabase),
			zap.String("user", a.config.ClickHouseUser),
			zap.Bool("tls", a.config.ClickHouseUseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(
			a.config.ClickHouseHost,
			a.config.ClickHousePort,
			a.config.ClickHouseDatabase,
			a.config.ClickHouseUser,
			a.config.ClickHousePassword,
			a.config.ClickHouseUseTLS,
		)
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	}

	// Apply schema migrations
	ctx := context.Background()
	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initStateStore picks where picker states live between clicks
func (a *App) initStateStore() error {
	switch a.config.StateBackend {
	case "redis":
		client, err := session.NewRedisClient(session.RedisConfig{
			Addr:     a.config.RedisAddr,
			Password: a.config.RedisPassword,
			DB:       a.config.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.states = session.NewRedisStore(client, a.config.StateTTL)
		a.logger.Info("Using Redis picker state store", zap.String("addr", a.config.RedisAddr))
	default:
		a.memory = session.NewMemoryStore(a.config.StateTTL)
		a.states = a.memory
		a.logger.Info("Using in-memory picker state store")
	}
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	opts := bot.Options{
		AllowedUserIDs: a.config.AllowedUserIDs,
		AdminUserIDs:   a.config.AdminUserIDs,
		MinBirthYear:   a.config.MinBirthYear,
		Booking: bot.BookingOptions{
			HourStart:     a.config.BookingHourStart,
			HourEnd:       a.config.BookingHourEnd,
			DisabledHours: a.config.BookingDisabledHours,
			ClosedDays:    a.config.BookingClosedDays,
			Style:         a.config.BookingStyle,
			PopularHours:  a.config.BookingPopularHours,
			Location:      a.config.BookingLocation,
		},
	}

	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.db, a.states, opts, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully",
		zap.Int("allowed_users", len(a.config.AllowedUserIDs)),
		zap.Int64s("admins", a.config.AdminUserIDs),
	)

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, webhook and API
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Astrology bot is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	mux.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleWebhookUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	bot.NewHTTPServer(a.bot, a.config.WebhookMode).RegisterRoutes(mux)

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Run starts the application and blocks until a shutdown signal or a fatal error
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		g.Go(func() error {
			a.logger.Info("Starting bot in POLLING mode")
			return a.bot.Start(ctx)
		})
	}

	if a.memory != nil {
		g.Go(func() error {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if n := a.memory.Sweep(); n > 0 {
						a.logger.Debug("Dropped expired picker states", zap.Int("count", n))
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown releases storage connections
func (a *App) Shutdown() error {
	var errs []error
	if err := a.states.Close(); err != nil {
		a.logger.Error("Error closing picker state store", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		errs = append(errs, err)
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
