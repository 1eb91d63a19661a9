package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"liquidity-matrix-bot/config"
	"liquidity-matrix-bot/internal/api"
	"liquidity-matrix-bot/internal/bot"
	"liquidity-matrix-bot/internal/database"
	"liquidity-matrix-bot/internal/market"
	"liquidity-matrix-bot/internal/notification"
	"liquidity-matrix-bot/internal/scheduler"
	"liquidity-matrix-bot/internal/strategy"
	"liquidity-matrix-bot/internal/vault"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("starting liquidity matrix bot")

	// Vault-held credentials override the file/env values when enabled
	if cfg.VaultConfig.Enabled {
		vaultClient, err := vault.NewClient(cfg.VaultConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create vault client")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		creds, err := vaultClient.GetCredentials(ctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read credentials from vault")
		}
		if creds.TwelveDataKey != "" {
			cfg.FeedConfig.APIKey = creds.TwelveDataKey
		}
		if creds.TelegramToken != "" {
			cfg.NotificationConfig.Telegram.BotToken = creds.TelegramToken
		}
		if creds.TelegramChat != "" {
			cfg.NotificationConfig.Telegram.ChatID = creds.TelegramChat
		}
		logger.Info().Msg("credentials loaded from vault")
	}

	instruments := buildInstruments(cfg)
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	logger.Info().Strs("symbols", symbols).Msg("instruments configured")

	feed := market.NewClient(cfg.FeedConfig.APIKey, cfg.FeedConfig.BaseURL)

	var stream *market.PriceStream
	if cfg.FeedConfig.StreamEnabled {
		stream = market.NewPriceStream(cfg.FeedConfig.APIKey, cfg.FeedConfig.StreamURL, symbols, logger)
		stream.Start()
		logger.Info().Msg("websocket price stream started")
	}

	// Postgres alert history is optional
	var repo *database.Repository
	var db *database.DB
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.RunMigrations(ctx)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		repo = database.NewRepository(db)
		logger.Info().Msg("database connected, migrations applied")
	}

	// Redis setup-state persistence is optional; the repository keeps an
	// in-memory fallback for when the connection drops mid-session
	var state *database.RedisSetupStateRepository
	if cfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		state = database.NewRedisSetupStateRepository(redisClient)
		logger.Info().Str("addr", cfg.RedisConfig.Address).Msg("redis setup state enabled")
	}

	var notifier *notification.Manager
	if cfg.NotificationConfig.Enabled {
		notifier = notification.NewManager()
		if cfg.NotificationConfig.Telegram.Enabled {
			notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("telegram notifier enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("discord notifier enabled")
		}
	}

	engine := bot.New(cfg, feed, stream, instruments, notifier, repo, state, logger)

	// Re-arm setups persisted before a restart
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 15*time.Second)
	engine.Restore(restoreCtx)
	restoreCancel()

	sched := scheduler.New(engine.Location(), logger)
	if err := sched.RunDaily("pre-session", cfg.SessionConfig.PreSessionTime, engine.RunPreSession); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule pre-session job")
	}
	monitorEvery := time.Duration(cfg.SessionConfig.MonitorInterval) * time.Minute
	if err := sched.RunEvery("monitor", monitorEvery, engine.RunMonitorCycle); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule monitor job")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(cfg.ServerConfig, engine, repo, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	logger.Info().
		Str("session", cfg.SessionConfig.SessionStart+"-"+cfg.SessionConfig.SessionEnd).
		Str("timezone", cfg.SessionConfig.Timezone).
		Int("monitor_interval_min", cfg.SessionConfig.MonitorInterval).
		Msg("bot running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	sched.Stop()

	if server != nil {
		timeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("status server shutdown failed")
		}
		cancel()
	}
	if stream != nil {
		stream.Stop()
	}
	if db != nil {
		db.Close()
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the root zerolog logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

// buildInstruments maps configured instruments onto the built-in defaults,
// overriding only the fields a config entry sets.
func buildInstruments(cfg *config.Config) []strategy.Instrument {
	defaults := strategy.DefaultInstruments()
	if len(cfg.InstrumentConfigs) == 0 {
		return defaults
	}

	byKey := make(map[string]strategy.Instrument, len(defaults))
	for _, inst := range defaults {
		byKey[inst.Key] = inst
	}

	instruments := make([]strategy.Instrument, 0, len(cfg.InstrumentConfigs))
	for _, ic := range cfg.InstrumentConfigs {
		inst, ok := byKey[ic.Key]
		if !ok {
			inst = strategy.Instrument{Symbol: ic.Symbol, Key: ic.Key}
		}
		if ic.Symbol != "" {
			inst.Symbol = ic.Symbol
		}
		if ic.PipSize > 0 {
			inst.PipSize = ic.PipSize
		}
		if ic.StopPips > 0 {
			inst.StopPips = ic.StopPips
		}
		if ic.FixedStop > 0 {
			inst.FixedStop = ic.FixedStop
		}
		if ic.Tick > 0 {
			inst.Tick = ic.Tick
		}
		if ic.EntryBuffer > 0 {
			inst.EntryBuffer = ic.EntryBuffer
		}
		if ic.ClusterBand > 0 {
			inst.ClusterBand = ic.ClusterBand
		}
		if ic.Precision > 0 {
			inst.Precision = ic.Precision
		}
		instruments = append(instruments, inst)
	}
	return instruments
}
