package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/api"
	"github.com/susu3304/warikanbot/internal/bot"
	"github.com/susu3304/warikanbot/internal/config"
	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/memstore"
	"github.com/susu3304/warikanbot/internal/sqlite"
	"github.com/susu3304/warikanbot/internal/warikan"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	case config.BackendSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	default:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return database, nil
	}
}

// newExtractor returns the extractor and a cleanup func.
func newExtractor(ctx context.Context, cfg *config.Config) (warikan.Extractor, func(), error) {
	rules := extract.NewRules()
	switch cfg.Extractor {
	case config.ExtractorOpenAI:
		return &extract.Router{Text: rules, Image: extract.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)}, func() {}, nil
	case config.ExtractorGemini:
		g, err := extract.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return &extract.Router{Text: rules, Image: g}, func() { _ = g.Close() }, nil
	default:
		return rules, func() {}, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg)

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer store.Close()

	extractor, closeExtractor, err := newExtractor(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("extractor", cfg.Extractor).Msg("Failed to create extractor")
	}
	defer closeExtractor()

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create discord session")
	}

	svc := warikan.NewService(store, extractor, bot.NewDirectory(session))
	discordBot := bot.New(session, svc)
	apiServer := api.New(cfg, svc, bot.NewGateway(session))

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start discord bot")
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	log.Info().
		Str("store", cfg.StoreBackend).
		Str("extractor", cfg.Extractor).
		Msg("warikanbot started")

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down...")
}
