package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/valentimdigital/IADESPEDIDA/internal/api"
	"github.com/valentimdigital/IADESPEDIDA/internal/cache"
	"github.com/valentimdigital/IADESPEDIDA/internal/config"
	"github.com/valentimdigital/IADESPEDIDA/internal/dedup"
	"github.com/valentimdigital/IADESPEDIDA/internal/gemini"
	"github.com/valentimdigital/IADESPEDIDA/internal/intake"
	"github.com/valentimdigital/IADESPEDIDA/internal/prompt"
	"github.com/valentimdigital/IADESPEDIDA/internal/resolver"
	"github.com/valentimdigital/IADESPEDIDA/internal/rules"
	"github.com/valentimdigital/IADESPEDIDA/internal/store"
	"github.com/valentimdigital/IADESPEDIDA/internal/takeover"
	"github.com/valentimdigital/IADESPEDIDA/internal/wire"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("valentina starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// Gemini client
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	llm := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	slog.Info("gemini client ready", "model", cfg.GeminiModel)

	// Registry resolvers over the shared lookup cache
	lookupCache := cache.New(db.LookupCache(), cfg.LookupCacheTTL)
	cnpjResolver := resolver.New("cnpj", lookupCache, db, slog.Default(),
		resolver.NewBrasilAPICNPJ(""), resolver.NewReceitaWSCNPJ(""))
	cepResolver := resolver.New("cep", lookupCache, db, slog.Default(),
		resolver.NewBrasilAPICEP(""), resolver.NewViaCEP(""))

	// Canned replies, overridable from disk
	replies, err := rules.LoadReplies(cfg.RepliesFile)
	if err != nil {
		slog.Warn("failed to load replies file, using defaults", "error", err)
	}

	// NATS transport
	bridge, err := wire.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bridge.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	locks := takeover.New(cfg.TakeoverDuration, slog.Default())

	// Pipeline — the main message path
	pipe := intake.New(intake.Config{
		Records:         db,
		Dialogue:        llm,
		Sender:          bridge,
		CNPJLookup:      cnpjResolver,
		CEPLookup:       cepResolver,
		Dedup:           dedup.New(dedup.DefaultTTL),
		Locks:           locks,
		Rules:           rules.New(replies),
		Prompts:         prompt.NewLoader(cfg.PromptDir),
		Logger:          slog.Default(),
		MobileImagePath: cfg.MobileImagePath,
	})

	if err := bridge.SubscribeInbound(func(event wire.InboundEvent) {
		go pipe.Process(ctx, event)
	}); err != nil {
		slog.Error("failed to subscribe to message events", "error", err)
		os.Exit(1)
	}

	// Ops HTTP API
	srv := api.NewServer(cfg.Port, db, locks)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("valentina ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("valentina stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
