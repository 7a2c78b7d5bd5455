package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ringline/ringline/internal/audit"
	"github.com/ringline/ringline/internal/bus"
	"github.com/ringline/ringline/internal/call"
	"github.com/ringline/ringline/internal/config"
	"github.com/ringline/ringline/internal/database"
	"github.com/ringline/ringline/internal/engine"
	"github.com/ringline/ringline/internal/handoff"
	"github.com/ringline/ringline/internal/procedure"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/recall"
	"github.com/ringline/ringline/internal/relay"
	"github.com/ringline/ringline/internal/subconscious"
	"github.com/ringline/ringline/internal/syncstore"
	"github.com/ringline/ringline/internal/tools"
)

const embeddingDimension = 1536

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the call gateway and session manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	db, err := database.Open(cfg.Paths.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.Paths.SeedDatabase {
		if err := db.Seed(ctx); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	durable, err := syncstore.Open(cfg.Paths.CallStore)
	if err != nil {
		return fmt.Errorf("open call store: %w", err)
	}
	defer durable.Close()
	syncer := syncstore.NewSyncer(durable)
	defer syncer.Stop()

	var vectors recall.VectorStore
	if vs, err := recall.Open(cfg.Paths.RecallStore, embeddingDimension); err != nil {
		slog.Warn("recall store unavailable, recall disabled", "error", err)
	} else {
		vectors = vs
		defer vs.Close()
	}

	var aud audit.Publisher = audit.NopPublisher{}
	if cfg.Audit.Enabled() {
		aud = audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic)
	}
	defer aud.Close()

	var notifier handoff.Notifier
	if cfg.Handoff.Enabled() {
		notifier = handoff.NewSlackNotifier(cfg.Handoff.SlackToken, cfg.Handoff.SlackChannel)
	}

	catalog, err := procedure.Default()
	if err != nil {
		return fmt.Errorf("procedure catalog: %w", err)
	}

	prov := provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)
	b := bus.New()

	mgr := call.NewManager(call.Deps{
		Bus:      b,
		Provider: prov,
		Registry: tools.DefaultRegistry(),
		Catalog:  catalog,
		DB:       db,
		Sync:     syncer,
		Durable:  durable,
		Vectors:  vectors,
		Audit:    aud,
		Handoff:  handoff.NewManager(notifier),
		Engine: engine.Config{
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
			MaxRounds:   cfg.Engine.MaxRounds,
			FillerDelay: cfg.Engine.FillerDelay(),
		},
		Subconscious: subconscious.Config{
			Model:            cfg.Subconscious.Model,
			Interval:         cfg.Subconscious.Interval(),
			ToolResultBudget: cfg.Subconscious.ToolResultBudget,
			RecallLimit:      cfg.Subconscious.RecallLimit,
		},
		BotName:  cfg.Bot.Name,
		Company:  cfg.Bot.Company,
		Greeting: cfg.Bot.Greeting,
	})

	gw := relay.NewGateway(b, cfg.Gateway.Listen)

	go b.DispatchOutbound(ctx)
	go func() {
		if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("session manager stopped", "error", err)
		}
	}()
	go func() {
		slog.Info("gateway listening", "addr", cfg.Gateway.Listen)
		if err := gw.ListenAndServe(); err != nil && ctx.Err() == nil {
			slog.Error("gateway stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return gw.Shutdown(shutdownCtx)
}
