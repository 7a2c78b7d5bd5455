package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ringline/ringline/internal/call"
	"github.com/ringline/ringline/internal/config"
	"github.com/ringline/ringline/internal/convo"
	"github.com/ringline/ringline/internal/database"
	"github.com/ringline/ringline/internal/engine"
	"github.com/ringline/ringline/internal/handoff"
	"github.com/ringline/ringline/internal/procedure"
	"github.com/ringline/ringline/internal/provider"
	"github.com/ringline/ringline/internal/relay"
	"github.com/ringline/ringline/internal/subconscious"
	"github.com/ringline/ringline/internal/tools"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Talk to the bot from the terminal",
	Long:  "Runs one call against a console relay. Type to speak, /dtmf <digits> for keypad input, /bye to hang up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return simulate(cmd.Context(), cfg)
	},
}

func simulate(ctx context.Context, cfg *config.Config) error {
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		return err
	}
	db, err := database.Open(cfg.Paths.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	// simulate always works against the demo records
	if err := db.Seed(ctx); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	catalog, err := procedure.Default()
	if err != nil {
		return err
	}
	prov := provider.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Model.Name)

	callID := "sim-" + uuid.NewString()[:8]
	store := convo.NewStore(callID, nil)
	console := relay.NewConsole(os.Stdout)

	env := tools.Env{
		DB:      db,
		Relay:   console,
		Handoff: handoff.NewManager(nil),
		SMS:     console,
	}
	eng := engine.New(store, prov, tools.DefaultRegistry(), env,
		call.Speaker(console),
		engine.SystemPrompt(cfg.Bot.Name, cfg.Bot.Company, catalog),
		engine.Config{
			MaxTokens:   cfg.Model.MaxTokens,
			Temperature: cfg.Model.Temperature,
			MaxRounds:   cfg.Engine.MaxRounds,
			FillerDelay: cfg.Engine.FillerDelay(),
		})
	sub := subconscious.NewLoop(store, prov, catalog, nil, nil, subconscious.Config{
		Model:            cfg.Subconscious.Model,
		Interval:         cfg.Subconscious.Interval(),
		ToolResultBudget: cfg.Subconscious.ToolResultBudget,
		RecallLimit:      cfg.Subconscious.RecallLimit,
	})
	sub.Start(ctx)
	defer sub.Stop()

	if cfg.Bot.Greeting != "" {
		store.Append(&convo.Turn{Role: convo.RoleBot, Kind: convo.KindText, Content: cfg.Bot.Greeting})
		console.Speak(cfg.Bot.Greeting, true)
	}

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.GreenString("you> "))
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/bye":
			eng.Abort()
			console.EndCall(nil)
		case strings.HasPrefix(line, "/dtmf "):
			store.AppendHumanDTMF(strings.TrimSpace(strings.TrimPrefix(line, "/dtmf ")))
			eng.Run(ctx)
			eng.Wait()
		default:
			store.AppendHumanText(line)
			eng.Run(ctx)
			eng.Wait()
		}
		if console.Ended {
			break
		}
	}
	sub.RunOnce(ctx)
	return sc.Err()
}
