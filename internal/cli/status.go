package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ringline/ringline/internal/config"
	"github.com/ringline/ringline/internal/database"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Ringline Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Ringline Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  found (" + path + ")")
			} else {
				fmt.Println("Config:  not found, defaults in effect (" + path + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:  failed to load:", err)
			return
		}
		if cfg.Providers.OpenAI.APIKey != "" {
			fmt.Println("API key: set")
		} else {
			fmt.Println("API key: missing (set RINGLINE_OPENAI_API_KEY)")
		}
		fmt.Printf("Gateway: %s\n", cfg.Gateway.Listen)
		fmt.Printf("Model:   %s\n", cfg.Model.Name)
		if cfg.Audit.Enabled() {
			fmt.Printf("Audit:   kafka %v topic %s\n", cfg.Audit.Brokers, cfg.Audit.Topic)
		} else {
			fmt.Println("Audit:   disabled")
		}
		if cfg.Handoff.Enabled() {
			fmt.Printf("Handoff: slack channel %s\n", cfg.Handoff.SlackChannel)
		} else {
			fmt.Println("Handoff: disabled")
		}

		if db, err := database.Open(cfg.Paths.Database); err != nil {
			fmt.Println("DB:      unreachable:", err)
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
			if err := db.Ping(ctx); err != nil {
				fmt.Println("DB:      unreachable:", err)
			} else {
				fmt.Println("DB:      ok (" + cfg.Paths.Database + ")")
			}
			cancel()
			db.Close()
		}
	},
}
