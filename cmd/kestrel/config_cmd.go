package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrel-ai/kestrel/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		key, _ := config.APIKey(cfg)

		bold := color.New(color.Bold)
		bold.Println("anthropic")
		fmt.Printf("  model:            %s\n", orDefault(cfg.Anthropic.Model, "(sdk default)"))
		fmt.Printf("  api_key:          %s\n", config.MaskAPIKey(key))
		fmt.Printf("  use_aws_bedrock:  %v\n", cfg.Anthropic.UseAWSBedrock)
		bold.Println("supervisor")
		fmt.Printf("  max_ticks:            %d\n", cfg.Supervisor.MaxTicks)
		fmt.Printf("  deadlock_retry_limit: %d\n", cfg.Supervisor.DeadlockRetryLimit)
		bold.Println("resolve")
		fmt.Printf("  history_limit: %d\n", cfg.Resolve.HistoryLimit)
		bold.Println("prompts")
		fmt.Printf("  pack_path: %s\n", orDefault(cfg.Prompts.PackPath, "(built-in)"))
		fmt.Printf("  watch:     %v\n", cfg.Prompts.Watch)
		bold.Println("database")
		fmt.Printf("  path: %s\n", orDefault(cfg.Database.Path, "(xdg default)"))
		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
