package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kestrel-ai/kestrel/internal/config"
	"github.com/kestrel-ai/kestrel/internal/extract"
	"github.com/kestrel-ai/kestrel/internal/identity"
	"github.com/kestrel-ai/kestrel/internal/llm"
	"github.com/kestrel-ai/kestrel/internal/memory"
	"github.com/kestrel-ai/kestrel/internal/pipeline"
	"github.com/kestrel-ai/kestrel/internal/prompts"
	"github.com/kestrel-ai/kestrel/internal/resolve"
	"github.com/kestrel-ai/kestrel/internal/state"
	"github.com/kestrel-ai/kestrel/internal/supervisor"
	"github.com/kestrel-ai/kestrel/pkg/models"
)

var (
	chatDebug  bool
	chatResume bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatDebug, "debug", false, "Enable debug logging")
	chatCmd.Flags().BoolVar(&chatResume, "resume", false, "Resume the most recent interrupted conversation")
}

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	suggestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	debugLog := func(format string, a ...interface{}) {}
	if chatDebug {
		debugLog = log.Printf
	}

	apiKey, keyErr := config.APIKey(cfg)
	if keyErr != nil && !cfg.Anthropic.UseAWSBedrock {
		color.Yellow("warning: %v, running with heuristic task extraction only", keyErr)
	}
	var completer llm.Completer
	if keyErr == nil || cfg.Anthropic.UseAWSBedrock {
		client, err := llm.NewClient(llm.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        apiKey,
			MaxTokens:     cfg.Anthropic.MaxTokens,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			color.Yellow("warning: %v, running with heuristic task extraction only", err)
		} else {
			completer = client
		}
	}

	library := prompts.NewLibrary(cfg.Prompts.PackPath)
	if cfg.Prompts.Watch && cfg.Prompts.PackPath != "" {
		watcher, err := prompts.NewWatcher(library)
		if err != nil {
			color.Yellow("warning: prompt hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	resolver := identity.NewResolver(
		&identity.StaticProvider{TierName: "config_profile", Identity: models.Identity{
			ID:          cfg.Identity.UserID,
			Email:       cfg.Identity.Email,
			Name:        cfg.Identity.Name,
			Role:        cfg.Identity.Role,
			CompanyID:   cfg.Identity.CompanyID,
			CompanyName: cfg.Identity.CompanyName,
			Locale:      cfg.Identity.Locale,
		}},
		&identity.FuncProvider{TierName: "env_directory", Fn: envIdentity},
	)

	history := memory.NewContextHistory(cfg.Resolve.HistoryLimit)
	engine := resolve.New(resolver, history)
	engine.SetDebugLog(debugLog)

	tool := pipeline.ToolFunc{
		ToolName: "api_executor",
		Fn: func(ctx context.Context, operation string) (any, error) {
			// The real API executor is wired per deployment; the built-in
			// tool acknowledges the operation so conversations are testable
			// end to end without credentials.
			return map[string]any{"operation": operation, "status": "submitted"}, nil
		},
	}

	readPipe := pipeline.New(models.TaskKindRead, completer, library, engine, tool)
	writePipe := pipeline.New(models.TaskKindWrite, completer, library, engine, tool)
	readPipe.SetDebugLog(debugLog)
	writePipe.SetDebugLog(debugLog)

	sup := supervisor.New(supervisor.Config{
		Extractor:          extract.New(completer, library),
		MaxTicks:           cfg.Supervisor.MaxTicks,
		DeadlockRetryLimit: cfg.Supervisor.DeadlockRetryLimit,
	})
	sup.SetDebugLog(debugLog)
	runner := supervisor.NewRunner(sup, readPipe, writePipe)

	turn := supervisor.NewTurn(models.Identity{
		ID:        cfg.Identity.UserID,
		Email:     cfg.Identity.Email,
		CompanyID: cfg.Identity.CompanyID,
	})
	turn.State.SetDebugLog(debugLog)

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = state.DefaultPath()
	}
	var db *state.DB
	conversationID := uuid.New().String()
	if d, err := state.Open(dbPath); err != nil {
		color.Yellow("warning: persistence disabled: %v", err)
	} else if err := d.Migrate(); err != nil {
		color.Yellow("warning: persistence disabled: %v", err)
		d.Close()
	} else {
		db = d
		defer db.Close()

		resumed := false
		if interrupted, err := db.FindInterrupted(); err == nil && len(interrupted) > 0 {
			if chatResume {
				latest := interrupted[0]
				if st, err := db.ResumeConversation(latest.ID); err == nil {
					conversationID = latest.ID
					turn.State = st
					turn.State.SetDebugLog(debugLog)
					resumed = true
					fmt.Println(assistantStyle.Render(fmt.Sprintf(
						"Resumed conversation %s with %d open task(s).", latest.ID, latest.OpenTasks)))
				}
				for _, stale := range interrupted[1:] {
					_ = db.MarkAbandoned(stale.ID)
				}
			} else {
				color.Yellow("found %d interrupted conversation(s); use --resume to pick up the latest", len(interrupted))
			}
		}
		if !resumed {
			_ = db.CreateConversation(&state.Conversation{
				ID:        conversationID,
				UserID:    cfg.Identity.UserID,
				CompanyID: cfg.Identity.CompanyID,
				StartedAt: time.Now(),
				Status:    "active",
			})
		}
	}

	fmt.Println(assistantStyle.Render("kestrel ready. Ask for company, contract, employee, or payment data. Ctrl+D to exit."))

	scanner := bufio.NewScanner(os.Stdin)
	journalOffset := 0
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}

		result := runner.RunTurn(cmd.Context(), turn, utterance)
		fmt.Println(assistantStyle.Render(result.Message))
		if s := supervisor.FormatSuggestions(result.Suggestions); s != "" {
			fmt.Println(suggestStyle.Render(s))
		}

		if db != nil {
			if err := db.SaveTasks(conversationID, turn.State.Tasks()); err != nil {
				log.Printf("[chat] warning: failed to persist tasks: %v", err)
			}
			entries := sup.Journal().Entries()
			for _, e := range entries[journalOffset:] {
				_ = db.AppendJournal(conversationID, e)
			}
			journalOffset = len(entries)
		}
	}

	if db != nil {
		_ = db.UpdateConversationStatus(conversationID, "completed")
	}
	return scanner.Err()
}

// envIdentity is the directory-lookup tier backed by environment variables,
// used when no profile service is configured.
func envIdentity(_ context.Context, claims models.Identity) (models.Identity, error) {
	id := models.Identity{
		ID:        os.Getenv("KESTREL_USER_ID"),
		Email:     os.Getenv("KESTREL_USER_EMAIL"),
		CompanyID: os.Getenv("KESTREL_COMPANY_ID"),
	}
	if id.Empty() {
		return models.Identity{}, fmt.Errorf("no identity in environment")
	}
	return id, nil
}
