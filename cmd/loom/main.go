package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomery/loom/internal/config"
	"github.com/loomery/loom/internal/llm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Loom - declarative LLM pipeline runner",
		Long: `Loom composes typed LLM modules into dependency graphs and runs them
with maximal parallelism against any OpenAI-compatible backend.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			backend = llm.NewService(llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.MaxTokens,
				cfg.LLM.Temperature,
			))

			return nil
		},
	}

	rootCmd.AddCommand(
		runCmd(),
		listCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Runner:")
			fmt.Printf("  Failure Policy:      %s\n", cfg.Runner.DefaultPolicy)
			fmt.Printf("  Stage Timeout:       %s\n", cfg.Runner.StageTimeout)
			fmt.Printf("  Max Parallel Stages: %d\n", cfg.Runner.MaxConcurrentStages)
			fmt.Printf("  Retry Attempts:      %d\n", cfg.Runner.RetryMaxAttempts)
			fmt.Printf("  Retry Interval:      %s\n", cfg.Runner.RetryInitialInterval)
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  LOOM_LLM_URL, LOOM_LLM_API_KEY, LOOM_LLM_MODEL")
			fmt.Println("  LOOM_LLM_MAX_TOKENS, LOOM_LLM_TEMPERATURE")
			fmt.Println("  LOOM_RUNNER_POLICY, LOOM_RUNNER_STAGE_TIMEOUT")
			fmt.Println("  LOOM_RUNNER_MAX_CONCURRENT_STAGES")
			fmt.Println("  LOOM_RUNNER_RETRY_MAX_ATTEMPTS, LOOM_RUNNER_RETRY_INITIAL_INTERVAL")
			fmt.Println("  LOOM_SERVER_HOST, LOOM_SERVER_PORT, LOOM_CONFIG")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Loom %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
