package main

import (
	"github.com/spf13/cobra"

	"github.com/subforge/srt-translator/internal/config"
	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/pkg/log"
)

var version = "0.1.0"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "srt-translator",
		Short: "Batch SRT subtitle translator backed by a local Ollama endpoint",
		Long: `Translates SubRip subtitle files block by block through an
Ollama-compatible chat endpoint, preserving timecodes and markup tags.

Configuration comes from environment variables (see .env support);
command-line flags override them per invocation.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newTranslateCommand())
	rootCmd.AddCommand(newModelsCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// loadConfig reads the environment configuration and points the global
// logger where it asks.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, err
	}

	level := log.ParseLevel(cfg.System.LogLevel)
	if cfg.System.LogFile != "" {
		if _, err := log.InitFileLogger(cfg.System.LogFile, level); err != nil {
			return nil, err
		}
	} else {
		log.InitLogger(level)
	}
	return cfg, nil
}

func newChatClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(
		cfg.Ollama.ChatURL,
		ollama.WithTimeout(cfg.Ollama.Timeout),
		ollama.WithRetry(cfg.Ollama.Retries, cfg.Ollama.RetryDelay),
	)
}
