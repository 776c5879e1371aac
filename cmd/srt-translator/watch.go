package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/history"
	"github.com/subforge/srt-translator/internal/watch"
	"github.com/subforge/srt-translator/pkg/log"
)

func newWatchCommand() *cobra.Command {
	var (
		dir      string
		cronExpr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan a directory for new subtitles on a cron schedule",
		Long: `Periodically scans a directory and translates every .srt file that
does not have a translation yet. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Translate.WatchDir
			}
			if cronExpr == "" {
				cronExpr = cfg.Translate.CronExpr
			}
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("watch dir: %w", err)
			}

			var opts []batch.Option
			if cfg.System.HistoryDB != "" {
				store, err := history.NewStore(cfg.System.HistoryDB)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, batch.WithRecorder(store))
			}

			client := newChatClient(cfg)
			run := func(ctx context.Context, files []string) error {
				job := batch.Job{
					Files:          files,
					Target:         cfg.TargetLanguage(),
					Style:          cfg.StyleValue(),
					Model:          cfg.Ollama.Model,
					PromptOverride: cfg.Translate.PromptOverride,
					Endpoint:       cfg.Ollama.ChatURL,
				}
				runner := batch.NewRunner(job, client, opts...)
				ev := runner.Events()
				go func() {
					for {
						select {
						case line := <-ev.Log:
							log.Info("%s", line)
						case <-ev.Progress:
						case err := <-ev.Fatal:
							log.Error("Run failed: %v", err)
						case <-ev.Done:
							return
						}
					}
				}()
				runner.Run(ctx)
				if runner.State() == batch.StateFatal {
					return fmt.Errorf("translation run failed")
				}
				return nil
			}

			c := cron.New()
			w := watch.NewWatcher(dir, cronExpr, c, run)
			if err := w.Schedule(cmd.Context()); err != nil {
				return err
			}

			// First pass right away so a fresh start does not sit idle
			// until the schedule fires.
			if err := w.Scan(cmd.Context()); err != nil {
				log.Error("Initial scan failed: %v", err)
			}

			c.Start()
			defer c.Stop()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			<-sig
			log.Info("Shutting down watch mode")
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to scan for .srt files")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression for the scan schedule")

	return cmd
}
