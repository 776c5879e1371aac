package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/subforge/srt-translator/internal/batch"
	"github.com/subforge/srt-translator/internal/history"
	"github.com/subforge/srt-translator/internal/ollama"
	"github.com/subforge/srt-translator/internal/prompt"
	"github.com/subforge/srt-translator/pkg/file"
	"github.com/subforge/srt-translator/pkg/log"
)

func newTranslateCommand() *cobra.Command {
	var (
		targetLang     string
		styleName      string
		model          string
		promptOverride string
	)

	cmd := &cobra.Command{
		Use:   "translate [files or directories...]",
		Short: "Translate SRT files to the target language",
		Long: `Translate one or more SRT files, or every .srt file found in the
given directories. Output lands next to each input as name.<code>.srt;
files whose translation already exists are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if targetLang == "" {
				targetLang = cfg.Translate.TargetLang
			}
			target, err := prompt.LanguageByCode(targetLang)
			if err != nil {
				return err
			}
			style := cfg.StyleValue()
			if styleName != "" {
				style = prompt.ParseStyle(styleName)
			}
			if model == "" {
				model = cfg.Ollama.Model
			}
			if promptOverride == "" {
				promptOverride = cfg.Translate.PromptOverride
			}

			files, err := file.FindSubtitles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no subtitle files found")
			}

			job := batch.Job{
				Files:          files,
				Target:         target,
				Style:          style,
				Model:          model,
				PromptOverride: promptOverride,
				Endpoint:       cfg.Ollama.ChatURL,
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

			// Retry attempt messages from the client join the run log.
			var runner *batch.Runner
			client := ollama.NewClient(
				cfg.Ollama.ChatURL,
				ollama.WithTimeout(cfg.Ollama.Timeout),
				ollama.WithRetry(cfg.Ollama.Retries, cfg.Ollama.RetryDelay),
				ollama.WithLogf(func(format string, args ...any) {
					if runner != nil {
						runner.Logf(format, args...)
					} else {
						log.Warn(format, args...)
					}
				}),
			)
			runner = batch.NewRunner(job, client, opts...)

			return runInteractive(runner)
		},
	}

	cmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code, e.g. de, fr, pt-BR")
	cmd.Flags().StringVar(&styleName, "style", "", "Translation style: natural, formal or simple-clear")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Ollama model name")
	cmd.Flags().StringVar(&promptOverride, "prompt", "", "Replace the built-in system prompt entirely")

	return cmd
}

// runInteractive drives a run on the terminal: log lines and progress go
// to stdout, SIGINT requests cancellation and waits for a clean stop.
func runInteractive(runner *batch.Runner) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	runner.Start(context.Background())
	ev := runner.Events()

	var fatalErr error
	for done := false; !done; {
		select {
		case line := <-ev.Log:
			fmt.Println(line)
		case p := <-ev.Progress:
			fmt.Printf("Progress: %d/%d files\n", p.Done, p.Total)
		case err := <-ev.Fatal:
			fatalErr = err
		case <-sig:
			fmt.Println("Interrupt received, stopping after the current block...")
			runner.Cancel()
		case <-ev.Done:
			done = true
		}
	}

	// Leftover buffered events after Done closed.
	for drained := false; !drained; {
		select {
		case line := <-ev.Log:
			fmt.Println(line)
		case p := <-ev.Progress:
			fmt.Printf("Progress: %d/%d files\n", p.Done, p.Total)
		case err := <-ev.Fatal:
			fatalErr = err
		default:
			drained = true
		}
	}

	switch runner.State() {
	case batch.StateFatal:
		if fatalErr != nil {
			return fatalErr
		}
		return fmt.Errorf("translation run failed")
	case batch.StateCancelled:
		fmt.Println("Run cancelled.")
	}
	return nil
}
