package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/subforge/srt-translator/internal/history"
	"github.com/subforge/srt-translator/internal/httpapi"
	"github.com/subforge/srt-translator/pkg/log"
)

// shutdownWait bounds graceful HTTP shutdown. An open SSE stream ends on
// its own once the client disconnects or the run reaches a terminal state.
const shutdownWait = 30 * time.Second

func newServeCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Exposes the translator over HTTP: start and cancel runs, stream
progress as server-sent events, list models and browse run history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.System.HTTPListen
			}

			var opts []httpapi.Option
			if cfg.System.HistoryDB != "" {
				store, err := history.NewStore(cfg.System.HistoryDB)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, httpapi.WithRecorder(store), httpapi.WithHistory(store))
			}

			server := httpapi.NewServer(newChatClient(cfg), httpapi.Defaults{
				Target:         cfg.TargetLanguage(),
				Style:          cfg.StyleValue(),
				Model:          cfg.Ollama.Model,
				Endpoint:       cfg.Ollama.ChatURL,
				PromptOverride: cfg.Translate.PromptOverride,
			}, opts...)

			errCh := make(chan error, 1)
			go func() {
				log.Info("HTTP API listening on %s", listen)
				errCh <- server.ListenAndServe(listen)
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-sig:
				log.Info("Shutting down HTTP API")
				ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
				defer cancel()
				return server.Shutdown(ctx)
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, e.g. :8080")

	return cmd
}
