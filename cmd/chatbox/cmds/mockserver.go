package cmds

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamerly/chatbox/pkg/mockserver"
)

func NewMockServerCommand(app *App) *cobra.Command {
	var (
		addr      string
		fixtures  string
		charDelay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a canned chatbases backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []mockserver.Option{mockserver.WithCharDelay(charDelay)}
			if fixtures != "" {
				f, err := mockserver.LoadFixtures(fixtures)
				if err != nil {
					return err
				}
				opts = append(opts, mockserver.WithFixtures(f))
			}

			router := mux.NewRouter()
			mockserver.New(opts...).RegisterRoutes(router)
			router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}).Methods(http.MethodGet)

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), httpSrv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML file with welcome text, history and reply template")
	cmd.Flags().DurationVar(&charDelay, "char-delay", 20*time.Millisecond, "delay between streamed characters")
	return cmd
}

func serve(ctx context.Context, httpSrv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg := errgroup.Group{}
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down mock server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		return nil
	})
	eg.Go(func() error {
		defer stop()
		log.Info().Str("addr", httpSrv.Addr).Msg("starting mock chat server")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})
	return eg.Wait()
}
