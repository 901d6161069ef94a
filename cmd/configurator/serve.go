package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	httpadapter "github.com/aretw0/configurator/pkg/adapters/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the gateway contract (/config/*, /variants/of_template, /health), the chat bridge under /chat/{user} and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := &http.Server{
			Addr: cfg.Server.Addr,
			Handler: httpadapter.NewHandler(a.Configurator,
				httpadapter.WithWizard(a.Wizard),
				httpadapter.WithPinger(a.Pinger),
				httpadapter.WithLogger(logger.Named("http")),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting server", zap.String("addr", srv.Addr))
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("server error").
				WithCause(err)
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", zap.Duration("timeout", shutdownTimeout), zap.Error(err))
			return srv.Close()
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
