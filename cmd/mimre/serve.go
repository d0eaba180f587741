package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eryai/mimre/internal/config"
	"github.com/eryai/mimre/internal/handler"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API for the web page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			addr, err := config.ParseAddr(serveAddr)
			if err != nil {
				return err
			}
			cfg.Server.Addr = addr
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, ok, err := a.selector.Restore(cmd.Context()); err != nil {
			logger.Warn("failed to restore companion", zap.Error(err))
		} else if ok {
			logger.Info("restored companion", zap.String("companion", a.selector.Active().Companion().ID))
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler.NewRouter(a.selector, logger.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		logger.Info("mimre listening", zap.String("addr", srv.Addr))
		return runServer(cmd.Context(), srv)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address or port (default $PORT or :8080)")
}

func runServer(ctx context.Context, srv *http.Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
