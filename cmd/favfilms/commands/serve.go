package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/favfilms/internal/app"
	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/observability"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			if cfg.Mode == config.ModeFunction {
				return errors.New("RUN_MODE=function: requests are served by the api package handler, not a listener")
			}

			log := observability.NewLogger(cfg.Env)

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           a.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			serveErr := make(chan error, 1)

			go func() {
				log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "driver", cfg.DBDriver)
				err := srv.ListenAndServe()

				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			// Graceful shutdown
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)

			select {
			case <-stop:
			case err, ok := <-serveErr:
				if ok {
					log.Error("server failed", "err", err)
					_ = a.Close(context.Background())
					return err
				}
			}

			log.Info("server shutting down")

			ctx, cancel := config.WithTimeout(10 * time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("graceful shutdown failed", "err", err)
			}

			if err := a.Close(ctx); err != nil {
				log.Error("closing resources failed", "err", err)
				return err
			}

			log.Info("shutdown complete")
			return nil
		},
	}
}
