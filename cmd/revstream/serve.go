package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reoring/revstream/internal/server"
	"github.com/reoring/revstream/internal/service"
	"github.com/reoring/revstream/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation and storage API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		svc := service.New(st, service.Options{
			ParseOpt:        cfg.Validation.ParseOpt(cfg.Server.MaxBodyBytes),
			CheckStreamRefs: cfg.Validation.CheckStreamRefs,
		})
		api := server.New(svc, server.Options{
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			RateLimit:    cfg.Server.RateLimit,
			RateBurst:    cfg.Server.RateBurst,
			CORSOrigins:  cfg.Server.CORSOrigins,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
