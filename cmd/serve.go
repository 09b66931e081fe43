package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		// A Redis board survives restarts; the in-process one is rebuilt
		// from the attempt log.
		if !a.Cfg.Redis.Enabled() {
			if err := a.Tutor.WarmLeaderboard(ctx); err != nil {
				return err
			}
		}

		addr := a.Cfg.HTTP.Addr
		if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
			addr = flag
		}
		if a.Cfg.Env == "prod" || a.Cfg.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := &http.Server{
			Addr:        addr,
			Handler:     a.Router(),
			ReadTimeout: a.Cfg.HTTP.ReadTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.Log.Info("http server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.HTTP.ShutdownTimeout)
			defer cancel()
			a.Log.Info("http server shutting down")
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}
