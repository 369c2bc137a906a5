package cmd

import (
	"bitwise74/account-api/app"
	"bitwise74/account-api/db"
	"bitwise74/account-api/internal"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the expired token sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), e)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	bindFlags(e.v, cmd.Flags(), map[string]string{"host.port": "port"})

	return cmd
}

// openStore connects to the configured database and makes sure the schema is
// current.
func openStore(ctx context.Context, e *env) (*gorm.DB, error) {
	conn, err := db.New(ctx, e.cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, conn); err != nil {
		_ = db.Close(conn)
		return nil, err
	}

	return conn, nil
}

func serve(ctx context.Context, e *env) error {
	cfg := e.cfg

	if cfg.App.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	d, err := internal.NewDeps(cfg, internal.DepsOptions{Repo: store.NewGormRepository(conn)})
	if err != nil {
		return err
	}

	if cfg.Mail.Driver == "log" {
		zap.L().Warn("Mail driver is set to log, verification emails will only be logged")
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Host.Port),
		Handler:           app.NewRouter(gctx, d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed, %w", err)
		}

		return nil
	})

	g.Go(func() error {
		service.TokenCleanup(gctx, cfg.Cleanup.Interval, d)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		zap.L().Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
