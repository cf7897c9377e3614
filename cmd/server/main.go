package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/invoicebook/auth"
	"github.com/diewo77/invoicebook/internal/config"
	"github.com/diewo77/invoicebook/internal/db"
	"github.com/diewo77/invoicebook/internal/logger"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/internal/services"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// env is what every command needs once configuration is loaded.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "invoicebook",
		Short:         "Invoicing API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load environment variables from .env file
			_ = godotenv.Load()
			e.cfg = config.Load()
			log, err := logger.New(e.cfg.Log.Level, e.cfg.Log.Format)
			if err != nil {
				return err
			}
			e.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), e)
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), e)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(cmd.Context(), e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			mode := e.cfg.App.Migrations
			if mode == config.MigrationsOff {
				mode = config.MigrationsSQL
			}
			return db.Migrate(cmd.Context(), conn, mode, e.log)
		},
	}

	var user string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute stored company revenue from paid invoices",
		Example: `  # Repair every company
  invoicebook reconcile

  # Repair the companies of one user
  invoicebook reconcile --user 4f1c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(cmd.Context(), e.cfg.Database, e.log)
			if err != nil {
				return err
			}
			return runReconcile(cmd.Context(), conn, e.log, user, cmd.OutOrStdout())
		},
	}
	reconcile.Flags().StringVar(&user, "user", "", "Only reconcile the companies of this user id")

	root.AddCommand(serve, migrateCmd, reconcile)
	return root
}

func runReconcile(ctx context.Context, conn *gorm.DB, log *zap.Logger, user string, out io.Writer) error {
	drifts, err := services.NewLedger(conn, log, nil).Reconcile(ctx, user)
	if err != nil {
		return err
	}
	for _, d := range drifts {
		fmt.Fprintf(out, "%s\t%s\tstored=%s\tactual=%s\n", d.CompanyID, d.CompanyName, d.Stored.StringFixed(2), d.Actual.StringFixed(2))
	}
	fmt.Fprintf(out, "%d companies repaired\n", len(drifts))
	return nil
}

// userVerifier checks that a session's user still exists. A lookup failure
// keeps the session; the request then fails on its own database access.
func userVerifier(conn *gorm.DB, log *zap.Logger) auth.UserVerifier {
	return func(ctx context.Context, uid string) bool {
		var count int64
		err := conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count).Error
		if err != nil {
			logger.WithContext(ctx, log).Error("verify session user", zap.String("user_id", uid), zap.Error(err))
			return true
		}
		return count > 0
	}
}

func runServe(ctx context.Context, e *env) error {
	cfg, log := e.cfg, e.log

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, conn, cfg.App.Migrations, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if cfg.App.SessionSecret != "" {
		auth.SetSecret(cfg.App.SessionSecret)
	} else if !cfg.App.Dev {
		return errors.New("SESSION_SECRET is required outside dev mode")
	}
	auth.SetUserVerifier(userVerifier(conn, log))

	reg := newRegistry()
	app := NewApp(conn, cfg, log, reg)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.Bool("dev", cfg.App.Dev))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
