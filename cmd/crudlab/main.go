package main

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
	"go.uber.org/zap"

	"github.com/davicafu/crudlab/internal/config"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/migrations"
	"github.com/davicafu/crudlab/internal/task/infra/outbound/filesystem"
	"github.com/davicafu/crudlab/pkg/logger"
)

// ---------------- Main ----------------

var rootCmd = &cobra.Command{
	Use:           "crudlab",
	Short:         "Generic CRUD service with dynamic filters",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd(), migrateCmd(), syncAnalyticsCmd(), exportTasksCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap carga la configuración e inicializa zap.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withApp monta la aplicación, ejecuta fn y la cierra.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() // flush buffers al salir

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// ---------------- serve ----------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox relayer and the event consumers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	a.startEvents(ctx)
	a.startReplicaSync(ctx)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + a.cfg.HTTPPort,
		Handler: a.router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("🚀 Server running", zap.String("url", "http://localhost:"+a.cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ---------------- migrate ----------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back the SQL schema (sqlite and postgres drivers)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return runMigrate(cmd.Context(), action)
		},
	}
	return cmd
}

func runMigrate(ctx context.Context, action string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.StoreDriver != config.DriverSQLite && cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("driver %q has no SQL migrations", cfg.StoreDriver)
	}
	db, _, err := openSQL(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		err = migrations.Up(db, cfg.StoreDriver)
	case "down":
		err = migrations.Down(db, cfg.StoreDriver)
	}
	if err != nil {
		return err
	}

	version, dirty, err := migrations.Version(db, cfg.StoreDriver)
	if err != nil {
		return err
	}
	log.Info("Schema version", zap.String("driver", cfg.StoreDriver), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// ---------------- sync-analytics ----------------

func syncAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-analytics",
		Short: "Copy users and tasks into the ClickHouse read replica",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return a.syncReplicas(ctx)
			})
		},
	}
}

// ---------------- export-tasks ----------------

func exportTasksCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-tasks",
		Short: "Dump every task to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := exportTasks(ctx, a, filesystem.NewJSONTaskStorage(out))
				if err != nil {
					return err
				}
				a.log.Info("Tasks exported", zap.String("file", out), zap.Int("count", n))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "tasks.json", "destination file")
	return cmd
}

func exportTasks(ctx context.Context, a *app, dst *filesystem.JSONTaskStorage) (int, error) {
	tasks, err := a.store.tasks.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := dst.SaveAll(ctx, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
