package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/refinery/internal/api"
	"github.com/ehr/refinery/internal/config"
	"github.com/ehr/refinery/internal/domain/allergy"
	"github.com/ehr/refinery/internal/domain/patient"
	"github.com/ehr/refinery/internal/domain/staging"
	"github.com/ehr/refinery/internal/pipeline"
	"github.com/ehr/refinery/internal/platform/awsclient"
	"github.com/ehr/refinery/internal/platform/db"
	"github.com/ehr/refinery/internal/platform/notify"
	"github.com/ehr/refinery/internal/platform/runlock"
	"github.com/ehr/refinery/internal/platform/source"
	"github.com/ehr/refinery/migrations"
)

const (
	appName     = "refinery"
	runLockName = "refinery:run"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Refine staged FHIR resources into relational tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// env bundles what every command needs once settings are loaded.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Env, os.Stdout)

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: appName,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, pool: pool}, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Refine every unacknowledged staging row, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			svc, closeFn, err := newService(ctx, e)
			if err != nil {
				return err
			}
			defer closeFn()

			sum, runErr := svc.Run(ctx)
			if sum != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(sum); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func newService(ctx context.Context, e *env) (*pipeline.Service, func(), error) {
	stages := []pipeline.Stage{
		pipeline.PatientStage(patient.NewRefiner(e.logger)),
		pipeline.AllergyStage(allergy.NewRefiner(e.logger)),
	}
	runner := pipeline.NewPGRunner(e.pool, e.cfg.StagingSchema, e.cfg.RefinedSchema)
	coord := pipeline.NewCoordinator(runner, stages, e.cfg.BatchSize, e.logger)

	lock, err := newLocker(e)
	if err != nil {
		return nil, nil, err
	}
	notifier, closeFn, err := newNotifier(ctx, e.cfg)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewService(coord, lock, notifier, e.logger), closeFn, nil
}

func newLocker(e *env) (runlock.Locker, error) {
	switch e.cfg.LockBackend {
	case "redis":
		client, err := runlock.NewRedisClient(e.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return runlock.NewRedis(client, runLockName, e.cfg.LockTTL), nil
	case "postgres":
		return runlock.NewPostgres(e.pool, runLockName), nil
	}
	return runlock.Noop{}, nil
}

// newNotifier builds a sink per configured destination. The returned func
// closes whatever needs closing.
func newNotifier(ctx context.Context, cfg *config.Config) (notify.Notifier, func(), error) {
	var (
		sinks   notify.Multi
		closers []func() error
	)
	if cfg.SQSQueueURL != "" {
		awsCfg, err := awsclient.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, notify.NewSQS(awsclient.NewSQS(awsCfg), cfg.SQSQueueURL))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
	}
	closeFn := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	return sinks, closeFn, nil
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path | s3://bucket/key>",
		Short: "Append NDJSON resources to a staging table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kindName, _ := cmd.Flags().GetString("kind")
			kind, err := staging.ParseKind(kindName)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			var objects source.ObjectGetter
			if source.IsS3(args[0]) {
				awsCfg, err := awsclient.Load(ctx)
				if err != nil {
					return err
				}
				objects = awsclient.NewS3(awsCfg)
			}
			r, err := source.Open(ctx, args[0], objects)
			if err != nil {
				return err
			}
			defer r.Close()

			var res staging.LoadResult
			err = db.InTx(ctx, e.pool, func(tx pgx.Tx) error {
				loader := staging.NewLoader(staging.NewStorePG(tx, e.cfg.StagingSchema, kind), e.cfg.BatchSize, e.logger)
				var err error
				res, err = loader.Load(ctx, r)
				return err
			})
			if err != nil {
				return fmt.Errorf("ingest %s: %w", args[0], err)
			}

			e.logger.Info().
				Str("kind", string(kind)).
				Str("source", args[0]).
				Int("lines", res.Lines).
				Int("loaded", res.Loaded).
				Int("skipped", res.Skipped).
				Msg("ingest complete")
			return nil
		},
	}
	cmd.Flags().String("kind", "", "Resource kind: patient or allergy")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// schemaTargets pairs each configured schema with its embedded migrations.
func schemaTargets(cfg *config.Config, only string) ([][2]string, error) {
	all := [][2]string{
		{cfg.StagingSchema, migrations.StagingDir},
		{cfg.RefinedSchema, migrations.RefinedDir},
	}
	switch only {
	case "", "all":
		return all, nil
	case "staging":
		return all[:1], nil
	case "refined":
		return all[1:], nil
	}
	return nil, fmt.Errorf("unknown migration target %q (want staging, refined or all)", only)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")

			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			targets, err := schemaTargets(e.cfg, target)
			if err != nil {
				return err
			}
			for _, t := range targets {
				schema, dir := t[0], t[1]
				count, err := db.NewMigrator(e.pool, migrations.FS, dir).Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", schema, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to schema %s.\n", count, schema)
			}
			return nil
		},
	}
	upCmd.Flags().String("target", "all", "Schema to migrate: staging, refined or all")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")

			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			targets, err := schemaTargets(e.cfg, target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range targets {
				schema, dir := t[0], t[1]
				statuses, err := db.NewMigrator(e.pool, migrations.FS, dir).Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration status for %s: %w", schema, err)
				}
				printStatus(out, schema, statuses)
			}
			return nil
		},
	}
	statusCmd.Flags().String("target", "all", "Schema to report on: staging, refined or all")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(out io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the operations API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Close()
	logger := e.logger
	logger.Info().Msg("connected to database")

	svc, closeFn, err := newService(ctx, e)
	if err != nil {
		return err
	}
	defer closeFn()

	srv := api.NewServer(api.Options{
		Logger:      logger,
		DB:          e.pool,
		Runs:        svc,
		AdminSecret: []byte(e.cfg.AdminJWTSecret),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + e.cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
