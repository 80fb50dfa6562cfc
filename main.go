package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kevinpineda22/backend-inventario-sub000/config"
	"github.com/kevinpineda22/backend-inventario-sub000/controllers/idgen"
	"github.com/kevinpineda22/backend-inventario-sub000/logger"
	"github.com/kevinpineda22/backend-inventario-sub000/middleware"
	"github.com/kevinpineda22/backend-inventario-sub000/migration"
	"github.com/kevinpineda22/backend-inventario-sub000/notifier"
	"github.com/kevinpineda22/backend-inventario-sub000/processor"
	"github.com/kevinpineda22/backend-inventario-sub000/routes"
	"github.com/kevinpineda22/backend-inventario-sub000/services"
	"github.com/kevinpineda22/backend-inventario-sub000/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, c := newRootCommand(stdout, stderr)
	defer c.close()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cli carries what every subcommand needs once PersistentPreRunE has run.
type cli struct {
	log      *zap.Logger
	db       *gorm.DB
	dbDriver string
	dbPath   string
}

func newRootCommand(stdout, stderr io.Writer) (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "inventario",
		Short:         "Counting and reconciliation engine for store inventories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&c.dbDriver, "db-driver", "", "database driver (mssql, postgres, mysql, sqlite); overrides DB_DRIVER")
	root.PersistentFlags().StringVar(&c.dbPath, "db-path", "", "sqlite database file; overrides DB_PATH")

	root.AddCommand(
		c.serveCommand(),
		c.migrateCommand(),
		c.syncCatalogCommand(),
		c.processFolderCommand(),
	)
	return root, c
}

func (c *cli) setup() error {
	config.LoadConfig()
	if c.dbDriver != "" {
		config.DBDriver = c.dbDriver
	}
	if c.dbPath != "" {
		config.DBPath = c.dbPath
	}

	c.log = logger.NewZapLogger(logger.Config{
		IsDevelopment: !config.IsProduction(),
		Encoding:      encoding(),
		Level:         config.LOG_LEVEL,
	})
	if err := idgen.Init(config.SnowflakeNode); err != nil {
		return fmt.Errorf("init snowflake node %d: %w", config.SnowflakeNode, err)
	}

	db, err := config.ConnectDB(c.log)
	if err != nil {
		return err
	}
	c.db = db
	return nil
}

func encoding() string {
	if config.IsProduction() {
		return "json"
	}
	return "console"
}

func (c *cli) close() {
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func (c *cli) engine() *routes.Engine {
	return routes.NewEngine(c.db, routes.Options{
		SimilarityThreshold: config.SimilarityThreshold,
		Thresholds: services.Thresholds{
			Absolute: config.NotableAbsThreshold,
			Relative: config.NotableRelThreshold,
		},
		SyncBatchSize: config.SyncBatchSize,
		Retry: services.RetryPolicy{
			Attempts: config.ConsecutiveRetries,
			Backoff:  time.Duration(config.ConsecutiveBackoffMs) * time.Millisecond,
		},
		Notifier: c.notifier(),
	}, c.log)
}

func (c *cli) notifier() services.Notifier {
	return notifier.NewMailNotifier(notifier.SMTPConfig{
		Host:     config.SMTPHost,
		Port:     config.SMTPPort,
		User:     config.SMTPUser,
		Password: config.SMTPPassword,
		Sender:   config.SMTPSender,
	}, config.AdminEmails, c.log.Named("mail"))
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migration.Migrate(c.db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			c.log.Info("schema migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "schema migrated")
			return nil
		},
	}
}

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migration.Migrate(c.db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}

			app := fiber.New(fiber.Config{
				AppName:               "inventario",
				BodyLimit:             32 << 20,
				DisableStartupMessage: config.IsProduction(),
			})
			app.Use(middleware.RequestLogger(c.log.Named("http")))
			config.SetupCORS(app)
			routes.Setup(app, c.engine().Controllers(), config.JWTSecret)

			go func() {
				<-cmd.Context().Done()
				c.log.Info("shutting down")
				_ = app.ShutdownWithTimeout(10 * time.Second)
			}()

			c.log.Info("listening", zap.String("port", config.APP_PORT), zap.String("routes", config.MAIN_ROUTES))
			return app.Listen(":" + config.APP_PORT)
		},
	}
}

func (c *cli) syncCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-catalog <file>",
		Short: "Apply a full catalog snapshot from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !snapshot.Supported(path) {
				return fmt.Errorf("%s: %w", path, snapshot.ErrUnsupportedFormat)
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := snapshot.ReadRows(f, path)
			if err != nil {
				return err
			}
			snap, err := snapshot.ParseCatalog(rows, filepath.Base(path))
			if err != nil {
				return err
			}

			result, err := c.engine().Catalog.Sync(cmd.Context(), snap)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "sync %s: items +%d -%d, barcodes +%d -%d, skipped %d\n",
					result.SyncID,
					result.ItemsUpserted, result.ItemsDeactivated,
					result.BarcodesUpserted, result.BarcodesDeactivated,
					result.Skipped)
			}
			return err
		},
	}
}

func (c *cli) processFolderCommand() *cobra.Command {
	var folders processor.Folders
	cmd := &cobra.Command{
		Use:   "process-folder",
		Short: "Sync every catalog snapshot waiting in the pending folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if folders.Pending == "" {
				folders.Pending = config.ProcessorPendingDir
			}
			if folders.Processed == "" {
				folders.Processed = config.ProcessorProcessedDir
			}
			if folders.Error == "" {
				folders.Error = config.ProcessorErrorDir
			}

			engine := c.engine()
			p := processor.New(folders, engine.Catalog, engine.SyncLogs, c.notifier(), c.log.Named("processor"))
			results, err := p.ProcessPending(cmd.Context())
			failed := 0
			for _, r := range results {
				status := "ok"
				if r.Err != nil {
					status = "failed: " + r.Err.Error()
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", r.File, r.MovedTo, status)
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&folders.Pending, "pending", "", "folder with snapshots to process; overrides PROCESSOR_PENDING_DIR")
	cmd.Flags().StringVar(&folders.Processed, "processed", "", "destination for synced files; overrides PROCESSOR_PROCESSED_DIR")
	cmd.Flags().StringVar(&folders.Error, "error", "", "destination for failed files; overrides PROCESSOR_ERROR_DIR")
	return cmd
}
