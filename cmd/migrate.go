package main

import (
	"context"
	"database/sql"

	root "userapi"
	"userapi/internal/config"
	"userapi/pkg/logger"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCommand constructs the 'migrate' subcommand that applies database
// migrations to the latest version using goose, then brings River's tables up to date.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates database to the latest version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			db, ok := strg.DB.(*sql.DB)
			if !ok {
				logger.Fatal(ctx, "postgres storage is not backed by *sql.DB")
			}

			goose.SetBaseFS(root.Migrations)
			goose.SetLogger(gooseLogger{ctx: ctx})

			if err := goose.SetDialect("postgres"); err != nil {
				logger.Fatal(ctx, "could not set goose dialect to postgres", zap.Error(err))
			}
			if err := goose.UpContext(ctx, db, "migrations"); err != nil {
				logger.Fatal(ctx, "could not migrate pgsql", zap.Error(err))
			}

			// migrate riverqueue
			migrator, err := rivermigrate.New(riverdatabasesql.New(db), nil)
			if err != nil {
				logger.Fatal(ctx, "could not create river queue migrator", zap.Error(err))
			}
			res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
			if err != nil {
				logger.Fatal(ctx, "could not migrate river queue tables", zap.Error(err))
			}
			for _, v := range res.Versions {
				logger.Info(ctx, "applied river migration", zap.Int("version", v.Version))
			}
		},
	}

	return cmd
}

// gooseLogger sends goose output to zap.
type gooseLogger struct {
	ctx context.Context //nolint: containedctx
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Get(l.ctx).Sugar().Fatalf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	logger.Get(l.ctx).Sugar().Infof(format, v...)
}
