package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/db"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|list")
	flag.StringVar(&opts.dir, "dir", "embedded", "migrations directory; \"embedded\" uses the set compiled into the binary")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if opts.dir == "embedded" {
		opts.dir = migrate.EmbeddedDir
	}

	logg := logger.New(logger.Options{ServiceName: "kds-migrate"})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "dir": opts.dir})

	if err := run(ctx, logg, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case "create":
		if opts.dir == migrate.EmbeddedDir {
			opts.dir = migrate.DefaultDir
		}
		if opts.name == "" {
			return fmt.Errorf("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil

	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil

	case "list":
		files, err := listFiles(opts.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%d\t%s\n", f.Version, f.Name)
		}
		return nil

	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.DB.Enabled() {
		return fmt.Errorf("%s is required for -cmd=%s", config.EnvDBDSN, opts.cmd)
	}
	logg = logger.New(logger.Options{
		ServiceName: "kds-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	dialect := migrate.Dialect(cfg.DB.Driver)

	var moved []migrate.Result
	switch opts.cmd {
	case "status":
		statuses, err := migrate.ListStatus(ctx, sqlDB, dialect, opts.dir)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "pending"
			if st.Applied {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%d\t%s\t%s\n", st.Version, applied, st.Name)
		}
		return nil
	case "version":
		if opts.version == "" {
			return fmt.Errorf("-version is required for -cmd=version")
		}
		moved, err = migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	default:
		moved, err = migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.cmd)
	}
	for _, r := range moved {
		fmt.Printf("%s\t%d\t%s\t%s\n", r.Direction, r.Version, r.Name, r.Took)
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "migrations", len(moved)), "migrate complete")
	return nil
}

func listFiles(dir string) ([]migrate.File, error) {
	if dir == migrate.EmbeddedDir {
		return migrate.ListEmbedded()
	}
	return migrate.ListFS(os.DirFS(dir), ".")
}
