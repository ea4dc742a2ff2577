package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir names the migration set compiled into the binary. Passing it (or "") as dir
// makes commands independent of the working directory.
const EmbeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Result describes one migration applied or rolled back by a command.
type Result struct {
	Version   int64
	Name      string
	Direction string
	Took      time.Duration
}

// Status reports whether a known migration has been applied.
type Status struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Dialect maps a configured database driver to its goose dialect.
func Dialect(driver string) string {
	if driver == config.DBDriverSQLite {
		return string(goose.DialectSQLite3)
	}
	return string(goose.DialectPostgres)
}

// Run executes "up" or "down" (one step) against db.
func Run(ctx context.Context, db *sql.DB, dialect, dir, command string) ([]Result, error) {
	provider, err := newProvider(db, dialect, dir)
	if err != nil {
		return nil, err
	}
	switch command {
	case "up":
		applied, err := provider.Up(ctx)
		return results(applied), wrapCommand(command, err)
	case "down":
		rolled, err := provider.Down(ctx)
		if rolled == nil {
			return nil, wrapCommand(command, err)
		}
		return results([]*goose.MigrationResult{rolled}), wrapCommand(command, err)
	default:
		return nil, fmt.Errorf("unsupported migrate command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until targetVersion is the newest applied migration.
func MigrateToVersion(ctx context.Context, db *sql.DB, dialect, dir, targetVersion string) ([]Result, error) {
	if targetVersion == "" {
		return nil, fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	provider, err := newProvider(db, dialect, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var moved []*goose.MigrationResult
	switch {
	case current < target:
		moved, err = provider.UpTo(ctx, target)
	case current > target:
		moved, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return results(moved), fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return results(moved), nil
}

// ListStatus reports every known migration and whether db has it applied.
func ListStatus(ctx context.Context, db *sql.DB, dialect, dir string) ([]Status, error) {
	provider, err := newProvider(db, dialect, dir)
	if err != nil {
		return nil, err
	}
	states, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(states))
	for _, st := range states {
		out = append(out, Status{
			Version:   st.Source.Version,
			Name:      filepath.Base(st.Source.Path),
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

func newProvider(db *sql.DB, dialect, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dialect == "" {
		dialect = string(goose.DialectPostgres)
	}
	fsys, err := migrationFS(dir)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

func migrationFS(dir string) (fs.FS, error) {
	if dir == "" || dir == EmbeddedDir {
		sub, err := fs.Sub(embedded, EmbeddedDir)
		if err != nil {
			return nil, fmt.Errorf("embedded migrations: %w", err)
		}
		return sub, nil
	}
	return os.DirFS(dir), nil
}

func results(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:   r.Source.Version,
			Name:      filepath.Base(r.Source.Path),
			Direction: r.Direction,
			Took:      r.Duration,
		})
	}
	return out
}

func wrapCommand(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
