package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRunEmbeddedMigrationsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ctx := context.Background()
	dialect := Dialect(config.DBDriverSQLite)
	applied, err := Run(ctx, sqlDB, dialect, "", "up")
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "20260301120000_create_ticket_journal.sql", applied[0].Name)
	assert.True(t, conn.Migrator().HasTable("ticket_journal"))

	statuses, err := ListStatus(ctx, sqlDB, dialect, EmbeddedDir)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)

	again, err := Run(ctx, sqlDB, dialect, EmbeddedDir, "up")
	require.NoError(t, err)
	assert.Empty(t, again)

	rolled, err := Run(ctx, sqlDB, dialect, EmbeddedDir, "down")
	require.NoError(t, err)
	require.Len(t, rolled, 1)
	assert.Equal(t, int64(20260301120000), rolled[0].Version)
	assert.False(t, conn.Migrator().HasTable("ticket_journal"))
}

func TestRunRequiresDB(t *testing.T) {
	_, err := Run(context.Background(), nil, "postgres", "", "up")
	assert.Error(t, err)
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_unknown?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = Run(context.Background(), sqlDB, Dialect(config.DBDriverSQLite), "", "redo")
	assert.Error(t, err)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect(config.DBDriverSQLite))
	assert.Equal(t, "postgres", Dialect(config.DBDriverPostgres))
	assert.Equal(t, "postgres", Dialect(""))
}

func TestValidateDir(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Station Column!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_station_column.sql"))
	require.NoError(t, ValidateDir(dir))

	again, err := CreateSQLMigration(dir, "add station column")
	require.NoError(t, err)
	assert.NotEqual(t, path, again)
	files, err := ListFS(os.DirFS(dir), ".")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Less(t, files[0].Version, files[1].Version)

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestListEmbedded(t *testing.T) {
	files, err := ListEmbedded()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "create_ticket_journal", files[0].Name)
	require.NoError(t, ValidateDir(""))
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), body, 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_unbalanced.sql"), []byte(body), 0o644))
	assert.Error(t, ValidateDir(dir))
}
