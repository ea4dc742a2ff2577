package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe          = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose migration found on disk or in the embedded set.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ListFS returns the migrations under dir in fsys ordered by version. Filenames must follow
// <YYYYMMDDHHMMSS>_<slug>.sql and versions must be unique.
func ListFS(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %q: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	byVersion := make(map[int64]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration %q: want %s_<slug>.sql", entry.Name(), versionLayout)
		}
		version, _ := strconv.ParseInt(match[1], 10, 64)
		if other, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migration version %d used by %q and %q", version, other, entry.Name())
		}
		byVersion[version] = entry.Name()
		files = append(files, File{Version: version, Name: match[2], Path: path.Join(dir, entry.Name())})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateFS checks every migration for goose Up/Down sections and balanced statement blocks.
func ValidateFS(fsys fs.FS, dir string) error {
	files, err := ListFS(fsys, dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := fs.ReadFile(fsys, f.Path)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", f.Path, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", f.Path, err)
		}
	}
	return nil
}

// ValidateDir validates a directory on disk. An empty dir or EmbeddedDir checks the
// migrations compiled into the binary.
func ValidateDir(dir string) error {
	if dir == "" || dir == EmbeddedDir {
		return ValidateFS(embedded, EmbeddedDir)
	}
	return ValidateFS(os.DirFS(dir), ".")
}

func checkAnnotations(body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("missing -- +goose Up")
	case down < 0:
		return fmt.Errorf("missing -- +goose Down")
	case down < up:
		return fmt.Errorf("-- +goose Down precedes -- +goose Up")
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	ends := strings.Count(body, "-- +goose StatementEnd")
	if begins != ends {
		return fmt.Errorf("%d StatementBegin vs %d StatementEnd", begins, ends)
	}
	return nil
}

// CreateSQLMigration writes an empty goose migration into dir and returns its path. The
// version is the current UTC time, bumped past the newest existing migration when needed.
func CreateSQLMigration(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := ListFS(os.DirFS(dir), ".")
	if err != nil {
		return "", err
	}
	version, _ := strconv.ParseInt(time.Now().UTC().Format(versionLayout), 10, 64)
	if n := len(existing); n > 0 && existing[n-1].Version >= version {
		version = existing[n-1].Version + 1
	}

	target := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- undo %[1]s\n-- +goose StatementEnd\n", slug)
	if err := os.WriteFile(target, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", target, err)
	}
	return target, nil
}

// ListEmbedded lists the migrations compiled into the binary.
func ListEmbedded() ([]File, error) {
	return ListFS(embedded, EmbeddedDir)
}
