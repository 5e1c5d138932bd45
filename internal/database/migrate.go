package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

// Migration is one versioned pair of embedded SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

// ID is the file stem, e.g. 000002_default_categories.
func (m Migration) ID() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var embedded = mustLoad(migrationFS, "migrations")

func mustLoad(fsys fs.FS, dir string) []Migration {
	set, err := LoadMigrations(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations are invalid: %v", err))
	}
	return set
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir, ordered
// by version. Every up script needs a down script.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	ups, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}

	set := make([]Migration, 0, len(ups))
	byVersion := make(map[int]string, len(ups))
	for _, upPath := range ups {
		file := path.Base(upPath)
		stem := strings.TrimSuffix(file, ".up.sql")
		num, label, ok := strings.Cut(stem, "_")
		if !ok || label == "" {
			return nil, fmt.Errorf("migration %s: expected NNNNNN_name.up.sql", file)
		}
		version, err := strconv.Atoi(num)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: invalid version %q", file, num)
		}
		if other, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, other, file)
		}
		byVersion[version] = file

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, fmt.Errorf("read up migration %s: %w", file, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, stem+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("read down migration for %s: %w", file, err)
		}
		set = append(set, Migration{Version: version, Name: label, UpScript: string(up), DownScript: string(down)})
	}

	slices.SortFunc(set, func(a, b Migration) int { return a.Version - b.Version })
	return set, nil
}

// Migrations returns a copy of the embedded migration set.
func Migrations() []Migration {
	return slices.Clone(embedded)
}

func findMigration(set []Migration, version int) (Migration, bool) {
	i := slices.IndexFunc(set, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return Migration{}, false
	}
	return set[i], true
}

// LatestVersion is the highest embedded migration version, or 0.
func LatestVersion() int {
	if len(embedded) == 0 {
		return 0
	}
	return embedded[len(embedded)-1].Version
}
