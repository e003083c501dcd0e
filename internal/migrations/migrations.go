package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed sql/*.sql
var embedded embed.FS

type migration struct {
	Name string
	Path string
}

// Apply runs the embedded migrations that are not yet recorded.
func Apply(db *sqlx.DB) error {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return err
	}
	return ApplyFS(db, sub)
}

// ApplyFS runs every V<n>__name.sql file of fsys in version order, skipping
// files already recorded in schema_migrations.
func ApplyFS(db *sqlx.DB, fsys fs.FS) error {
	if err := ensureTable(db); err != nil {
		return err
	}
	migs, err := listMigrations(fsys)
	if err != nil {
		return err
	}
	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}
	for _, mig := range migs {
		if applied[mig.Name] {
			continue
		}
		if err := applyMigration(db, fsys, mig); err != nil {
			return err
		}
	}
	return nil
}

func ensureTable(db *sqlx.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  id SERIAL PRIMARY KEY,
  version TEXT NULL,
  name TEXT NOT NULL UNIQUE,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

func listMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	migs := make([]migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		migs = append(migs, migration{
			Name: name,
			Path: path.Join(".", name),
		})
	}
	sort.Slice(migs, func(i, j int) bool {
		iVersion, iOk := parseVersionNumber(migs[i].Name)
		jVersion, jOk := parseVersionNumber(migs[j].Name)
		switch {
		case iOk && jOk && iVersion != jVersion:
			return iVersion < jVersion
		case iOk != jOk:
			return iOk
		default:
			return migs[i].Name < migs[j].Name
		}
	})
	return migs, nil
}

func appliedMigrations(db *sqlx.DB) (map[string]bool, error) {
	rows := []string{}
	if err := db.Select(&rows, `SELECT name FROM schema_migrations`); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(rows))
	for _, name := range rows {
		names[name] = true
	}
	return names, nil
}

func applyMigration(db *sqlx.DB, fsys fs.FS, mig migration) error {
	content, err := fs.ReadFile(fsys, mig.Path)
	if err != nil {
		return err
	}
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(string(content)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply %s: %w", mig.Name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, nullIfEmpty(parseVersion(mig.Name)), mig.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record %s: %w", mig.Name, err)
	}
	return tx.Commit()
}

func parseVersion(name string) string {
	if !strings.HasPrefix(name, "V") {
		return ""
	}
	parts := strings.SplitN(name[1:], "__", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func parseVersionNumber(name string) (int, bool) {
	raw := parseVersion(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func nullIfEmpty(value string) interface{} {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
