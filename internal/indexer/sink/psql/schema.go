package psql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adlio/schema"
)

// MigrationsTable records the applied schema migrations.
const MigrationsTable = "projectsink_migrations"

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrations returns the schema migrations in the order they apply.
func Migrations() ([]*schema.Migration, error) {
	entries, err := fs.ReadDir(schemaFS, "schema")
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*schema.Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		contents, err := fs.ReadFile(schemaFS, path.Join("schema", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", e.Name(), err)
		}
		out = append(out, &schema.Migration{
			ID:     strings.TrimSuffix(e.Name(), ".sql"),
			Script: string(contents),
		})
	}
	return out, nil
}

// InitSchema ensures the project relations, the status enumeration, their
// indices and the summary view exist. Every statement is guarded, so it is
// safe to call on every start.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	m := schema.NewMigrator(
		schema.WithDialect(schema.Postgres),
		schema.WithTableName(MigrationsTable),
	)
	if err := m.Apply(db, migrations); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
