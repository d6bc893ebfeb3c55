// internal/database/schema.go
//
// Idempotent DDL for resource and admin tables.
//
// Context
// -------
// Every resource schema maps to one table: `id` as primary key, the
// reserved ordering columns for ordered resources, one column per declared
// field, and both timestamps.  Singleton tables carry a unique
// `singleton_key` column, which is what lets Upsert keep exactly one row.
// Lists are stored as JSON text.
//
// Notes
// -----
//   - Statements use CREATE TABLE IF NOT EXISTS; existing tables are never
//     altered.
//   - Oxford commas, two spaces after periods.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/store"
)

// dialect holds per-driver column types.
type dialect struct {
	key, str, text, num, boolean, ts string
}

var dialects = map[string]dialect{
	MySQL:    {key: "VARCHAR(64)", str: "VARCHAR(255)", text: "TEXT", num: "DOUBLE", boolean: "BOOLEAN", ts: "DATETIME(6)"},
	Postgres: {key: "TEXT", str: "TEXT", text: "TEXT", num: "DOUBLE PRECISION", boolean: "BOOLEAN", ts: "TIMESTAMPTZ"},
	SQLite:   {key: "TEXT", str: "TEXT", text: "TEXT", num: "REAL", boolean: "BOOLEAN", ts: "DATETIME"},
}

// EnsureTables creates every missing resource table plus admin_users and
// admin_sessions.
func EnsureTables(ctx context.Context, db *sqlx.DB, schemas []*record.Schema) error {
	stmts, err := DDL(db.DriverName(), schemas)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("database: ensure tables: %w", err)
		}
	}
	return nil
}

// DDL renders the CREATE statements for driver.
func DDL(driver string, schemas []*record.Schema) ([]string, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}
	out := make([]string, 0, len(schemas)+2)
	for _, s := range schemas {
		out = append(out, resourceTable(d, s))
	}
	return append(out, adminTables(d)...), nil
}

func resourceTable(d dialect, s *record.Schema) string {
	cols := []string{record.KeyID + " " + d.key + " PRIMARY KEY"}
	switch s.Kind {
	case record.KindOrdered:
		cols = append(cols,
			record.KeyDisplayOrder+" INTEGER NOT NULL DEFAULT 0",
			record.KeyIsActive+" "+d.boolean+" NOT NULL DEFAULT TRUE")
	case record.KindSingleton:
		cols = append(cols, store.SingletonKeyColumn+" "+d.key+" NOT NULL UNIQUE")
	}
	for _, f := range s.Fields {
		cols = append(cols, f.Key+" "+d.column(f))
	}
	cols = append(cols,
		record.KeyCreatedAt+" "+d.ts,
		record.KeyUpdatedAt+" "+d.ts)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.Resource, strings.Join(cols, ",\n\t"))
}

func (d dialect) column(f record.Field) string {
	switch f.Type {
	case record.TypeText, record.TypeList:
		return d.text
	case record.TypeNumber:
		return d.num
	case record.TypeBool:
		return d.boolean
	}
	if f.MaxLength > 255 {
		return d.text
	}
	return d.str
}

func adminTables(d dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admin_users (
	id %[1]s PRIMARY KEY,
	email %[2]s NOT NULL UNIQUE,
	password_hash %[2]s NOT NULL,
	created_at %[3]s NOT NULL
)`, d.key, d.str, d.ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admin_sessions (
	id %[1]s PRIMARY KEY,
	user_id %[1]s NOT NULL,
	browser %[2]s,
	os %[2]s,
	device %[2]s,
	ip %[2]s,
	created_at %[3]s NOT NULL,
	expires_at %[3]s NOT NULL,
	revoked %[4]s NOT NULL DEFAULT FALSE
)`, d.key, d.str, d.ts, d.boolean),
	}
}
