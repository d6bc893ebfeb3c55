// internal/store/sql.go
//
// sqlx-backed Store.
//
// Context
// -------
// One SQLStore wraps the process-wide *sqlx.DB opened by internal/database.
// The SQL dialect follows db.DriverName():
//
//   - mysql     (go-sql-driver/mysql; also MariaDB)
//   - postgres  (lib/pq)
//   - sqlite3   (mattn/go-sqlite3; tests, single-box installs)
//
// Queries are written with `?` placeholders and passed through db.Rebind so
// PostgreSQL receives `$1`, `$2`, and so on.
//
// Workflow
// --------
//   - Insert assigns a snowflake id (internal/ident) before writing.
//   - Lists ([]string) are stored as JSON text; record.Schema.Decode turns
//     them back into slices.
//   - Reorder issues a single `UPDATE … SET display_order = CASE id …`
//     statement in a transaction and commits only when every id matched.
//   - Upsert uses `ON DUPLICATE KEY UPDATE` (MySQL) or `ON CONFLICT … DO
//     UPDATE` (PostgreSQL, SQLite) against the unique singleton_key column.
//
// Notes
// -----
//   - MySQL DSNs are opened with clientFoundRows=true so Update reports
//     matched rows rather than changed rows.
//   - Oxford commas, two spaces after periods.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/storefront/internal/ident"
	"github.com/yanizio/storefront/internal/record"
)

// SQLStore implements Store on a relational database.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db.  The caller owns db and closes it.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) mysql() bool { return s.db.DriverName() == "mysql" }

func (s *SQLStore) quote(name string) string {
	if s.mysql() {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func (s *SQLStore) Select(ctx context.Context, table string, q Query) ([]record.Record, error) {
	if err := checkNames(table, append(append(filterCols(q.Filter), orderCols(q.Order)...), q.Columns...)...); err != nil {
		return nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = s.quote(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, s.quote(table))
	where, args := s.where(q.Filter)
	b.WriteString(where)
	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = s.quote(o.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, record.Record(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}

func (s *SQLStore) SelectOne(ctx context.Context, table string, q Query) (record.Record, error) {
	rows, err := s.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rows[0], nil
	}
	return nil, ErrMultipleRows
}

func (s *SQLStore) Insert(ctx context.Context, table string, rows ...record.Record) ([]record.Record, error) {
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		row := r.Clone()
		row[record.KeyID] = ident.NewRecordID()
		cols := sortedKeys(row)
		if err := checkNames(table, cols...); err != nil {
			return nil, err
		}

		args := make([]any, len(cols))
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = s.quote(c)
			v, err := encode(row[c])
			if err != nil {
				return nil, fmt.Errorf("insert %s: %w", table, err)
			}
			args[i] = v
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			s.quote(table), strings.Join(quoted, ", "), placeholders(len(cols)))
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
			return nil, fmt.Errorf("insert %s: %w", table, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *SQLStore) Update(ctx context.Context, table string, fields record.Record, f Filter) (int64, error) {
	cols := sortedKeys(fields)
	cols = without(cols, record.KeyID)
	if len(cols) == 0 {
		return 0, fmt.Errorf("update %s: no fields", table)
	}
	if err := checkNames(table, append(cols, filterCols(f)...)...); err != nil {
		return 0, err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(f))
	for i, c := range cols {
		sets[i] = s.quote(c) + " = ?"
		v, err := encode(fields[c])
		if err != nil {
			return 0, fmt.Errorf("update %s: %w", table, err)
		}
		args = append(args, v)
	}
	where, wargs := s.where(f)
	q := fmt.Sprintf("UPDATE %s SET %s%s", s.quote(table), strings.Join(sets, ", "), where)

	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), append(args, wargs...)...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Delete(ctx context.Context, table string, f Filter) (int64, error) {
	if err := checkNames(table, filterCols(f)...); err != nil {
		return 0, err
	}
	where, args := s.where(f)
	q := fmt.Sprintf("DELETE FROM %s%s", s.quote(table), where)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", table, err)
	}
	return res.RowsAffected()
}

// Reorder writes every position in one statement inside a transaction.
// When fewer rows match than were assigned (an id was deleted since the
// caller loaded its list) the transaction is rolled back and ErrNotFound
// is returned, so no row moves.
func (s *SQLStore) Reorder(ctx context.Context, table string, as []Assignment) (err error) {
	if len(as) == 0 {
		return nil
	}
	if err := checkNames(table); err != nil {
		return err
	}

	var b strings.Builder
	args := make([]any, 0, len(as)*3)
	fmt.Fprintf(&b, "UPDATE %s SET %s = CASE %s",
		s.quote(table), s.quote(record.KeyDisplayOrder), s.quote(record.KeyID))
	for _, a := range as {
		b.WriteString(" WHEN ? THEN CAST(? AS INTEGER)")
		args = append(args, a.ID, a.Position)
	}
	fmt.Fprintf(&b, " END WHERE %s IN (%s)", s.quote(record.KeyID), placeholders(len(as)))
	for _, a := range as {
		args = append(args, a.ID)
	}

	q := b.String()
	if s.mysql() {
		// MySQL spells the integer cast SIGNED.
		q = strings.ReplaceAll(q, "AS INTEGER", "AS SIGNED")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reorder %s: begin: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("reorder %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reorder %s: %w", table, err)
	}
	if n != int64(len(as)) {
		return fmt.Errorf("reorder %s: %d of %d rows matched: %w", table, n, len(as), ErrNotFound)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("reorder %s: commit: %w", table, err)
	}
	return nil
}

func (s *SQLStore) Upsert(ctx context.Context, table, key string, fields record.Record) (record.Record, error) {
	row := fields.Clone()
	row[record.KeyID] = ident.NewRecordID()
	row[SingletonKeyColumn] = key
	cols := sortedKeys(row)
	if err := checkNames(table, cols...); err != nil {
		return nil, err
	}

	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	var updates []string
	for i, c := range cols {
		quoted[i] = s.quote(c)
		v, err := encode(row[c])
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", table, err)
		}
		args[i] = v
		switch c {
		case record.KeyID, record.KeyCreatedAt, SingletonKeyColumn:
			continue
		}
		if s.mysql() {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", quoted[i], quoted[i]))
		} else {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", quoted[i], quoted[i]))
		}
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.quote(table), strings.Join(quoted, ", "), placeholders(len(cols)))
	switch {
	case len(updates) == 0 && s.mysql():
		q = strings.Replace(q, "INSERT", "INSERT IGNORE", 1)
	case len(updates) == 0:
		q += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", s.quote(SingletonKeyColumn))
	case s.mysql():
		q += " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	default:
		q += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			s.quote(SingletonKeyColumn), strings.Join(updates, ", "))
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("upsert %s: %w", table, err)
	}

	return s.SelectOne(ctx, table, Query{Filter: Filter{SingletonKeyColumn: key}})
}

func (s *SQLStore) where(f Filter) (string, []any) {
	if len(f) == 0 {
		return "", nil
	}
	cols := filterCols(f)
	sort.Strings(cols)
	terms := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		terms[i] = s.quote(c) + " = ?"
		args[i] = f[c]
	}
	return " WHERE " + strings.Join(terms, " AND "), args
}

// encode converts record kinds into driver values.
func encode(v any) (any, error) {
	if l, ok := v.([]string); ok {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys(r record.Record) []string {
	out := keys(r)
	sort.Strings(out)
	return out
}

func without(cols []string, drop string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
