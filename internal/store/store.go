// Package store loads the visit and journey tables into an in-memory SQLite database
// and runs read-only queries against them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
	_ "modernc.org/sqlite"
)

// ErrNotReadOnly is returned for statements other than SELECT or WITH queries.
var ErrNotReadOnly = errors.New("only read-only SELECT queries are allowed")

// ColumnInfo describes one SQL column and the table column it came from.
type ColumnInfo struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// TableInfo describes one loaded table
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
	Rows    int          `json:"rows"`
}

// QueryResult holds the rows of one query, at most the requested limit.
type QueryResult struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
}

// Table wraps the result as a model.Table for the formatters
func (r *QueryResult) Table() model.Table {
	return model.Table{Name: "result", Columns: r.Columns, Rows: r.Rows}
}

// Store is an in-memory SQLite database holding the current tables.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	tables []TableInfo
}

// Open creates an empty in-memory database
func Open(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Load replaces the database contents with the given tables.
func (s *Store) Load(ctx context.Context, tables ...model.Table) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA query_only = OFF"); err != nil {
		return fmt.Errorf("failed to unlock database: %w", err)
	}
	defer func() {
		if _, err := s.db.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = ON"); err != nil {
			util.LogErrorf("Failed to lock database: %v", err)
		}
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	infos := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		info, err := loadTable(ctx, tx, t)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tables: %w", err)
	}

	s.tables = infos

	util.LogDebugf("Loaded %d tables into sqlite in %v", len(infos), time.Since(start))
	return nil
}

func loadTable(ctx context.Context, tx *sql.Tx, t model.Table) (TableInfo, error) {
	info := TableInfo{Name: t.Name, Rows: len(t.Rows)}
	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		c := ColumnInfo{Name: ColumnName(col), Source: col, Type: columnType(t, i)}
		info.Columns = append(info.Columns, c)
		names[i] = quote(c.Name)
		defs[i] = strings.TrimSpace(quote(c.Name) + " " + c.Type)
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(t.Name)); err != nil {
		return info, fmt.Errorf("failed to drop table %s: %w", t.Name, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quote(t.Name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return info, fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.Name), strings.Join(names, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return info, fmt.Errorf("failed to prepare insert for %s: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return info, fmt.Errorf("failed to insert into %s: %w", t.Name, err)
		}
	}
	return info, nil
}

// Tables returns the schema of the loaded tables
func (s *Store) Tables() []TableInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TableInfo(nil), s.tables...)
}

// Query runs one read-only statement and returns at most maxRows rows (0 means no limit).
func (s *Store) Query(ctx context.Context, query string, maxRows int) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &QueryResult{Columns: cols}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result, nil
}

func checkReadOnly(query string) error {
	if strings.Contains(query, ";") {
		return fmt.Errorf("%w: multiple statements", ErrNotReadOnly)
	}
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty query", ErrNotReadOnly)
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return nil
	default:
		return ErrNotReadOnly
	}
}

// ColumnName turns a table column title into an SQL identifier,
// e.g. "visit duration (in minutes)" becomes visit_duration_in_minutes and placeId becomes place_id.
func ColumnName(title string) string {
	var b strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && prevLower {
				pendingSep = true
			}
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			pendingSep = true
			prevLower = false
		}
	}
	return b.String()
}

// columnType picks the SQLite affinity from the first non-nil value of a column.
// Columns with no values get no declared type.
func columnType(t model.Table, col int) string {
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case int, int64:
			return "INTEGER"
		case float64:
			return "REAL"
		case string, time.Time:
			return "TEXT"
		default:
			return ""
		}
	}
	return ""
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case int:
		return int64(x)
	default:
		return x
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
