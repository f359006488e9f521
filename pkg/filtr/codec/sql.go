package codec

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/sambeau/filtr/pkg/filtr/object"
)

var sqliteExts = []string{".db", ".sqlite", ".sqlite3"}

var errNoTable = errors.New("table name required (append #table to the source)")

// sqlSource describes a dataset held in a database table.
type sqlSource struct {
	driver string
	dsn    string
	table  string
}

// parseSQLSource recognizes database sources:
//
//	shop.db#orders                  SQLite file, table optional if it has only one
//	postgres://host/db#orders       PostgreSQL
//	mysql://user@tcp(host)/db#orders MySQL, the rest is a go-sql-driver DSN
func parseSQLSource(path string) (sqlSource, bool) {
	src, table := path, ""
	if i := strings.LastIndex(path, "#"); i >= 0 {
		src, table = path[:i], path[i+1:]
	}

	if scheme, rest, found := strings.Cut(src, "://"); found {
		switch strings.ToLower(scheme) {
		case "postgres", "postgresql":
			return sqlSource{driver: "postgres", dsn: src, table: table}, true
		case "mysql":
			return sqlSource{driver: "mysql", dsn: rest, table: table}, true
		case "sqlite":
			return sqlSource{driver: "sqlite", dsn: rest, table: table}, true
		}
		return sqlSource{}, false
	}
	if slices.Contains(sqliteExts, strings.ToLower(filepath.Ext(src))) {
		return sqlSource{driver: "sqlite", dsn: src, table: table}, true
	}
	return sqlSource{}, false
}

// quoteIdent quotes a table or column name for the driver's dialect.
func quoteIdent(driver, name string) string {
	q := `"`
	if driver == "mysql" {
		q = "`"
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// ReadSQL reads every row of the source's table.
func ReadSQL(src sqlSource, opts Options) (*object.Table, error) {
	db, err := sql.Open(src.driver, src.dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	table := src.table
	if table == "" {
		if src.driver != "sqlite" {
			return nil, errNoTable
		}
		if table, err = onlyTable(db); err != nil {
			return nil, err
		}
	}

	rows, err := db.Query("SELECT * FROM " + quoteIdent(src.driver, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []map[string]object.Object
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]object.Object, len(columns))
		for i, c := range columns {
			row[c] = sqlValue(values[i], opts)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newTable(columns, result)
}

// onlyTable returns the name of the single user table in a SQLite database.
func onlyTable(db *sql.DB) (string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", errors.New("database has no tables")
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("%w; tables: %s", errNoTable, strings.Join(names, ", "))
}

func sqlValue(v any, opts Options) object.Object {
	switch v := v.(type) {
	case nil:
		return object.NULL
	case int64:
		return &object.Integer{Value: v}
	case float64:
		return object.Cleanup(&object.Number{Value: v})
	case bool:
		return object.NativeBool(v)
	case time.Time:
		text := v.Format(time.RFC3339)
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			text = v.Format(time.DateOnly)
		}
		return &object.Date{Value: v, Text: text}
	case []byte:
		return InferValue(string(v), opts.InferDates)
	case string:
		return InferValue(v, opts.InferDates)
	}
	return InferValue(fmt.Sprint(v), opts.InferDates)
}

// WriteSQLite replaces the named table in the SQLite database at path with
// the contents of t.
func WriteSQLite(path, name string, t *object.Table) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	columns := t.Columns()
	defs := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = strings.TrimSpace(quoteIdent("sqlite", c) + " " + affinity(t, c))
		marks[i] = "?"
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	quoted := quoteIdent("sqlite", name)
	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoted); err != nil {
		return err
	}
	if _, err := tx.Exec("CREATE TABLE " + quoted + " (" + strings.Join(defs, ", ") + ")"); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO " + quoted + " VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i := range t.Len() {
		for j, c := range columns {
			args[j] = sqlArg(t.Cell(i, c))
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

// affinity picks a SQLite column type from the column's non-null cells.
// Mixed columns get no declared type.
func affinity(t *object.Table, column string) string {
	kind := ""
	for i := range t.Len() {
		v := t.Cell(i, column)
		var k string
		switch v.(type) {
		case *object.Null:
			continue
		case *object.Integer, *object.Boolean:
			k = "INTEGER"
		case *object.Number:
			k = "REAL"
		default:
			k = "TEXT"
		}
		switch {
		case kind == "":
			kind = k
		case kind == "INTEGER" && k == "REAL", kind == "REAL" && k == "INTEGER":
			kind = "REAL"
		case kind != k:
			return ""
		}
	}
	return kind
}

func sqlArg(v object.Object) any {
	switch v := v.(type) {
	case *object.Null:
		return nil
	case *object.Integer:
		return v.Value
	case *object.Number:
		return v.Value
	case *object.Boolean:
		return v.Value
	case *object.String:
		return v.Value
	}
	return v.Inspect()
}
