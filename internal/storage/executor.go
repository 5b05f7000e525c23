package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// ResultSet is the uniform columnar result of any executed query. Row values
// are nil (NULL), int64, float64, string or []byte.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ExecutionError carries the query engine's message for rejected SQL.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return "execution error: " + e.Message
}

// Execute runs arbitrary SQL, compiled or caller-supplied, and collects the
// result of its last statement. All statements run inside one transaction so
// a failing statement never leaves partial writes behind.
func (s *Store) Execute(query string) (*ResultSet, error) {
	statements := splitStatements(query)
	if len(statements) == 0 {
		return nil, &ExecutionError{Message: "no statement to execute"}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}
	defer tx.Rollback()

	last := len(statements) - 1
	for _, stmt := range statements[:last] {
		if _, err := tx.Exec(stmt); err != nil {
			return nil, &ExecutionError{Message: err.Error()}
		}
	}

	rows, err := tx.Query(statements[last])
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	result, err := collectRows(rows)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	if err := tx.Commit(); err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}
	return result, nil
}

func collectRows(rows *sql.Rows) (*ResultSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &ResultSet{
		Columns: columns,
		Rows:    make([][]any, 0),
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeValue maps the driver's decoded types back onto SQLite's storage
// classes.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, int64, float64, string:
		return t
	case []byte:
		return append([]byte(nil), t...)
	case time.Time:
		return t.UTC().Format(sqliteTimestampLayout)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return fmt.Sprint(t)
	}
}
