package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ImportError reports snapshot bytes that cannot replace the live store.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return "import error: " + e.Reason
}

// Snapshot returns the byte-exact serialized image of the live database.
func (s *Store) Snapshot() ([]byte, error) {
	var data []byte
	err := rawConn(s.db, func(c *sqlite3.SQLiteConn) error {
		var err error
		data, err = c.Serialize("main")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize database: %w", err)
	}
	return data, nil
}

// Restore replaces the live database with a snapshot. The snapshot is
// deserialized and validated on a separate connection and only swapped in
// once it is known to be good; on failure the previous database stays live.
func (s *Store) Restore(data []byte) error {
	if len(data) == 0 {
		return &ImportError{Reason: "snapshot is empty"}
	}

	staged, err := stageSnapshot(data)
	if err != nil {
		return err
	}

	if _, err := staged.Exec(Schema); err != nil {
		staged.Close()
		return &ImportError{Reason: fmt.Sprintf("failed to upgrade schema: %v", err)}
	}

	old := s.db
	s.db = staged
	old.Close()
	return nil
}

// stageSnapshot loads a snapshot into a fresh, growable in-memory database.
// sqlite3_deserialize leaves the image fixed-size, so it is copied page by
// page into a normal in-memory database with the backup API.
func stageSnapshot(data []byte) (*sql.DB, error) {
	image, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, &ImportError{Reason: err.Error()}
	}
	image.SetMaxOpenConns(1)
	defer image.Close()

	err = rawConn(image, func(c *sqlite3.SQLiteConn) error {
		return c.Deserialize(data, "main")
	})
	if err != nil {
		return nil, &ImportError{Reason: fmt.Sprintf("failed to deserialize snapshot: %v", err)}
	}

	if err := validateSnapshot(image); err != nil {
		return nil, err
	}

	var pageSize int
	if err := image.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, &ImportError{Reason: err.Error()}
	}

	staged, err := openMemory()
	if err != nil {
		return nil, &ImportError{Reason: err.Error()}
	}
	if _, err := staged.Exec(fmt.Sprintf("PRAGMA page_size = %d", pageSize)); err != nil {
		staged.Close()
		return nil, &ImportError{Reason: err.Error()}
	}

	err = rawConn(image, func(src *sqlite3.SQLiteConn) error {
		return rawConn(staged, func(dst *sqlite3.SQLiteConn) error {
			backup, err := dst.Backup("main", src, "main")
			if err != nil {
				return err
			}
			if _, err := backup.Step(-1); err != nil {
				backup.Finish()
				return err
			}
			return backup.Finish()
		})
	})
	if err != nil {
		staged.Close()
		return nil, &ImportError{Reason: fmt.Sprintf("failed to copy snapshot: %v", err)}
	}

	return staged, nil
}

func validateSnapshot(db *sql.DB) error {
	var check string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&check); err != nil {
		return &ImportError{Reason: fmt.Sprintf("snapshot is not a readable database: %v", err)}
	}
	if check != "ok" {
		return &ImportError{Reason: "snapshot failed integrity check: " + check}
	}

	for table, columns := range requiredColumns {
		present, err := tableColumns(db, table)
		if err != nil {
			return &ImportError{Reason: fmt.Sprintf("failed to inspect table %s: %v", table, err)}
		}
		if len(present) == 0 {
			return &ImportError{Reason: fmt.Sprintf("snapshot has no %s table", table)}
		}
		for _, col := range columns {
			if !present[col] {
				return &ImportError{Reason: fmt.Sprintf("table %s is missing column %s", table, col)}
			}
		}
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func rawConn(db *sql.DB, fn func(c *sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(context.Background())
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}
