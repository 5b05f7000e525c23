// Package storage owns the relational representation of ingested markup:
// documents, their flattened node trees and node attributes, held in an
// in-memory SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// memoryDSN opens a private in-memory database. The pool is pinned to a
// single connection, otherwise every new connection would see an empty
// database.
const memoryDSN = ":memory:?_foreign_keys=on"

// sqliteTimestampLayout is the format of CURRENT_TIMESTAMP.
const sqliteTimestampLayout = "2006-01-02 15:04:05"

var ErrDocumentNotFound = errors.New("document not found")

type Document struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	RootNodeID *int64    `json:"root_node_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Node struct {
	ID          int64   `json:"id"`
	DocumentID  int64   `json:"document_id"`
	ParentID    *int64  `json:"parent_id"`
	TagName     string  `json:"tag_name"`
	TextContent *string `json:"text_content"`
	Depth       int     `json:"depth"`
	Position    int     `json:"position"`
}

// Attribute rows get their id from SQLite when ID is zero.
type Attribute struct {
	ID     int64   `json:"id"`
	NodeID int64   `json:"node_id"`
	Name   string  `json:"name"`
	Value  *string `json:"value"`
}

type Stats struct {
	Documents  int64 `json:"documents"`
	Nodes      int64 `json:"nodes"`
	Attributes int64 `json:"attributes"`
}

// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	db, err := openMemory()
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func openMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(Schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) BeginTransaction() (*sql.Tx, error) {
	return s.db.Begin()
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) InsertDocumentTx(tx *sql.Tx, name string) (int64, error) {
	id, err := nextIDTx(tx, "documents")
	if err != nil {
		return 0, err
	}
	_, err = tx.Exec(
		"INSERT INTO documents (id, name, root_node_id) VALUES (?, ?, NULL)",
		id, name,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert document %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) SetRootNodeTx(tx *sql.Tx, documentID, rootNodeID int64) error {
	_, err := tx.Exec(
		"UPDATE documents SET root_node_id = ? WHERE id = ?",
		rootNodeID, documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to set root node for document %d: %w", documentID, err)
	}
	return nil
}

// NextNodeIDTx returns the next node id. Ids are never handed out twice,
// even after the nodes holding them were removed.
func (s *Store) NextNodeIDTx(tx *sql.Tx) (int64, error) {
	return nextIDTx(tx, "nodes")
}

// nextIDTx reads the persisted counter of table. The live MAX(id) covers
// rows restored from snapshots taken before the counter existed.
func nextIDTx(tx *sql.Tx, table string) (int64, error) {
	var last int64
	err := tx.QueryRow(
		"SELECT MAX(COALESCE((SELECT value FROM id_counters WHERE name = ?), 0), (SELECT COALESCE(MAX(id), 0) FROM "+table+"))",
		table,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s id counter: %w", table, err)
	}
	return last + 1, nil
}

// InsertNodesTx inserts nodes in slice order; parents must precede children.
func (s *Store) InsertNodesTx(tx *sql.Tx, nodes []Node) error {
	if len(nodes) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, document_id, parent_id, tag_name, text_content, depth, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.Exec(n.ID, n.DocumentID, n.ParentID, n.TagName, n.TextContent, n.Depth, n.Position); err != nil {
			return fmt.Errorf("failed to insert node %d <%s>: %w", n.ID, n.TagName, err)
		}
	}
	return nil
}

func (s *Store) InsertAttributesTx(tx *sql.Tx, attrs []Attribute) error {
	if len(attrs) == 0 {
		return nil
	}

	stmt, err := tx.Prepare("INSERT INTO attributes (id, node_id, name, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range attrs {
		var id any
		if a.ID != 0 {
			id = a.ID
		}
		if _, err := stmt.Exec(id, a.NodeID, a.Name, a.Value); err != nil {
			return fmt.Errorf("failed to insert attribute %q on node %d: %w", a.Name, a.NodeID, err)
		}
	}
	return nil
}

func (s *Store) InsertDocument(name string) (int64, error) {
	var id int64
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		id, err = s.InsertDocumentTx(tx, name)
		return err
	})
	return id, err
}

func (s *Store) InsertNodes(nodes []Node) error {
	return s.withTx(func(tx *sql.Tx) error {
		return s.InsertNodesTx(tx, nodes)
	})
}

func (s *Store) InsertAttributes(attrs []Attribute) error {
	return s.withTx(func(tx *sql.Tx) error {
		return s.InsertAttributesTx(tx, attrs)
	})
}

// ListDocuments returns documents newest first.
func (s *Store) ListDocuments() ([]Document, error) {
	rows, err := s.db.Query(
		"SELECT id, name, root_node_id, created_at FROM documents ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(id int64) (*Document, error) {
	row := s.db.QueryRow(
		"SELECT id, name, root_node_id, created_at FROM documents WHERE id = ?",
		id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
	}
	return doc, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var root sql.NullInt64
	var created any
	if err := row.Scan(&doc.ID, &doc.Name, &root, &created); err != nil {
		return nil, err
	}
	if root.Valid {
		doc.RootNodeID = &root.Int64
	}
	doc.CreatedAt = parseTimestamp(created)
	return &doc, nil
}

// parseTimestamp accepts both DATETIME columns (decoded by the driver) and
// plain TEXT timestamps found in snapshots written by other tools.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{sqliteTimestampLayout, time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case []byte:
		return parseTimestamp(string(t))
	}
	return time.Time{}
}

// Nodes returns a document's nodes in id (pre-order) order.
func (s *Store) Nodes(documentID int64) ([]Node, error) {
	rows, err := s.db.Query(`
		SELECT id, document_id, parent_id, tag_name, text_content, depth, position
		FROM nodes WHERE document_id = ? ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]Node, 0)
	for rows.Next() {
		var n Node
		var parent sql.NullInt64
		var text sql.NullString
		if err := rows.Scan(&n.ID, &n.DocumentID, &parent, &n.TagName, &text, &n.Depth, &n.Position); err != nil {
			return nil, err
		}
		if parent.Valid {
			n.ParentID = &parent.Int64
		}
		if text.Valid {
			n.TextContent = &text.String
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Attributes returns the attributes of a document's nodes in id order.
func (s *Store) Attributes(documentID int64) ([]Attribute, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.node_id, a.name, a.value
		FROM attributes a JOIN nodes n ON n.id = a.node_id
		WHERE n.document_id = ? ORDER BY a.id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	attrs := make([]Attribute, 0)
	for rows.Next() {
		var a Attribute
		var value sql.NullString
		if err := rows.Scan(&a.ID, &a.NodeID, &a.Name, &value); err != nil {
			return nil, err
		}
		if value.Valid {
			a.Value = &value.String
		}
		attrs = append(attrs, a)
	}
	return attrs, rows.Err()
}

// RemoveDocument deletes a document with all of its rows in one transaction.
func (s *Store) RemoveDocument(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM node_terms WHERE node_id IN (SELECT id FROM nodes WHERE document_id = ?)", id); err != nil {
			return fmt.Errorf("failed to delete terms of document %d: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM attributes WHERE node_id IN (SELECT id FROM nodes WHERE document_id = ?)", id); err != nil {
			return fmt.Errorf("failed to delete attributes of document %d: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM nodes WHERE document_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete nodes of document %d: %w", id, err)
		}
		result, err := tx.Exec("DELETE FROM documents WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete document %d: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("document %d: %w", id, ErrDocumentNotFound)
		}
		return nil
	})
}

// Reset removes every row from the store, keeping the schema.
func (s *Store) Reset() error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"node_terms", "attributes", "nodes", "documents"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM nodes),
			(SELECT COUNT(*) FROM attributes)
	`).Scan(&st.Documents, &st.Nodes, &st.Attributes)
	return st, err
}
