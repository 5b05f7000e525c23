package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// InsertTermsTx records the stemmed term frequencies of one node's text.
func (s *Store) InsertTermsTx(tx *sql.Tx, nodeID int64, termFreqs map[string]int) error {
	if len(termFreqs) == 0 {
		return nil
	}

	stmt, err := tx.Prepare("INSERT INTO node_terms (node_id, term, frequency) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	// sorted for a deterministic insert order
	terms := make([]string, 0, len(termFreqs))
	for term := range termFreqs {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for _, term := range terms {
		if _, err := stmt.Exec(nodeID, term, termFreqs[term]); err != nil {
			return fmt.Errorf("failed to insert term %q for node %d: %w", term, nodeID, err)
		}
	}
	return nil
}

// SearchTerms returns the nodes whose text contains every term, best
// matches (highest summed frequency) first.
func (s *Store) SearchTerms(terms []string) (*ResultSet, error) {
	if len(terms) == 0 {
		return &ResultSet{Columns: append(nodeColumns(), "score"), Rows: make([][]any, 0)}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(terms)), ", ")
	query := fmt.Sprintf(`
		SELECT n.id, n.document_id, n.parent_id, n.tag_name, n.text_content, n.depth, n.position,
		       SUM(t.frequency) AS score
		FROM node_terms t
		JOIN nodes n ON n.id = t.node_id
		WHERE t.term IN (%s)
		GROUP BY n.id
		HAVING COUNT(DISTINCT t.term) = ?
		ORDER BY score DESC, n.id
	`, placeholders)

	args := make([]any, 0, len(terms)+1)
	distinct := make(map[string]bool, len(terms))
	for _, term := range terms {
		args = append(args, term)
		distinct[term] = true
	}
	args = append(args, len(distinct))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	result, err := collectRows(rows)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}
	return result, nil
}

func nodeColumns() []string {
	return []string{"id", "document_id", "parent_id", "tag_name", "text_content", "depth", "position"}
}
