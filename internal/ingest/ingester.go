// Package ingest turns XML and HTML text into store rows: one scan builds an
// arena tree, which is flattened in pre-order and committed in a single
// transaction.
package ingest

import (
	"database/sql"
	"fmt"

	"github.com/deidaraiorek/xmlsql/internal/storage"
	"github.com/deidaraiorek/xmlsql/internal/textprocessor"
)

// Result describes a committed document.
type Result struct {
	DocumentID     int64  `json:"document_id"`
	RootNodeID     *int64 `json:"root_node_id"`
	NodeCount      int    `json:"node_count"`
	AttributeCount int    `json:"attribute_count"`
}

type Ingester struct {
	store     *storage.Store
	processor *textprocessor.TextProcessor
}

func NewIngester(store *storage.Store) *Ingester {
	return &Ingester{
		store:     store,
		processor: textprocessor.NewTextProcessor(),
	}
}

// IngestXML parses text strictly; on *ParseError nothing is written.
func (ing *Ingester) IngestXML(text, name string) (*Result, error) {
	tree, err := ParseXML(text)
	if err != nil {
		return nil, err
	}
	return ing.commit(tree, name)
}

// IngestHTML parses text leniently.
func (ing *Ingester) IngestHTML(text, name string) (*Result, error) {
	tree, err := ParseHTML(text)
	if err != nil {
		return nil, err
	}
	return ing.commit(tree, name)
}

func (ing *Ingester) commit(tree *Tree, name string) (*Result, error) {
	tx, err := ing.store.BeginTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	docID, err := ing.store.InsertDocumentTx(tx, name)
	if err != nil {
		return nil, err
	}

	firstID, err := ing.store.NextNodeIDTx(tx)
	if err != nil {
		return nil, err
	}

	nodes, attrs := tree.Flatten(docID, firstID)

	if err := ing.store.InsertNodesTx(tx, nodes); err != nil {
		return nil, err
	}
	if err := ing.store.InsertAttributesTx(tx, attrs); err != nil {
		return nil, err
	}
	if err := ing.indexText(tx, nodes); err != nil {
		return nil, err
	}

	result := &Result{
		DocumentID:     docID,
		NodeCount:      len(nodes),
		AttributeCount: len(attrs),
	}
	if len(nodes) > 0 {
		rootID := nodes[0].ID
		if err := ing.store.SetRootNodeTx(tx, docID, rootID); err != nil {
			return nil, err
		}
		result.RootNodeID = &rootID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document %q: %w", name, err)
	}
	return result, nil
}

func (ing *Ingester) indexText(tx *sql.Tx, nodes []storage.Node) error {
	for _, n := range nodes {
		if n.TextContent == nil {
			continue
		}
		freqs := ing.processor.ProcessToFrequency(*n.TextContent)
		if err := ing.store.InsertTermsTx(tx, n.ID, freqs); err != nil {
			return err
		}
	}
	return nil
}
