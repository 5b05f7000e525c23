package storage

const Schema = `
-- Documents: one row per successful ingestion
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    root_node_id INTEGER,             -- NULL only for a document without elements
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Nodes: the element tree, flattened in pre-order; parent_id is a lookup key
CREATE TABLE IF NOT EXISTS nodes (
    id INTEGER PRIMARY KEY,           -- unique across the whole store
    document_id INTEGER NOT NULL,
    parent_id INTEGER,                -- NULL only for the document root
    tag_name TEXT NOT NULL,
    text_content TEXT,
    depth INTEGER NOT NULL,
    position INTEGER NOT NULL,        -- index among siblings, document order
    FOREIGN KEY (document_id) REFERENCES documents(id),
    FOREIGN KEY (parent_id) REFERENCES nodes(id)
);
CREATE INDEX IF NOT EXISTS idx_nodes_document ON nodes(document_id);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_tag ON nodes(tag_name);

-- Attributes: duplicate (node_id, name) pairs are legal
CREATE TABLE IF NOT EXISTS attributes (
    id INTEGER PRIMARY KEY,
    node_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    value TEXT,
    FOREIGN KEY (node_id) REFERENCES nodes(id)
);
CREATE INDEX IF NOT EXISTS idx_attributes_node_name ON attributes(node_id, name);

-- Node terms: stemmed text index derived from nodes.text_content
CREATE TABLE IF NOT EXISTS node_terms (
    node_id INTEGER NOT NULL,
    term TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (node_id, term),
    FOREIGN KEY (node_id) REFERENCES nodes(id)
);
CREATE INDEX IF NOT EXISTS idx_node_terms_term ON node_terms(term);

-- Id counters: highest id ever handed out per table; survive removal, reset and snapshots
CREATE TABLE IF NOT EXISTS id_counters (
    name TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
INSERT OR IGNORE INTO id_counters (name, value) VALUES ('documents', 0), ('nodes', 0);
CREATE TRIGGER IF NOT EXISTS trg_documents_counter AFTER INSERT ON documents BEGIN
    UPDATE id_counters SET value = MAX(value, new.id) WHERE name = 'documents';
END;
CREATE TRIGGER IF NOT EXISTS trg_nodes_counter AFTER INSERT ON nodes BEGIN
    UPDATE id_counters SET value = MAX(value, new.id) WHERE name = 'nodes';
END;
`

// requiredColumns lists the columns a snapshot must carry to be importable.
var requiredColumns = map[string][]string{
	"documents":  {"id", "name", "root_node_id", "created_at"},
	"nodes":      {"id", "document_id", "parent_id", "tag_name", "text_content", "depth", "position"},
	"attributes": {"id", "node_id", "name", "value"},
}
