// Package engine is the entry point for callers: it loads documents, runs
// selector, SQL and text queries, and exports or imports the whole store.
// Calls are serialized; at most one runs against the store at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deidaraiorek/xmlsql/internal/fetcher"
	"github.com/deidaraiorek/xmlsql/internal/ingest"
	"github.com/deidaraiorek/xmlsql/internal/logger"
	"github.com/deidaraiorek/xmlsql/internal/metrics"
	"github.com/deidaraiorek/xmlsql/internal/selector"
	"github.com/deidaraiorek/xmlsql/internal/storage"
	"github.com/deidaraiorek/xmlsql/internal/textprocessor"
)

var ErrNoFetcher = errors.New("loading from URLs is not configured")

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Fetcher *fetcher.Fetcher
}

type Engine struct {
	mu        sync.Mutex
	store     *storage.Store
	ingester  *ingest.Ingester
	processor *textprocessor.TextProcessor
	fetcher   *fetcher.Fetcher
	log       *logger.Logger
	metrics   *metrics.Metrics
}

func New(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewMetrics()
	}

	store, err := storage.NewStore()
	if err != nil {
		return nil, err
	}
	log.DbLogger("init").Debug().Msg("In-memory store ready")

	return &Engine{
		store:     store,
		ingester:  ingest.NewIngester(store),
		processor: textprocessor.NewTextProcessor(),
		fetcher:   opts.Fetcher,
		log:       log,
		metrics:   m,
	}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Close()
}

// Metrics returns the instruments this engine records into.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// observe runs fn under the engine lock, then logs and records the outcome.
func (e *Engine) observe(operation string, fn func() (int, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	count, err := fn()
	duration := time.Since(start)

	e.log.LogDbOperation(operation, duration, count, err)
	e.metrics.RecordOperation(operation, err, duration)
	return err
}

// refreshStats must be called with the lock held.
func (e *Engine) refreshStats() {
	st, err := e.store.Stats()
	if err != nil {
		e.log.DbLogger("stats").Warn().Err(err).Msg("Failed to read store stats")
		return
	}
	e.metrics.UpdateStoreStats(st.Documents, st.Nodes, st.Attributes)
}

// LoadXML ingests a well-formed XML document. Malformed input fails with
// *ingest.ParseError and leaves the store unchanged.
func (e *Engine) LoadXML(text, name string) (*ingest.Result, error) {
	return e.load("load_xml", name, func() (*ingest.Result, error) {
		return e.ingester.IngestXML(text, name)
	})
}

// LoadHTML ingests an HTML document with lenient recovery.
func (e *Engine) LoadHTML(text, name string) (*ingest.Result, error) {
	return e.load("load_html", name, func() (*ingest.Result, error) {
		return e.ingester.IngestHTML(text, name)
	})
}

func (e *Engine) load(operation, name string, fn func() (*ingest.Result, error)) (*ingest.Result, error) {
	var res *ingest.Result
	err := e.observe(operation, func() (int, error) {
		var err error
		res, err = fn()
		if err != nil {
			return 0, err
		}
		e.refreshStats()
		return res.NodeCount, nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("operation", operation).
		Str("name", name).
		Int64("document_id", res.DocumentID).
		Int("nodes", res.NodeCount).
		Int("attributes", res.AttributeCount).
		Msg("Document loaded")
	return res, nil
}

// LoadURL fetches url and ingests it as XML or HTML depending on the
// response. An empty name falls back to the page title, then the URL. The
// download happens before the engine lock is taken and honors ctx.
func (e *Engine) LoadURL(ctx context.Context, url, name string) (*ingest.Result, error) {
	if e.fetcher == nil {
		return nil, ErrNoFetcher
	}

	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.metrics.RecordOperation("fetch", err, 0)
		return nil, err
	}
	if name == "" {
		name = fetcher.DocumentName(page)
	}

	if page.Kind == fetcher.KindXML {
		return e.LoadXML(page.Body, name)
	}
	return e.LoadHTML(page.Body, name)
}

// CompileSelector returns the SQL a selector compiles to without running it.
func (e *Engine) CompileSelector(input string) (string, error) {
	sql, err := selector.ToSQL(input)
	if err != nil {
		return "", err
	}
	e.log.Debug().Str("selector", input).Str("sql", sql).Msg("Selector compiled")
	return sql, nil
}

// QuerySelector compiles and runs a selector, returning matching nodes
// ordered by id.
func (e *Engine) QuerySelector(input string) (*storage.ResultSet, error) {
	sql, err := e.CompileSelector(input)
	if err != nil {
		e.metrics.RecordOperation("query_selector", err, 0)
		return nil, err
	}
	return e.query("query_selector", "selector", sql)
}

// ExecuteQuery runs caller-supplied SQL unchanged. Writes are allowed.
func (e *Engine) ExecuteQuery(sql string) (*storage.ResultSet, error) {
	return e.query("execute_query", "sql", sql)
}

func (e *Engine) query(operation, kind, sql string) (*storage.ResultSet, error) {
	var result *storage.ResultSet
	err := e.observe(operation, func() (int, error) {
		var err error
		result, err = e.store.Execute(sql)
		if err != nil {
			return 0, err
		}
		if kind == "sql" {
			e.refreshStats()
		}
		return len(result.Rows), nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRows(kind, len(result.Rows))
	return result, nil
}

// SearchText returns nodes whose text contains every stemmed term of text,
// best matches first.
func (e *Engine) SearchText(text string) (*storage.ResultSet, error) {
	terms := e.processor.ProcessQuery(text)

	var result *storage.ResultSet
	err := e.observe("search_text", func() (int, error) {
		var err error
		result, err = e.store.SearchTerms(terms)
		if err != nil {
			return 0, err
		}
		return len(result.Rows), nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordRows("text", len(result.Rows))
	return result, nil
}

// ListDocuments returns all documents, newest first.
func (e *Engine) ListDocuments() ([]storage.Document, error) {
	var docs []storage.Document
	err := e.observe("list_documents", func() (int, error) {
		var err error
		docs, err = e.store.ListDocuments()
		return len(docs), err
	})
	return docs, err
}

// RemoveDocument deletes a document and all of its rows. Unknown ids wrap
// storage.ErrDocumentNotFound.
func (e *Engine) RemoveDocument(id int64) error {
	return e.observe("remove_document", func() (int, error) {
		if err := e.store.RemoveDocument(id); err != nil {
			return 0, err
		}
		e.refreshStats()
		return 1, nil
	})
}

// Reset empties the store.
func (e *Engine) Reset() error {
	return e.observe("reset", func() (int, error) {
		if err := e.store.Reset(); err != nil {
			return 0, err
		}
		e.refreshStats()
		return 0, nil
	})
}

func (e *Engine) Stats() (storage.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Stats()
}

// ExportStore returns a byte-exact snapshot of the whole store.
func (e *Engine) ExportStore() ([]byte, error) {
	var data []byte
	err := e.observe("export_store", func() (int, error) {
		var err error
		data, err = e.store.Snapshot()
		return len(data), err
	})
	if err != nil {
		return nil, err
	}
	e.metrics.SnapshotBytes.Set(float64(len(data)))
	return data, nil
}

// ImportStore replaces the store with a snapshot produced by ExportStore.
// Invalid bytes fail with *storage.ImportError and the current store stays.
func (e *Engine) ImportStore(data []byte) error {
	err := e.observe("import_store", func() (int, error) {
		if err := e.store.Restore(data); err != nil {
			return 0, err
		}
		e.refreshStats()
		return len(data), nil
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	e.metrics.SnapshotBytes.Set(float64(len(data)))
	e.log.Info().Int("bytes", len(data)).Msg("Store imported")
	return nil
}
