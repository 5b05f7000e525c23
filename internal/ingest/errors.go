package ingest

import "fmt"

// ParseError aborts a strict ingestion. Offset is the byte offset into the
// input where the problem was detected.
type ParseError struct {
	Offset int64
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Reason)
}
