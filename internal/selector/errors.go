package selector

import "fmt"

// SyntaxError rejects selector text. Offset is the byte offset of Token in
// the input; Token is empty when the input ended early.
type SyntaxError struct {
	Offset int
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("selector syntax error at offset %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("selector syntax error at offset %d near %q: %s", e.Offset, e.Token, e.Reason)
}
