package storage

import (
	"strings"
	"unicode"
)

// splitStatements cuts SQL text into individual statements on top-level
// semicolons. Quoted strings, quoted identifiers and comments are skipped,
// and a CREATE TRIGGER body only ends at the "END;" matching its BEGIN.
func splitStatements(sql string) []string {
	var statements []string

	start := 0
	hasContent := false
	var words []string
	var word strings.Builder

	flushWord := func() {
		if word.Len() > 0 {
			words = append(words, strings.ToUpper(word.String()))
			word.Reset()
		}
	}

	emit := func(end int) {
		if hasContent {
			statements = append(statements, strings.TrimSpace(sql[start:end]))
		}
		start = end + 1
		hasContent = false
		words = words[:0]
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'' || c == '"' || c == '`' || c == '[':
			flushWord()
			closer := c
			if c == '[' {
				closer = ']'
			}
			hasContent = true
			for i++; i < len(sql); i++ {
				if sql[i] == closer {
					// doubled quote is an escaped quote
					if closer != ']' && i+1 < len(sql) && sql[i+1] == closer {
						i++
						continue
					}
					break
				}
			}
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			flushWord()
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			flushWord()
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
		case c == ';':
			flushWord()
			if isTrigger(words) && !triggerBodyClosed(words) {
				continue
			}
			emit(i)
		case c == '_' || c < unicode.MaxASCII && (unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))):
			word.WriteByte(c)
			hasContent = true
		default:
			flushWord()
			if !unicode.IsSpace(rune(c)) {
				hasContent = true
			}
		}
	}
	flushWord()
	emit(len(sql))

	return statements
}

func isTrigger(words []string) bool {
	if len(words) < 2 || words[0] != "CREATE" {
		return false
	}
	if words[1] == "TRIGGER" {
		return true
	}
	return len(words) > 2 && (words[1] == "TEMP" || words[1] == "TEMPORARY") && words[2] == "TRIGGER"
}

// triggerBodyClosed reports whether the END closing the trigger's BEGIN has
// been seen. CASE ... END expressions inside the body nest.
func triggerBodyClosed(words []string) bool {
	depth := 0
	inBody := false
	for _, w := range words {
		switch {
		case !inBody:
			inBody = w == "BEGIN"
		case w == "CASE":
			depth++
		case w == "END" && depth == 0:
			return true
		case w == "END":
			depth--
		}
	}
	return false
}
