package ingest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const byteOrderMark = "\ufeff"

// ParseXML scans well-formed XML into a tree. Any unmatched tag, a second
// root element, or non-blank text outside the root fails with *ParseError.
// A leading byte order mark is skipped; error offsets still count it.
func ParseXML(text string) (*Tree, error) {
	body, ok := strings.CutPrefix(text, byteOrderMark)
	if !ok {
		return parseXML(text)
	}
	tree, err := parseXML(body)
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		parseErr.Offset += int64(len(byteOrderMark))
	}
	return tree, err
}

func parseXML(text string) (*Tree, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = true
	// The input is already decoded text; a declared encoding is informational.
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	tree := &Tree{}
	var stack []int
	var run textRun
	rootClosed := false

	flush := func() error {
		text, offset := run.take()
		if text == "" {
			return nil
		}
		if len(stack) == 0 {
			return &ParseError{Offset: offset, Reason: "text outside the root element"}
		}
		tree.recordText(stack[len(stack)-1], text)
		return nil
	}

	for {
		offset := d.InputOffset()
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil, &ParseError{Offset: d.InputOffset(), Reason: syntaxErr.Msg}
			}
			return nil, &ParseError{Offset: d.InputOffset(), Reason: err.Error()}
		}

		switch t := tok.(type) {
		case xml.CharData:
			run.add(string(t), offset)

		case xml.StartElement:
			if err := flush(); err != nil {
				return nil, err
			}
			if len(stack) == 0 && rootClosed {
				return nil, &ParseError{Offset: offset, Reason: fmt.Sprintf("second root element <%s>", xmlName(t.Name))}
			}

			parent := noParent
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			attrs := make([]attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, attr{name: xmlName(a.Name), value: a.Value})
			}
			stack = append(stack, tree.add(xmlName(t.Name), attrs, parent))

		case xml.EndElement:
			if err := flush(); err != nil {
				return nil, err
			}
			name := xmlName(t.Name)
			if len(stack) == 0 {
				return nil, &ParseError{Offset: offset, Reason: fmt.Sprintf("unexpected end tag </%s>", name)}
			}
			top := tree.elements[stack[len(stack)-1]].tag
			if top != name {
				return nil, &ParseError{Offset: offset, Reason: fmt.Sprintf("mismatched end tag </%s>, expected </%s>", name, top)}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				rootClosed = true
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			// not part of the element tree
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	if len(stack) > 0 {
		open := tree.elements[stack[len(stack)-1]].tag
		return nil, &ParseError{Offset: int64(len(text)), Reason: fmt.Sprintf("unclosed element <%s>", open)}
	}
	if len(tree.roots) == 0 {
		return nil, &ParseError{Offset: int64(len(text)), Reason: "no root element"}
	}

	return tree, nil
}

// xmlName keeps namespace prefixes verbatim, e.g. "xs:element".
func xmlName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
