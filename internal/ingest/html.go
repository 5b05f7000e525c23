package ingest

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// syntheticRoot wraps HTML input that has several top-level elements or
// top-level text, so every document keeps exactly one root.
const syntheticRoot = "html"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// closesParagraph lists start tags that end an open <p>.
var closesParagraph = []string{
	"address", "article", "aside", "blockquote", "details", "dialog", "div",
	"dl", "dd", "dt", "fieldset", "figcaption", "figure", "footer", "form",
	"h1", "h2", "h3", "h4", "h5", "h6", "header", "hgroup", "hr", "li",
	"main", "menu", "nav", "ol", "p", "pre", "section", "table", "ul",
}

// impliedEnd maps a start tag to the open elements it implicitly closes
// while they sit on top of the stack.
var impliedEnd = buildImpliedEnd()

func buildImpliedEnd() map[string]map[string]bool {
	m := map[string]map[string]bool{
		"li":       {"li": true},
		"dt":       {"dt": true, "dd": true},
		"dd":       {"dt": true, "dd": true},
		"tr":       {"tr": true, "td": true, "th": true},
		"td":       {"td": true, "th": true},
		"th":       {"td": true, "th": true},
		"thead":    {"thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true},
		"tbody":    {"thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true},
		"tfoot":    {"thead": true, "tbody": true, "tfoot": true, "tr": true, "td": true, "th": true},
		"option":   {"option": true},
		"optgroup": {"optgroup": true, "option": true},
	}
	for _, tag := range closesParagraph {
		if m[tag] == nil {
			m[tag] = map[string]bool{}
		}
		m[tag]["p"] = true
	}
	return m
}

// ParseHTML scans HTML leniently and never fails on markup errors: unclosed
// elements are closed by an ancestor's end tag or the end of input, stray
// end tags are ignored, and implied end tags (<p>, <li>, table cells …) are
// applied.
func ParseHTML(text string) (*Tree, error) {
	z := html.NewTokenizer(strings.NewReader(text))

	tree := &Tree{}
	var stack []int
	var run textRun
	var topText string

	flush := func() {
		text, _ := run.take()
		if text == "" {
			return
		}
		if len(stack) == 0 {
			if topText == "" {
				topText = text
			}
			return
		}
		tree.recordText(stack[len(stack)-1], text)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, &ParseError{Offset: int64(len(text)), Reason: err.Error()}
			}
			flush()
			return finishHTML(tree, topText), nil

		case html.TextToken:
			run.add(string(z.Text()), 0)

		case html.StartTagToken, html.SelfClosingTagToken:
			flush()
			name, hasAttr := z.TagName()
			tag := string(name)

			var attrs []attr
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs = append(attrs, attr{name: string(key), value: string(val)})
			}

			if closes := impliedEnd[tag]; closes != nil {
				for len(stack) > 0 && closes[tree.elements[stack[len(stack)-1]].tag] {
					stack = stack[:len(stack)-1]
				}
			}

			parent := noParent
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			idx := tree.add(tag, attrs, parent)
			if tt == html.StartTagToken && !voidElements[tag] {
				stack = append(stack, idx)
			}

		case html.EndTagToken:
			flush()
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i >= 0; i-- {
				if tree.elements[stack[i]].tag == tag {
					stack = stack[:i]
					break
				}
			}

		case html.CommentToken, html.DoctypeToken:
			// not part of the element tree
		}
	}
}

func finishHTML(tree *Tree, topText string) *Tree {
	if len(tree.roots) > 1 || (topText != "" && len(tree.roots) > 0) {
		tree.wrapRoots(syntheticRoot, topText)
	} else if topText != "" {
		tree.add(syntheticRoot, nil, noParent)
		tree.recordText(0, topText)
	}
	return tree
}
