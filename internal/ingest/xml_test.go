package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deidaraiorek/xmlsql/internal/storage"
)

func tags(nodes []storage.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.TagName
	}
	return out
}

func textOf(n storage.Node) string {
	if n.TextContent == nil {
		return "<nil>"
	}
	return *n.TextContent
}

func TestParseXML_ChildrenLayout(t *testing.T) {
	tree, err := ParseXML("<a><b/><c/></a>")
	require.NoError(t, err)

	nodes, attrs := tree.Flatten(7, 1)
	require.Len(t, nodes, 3)
	assert.Empty(t, attrs)
	assert.Equal(t, []string{"a", "b", "c"}, tags(nodes))

	root := nodes[0]
	assert.Nil(t, root.ParentID)
	assert.Equal(t, 0, root.Depth)
	assert.Equal(t, 0, root.Position)

	for i, child := range nodes[1:] {
		require.NotNil(t, child.ParentID)
		assert.Equal(t, root.ID, *child.ParentID)
		assert.Equal(t, 1, child.Depth)
		assert.Equal(t, i, child.Position)
		assert.Equal(t, int64(7), child.DocumentID)
	}
}

func TestParseXML_PreorderIDs(t *testing.T) {
	tree, err := ParseXML("<r><a><a1/><a2/></a><b><b1/></b></r>")
	require.NoError(t, err)

	nodes, _ := tree.Flatten(1, 10)
	assert.Equal(t, []string{"r", "a", "a1", "a2", "b", "b1"}, tags(nodes))
	for i, n := range nodes {
		assert.Equal(t, int64(10+i), n.ID)
	}
	assert.Equal(t, int64(11), *nodes[3].ParentID)
	assert.Equal(t, int64(14), *nodes[5].ParentID)
	assert.Equal(t, 2, nodes[5].Depth)
	assert.Equal(t, 1, nodes[4].Position)
}

func TestParseXML_Text(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple text",
			input: "<a>hello</a>",
			want:  []string{"hello"},
		},
		{
			name:  "whitespace between elements discarded",
			input: "<a>\n  <b>x</b>\n  <c> </c>\n</a>",
			want:  []string{"<nil>", "x", "<nil>"},
		},
		{
			name:  "first run wins",
			input: "<a>first<b/>second</a>",
			want:  []string{"first", "<nil>"},
		},
		{
			name:  "comment does not split a run",
			input: "<a>foo<!-- note -->bar</a>",
			want:  []string{"foobar"},
		},
		{
			name:  "entities decoded",
			input: "<a>x &amp; y &lt;z&gt;</a>",
			want:  []string{"x & y <z>"},
		},
		{
			name:  "cdata",
			input: "<a><![CDATA[<raw>]]></a>",
			want:  []string{"<raw>"},
		},
		{
			name:  "trimmed",
			input: "<a>\n\t padded \n</a>",
			want:  []string{"padded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ParseXML(tt.input)
			require.NoError(t, err)

			nodes, _ := tree.Flatten(1, 1)
			got := make([]string, len(nodes))
			for i, n := range nodes {
				got[i] = textOf(n)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseXML_AttributesAndNamespaces(t *testing.T) {
	input := `<?xml version="1.0" encoding="ISO-8859-1"?>
<x:root xmlns:x="urn:x"><x:item x:id="1" plain="v"/></x:root>`

	tree, err := ParseXML(input)
	require.NoError(t, err)

	nodes, attrs := tree.Flatten(1, 1)
	assert.Equal(t, []string{"x:root", "x:item"}, tags(nodes))

	require.Len(t, attrs, 3)
	assert.Equal(t, "xmlns:x", attrs[0].Name)
	assert.Equal(t, "urn:x", *attrs[0].Value)
	assert.Equal(t, nodes[0].ID, attrs[0].NodeID)
	assert.Equal(t, "x:id", attrs[1].Name)
	assert.Equal(t, "plain", attrs[2].Name)
	assert.Equal(t, nodes[1].ID, attrs[2].NodeID)
}

func TestParseXML_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "mismatched end tag", input: "<a><b></a>", reason: "mismatched end tag </a>, expected </b>"},
		{name: "unclosed root", input: "<a><b></b>", reason: "unclosed element <a>"},
		{name: "text after root", input: "<a/>tail", reason: "text outside the root element"},
		{name: "text before root", input: "lead<a/>", reason: "text outside the root element"},
		{name: "second root", input: "<a/><b/>", reason: "second root element <b>"},
		{name: "empty input", input: "", reason: "no root element"},
		{name: "blank input", input: " \n ", reason: "no root element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseXML(tt.input)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.reason, parseErr.Reason)
		})
	}
}

func TestParseXML_ErrorOffset(t *testing.T) {
	_, err := ParseXML("<a><b></a>")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, int64(6), parseErr.Offset)
	assert.Contains(t, parseErr.Error(), "offset 6")
}

func TestParseXML_SyntaxErrorsBecomeParseErrors(t *testing.T) {
	for _, input := range []string{"<a", "<a>&nbsp;</a>", "<a b=c/>"} {
		_, err := ParseXML(input)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr), "input %q: got %v", input, err)
	}
}

func TestParseXML_ByteOrderMark(t *testing.T) {
	tree, err := ParseXML("\ufeff<a><b/></a>")
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())

	_, err = ParseXML("\ufeff<a><b></a>")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, int64(9), parseErr.Offset)

	// only one leading mark is skipped
	_, err = ParseXML("\ufeff\ufeff<a/>")
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "text outside the root element", parseErr.Reason)
}

func TestParseXML_TrailingWhitespaceAllowed(t *testing.T) {
	tree, err := ParseXML("\n<a/>\n\n")
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}
