package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deidaraiorek/xmlsql/internal/storage"
)

// shape renders nodes as "depth:tag" for compact tree assertions.
func shape(nodes []storage.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(rune('0'+n.Depth)) + ":" + n.TagName
	}
	return out
}

func parseHTMLNodes(t *testing.T, input string) []storage.Node {
	t.Helper()
	tree, err := ParseHTML(input)
	require.NoError(t, err)
	nodes, _ := tree.Flatten(1, 1)
	return nodes
}

func TestParseHTML_ImpliedParagraphEnd(t *testing.T) {
	nodes := parseHTMLNodes(t, "<p>text<p>more")

	assert.Equal(t, []string{"0:html", "1:p", "1:p"}, shape(nodes))
	assert.Equal(t, "text", textOf(nodes[1]))
	assert.Equal(t, "more", textOf(nodes[2]))
	assert.Equal(t, 0, nodes[1].Position)
	assert.Equal(t, 1, nodes[2].Position)
	assert.Equal(t, nodes[0].ID, *nodes[2].ParentID)
}

func TestParseHTML_Structure(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "list items close each other",
			input: "<ul><li>a<li>b</ul>",
			want:  []string{"0:ul", "1:li", "1:li"},
		},
		{
			name:  "table cells and rows",
			input: "<table><tr><td>1<td>2<tr><td>3</table>",
			want:  []string{"0:table", "1:tr", "2:td", "2:td", "1:tr", "2:td"},
		},
		{
			name:  "block element closes paragraph",
			input: "<div><p>a<div>b</div></div>",
			want:  []string{"0:div", "1:p", "1:div"},
		},
		{
			name:  "definition list",
			input: "<dl><dt>t<dd>d<dt>u</dl>",
			want:  []string{"0:dl", "1:dt", "1:dd", "1:dt"},
		},
		{
			name:  "void elements never stay open",
			input: "<div><br><img src=a.png><span>x</span></div>",
			want:  []string{"0:div", "1:br", "1:img", "1:span"},
		},
		{
			name:  "self closing tag",
			input: "<div><foo/><bar></bar></div>",
			want:  []string{"0:div", "1:foo", "1:bar"},
		},
		{
			name:  "ancestor end tag closes open children",
			input: "<div><span><b>x</div><p>y</p>",
			want:  []string{"0:html", "1:div", "2:span", "3:b", "1:p"},
		},
		{
			name:  "stray end tag ignored",
			input: "<div></span><em>x</em></div>",
			want:  []string{"0:div", "1:em"},
		},
		{
			name:  "unclosed at end of input",
			input: "<section><article><h1>t",
			want:  []string{"0:section", "1:article", "2:h1"},
		},
		{
			name:  "options",
			input: "<select><option>a<option>b<optgroup><option>c</select>",
			want:  []string{"0:select", "1:option", "1:option", "1:optgroup", "2:option"},
		},
		{
			name:  "doctype and full document",
			input: "<!DOCTYPE html><html><head><title>T</title></head><body><p>x</p></body></html>",
			want:  []string{"0:html", "1:head", "2:title", "1:body", "2:p"},
		},
		{
			name:  "tag names lowercased",
			input: "<DIV><SPAN>x</SPAN></DIV>",
			want:  []string{"0:div", "1:span"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shape(parseHTMLNodes(t, tt.input)))
		})
	}
}

func TestParseHTML_Text(t *testing.T) {
	nodes := parseHTMLNodes(t, "<div>\n  <p>a &amp; b</p>\n  <p>foo<!-- c -->bar</p><script>if (a < b) {}</script></div>")

	require.Len(t, nodes, 4)
	assert.Equal(t, "<nil>", textOf(nodes[0]))
	assert.Equal(t, "a & b", textOf(nodes[1]))
	assert.Equal(t, "foobar", textOf(nodes[2]))
	assert.Equal(t, "if (a < b) {}", textOf(nodes[3]))
}

func TestParseHTML_TopLevelText(t *testing.T) {
	nodes := parseHTMLNodes(t, "hello <b>world</b>")

	assert.Equal(t, []string{"0:html", "1:b"}, shape(nodes))
	assert.Equal(t, "hello", textOf(nodes[0]))

	nodes = parseHTMLNodes(t, "just text")
	assert.Equal(t, []string{"0:html"}, shape(nodes))
	assert.Equal(t, "just text", textOf(nodes[0]))
}

func TestParseHTML_Empty(t *testing.T) {
	for _, input := range []string{"", "  \n", "<!-- only a comment -->", "</p></div>"} {
		tree, err := ParseHTML(input)
		require.NoError(t, err)
		assert.Equal(t, 0, tree.Len(), "input %q", input)
	}
}

func TestParseHTML_Attributes(t *testing.T) {
	tree, err := ParseHTML(`<div Class="A b" data-x='1' a="1" a="2"><input disabled></div>`)
	require.NoError(t, err)

	nodes, attrs := tree.Flatten(1, 1)
	require.Len(t, nodes, 2)
	require.Len(t, attrs, 5)

	got := make([][2]string, len(attrs))
	for i, a := range attrs {
		got[i] = [2]string{a.Name, *a.Value}
	}
	assert.Equal(t, [][2]string{
		{"class", "A b"},
		{"data-x", "1"},
		{"a", "1"},
		{"a", "2"},
		{"disabled", ""},
	}, got)
	assert.Equal(t, nodes[1].ID, attrs[4].NodeID)
}
