package selector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compound(simples ...Simple) *Compound {
	return &Compound{Simples: simples}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Selector
	}{
		{
			name:  "tag",
			input: "div",
			want:  compound(Tag{Name: "div"}),
		},
		{
			name:  "universal",
			input: "*",
			want:  compound(Universal{}),
		},
		{
			name:  "class and id",
			input: "p.note#intro",
			want:  compound(Tag{Name: "p"}, Class{Name: "note"}, ID{Name: "intro"}),
		},
		{
			name:  "bare class",
			input: ".container",
			want:  compound(Class{Name: "container"}),
		},
		{
			name:  "attribute exists",
			input: "[data-id]",
			want:  compound(Attr{Name: "data-id", Op: Exists}),
		},
		{
			name:  "attribute operators",
			input: `a[href="x"][rel*=no][title^='He'][src$=".png"]`,
			want: compound(
				Tag{Name: "a"},
				Attr{Name: "href", Op: Equals, Value: "x"},
				Attr{Name: "rel", Op: Contains, Value: "no"},
				Attr{Name: "title", Op: StartsWith, Value: "He"},
				Attr{Name: "src", Op: EndsWith, Value: ".png"},
			),
		},
		{
			name:  "whitespace inside brackets",
			input: `[ lang = "en" ]`,
			want:  compound(Attr{Name: "lang", Op: Equals, Value: "en"}),
		},
		{
			name:  "escaped quote in value",
			input: `[title="say \"hi\""]`,
			want:  compound(Attr{Name: "title", Op: Equals, Value: `say "hi"`}),
		},
		{
			name:  "empty quoted value",
			input: `[alt=""]`,
			want:  compound(Attr{Name: "alt", Op: Equals, Value: ""}),
		},
		{
			name:  "escaped namespace colon",
			input: `x\:item`,
			want:  compound(Tag{Name: "x:item"}),
		},
		{
			name:  "descendant",
			input: "ul li",
			want:  &Combined{Left: compound(Tag{Name: "ul"}), Right: compound(Tag{Name: "li"}), Kind: Descendant},
		},
		{
			name:  "child with and without spaces",
			input: "ul>li",
			want:  &Combined{Left: compound(Tag{Name: "ul"}), Right: compound(Tag{Name: "li"}), Kind: Child},
		},
		{
			name:  "left associative chain",
			input: "a b > c",
			want: &Combined{
				Left:  &Combined{Left: compound(Tag{Name: "a"}), Right: compound(Tag{Name: "b"}), Kind: Descendant},
				Right: compound(Tag{Name: "c"}),
				Kind:  Child,
			},
		},
		{
			name:  "surrounding whitespace",
			input: "  div \t >\n .x  ",
			want:  &Combined{Left: compound(Tag{Name: "div"}), Right: compound(Class{Name: "x"}), Kind: Child},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		offset int
		token  string
		reason string
	}{
		{name: "empty", input: "", offset: 0, token: "", reason: "empty selector"},
		{name: "blank", input: "   ", offset: 0, token: "", reason: "empty selector"},
		{name: "adjacent sibling", input: "h1 + p", offset: 3, token: "+", reason: "sibling combinators are not supported"},
		{name: "general sibling", input: "h1~p", offset: 2, token: "~", reason: "sibling combinators are not supported"},
		{name: "pseudo class", input: "a:hover", offset: 1, token: ":hover", reason: "pseudo-classes are not supported"},
		{name: "pseudo element", input: "p::before", offset: 1, token: "::before", reason: "pseudo-classes are not supported"},
		{name: "selector list", input: "a, b", offset: 1, token: ",", reason: "selector lists are not supported"},
		{name: "word match operator", input: "[class~=x]", offset: 6, token: "~=", reason: "attribute operator ~= is not supported"},
		{name: "dash match operator", input: "[lang|=en]", offset: 5, token: "|=", reason: "attribute operator |= is not supported"},
		{name: "dangling child", input: "div >", offset: 4, token: ">", reason: "combinator must be followed by a selector"},
		{name: "double child", input: "a > > b", offset: 4, token: ">", reason: "expected a tag, *, class, id or attribute selector"},
		{name: "leading child", input: "> a", offset: 0, token: ">", reason: "expected a tag, *, class, id or attribute selector"},
		{name: "unterminated attribute", input: "[href", offset: 0, token: "[", reason: "unterminated attribute selector"},
		{name: "unterminated string", input: `[href="x]`, offset: 6, token: `"x]`, reason: "unterminated string"},
		{name: "missing value", input: "[href=]", offset: 6, token: "]", reason: "expected an attribute value"},
		{name: "missing class name", input: "div.", offset: 4, token: "", reason: "expected a name after ., found end of input"},
		{name: "missing attribute name", input: `["x"]`, offset: 1, token: `"x"`, reason: "expected an attribute name"},
		{name: "stray character", input: "div!", offset: 3, token: "!", reason: "unexpected character"},
		{name: "stray bracket", input: "div]", offset: 3, token: "]", reason: "unexpected token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected *SyntaxError, got %T", err)
			assert.Equal(t, tt.offset, syntaxErr.Offset)
			assert.Equal(t, tt.token, syntaxErr.Token)
			assert.Equal(t, tt.reason, syntaxErr.Reason)
		})
	}
}

func TestSelectorString_RoundTrips(t *testing.T) {
	inputs := []string{
		"div",
		"*.a#b",
		`a[href^="http://"][data-x]`,
		`[title="it's \"quoted\""]`,
		`x\:item > y\.z`,
		"ul li > a.c",
		"html body div p span",
	}

	for _, input := range inputs {
		sel := MustParse(input)
		again, err := Parse(sel.String())
		require.NoError(t, err, "rendered %q", sel.String())
		assert.Equal(t, sel, again)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a + b") })
}
