package selector

import (
	"strings"
)

// Selector is either a *Compound or a *Combined. The set is closed.
type Selector interface {
	String() string
	selector()
}

// Simple is one of Universal, Tag, Class, ID or Attr. The set is closed.
type Simple interface {
	String() string
	simple()
}

type Combinator int

const (
	Descendant Combinator = iota
	Child
)

func (c Combinator) String() string {
	switch c {
	case Descendant:
		return "descendant"
	case Child:
		return "child"
	default:
		return "unknown"
	}
}

type AttrOp int

const (
	Exists AttrOp = iota
	Equals
	Contains
	StartsWith
	EndsWith
)

var attrOpSymbols = map[AttrOp]string{
	Equals:     "=",
	Contains:   "*=",
	StartsWith: "^=",
	EndsWith:   "$=",
}

func (op AttrOp) String() string {
	if op == Exists {
		return "exists"
	}
	return attrOpSymbols[op]
}

// Compound is a conjunction of simple selectors on the same node. A tag or
// universal selector, when present, is the first element of Simples.
type Compound struct {
	Simples []Simple
}

// Combined relates nodes matching Right to nodes matching Left. Chains are
// left-associative: "a b > c" is Combined{Combined{a, b, Descendant}, c, Child}.
type Combined struct {
	Left  Selector
	Right Selector
	Kind  Combinator
}

type Universal struct{}

type Tag struct {
	Name string
}

// Class matches when the class attribute CONTAINS Name as a substring, so
// ".x" also matches class="xylophone". This is not CSS's whitespace-token
// match.
type Class struct {
	Name string
}

type ID struct {
	Name string
}

// Attr tests attribute Name. Value is ignored for Exists.
type Attr struct {
	Name  string
	Op    AttrOp
	Value string
}

func (*Compound) selector() {}
func (*Combined) selector() {}

func (Universal) simple() {}
func (Tag) simple()       {}
func (Class) simple()     {}
func (ID) simple()        {}
func (Attr) simple()      {}

// String renders the canonical selector text, which parses back to an equal
// tree.
func (c *Compound) String() string {
	var b strings.Builder
	for _, s := range c.Simples {
		b.WriteString(s.String())
	}
	return b.String()
}

func (c *Combined) String() string {
	sep := " "
	if c.Kind == Child {
		sep = " > "
	}
	return c.Left.String() + sep + c.Right.String()
}

func (Universal) String() string { return "*" }
func (t Tag) String() string     { return escapeIdent(t.Name) }
func (c Class) String() string   { return "." + escapeIdent(c.Name) }
func (i ID) String() string      { return "#" + escapeIdent(i.Name) }

func (a Attr) String() string {
	if a.Op == Exists {
		return "[" + escapeIdent(a.Name) + "]"
	}
	value := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a.Value)
	return "[" + escapeIdent(a.Name) + a.Op.String() + `"` + value + `"]`
}

func escapeIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if !isIdentRune(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
