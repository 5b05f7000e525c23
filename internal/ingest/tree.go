package ingest

import (
	"strings"

	"github.com/deidaraiorek/xmlsql/internal/storage"
)

type attr struct {
	name  string
	value string
}

// element is one arena slot. Links are arena indices, never pointers.
type element struct {
	tag      string
	parent   int
	children []int
	attrs    []attr
	text     string
	hasText  bool
}

// Tree is the arena-backed element forest built by a single scan.
type Tree struct {
	elements []element
	roots    []int
}

const noParent = -1

func (t *Tree) add(tag string, attrs []attr, parent int) int {
	idx := len(t.elements)
	t.elements = append(t.elements, element{tag: tag, parent: parent, attrs: attrs})
	if parent == noParent {
		t.roots = append(t.roots, idx)
	} else {
		t.elements[parent].children = append(t.elements[parent].children, idx)
	}
	return idx
}

// recordText keeps only the first non-blank text run of an element.
func (t *Tree) recordText(idx int, text string) {
	el := &t.elements[idx]
	if el.hasText {
		return
	}
	el.text = text
	el.hasText = true
}

// wrapRoots puts every top-level element under a new synthetic root.
func (t *Tree) wrapRoots(tag, text string) {
	roots := t.roots
	t.roots = nil
	root := t.add(tag, nil, noParent)
	t.elements[root].children = roots
	for _, child := range roots {
		t.elements[child].parent = root
	}
	if text != "" {
		t.recordText(root, text)
	}
}

// Len returns the number of elements in the tree.
func (t *Tree) Len() int {
	return len(t.elements)
}

// Flatten walks the tree in pre-order and produces store rows. Node ids are
// assigned consecutively from firstID in that order, so a parent's id is
// always smaller than its children's.
func (t *Tree) Flatten(documentID, firstID int64) ([]storage.Node, []storage.Attribute) {
	nodes := make([]storage.Node, 0, len(t.elements))
	attrs := make([]storage.Attribute, 0)

	type frame struct {
		idx      int
		parentID *int64
		depth    int
		position int
	}

	stack := make([]frame, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{idx: t.roots[i], position: i})
	}

	nextID := firstID
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		el := t.elements[f.idx]
		id := nextID
		nextID++

		node := storage.Node{
			ID:         id,
			DocumentID: documentID,
			ParentID:   f.parentID,
			TagName:    el.tag,
			Depth:      f.depth,
			Position:   f.position,
		}
		if el.hasText {
			text := el.text
			node.TextContent = &text
		}
		nodes = append(nodes, node)

		for _, a := range el.attrs {
			value := a.value
			attrs = append(attrs, storage.Attribute{NodeID: id, Name: a.name, Value: &value})
		}

		parentID := id
		for i := len(el.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{
				idx:      el.children[i],
				parentID: &parentID,
				depth:    f.depth + 1,
				position: i,
			})
		}
	}

	return nodes, attrs
}

// textRun accumulates adjacent character data between markup tokens.
type textRun struct {
	buf    strings.Builder
	offset int64
}

func (r *textRun) add(text string, offset int64) {
	if r.buf.Len() == 0 {
		r.offset = offset
	}
	r.buf.WriteString(text)
}

// take returns the trimmed run and resets it. Whitespace-only runs come back
// empty and are dropped by every caller.
func (r *textRun) take() (string, int64) {
	text := strings.TrimSpace(r.buf.String())
	r.buf.Reset()
	return text, r.offset
}
