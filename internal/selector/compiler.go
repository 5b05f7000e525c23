package selector

import (
	"fmt"
	"strings"
)

// NodeColumns is the column list of every compiled query.
const NodeColumns = "id, document_id, parent_id, tag_name, text_content, depth, position"

type compiler struct {
	aliases int
}

// Compile lowers a selector to one SELECT over the nodes table returning
// NodeColumns ordered by id. Each combinator level gets its own table alias;
// descendant steps are recursive CTEs over parent_id, so nesting depth is
// unbounded.
func Compile(sel Selector) string {
	c := &compiler{}
	alias := c.alias("n")
	return fmt.Sprintf("SELECT %s FROM nodes %s WHERE %s ORDER BY id", NodeColumns, alias, c.where(sel, alias))
}

// ToSQL parses and compiles selector text.
func ToSQL(input string) (string, error) {
	sel, err := Parse(input)
	if err != nil {
		return "", err
	}
	return Compile(sel), nil
}

func (c *compiler) alias(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, c.aliases)
	c.aliases++
	return name
}

// where returns a predicate over node alias that holds for nodes matching sel.
func (c *compiler) where(sel Selector, node string) string {
	switch s := sel.(type) {
	case *Compound:
		return c.compound(s, node)

	case *Combined:
		right := c.where(s.Right, node)
		left := c.ids(s.Left)
		switch s.Kind {
		case Child:
			return fmt.Sprintf("%s AND %s.parent_id IN (%s)", right, node, left)
		case Descendant:
			return fmt.Sprintf("%s AND %s.id IN (%s)", right, node, c.descendants(left))
		default:
			panic(fmt.Sprintf("selector: unknown combinator %d", s.Kind))
		}

	default:
		panic(fmt.Sprintf("selector: unknown selector %T", sel))
	}
}

// ids selects the ids of nodes matching sel.
func (c *compiler) ids(sel Selector) string {
	node := c.alias("n")
	return fmt.Sprintf("SELECT %s.id FROM nodes %s WHERE %s", node, node, c.where(sel, node))
}

// descendants selects every node strictly below any node in the ancestors
// id set. UNION (not UNION ALL) keeps the fixpoint finite.
func (c *compiler) descendants(ancestors string) string {
	cte := c.alias("d")
	child := c.alias("c")
	return fmt.Sprintf(
		"WITH RECURSIVE %[1]s(id) AS (SELECT %[2]s.id FROM nodes %[2]s WHERE %[2]s.parent_id IN (%[3]s) "+
			"UNION SELECT %[2]s.id FROM nodes %[2]s JOIN %[1]s ON %[2]s.parent_id = %[1]s.id) SELECT id FROM %[1]s",
		cte, child, ancestors,
	)
}

func (c *compiler) compound(comp *Compound, node string) string {
	if len(comp.Simples) == 0 {
		panic("selector: empty compound")
	}

	preds := make([]string, 0, len(comp.Simples))
	for _, s := range comp.Simples {
		if pred := c.simple(s, node); pred != "" {
			preds = append(preds, pred)
		}
	}
	if len(preds) == 0 {
		return "1"
	}
	return strings.Join(preds, " AND ")
}

// simple returns the predicate for one simple selector, or "" when it
// matches every node.
func (c *compiler) simple(s Simple, node string) string {
	switch s := s.(type) {
	case Universal:
		return ""
	case Tag:
		return fmt.Sprintf("%s.tag_name = %s", node, quote(s.Name))
	case Class:
		return c.attr(Attr{Name: "class", Op: Contains, Value: s.Name}, node)
	case ID:
		return c.attr(Attr{Name: "id", Op: Equals, Value: s.Name}, node)
	case Attr:
		return c.attr(s, node)
	default:
		panic(fmt.Sprintf("selector: unknown simple selector %T", s))
	}
}

// attr compiles to an EXISTS over the node's attributes, so duplicate
// attribute names match when any of them satisfies the test. Comparisons are
// case-sensitive.
func (c *compiler) attr(a Attr, node string) string {
	alias := c.alias("a")
	exists := fmt.Sprintf("SELECT 1 FROM attributes %[1]s WHERE %[1]s.node_id = %[2]s.id AND %[1]s.name = %[3]s",
		alias, node, quote(a.Name))

	value := alias + ".value"
	operand := quote(a.Value)

	var cond string
	switch a.Op {
	case Exists:
	case Equals:
		cond = fmt.Sprintf("%s = %s", value, operand)
	case Contains:
		cond = fmt.Sprintf("instr(%s, %s) > 0", value, operand)
	case StartsWith:
		cond = fmt.Sprintf("substr(%s, 1, length(%s)) = %s", value, operand, operand)
	case EndsWith:
		cond = fmt.Sprintf("length(%[1]s) >= length(%[2]s) AND substr(%[1]s, length(%[1]s) - length(%[2]s) + 1) = %[2]s",
			value, operand)
	default:
		panic(fmt.Sprintf("selector: unknown attribute operator %d", a.Op))
	}

	if cond != "" {
		exists += " AND " + cond
	}
	return "EXISTS (" + exists + ")"
}

// quote embeds s as an SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
