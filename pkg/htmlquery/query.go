package htmlquery

import (
	"io"
	"slices"
	"strings"
)

// NodeSet is an ordered sequence of nodes. Duplicates are allowed and an empty
// set is a normal result.
type NodeSet []Node

// Texts returns the text content of every node in the set.
func (s NodeSet) Texts() []string {
	out := make([]string, len(s))
	for i, n := range s {
		out[i] = n.Text()
	}
	return out
}

// Query is an immutable step in a chain of locators. Every step returns a new
// Query; the receiver is never modified, so intermediate steps can be reused.
type Query struct {
	set NodeSet
}

// Parse parses r and starts a query at the document root.
func Parse(r io.Reader) (Query, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return Query{}, err
	}
	return FromDocument(doc), nil
}

func ParseString(s string) (Query, error) {
	return Parse(strings.NewReader(s))
}

func FromDocument(doc *Document) Query {
	root := doc.Root()
	if !root.Valid() {
		return Query{}
	}
	return Query{set: NodeSet{root}}
}

// FromNodes starts a query at an explicit collection of nodes.
func FromNodes(nodes ...Node) Query {
	return Query{set: slices.Clone(NodeSet(nodes))}
}

// Apply runs each locator in turn, every one against the output of the previous.
func (q Query) Apply(locators ...Locator) Query {
	set := q.set
	for _, l := range locators {
		set = l.apply(set)
	}
	if len(locators) == 0 {
		set = slices.Clone(set)
	}
	return Query{set: set}
}

func (q Query) ById(id string) Query {
	return q.Apply(ById{Id: id})
}

func (q Query) ByTag(name string) Query {
	return q.Apply(ByTag{Name: name})
}

func (q Query) ByClassExact(names ...string) Query {
	return q.Apply(ByClassExact{Names: names})
}

func (q Query) ByAttributePresence(names ...string) Query {
	return q.Apply(ByAttributePresence{Names: names})
}

func (q Query) ByAttributeValue(name, value string) Query {
	return q.Apply(ByAttributeValue{Name: name, Value: value})
}

func (q Query) ByAttributeValueSet(name string, values ...string) Query {
	return q.Apply(ByAttributeValueSet{Name: name, Values: values})
}

// First returns the first node of the current set.
func (q Query) First() (Node, bool) {
	if len(q.set) == 0 {
		return Node{}, false
	}
	return q.set[0], true
}

// All returns a copy of the current set.
func (q Query) All() NodeSet {
	return slices.Clone(q.set)
}

func (q Query) Len() int {
	return len(q.set)
}

func (q Query) Empty() bool {
	return len(q.set) == 0
}
