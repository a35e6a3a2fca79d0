// Package htmlquery runs a fixed set of structural filters over parsed HTML.
//
// A Document owns its parse tree in an arena: every node sits at an index in a
// pre-order slice, and the index one past the end of its subtree is stored next
// to it. Node values are handles into that arena, so the descendants of a node
// are a contiguous index range.
package htmlquery

import (
	"io"
	"strings"

	"clawredeem/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type Document struct {
	nodes []*html.Node
	end   []int
}

// ParseDocument parses an HTML document from r.
func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(doc.Nodes[0]), nil
}

// NewDocument flattens the tree rooted at root into a Document.
func NewDocument(root *html.Node) *Document {
	d := &Document{}
	if root != nil {
		d.flatten(root)
	}
	return d
}

func (d *Document) flatten(n *html.Node) {
	id := len(d.nodes)
	d.nodes = append(d.nodes, n)
	d.end = append(d.end, 0)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		d.flatten(child)
	}
	d.end[id] = len(d.nodes)
}

// Root returns the document node, or an invalid Node for an empty Document.
func (d *Document) Root() Node {
	if len(d.nodes) == 0 {
		return Node{}
	}
	return Node{doc: d, id: 0}
}

// Len is the number of nodes in the arena, text and comment nodes included.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node is a handle to one node of a Document.
type Node struct {
	doc *Document
	id  int
}

func (n Node) Valid() bool {
	return n.doc != nil && n.id >= 0 && n.id < len(n.doc.nodes)
}

// Id is the node's position in its document, in pre-order.
func (n Node) Id() int {
	return n.id
}

func (n Node) raw() *html.Node {
	if !n.Valid() {
		return nil
	}
	return n.doc.nodes[n.id]
}

// HTML exposes the underlying parse node.
func (n Node) HTML() *html.Node {
	return n.raw()
}

func (n Node) IsElement() bool {
	raw := n.raw()
	return raw != nil && raw.Type == html.ElementNode
}

// Tag is the lowercase element name, or "" for anything that is not an element.
func (n Node) Tag() string {
	if !n.IsElement() {
		return ""
	}
	return n.raw().Data
}

func (n Node) Attr(name string) (string, bool) {
	return htmlutil.GetAttr(n.raw(), strings.ToLower(name))
}

func (n Node) AttrOr(name, fallback string) string {
	value, ok := n.Attr(name)
	if !ok {
		return fallback
	}
	return value
}

// Text is the concatenated text content of the node and its descendants.
func (n Node) Text() string {
	return htmlutil.GetText(n.raw())
}

// InnerHTML renders the node's children back to HTML.
func (n Node) InnerHTML() (string, error) {
	raw := n.raw()
	if raw == nil {
		return "", nil
	}
	return goquery.NewDocumentFromNode(raw).Html()
}

// descendants calls fn for every element strictly below n, in document order.
func (n Node) descendants(fn func(Node)) {
	if !n.Valid() {
		return
	}
	for id := n.id + 1; id < n.doc.end[n.id]; id++ {
		if n.doc.nodes[id].Type != html.ElementNode {
			continue
		}
		fn(Node{doc: n.doc, id: id})
	}
}
