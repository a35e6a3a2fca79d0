package htmlquery

import (
	"fmt"
	"strings"
)

// Locator is one filter step. The set of locators is closed: ById, ByTag,
// ByClassExact, ByAttributePresence, ByAttributeValue and ByAttributeValueSet.
type Locator interface {
	apply(set NodeSet) NodeSet
	String() string
}

// collect runs match against the descendants of every node in set and
// concatenates the matches, keeping duplicates and held-node order.
func collect(set NodeSet, match func(Node) bool) NodeSet {
	out := NodeSet{}
	for _, n := range set {
		n.descendants(func(d Node) {
			if match(d) {
				out = append(out, d)
			}
		})
	}
	return out
}

func attrEquals(name, value string) func(Node) bool {
	return func(n Node) bool {
		v, ok := n.Attr(name)
		return ok && v == value
	}
}

// ById matches elements whose id attribute equals Id.
type ById struct {
	Id string
}

func (l ById) apply(set NodeSet) NodeSet {
	return collect(set, attrEquals("id", l.Id))
}

func (l ById) String() string {
	return fmt.Sprintf("#%s", l.Id)
}

// ByTag matches elements by name, case-insensitively.
type ByTag struct {
	Name string
}

func (l ByTag) apply(set NodeSet) NodeSet {
	name := strings.ToLower(l.Name)
	return collect(set, func(n Node) bool {
		return n.Tag() == name
	})
}

func (l ByTag) String() string {
	return l.Name
}

// ByClassExact joins Names with single spaces and matches elements whose class
// attribute is exactly that string. It does not match class sets in any other
// order or with extra classes: `ByClassExact{"a", "b"}` matches class="a b"
// and nothing else. No names matches nothing.
type ByClassExact struct {
	Names []string
}

func (l ByClassExact) apply(set NodeSet) NodeSet {
	if len(l.Names) == 0 {
		return NodeSet{}
	}
	return collect(set, attrEquals("class", strings.Join(l.Names, " ")))
}

func (l ByClassExact) String() string {
	return fmt.Sprintf("[class='%s']", strings.Join(l.Names, " "))
}

// ByAttributePresence matches elements carrying every one of Names,
// whatever their values. No names matches nothing.
type ByAttributePresence struct {
	Names []string
}

func (l ByAttributePresence) apply(set NodeSet) NodeSet {
	if len(l.Names) == 0 {
		return NodeSet{}
	}
	return collect(set, func(n Node) bool {
		for _, name := range l.Names {
			if _, ok := n.Attr(name); !ok {
				return false
			}
		}
		return true
	})
}

func (l ByAttributePresence) String() string {
	parts := make([]string, len(l.Names))
	for i, name := range l.Names {
		parts[i] = fmt.Sprintf("[%s]", name)
	}
	return strings.Join(parts, "")
}

// ByAttributeValue matches elements whose attribute Name equals Value exactly.
type ByAttributeValue struct {
	Name  string
	Value string
}

func (l ByAttributeValue) apply(set NodeSet) NodeSet {
	return collect(set, attrEquals(l.Name, l.Value))
}

func (l ByAttributeValue) String() string {
	return fmt.Sprintf("[%s='%s']", l.Name, l.Value)
}

// ByAttributeValueSet runs ByAttributeValue once per value and concatenates
// the results, so matches are grouped by value in the order Values lists them.
type ByAttributeValueSet struct {
	Name   string
	Values []string
}

func (l ByAttributeValueSet) apply(set NodeSet) NodeSet {
	out := NodeSet{}
	for _, value := range l.Values {
		out = append(out, collect(set, attrEquals(l.Name, value))...)
	}
	return out
}

func (l ByAttributeValueSet) String() string {
	return fmt.Sprintf("[%s in ('%s')]", l.Name, strings.Join(l.Values, "', '"))
}
