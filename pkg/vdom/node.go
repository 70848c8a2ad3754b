// Package vdom holds the minimal node tree used to describe server rendered
// markup for zoomable images.
package vdom

// Kind represents the type of a node
type Kind uint8

const (
	// KindElement is an HTML element
	KindElement Kind = iota
	// KindText is an escaped text node
	KindText
	// KindFragment groups children without a wrapping element
	KindFragment
)

// Props are the attributes of an element node.
// Values are rendered with their default formatting; bool values mark
// boolean attributes.
type Props map[string]any

// Node is a node of the markup tree. Nodes are treated as immutable once built.
type Node struct {
	Kind  Kind
	Tag   string
	Props Props
	Kids  []Node
	Text  string
}

// Element creates an element node, skipping nil children
func Element(tag string, props Props, children ...*Node) *Node {
	return &Node{
		Kind:  KindElement,
		Tag:   tag,
		Props: props,
		Kids:  collect(children),
	}
}

// Text creates a text node
func Text(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// Fragment creates a fragment node
func Fragment(children ...*Node) *Node {
	return &Node{Kind: KindFragment, Kids: collect(children)}
}

func collect(children []*Node) []Node {
	kids := make([]Node, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	return kids
}

// Attr returns the string value of an attribute, or "" when it is missing or
// not a string.
func (n Node) Attr(name string) string {
	if n.Props == nil {
		return ""
	}
	s, _ := n.Props[name].(string)
	return s
}

// Find returns the first element in document order with the given tag
func (n *Node) Find(tag string) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == KindElement && n.Tag == tag {
		return n
	}
	for i := range n.Kids {
		if found := n.Kids[i].Find(tag); found != nil {
			return found
		}
	}
	return nil
}
