package html

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/recera/pinchzoom/pkg/vdom"
)

// voidElements are HTML elements that cannot have children
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// urlAttributes are checked for javascript: URLs
var urlAttributes = map[string]bool{
	"href":          true,
	"src":           true,
	"data-zoom-src": true,
}

// Renderer writes node trees as HTML. Attributes are emitted in sorted order
// so the same tree always produces the same bytes.
type Renderer struct {
	w   io.Writer
	err error
}

// NewRenderer creates a renderer writing to w
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Render writes node and its children
func (r *Renderer) Render(node *vdom.Node) error {
	if node == nil {
		return nil
	}
	r.renderNode(node, false)
	if r.err != nil {
		return fmt.Errorf("failed to render %s: %w", describe(node), r.err)
	}
	return nil
}

func describe(node *vdom.Node) string {
	if node.Kind == vdom.KindElement {
		return "<" + node.Tag + ">"
	}
	return "node"
}

// write helper that tracks errors
func (r *Renderer) write(s string) {
	if r.err != nil {
		return
	}
	_, r.err = io.WriteString(r.w, s)
}

func (r *Renderer) renderNode(node *vdom.Node, raw bool) {
	if node == nil || r.err != nil {
		return
	}

	switch node.Kind {
	case vdom.KindText:
		if raw {
			r.write(node.Text)
		} else {
			r.write(html.EscapeString(node.Text))
		}
	case vdom.KindElement:
		r.renderElement(node)
	case vdom.KindFragment:
		for i := range node.Kids {
			r.renderNode(&node.Kids[i], raw)
		}
	}
}

func (r *Renderer) renderElement(node *vdom.Node) {
	r.write("<")
	r.write(node.Tag)

	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := node.Props[key].(type) {
		case nil:
		case bool:
			if value {
				r.write(" ")
				r.write(key)
			}
		default:
			s := fmt.Sprintf("%v", value)
			if urlAttributes[key] && strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "javascript:") {
				s = "#"
			}
			r.write(" ")
			r.write(key)
			r.write(`="`)
			r.write(html.EscapeString(s))
			r.write(`"`)
		}
	}
	r.write(">")

	if voidElements[node.Tag] {
		return
	}

	// script and style content is not escaped
	raw := node.Tag == "script" || node.Tag == "style"
	for i := range node.Kids {
		r.renderNode(&node.Kids[i], raw)
	}

	r.write("</")
	r.write(node.Tag)
	r.write(">")
}

// RenderToString is a convenience function to render a node to a string
func RenderToString(node *vdom.Node) (string, error) {
	var buf strings.Builder
	if err := NewRenderer(&buf).Render(node); err != nil {
		return "", err
	}
	return buf.String(), nil
}
