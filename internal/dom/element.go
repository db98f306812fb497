package dom

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Element is an element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

// Node returns the underlying HTML node.
func (e *Element) Node() *html.Node {
	return e.node
}

// Document returns the owning document.
func (e *Element) Document() *Document {
	return e.doc
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

// ID returns the id attribute, or "".
func (e *Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// Attr returns the value of an attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets an attribute, replacing any existing value.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute. It reports whether it was present.
func (e *Element) RemoveAttr(name string) bool {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr = slices.Delete(e.node.Attr, i, i+1)
			return true
		}
	}
	return false
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

// AddClass adds name to the class list if absent.
func (e *Element) AddClass(name string) {
	classes := e.Classes()
	if slices.Contains(classes, name) {
		return
	}
	e.SetAttr("class", strings.Join(append(classes, name), " "))
}

// RemoveClass removes name from the class list if present.
func (e *Element) RemoveClass(name string) {
	classes := e.Classes()
	idx := slices.Index(classes, name)
	if idx < 0 {
		return
	}
	classes = slices.Delete(classes, idx, idx+1)
	if len(classes) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// Matches reports whether the element matches sel.
func (e *Element) Matches(sel string) bool {
	m := e.doc.matcher(sel)
	return m != nil && m.Match(e.node)
}

// Closest returns the element itself or its nearest ancestor matching sel.
func (e *Element) Closest(sel string) *Element {
	m := e.doc.matcher(sel)
	if m == nil {
		return nil
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m.Match(n) {
			return e.doc.element(n)
		}
	}
	return nil
}

// Query returns the first descendant matching sel, or nil.
func (e *Element) Query(sel string) *Element {
	return e.doc.query(e.node, sel)
}

// QueryAll returns every descendant matching sel.
func (e *Element) QueryAll(sel string) []*Element {
	return e.doc.queryAll(e.node, sel)
}

// Parent returns the parent element, or nil at the top of the tree.
func (e *Element) Parent() *Element {
	for p := e.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return e.doc.element(p)
		}
	}
	return nil
}

// Depth returns the number of element ancestors.
func (e *Element) Depth() int {
	depth := 0
	for p := e.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	return depth
}

// Text returns the concatenated text content.
func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// AddEventListener registers fn for events of type typ reaching this element.
func (e *Element) AddEventListener(typ string, fn Listener, opts ...ListenerOption) func() {
	return e.doc.addListener(e.node, typ, fn, opts)
}

// Dispatch dispatches ev with this element as target.
func (e *Element) Dispatch(ev *Event) bool {
	return e.doc.Dispatch(e, ev)
}

// Click dispatches a click event at the element.
func (e *Element) Click() {
	e.doc.Dispatch(e, NewEvent(EventClick, time.Now()))
}

// String returns a selector-like description such as "button#save.btn".
func (e *Element) String() string {
	var sb strings.Builder
	sb.WriteString(e.Tag())
	if id := e.ID(); id != "" {
		sb.WriteString("#")
		sb.WriteString(id)
	}
	for _, c := range e.Classes() {
		sb.WriteString(".")
		sb.WriteString(c)
	}
	return sb.String()
}
