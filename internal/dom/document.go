package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document with listeners attached.
type Document struct {
	root      *html.Node
	elements  map[*html.Node]*Element
	listeners map[*html.Node]map[string][]*listener
	selectors map[string]cascadia.SelectorGroup
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return newDocument(root), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		elements:  make(map[*html.Node]*Element),
		listeners: make(map[*html.Node]map[string][]*listener),
		selectors: make(map[string]cascadia.SelectorGroup),
	}
}

// element returns the wrapper for an element node, creating it on first use.
// Wrappers are cached so the same node always yields the same *Element.
func (d *Document) element(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}

// Wrap returns the Element for a node of this document's tree.
func (d *Document) Wrap(n *html.Node) *Element {
	return d.element(n)
}

// matcher compiles and caches a selector group.
// Invalid selectors compile to nil and match nothing.
func (d *Document) matcher(sel string) cascadia.SelectorGroup {
	if m, ok := d.selectors[sel]; ok {
		return m
	}
	m, err := cascadia.ParseGroup(sel)
	if err != nil {
		m = nil
	}
	d.selectors[sel] = m
	return m
}

// ValidSelector reports whether sel parses as a selector group.
func ValidSelector(sel string) bool {
	_, err := cascadia.ParseGroup(sel)
	return err == nil
}

func (d *Document) queryAll(n *html.Node, sel string) []*Element {
	m := d.matcher(sel)
	if m == nil {
		return nil
	}
	nodes := cascadia.QueryAll(n, m)
	out := make([]*Element, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, d.element(node))
	}
	return out
}

func (d *Document) query(n *html.Node, sel string) *Element {
	m := d.matcher(sel)
	if m == nil {
		return nil
	}
	return d.element(cascadia.Query(n, m))
}

// Query returns the first element matching sel, or nil.
func (d *Document) Query(sel string) *Element {
	return d.query(d.root, sel)
}

// QueryAll returns every element matching sel in document order.
func (d *Document) QueryAll(sel string) []*Element {
	return d.queryAll(d.root, sel)
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.element(c)
		}
	}
	return nil
}

// Body returns the <body> element, or nil.
func (d *Document) Body() *Element {
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	return d.element(find(d.root))
}

// Elements returns every element under <body> in document order,
// the body itself excluded.
func (d *Document) Elements() []*Element {
	body := d.Body()
	if body == nil {
		return nil
	}
	var out []*Element
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, d.element(c))
				walk(c)
			}
		}
	}
	walk(body.node)
	return out
}

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes to it. It returns the top-level elements added.
func (d *Document) AppendHTML(parent *Element, fragment string) ([]*Element, error) {
	if parent == nil {
		return nil, fmt.Errorf("append html: nil parent")
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent.node)
	if err != nil {
		return nil, fmt.Errorf("append html: %w", err)
	}
	var added []*Element
	for _, n := range nodes {
		parent.node.AppendChild(n)
		if el := d.element(n); el != nil {
			added = append(added, el)
		}
	}
	return added, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document; errors yield an empty string.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// AddEventListener registers fn for events of type typ reaching the document.
// The returned function removes the registration; calling it twice is safe.
func (d *Document) AddEventListener(typ string, fn Listener, opts ...ListenerOption) func() {
	return d.addListener(d.root, typ, fn, opts)
}

func (d *Document) addListener(n *html.Node, typ string, fn Listener, opts []ListenerOption) func() {
	l := &listener{fn: fn}
	for _, opt := range opts {
		opt(l)
	}
	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]*listener)
		d.listeners[n] = byType
	}
	byType[typ] = append(byType[typ], l)

	return func() {
		d.removeListener(n, typ, l)
	}
}

func (d *Document) removeListener(n *html.Node, typ string, target *listener) {
	target.removed = true
	byType := d.listeners[n]
	list := byType[typ]
	for i, l := range list {
		if l == target {
			byType[typ] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(byType[typ]) == 0 {
		delete(byType, typ)
	}
	if len(byType) == 0 {
		delete(d.listeners, n)
	}
}

// ListenerCount returns the number of live registrations across the document.
func (d *Document) ListenerCount() int {
	count := 0
	for _, byType := range d.listeners {
		for _, list := range byType {
			count += len(list)
		}
	}
	return count
}

// Dispatch delivers ev to target, its ancestors, and the document, in that
// order. A nil target dispatches at the document only. Dispatch returns false
// if a non-passive listener prevented the default action.
func (d *Document) Dispatch(target *Element, ev *Event) bool {
	ev.Target = target

	var path []*html.Node
	if target != nil {
		path = append(path, target.node)
		if ev.Bubbles {
			for p := target.node.Parent; p != nil && p != d.root; p = p.Parent {
				if p.Type == html.ElementNode {
					path = append(path, p)
				}
			}
		}
	}
	if target == nil || ev.Bubbles {
		path = append(path, d.root)
	}

	for _, n := range path {
		ev.CurrentTarget = d.element(n)
		d.invoke(n, ev)
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil

	return !ev.defaultPrevented
}

func (d *Document) invoke(n *html.Node, ev *Event) {
	list := d.listeners[n][ev.Type]
	if len(list) == 0 {
		return
	}
	snapshot := make([]*listener, len(list))
	copy(snapshot, list)

	for _, l := range snapshot {
		if l.removed {
			continue
		}
		if l.once {
			d.removeListener(n, ev.Type, l)
		}
		ev.inPassive = l.passive
		l.fn(ev)
		ev.inPassive = false
	}
}
