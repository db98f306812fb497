package observe

import "github.com/dshills/adminperf/internal/dom"

// Row is one line of an Outline.
type Row struct {
	Element *dom.Element
	Index   int
	Indent  int
}

// Outline lays a document out as an indented list, one element per row,
// and tracks a scrollable viewport over it. Positions are reported in
// pixels using a fixed cell size, so breakpoints and margins written for
// a browser keep their meaning on a character grid.
//
// An element's box spans its own row and the rows of all its descendants.
// Each indent level moves the box right by IndentCells columns.
type Outline struct {
	doc *dom.Document

	CellWidth   float64
	CellHeight  float64
	IndentCells int

	cols, rows int
	scroll     int

	list  []Row
	index map[*dom.Element]int
	last  map[*dom.Element]int
}

// NewOutline creates an Outline over doc with an 8x16 pixel cell and
// computes the initial layout.
func NewOutline(doc *dom.Document, cols, rows int) *Outline {
	o := &Outline{
		doc:         doc,
		CellWidth:   8,
		CellHeight:  16,
		IndentCells: 2,
		cols:        cols,
		rows:        rows,
	}
	o.Relayout()
	return o
}

// Relayout recomputes rows after the document changes.
func (o *Outline) Relayout() {
	o.list = o.list[:0]
	o.index = make(map[*dom.Element]int)
	o.last = make(map[*dom.Element]int)

	body := o.doc.Body()
	base := 0
	if body != nil {
		base = body.Depth() + 1
	}
	for i, el := range o.doc.Elements() {
		o.list = append(o.list, Row{Element: el, Index: i, Indent: el.Depth() - base})
		o.index[el] = i
		o.last[el] = i
		for p := el.Parent(); p != nil; p = p.Parent() {
			if _, ok := o.index[p]; !ok {
				break
			}
			o.last[p] = i
		}
	}
	o.clampScroll()
}

// Resize sets the viewport size in cells.
func (o *Outline) Resize(cols, rows int) {
	o.cols, o.rows = max(cols, 0), max(rows, 0)
	o.clampScroll()
}

// Size returns the viewport size in cells.
func (o *Outline) Size() (cols, rows int) {
	return o.cols, o.rows
}

// ScrollTo moves the first visible row to top, clamped to the content.
// It reports whether the position changed.
func (o *Outline) ScrollTo(top int) bool {
	prev := o.scroll
	o.scroll = top
	o.clampScroll()
	return o.scroll != prev
}

// ScrollBy moves the viewport by delta rows.
func (o *Outline) ScrollBy(delta int) bool {
	return o.ScrollTo(o.scroll + delta)
}

// Scroll returns the index of the first visible row.
func (o *Outline) Scroll() int {
	return o.scroll
}

func (o *Outline) clampScroll() {
	limit := max(len(o.list)-o.rows, 0)
	o.scroll = min(max(o.scroll, 0), limit)
}

// Rows returns every row in document order.
func (o *Outline) Rows() []Row {
	return o.list
}

// Visible returns the rows inside the viewport.
func (o *Outline) Visible() []Row {
	end := min(o.scroll+o.rows, len(o.list))
	if o.scroll >= end {
		return nil
	}
	return o.list[o.scroll:end]
}

// ElementAt returns the element drawn at screen row y, or nil.
func (o *Outline) ElementAt(y int) *dom.Element {
	i := o.scroll + y
	if y < 0 || y >= o.rows || i >= len(o.list) {
		return nil
	}
	return o.list[i].Element
}

// Viewport implements Geometry.
func (o *Outline) Viewport() Rect {
	return Rect{
		X:      0,
		Y:      float64(o.scroll) * o.CellHeight,
		Width:  float64(o.cols) * o.CellWidth,
		Height: float64(o.rows) * o.CellHeight,
	}
}

// Bounds implements Geometry.
func (o *Outline) Bounds(el *dom.Element) (Rect, bool) {
	first, ok := o.index[el]
	if !ok {
		return Rect{}, false
	}
	indent := float64(o.list[first].Indent*o.IndentCells) * o.CellWidth
	return Rect{
		X:      indent,
		Y:      float64(first) * o.CellHeight,
		Width:  max(float64(o.cols)*o.CellWidth-indent, 0),
		Height: float64(o.last[el]-first+1) * o.CellHeight,
	}, true
}

var _ Geometry = (*Outline)(nil)
