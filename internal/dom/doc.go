// Package dom provides the document model the performance coordinator works on.
//
// A Document wraps a parsed HTML tree (golang.org/x/net/html) and adds the
// pieces of the browser object model the coordinator needs: CSS selector
// queries (via cascadia), class and attribute manipulation, and event
// listeners with capture-free bubbling dispatch and passive semantics.
//
// The model is single-threaded. A Document and its Elements must only be
// used from one goroutine, normally the event loop that also runs timers and
// observer callbacks.
package dom
