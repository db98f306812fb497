// Package observe defines the visibility and size observer ports and an
// in-process implementation of each.
//
// The ports mirror the callback style of the browser observers: a caller
// creates an observer with a callback, registers elements, and receives
// batches of entries when state changes. Intersector and Resizer compute
// those entries from a Geometry, so any host that can report a viewport and
// element bounds gets working observers.
package observe
