// Package perf implements the interaction performance coordinator for the
// admin interface.
//
// A Coordinator binds four behaviors to a document and tears them down as
// a unit:
//
//   - lazy reveal of content near the viewport (data-src → src)
//   - layout mode switching on the main container's width
//   - touch feedback and double-tap zoom suppression
//   - keyboard shortcuts for save, preview and closing the active modal
//
// Browser capabilities arrive through ports (see Ports). Every callback runs
// on the goroutine that drives those ports, so the coordinator holds no locks.
package perf
