package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/adminperf/internal/dom"
	"github.com/dshills/adminperf/internal/loop"
	"github.com/dshills/adminperf/internal/schedule"
)

// Run initialises screen, hosts doc on a fresh event loop and blocks until
// the user quits or ctx is cancelled. The screen is finalised on return.
func Run(ctx context.Context, screen tcell.Screen, doc *dom.Document, prefetcher schedule.Prefetcher, opts Options) error {
	if screen == nil {
		return ErrNoScreen
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialising screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	lp := loop.New(loop.Options{Logger: opts.Logger})
	ports := Ports{Timers: lp, Frames: lp, Clock: lp, Prefetcher: prefetcher}

	var console *Console
	var startErr error
	lp.Post(func() {
		console, startErr = New(screen, doc, ports, opts)
		if startErr != nil {
			lp.Stop()
			return
		}
		console.OnQuit(lp.Stop)
	})

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			if !lp.Post(func() {
				if console != nil {
					console.HandleEvent(ev)
				}
			}) {
				return
			}
		}
	}()

	err := lp.Run(ctx)
	if console != nil {
		console.Close()
	}
	if startErr != nil {
		return startErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
