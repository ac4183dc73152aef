package terminal

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/ajitpratap0/burgerdrop/internal/game"
)

// Translate maps a tcell event to game input. Only the primary button
// press inside the playfield counts as a click; drags and releases are
// ignored.
func (r *Renderer) Translate(ev tcell.Event) (game.Input, bool) {
	switch ev := ev.(type) {
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			return game.Input{}, false
		}
		sx, sy := ev.Position()
		x, y, ok := r.ToPlayfield(sx, sy)
		if !ok {
			return game.Input{}, false
		}
		return game.Input{Kind: game.InputClick, X: x, Y: y}, true

	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return game.Input{Kind: game.InputQuit}, true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return game.Input{Kind: game.InputQuit}, true
			case 'p', 'P', ' ':
				return game.Input{Kind: game.InputPause}, true
			case 'r', 'R':
				return game.Input{Kind: game.InputRestart}, true
			}
		}
	}
	return game.Input{}, false
}

// PollInput forwards translated screen events to out until ctx is done or
// the screen is finalised. It closes out on return.
func (r *Renderer) PollInput(ctx context.Context, out chan<- game.Input) {
	defer close(out)
	held := false
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventResize:
			r.screen.Sync()
			continue
		case *tcell.EventMouse:
			// one click per press
			pressed := e.Buttons()&tcell.Button1 != 0
			if pressed && held {
				continue
			}
			held = pressed
		}
		in, ok := r.Translate(ev)
		if !ok {
			continue
		}
		select {
		case out <- in:
		case <-ctx.Done():
			return
		}
	}
}
