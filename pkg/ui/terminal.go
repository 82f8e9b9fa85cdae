//go:build linux

package ui

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/ja7ad/spm/pkg/session"
)

const (
	altScreenOn  = "\033[?1049h"
	altScreenOff = "\033[?1049l"
	cursorHide   = "\033[?25l"
	cursorShow   = "\033[?25h"

	fallbackWidth  = 120
	fallbackHeight = 40
)

var ErrNotTerminal = errors.New("ui: stdin and stdout must be a terminal")

// Terminal owns the controlling tty while the dashboard runs.
type Terminal struct {
	in    *os.File
	out   *os.File
	state *term.State
	keys  chan session.Key
}

// Open switches the terminal to raw mode on the alternate screen and starts
// decoding stdin. Close must be called to restore it.
func Open(in, out *os.File) (*Terminal, error) {
	if !term.IsTerminal(int(in.Fd())) || !term.IsTerminal(int(out.Fd())) {
		return nil, ErrNotTerminal
	}
	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("ui: raw mode: %w", err)
	}
	fmt.Fprint(out, altScreenOn+cursorHide)

	t := &Terminal{in: in, out: out, state: state, keys: make(chan session.Key, 64)}
	go t.readKeys()
	return t, nil
}

// Keys delivers decoded key presses. It is closed when stdin hits EOF.
func (t *Terminal) Keys() <-chan session.Key { return t.keys }

func (t *Terminal) readKeys() {
	defer close(t.keys)
	buf := make([]byte, 256)
	for {
		n, err := t.in.Read(buf)
		for _, k := range Decode(buf[:n]) {
			t.keys <- k
		}
		if err != nil {
			return
		}
	}
}

// Size reports the window size, falling back to 120x40.
func (t *Terminal) Size() Size {
	w, h, err := term.GetSize(int(t.out.Fd()))
	if err != nil || w <= 0 || h <= 0 {
		return Size{Width: fallbackWidth, Height: fallbackHeight}
	}
	return Size{Width: w, Height: h}
}

// Draw renders one frame of c.
func (t *Terminal) Draw(c *session.Controller) error {
	return Render(t.out, c, t.Size())
}

// Close restores the cursor, the main screen and the saved tty state.
func (t *Terminal) Close() error {
	fmt.Fprint(t.out, cursorShow+altScreenOff)
	return term.Restore(int(t.in.Fd()), t.state)
}
