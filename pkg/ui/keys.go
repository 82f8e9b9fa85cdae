package ui

import (
	"unicode/utf8"

	"github.com/ja7ad/spm/pkg/session"
)

// csiKeys maps the body of an ESC [ ... sequence to a key.
var csiKeys = map[string]session.KeyCode{
	"A":  session.KeyUp,
	"B":  session.KeyDown,
	"C":  session.KeyRight,
	"D":  session.KeyLeft,
	"H":  session.KeyHome,
	"F":  session.KeyEnd,
	"1~": session.KeyHome,
	"7~": session.KeyHome,
	"4~": session.KeyEnd,
	"8~": session.KeyEnd,
	"5~": session.KeyPageUp,
	"6~": session.KeyPageDown,
}

// ss3Keys covers ESC O x, sent by terminals in application cursor mode.
var ss3Keys = map[byte]session.KeyCode{
	'A': session.KeyUp,
	'B': session.KeyDown,
	'C': session.KeyRight,
	'D': session.KeyLeft,
	'H': session.KeyHome,
	'F': session.KeyEnd,
}

// Decode turns one read from a raw-mode terminal into key presses.
// Unrecognised escape sequences are dropped whole.
func Decode(b []byte) []session.Key {
	var keys []session.Key
	for len(b) > 0 {
		switch c := b[0]; {
		case c == 0x1b:
			k, n, ok := decodeEscape(b)
			if ok {
				keys = append(keys, k)
			}
			b = b[n:]
			continue
		case c == 0x03:
			keys = append(keys, session.Key{Code: session.KeyCtrlC})
		case c == '\r' || c == '\n':
			keys = append(keys, session.Key{Code: session.KeyEnter})
		case c == 0x7f || c == 0x08:
			keys = append(keys, session.Key{Code: session.KeyBackspace})
		case c < 0x20:
			// other control bytes carry no binding
		default:
			r, n := utf8.DecodeRune(b)
			if r != utf8.RuneError {
				keys = append(keys, session.Rune(r))
			}
			b = b[n:]
			continue
		}
		b = b[1:]
	}
	return keys
}

// decodeEscape returns the key at the start of b (which begins with ESC) and
// the number of bytes consumed.
func decodeEscape(b []byte) (session.Key, int, bool) {
	esc := session.Key{Code: session.KeyEsc}
	if len(b) == 1 {
		return esc, 1, true
	}
	switch b[1] {
	case '[':
		// parameters and intermediates up to a final byte in 0x40..0x7e
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				code, ok := csiKeys[string(b[2:i+1])]
				return session.Key{Code: code}, i + 1, ok
			}
		}
		return session.Key{}, len(b), false
	case 'O':
		if len(b) < 3 {
			return session.Key{}, len(b), false
		}
		code, ok := ss3Keys[b[2]]
		return session.Key{Code: code}, 3, ok
	case 0x1b:
		return esc, 1, true
	default:
		// ESC followed by a regular byte: a lone Esc, the byte is decoded next
		return esc, 1, true
	}
}
