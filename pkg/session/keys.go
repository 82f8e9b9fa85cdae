package session

// KeyCode identifies a decoded key press.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyEnter
	KeyEsc
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyCtrlC
)

// Key is one key press. Rune is set only for KeyRune.
type Key struct {
	Code KeyCode
	Rune rune
}

// Rune returns the key press for a printable character.
func Rune(r rune) Key { return Key{Code: KeyRune, Rune: r} }

func (k Key) is(r rune) bool { return k.Code == KeyRune && k.Rune == r }
