package replay

import "time"

// Speed is one step of the playback ladder.
type Speed int

const (
	Half Speed = iota
	Normal
	Double
	Fast
	VeryFast
)

// Interval is the wall time between two frames at this speed.
func (s Speed) Interval() time.Duration {
	switch s {
	case Half:
		return 2000 * time.Millisecond
	case Double:
		return 500 * time.Millisecond
	case Fast:
		return 200 * time.Millisecond
	case VeryFast:
		return 100 * time.Millisecond
	default:
		return 1000 * time.Millisecond
	}
}

func (s Speed) String() string {
	switch s {
	case Half:
		return "0.5x"
	case Double:
		return "2x"
	case Fast:
		return "5x"
	case VeryFast:
		return "10x"
	default:
		return "1x"
	}
}

// Faster saturates at VeryFast.
func (s Speed) Faster() Speed {
	if s >= VeryFast {
		return VeryFast
	}
	return s + 1
}

// Slower saturates at Half.
func (s Speed) Slower() Speed {
	if s <= Half {
		return Half
	}
	return s - 1
}
