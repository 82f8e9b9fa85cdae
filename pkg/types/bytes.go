package types

import "fmt"

// MiB is the divisor used for every MB figure shown by spm (1024-based).
const MiB = 1024 * 1024

// Bytes is a uint64 wrapper representing a size in bytes.
type Bytes uint64

// Humanized returns a compact string with an automatic unit, e.g. "12.3M".
// Column widths in the process table depend on this staying short.
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.1fT", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.1fG", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1fM", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1fK", v/(1<<10))
	default:
		return fmt.Sprintf("%dB", b)
	}
}

// MB returns the number of megabytes (1024 base).
func (b Bytes) MB() float64 { return float64(b) / MiB }

// RateMB formats an optional MB/s or MB/min figure; nil renders as "-".
func RateMB(v *float64, unit string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%s", *v, unit)
}
