package util

// DeltaU64 returns now-prev for a monotonic counter, or 0 when the counter
// went backwards (reset, wrap, or a reused PID).
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return 0
}

// SafeDiv returns n/d, or 0 when d is zero or too small to divide by.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}
