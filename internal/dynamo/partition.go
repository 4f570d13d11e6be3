package dynamo

import "fmt"

// Partition divides [0, n) into exactly w contiguous ranges whose sizes
// differ by at most one. Boundary i is round(i*n/w), so the result is the
// same for every call with the same n and w, and part i is always meant
// for worker i. Parts are empty only when n < w.
func Partition(n, w int) ([]Range, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, w)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative trial count %d", ErrOutOfRange, n)
	}

	parts := make([]Range, w)
	lo := 0
	for i := 1; i <= w; i++ {
		// round(i*n/w) with halves rounded up, in integer arithmetic
		hi := (2*i*n + w) / (2 * w)
		parts[i-1] = Range{Lo: lo, Hi: hi}
		lo = hi
	}
	return parts, nil
}

// Chunks cuts [0, n) into consecutive ranges of size chunk, the last one
// possibly shorter.
func Chunks(n, chunk int) []Range {
	if n <= 0 {
		return nil
	}
	if chunk < 1 {
		chunk = 1
	}
	out := make([]Range, 0, (n+chunk-1)/chunk)
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		out = append(out, Range{Lo: lo, Hi: hi})
	}
	return out
}

// CheckCover reports whether parts, in order, tile [0, n) exactly.
func CheckCover(parts []Range, n int) error {
	next := 0
	for i, r := range parts {
		if r.Lo != next || r.Hi < r.Lo {
			return fmt.Errorf("%w: part %d is %s, expected start %d", ErrOverlap, i, r, next)
		}
		next = r.Hi
	}
	if next != n {
		return fmt.Errorf("%w: parts end at %d, want %d", ErrOutOfRange, next, n)
	}
	return nil
}
