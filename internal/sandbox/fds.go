//go:build linux

package sandbox

import "golang.org/x/sys/unix"

// closeFDRanges closes every descriptor in [min,max] except those in
// exempt, in at most four contiguous ranges (spec.md §4.5 FD hygiene).
// exempt must already be sorted ascending. Uses unix.CloseRange where the
// kernel supports it (Linux 5.9+, matching original_source's
// close_range() with a syscall fallback), else closes one fd at a time.
func closeFDRanges(min, max int, exempt []int) {
	for _, r := range closeRanges(min, max, exempt) {
		closeRange(r[0], r[1])
	}
}

func closeRange(lo, hi int) {
	if lo > hi {
		return
	}
	if err := unix.CloseRange(lo, hi, 0); err == nil {
		return
	}
	for fd := lo; fd <= hi; fd++ {
		_ = unix.Close(fd)
	}
}
