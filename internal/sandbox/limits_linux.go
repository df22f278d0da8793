//go:build linux

package sandbox

import "syscall"

// applyLimits sets the container's resource ceilings (spec.md §4.5 step
// 1), mirroring original_source/bbs/system.c's set_limits/set_limit:
// soft and hard caps are both lowered to the configured value, never
// raised. A memory or CPU value of zero or less leaves that limit
// untouched; MinNice is applied whenever it is non-zero, negative
// values included.
func applyLimits(l Limits) error {
	if l.MaxMemoryMiB > 0 {
		if err := setLimit(syscall.RLIMIT_AS, l.MaxMemoryMiB*1024*1024); err != nil {
			return err
		}
	}
	if l.MaxCPUSec > 0 {
		if err := setLimit(syscall.RLIMIT_CPU, l.MaxCPUSec); err != nil {
			return err
		}
	}
	if l.MinNice != 0 {
		// Ceiling = 20 - value, matching the C implementation's comment.
		if err := setLimit(RlimitNice, 20-l.MinNice); err != nil {
			return err
		}
	}
	return nil
}

func setLimit(resource int, value int) error {
	var rl syscall.Rlimit
	if err := syscall.Getrlimit(resource, &rl); err != nil {
		return err
	}
	v := uint64(value)
	if rl.Cur > v {
		rl.Cur = v
	}
	if rl.Max > v {
		rl.Max = v
	}
	return syscall.Setrlimit(resource, &rl)
}

// RlimitNice isn't exported as a syscall.RLIMIT_* constant; its numeric
// value is fixed by the Linux ABI (resource.h: RLIMIT_NICE == 13).
const RlimitNice = 13
