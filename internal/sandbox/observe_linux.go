//go:build linux

package sandbox

import (
	"fmt"

	proc "github.com/c9s/goprocinfo/linux"
)

func procStatPath(pid int) string {
	return fmt.Sprintf("/proc/%d/stat", pid)
}

// Stats is a point-in-time CPU/memory snapshot of a sandboxed child, as
// read by ReadStats. Nothing in this tree calls ReadStats, and
// internal/metrics exports no sandbox stats gauges. Grounded on
// sandia-minimega-minimega's src/minimega/proc.go, the only repo in the
// pack that reads process accounting through c9s/goprocinfo rather than
// hand-parsing /proc itself.
type Stats struct {
	UtimeTicks, StimeTicks uint64
	VSizeBytes             uint64
	RSSPages               int64
}

// ReadStats reads /proc/<pid>/stat for a running child. Returns an error
// once the child has exited and its /proc entry is gone.
func ReadStats(pid int) (Stats, error) {
	st, err := proc.ReadProcessStat(procStatPath(pid))
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		UtimeTicks: st.Utime,
		StimeTicks: st.Stime,
		VSizeBytes: st.Vsize,
		RSSPages:   st.Rss,
	}, nil
}
