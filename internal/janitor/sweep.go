// Package janitor implements the idle-node sweep SPEC_FULL.md §3 adds
// (Node.idleKickMs, derived from config nodes.idlemins): a background
// task that walks the registry on a fixed schedule and evicts any node
// idle past its configured threshold.
//
// Grounded on internal/ircd.PingTask, which drives its own periodic
// sweep off a *cron.Cron rather than a raw time.Ticker; this package
// reuses that exact shape against the node registry instead of the IRC
// engine's user table.
package janitor

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
	"github.com/stlalpha/vision3bbs/internal/node"
)

const sweepInterval = 30 * time.Second

// SweepTask evicts nodes idle past their IdleKickMs threshold
// (original_source/bbs/node.c's idle-eviction mechanism, spec.md §3
// "Node.idleKickMs").
type SweepTask struct {
	registry *node.Registry
	log      bbslog.Logger
	cron     *cron.Cron
}

// NewSweepTask wires a sweep onto registry.
func NewSweepTask(registry *node.Registry, log bbslog.Logger) *SweepTask {
	return &SweepTask{
		registry: registry,
		log:      log,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep at sweepInterval and begins running it.
func (s *SweepTask) Start() error {
	if _, err := s.cron.AddFunc("@every 30s", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight sweep.
func (s *SweepTask) Stop() {
	<-s.cron.Stop().Done()
}

func (s *SweepTask) sweep() {
	for _, n := range s.registry.ListActive() {
		if n.IdleKickMs <= 0 {
			continue
		}
		threshold := time.Duration(n.IdleKickMs) * time.Millisecond
		if n.Idle() < threshold {
			continue
		}
		s.log.Info("janitor: evicting node %d after %s idle", n.ID, n.Idle().Round(time.Second))
		if err := s.registry.ShutdownByID(n.ID); err != nil {
			s.log.Error("janitor: shutdown node %d: %v", n.ID, err)
		}
	}
}
