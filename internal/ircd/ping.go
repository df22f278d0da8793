package ircd

import (
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

const pingInterval = 2 * time.Minute

// PingTask wakes every pingInterval and closes any connection whose
// last pong predates the interval, otherwise sends a fresh PING
// (spec.md §4.6 "Ping/Pong"). Grounded on the teacher's
// internal/scheduler.Scheduler, which drives periodic work off a
// *cron.Cron rather than a raw time.Ticker.
type PingTask struct {
	engine *Engine
	cron   *cron.Cron
	entry  cron.EntryID
}

// NewPingTask wires a ping sweep onto the engine's own user table.
func NewPingTask(e *Engine) *PingTask {
	return &PingTask{
		engine: e,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep at pingInterval and begins running it.
func (p *PingTask) Start() error {
	id, err := p.cron.AddFunc("@every 2m", p.sweep)
	if err != nil {
		return err
	}
	p.entry = id
	p.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight sweep.
func (p *PingTask) Stop() {
	<-p.cron.Stop().Done()
}

func (p *PingTask) sweep() {
	now := time.Now()
	p.engine.usersMu.RLock()
	users := make([]*User, 0, len(p.engine.users))
	for _, u := range p.engine.users {
		users = append(users, u)
	}
	p.engine.usersMu.RUnlock()

	for _, u := range users {
		u.mu.Lock()
		lastPong := u.LastPongReceived
		u.mu.Unlock()

		if lastPong.Before(now.Add(-pingInterval)) {
			_ = u.Write("ERROR :Closing Link: ping timeout")
			p.engine.Quit(u, "Ping timeout")
			continue
		}

		_ = u.Writef("PING :%s", strconv.FormatInt(now.Unix(), 10))
		u.mu.Lock()
		u.LastPingSent = now
		u.mu.Unlock()
	}
}

// Pong records a client's PONG reply (spec.md §4.6: "The client's PONG
// updates last_pong").
func (p *PingTask) Pong(u *User) {
	u.mu.Lock()
	u.LastPongReceived = time.Now()
	u.mu.Unlock()
}
