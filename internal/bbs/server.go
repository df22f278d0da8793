// Package bbs holds the single server context SPEC_FULL.md §4.0 asks
// for: the node registry, the IRC engine, a hot-reloadable config
// snapshot, the logger, and the metrics registry, replacing the
// teacher's cmd/vision3/main.go package-level variable cluster
// (sessionRegistry, loadedStrings, connectionTracker, nodeCounter) with
// one struct every listener adapter and handler goroutine receives
// explicitly.
package bbs

import (
	"context"
	"fmt"
	"sync"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
	"github.com/stlalpha/vision3bbs/internal/config"
	"github.com/stlalpha/vision3bbs/internal/ircd"
	"github.com/stlalpha/vision3bbs/internal/metrics"
	"github.com/stlalpha/vision3bbs/internal/node"
	"github.com/stlalpha/vision3bbs/internal/sandbox"
	"github.com/stlalpha/vision3bbs/internal/sftpd"
	"github.com/stlalpha/vision3bbs/internal/sshauth"
)

// Server is the process-wide context. Its config field is guarded by
// its own RWMutex (teacher's cmd/vision3/config_watcher.go pattern)
// since it changes underneath live nodes on a hot reload, while every
// other field is either itself concurrency-safe (Registry, Engine,
// Metrics) or set once at startup (Log, Auth, TransferRoot).
type Server struct {
	Registry *node.Registry
	Engine   *ircd.Engine
	Ping     *ircd.PingTask
	Auth     *sshauth.Backend
	Metrics  *metrics.Registry
	Log      bbslog.Logger

	TransferRoot *sftpd.Root
	TransferCaps sftpd.Capabilities

	cfgMu sync.RWMutex
	cfg   config.Config

	loader config.Loader
}

// New wires the server context from a loaded config. Callers still need
// to build and start the protocol listeners (component H) separately.
func New(cfg config.Config, loader config.Loader, log bbslog.Logger) *Server {
	m := metrics.New()
	sandbox.SetMetricsSink(m)

	registry := node.NewRegistry(cfg.Nodes.MaxNodes, log, m)
	engine := ircd.New(log)
	ping := ircd.NewPingTask(engine)
	auth := sshauth.NewBackend(sshauth.RateLimit{MaxFailedAttempts: 5, Window: rateLimitWindow})

	root := sftpd.NewRoot(cfg.Container.RunDir)

	s := &Server{
		Registry:     registry,
		Engine:       engine,
		Ping:         ping,
		Auth:         auth,
		Metrics:      m,
		Log:          log,
		TransferRoot: root,
		TransferCaps: sftpd.AllowAll{},
		cfg:          cfg,
		loader:       loader,
	}
	return s
}

// Driver builds the node.Driver every protocol listener hands its
// accepted connections to, wired against this server's auth backend,
// registrar, and menu runner.
func (s *Server) Driver() *node.Driver {
	cfg := s.Config()
	return &node.Driver{
		Registry:   s.Registry,
		Auth:       s.Auth,
		Registrar:  s.Auth,
		Guests:     node.GuestPolicy{Allow: cfg.Guests.Allow, AskInfo: cfg.Guests.AskInfo},
		DefaultBPS: uint(cfg.Nodes.DefaultBPS),
		IdleKickMs: int64(cfg.Nodes.IdleMins) * 60000,
		Banner:     fmt.Sprintf("\r\n%s\r\n%s\r\n", cfg.BBS.Name, cfg.BBS.Tagline),
		Splash:     "",
		Goodbye:    fmt.Sprintf("\r\n%s\r\n", cfg.BBS.ExitMsg),
		Run:        s.Run,
	}
}

// Config returns a snapshot of the current configuration.
func (s *Server) Config() config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// WatchConfig starts the loader's hot-reload watch, swapping the
// server's config snapshot on every change (SPEC_FULL.md §4.0: "a
// config.Config snapshot guarded by sync.RWMutex").
func (s *Server) WatchConfig(ctx context.Context) error {
	if s.loader == nil {
		return nil
	}
	return s.loader.Watch(ctx, func(cfg config.Config) {
		s.cfgMu.Lock()
		s.cfg = cfg
		s.cfgMu.Unlock()
	})
}
