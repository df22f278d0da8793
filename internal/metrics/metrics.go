// Package metrics implements the core's Prometheus exposition (spec.md
// §4.10 enrichment): node/channel/user gauges, a lifetime-connection
// counter, and a sandbox-exec counter labeled by isolation mode.
//
// Grounded on github.com/prometheus/client_golang (named out-of-pack:
// the pack's only importer, nabbar-golib's prometheus/metrics package,
// ships as test files only, so there's no in-pack non-test usage to
// imitate texture from; this package follows client_golang's own
// documented collector-registration idiom instead). node.Registry
// already defines the MetricsSink seam this implements
// (internal/node/registry.go); internal/sandbox/sandbox.go defines a
// matching seam for exec counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stlalpha/vision3bbs/internal/ircd"
)

// Registry owns the process's Prometheus collectors and implements both
// node.MetricsSink and sandbox.MetricsSink so one object can be handed
// to every subsystem that reports counts.
type Registry struct {
	reg *prometheus.Registry

	nodesActive   prometheus.Gauge
	nodesLifetime prometheus.Counter
	ircChannels   prometheus.Gauge
	ircUsers      prometheus.Gauge
	sandboxExecs  *prometheus.CounterVec
}

// New builds a Registry with all collectors registered against a fresh
// prometheus.Registry (not the global DefaultRegisterer, so tests can
// construct more than one without collisions).
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		nodesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bbs_nodes_active",
			Help: "Number of nodes currently occupied.",
		}),
		nodesLifetime: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bbs_nodes_lifetime_total",
			Help: "Total number of node sessions ever started.",
		}),
		ircChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bbs_irc_channels_active",
			Help: "Number of live IRC channels.",
		}),
		ircUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bbs_irc_users_active",
			Help: "Number of registered IRC users.",
		}),
		sandboxExecs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bbs_sandbox_execs_total",
			Help: "Total number of sandboxed program execs.",
		}, []string{"isolated"}),
	}

	r.reg.MustRegister(r.nodesActive, r.nodesLifetime, r.ircChannels, r.ircUsers, r.sandboxExecs)
	return r
}

// SetNodesActive implements node.MetricsSink.
func (r *Registry) SetNodesActive(n int) {
	r.nodesActive.Set(float64(n))
}

// IncNodesLifetime implements node.MetricsSink.
func (r *Registry) IncNodesLifetime() {
	r.nodesLifetime.Inc()
}

// IncSandboxExecs implements sandbox.MetricsSink.
func (r *Registry) IncSandboxExecs(isolated bool) {
	r.sandboxExecs.WithLabelValues(boolLabel(isolated)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SampleIRC copies engine's live user/channel counts into the IRC gauges.
// Joins and parts do not update the gauges; they change only when this
// is called, and no periodic task in this tree calls it.
func (r *Registry) SampleIRC(engine *ircd.Engine) {
	r.ircUsers.Set(float64(engine.UserCount()))
	r.ircChannels.Set(float64(engine.ChannelCount()))
}

// Handler returns the /metrics HTTP handler to mount alongside the
// WebSocket listener's http.Server.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
