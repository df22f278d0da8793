package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stlalpha/vision3bbs/internal/bbslog"
	"github.com/stlalpha/vision3bbs/internal/ircd"
)

func TestNodeGauges(t *testing.T) {
	r := New()
	r.SetNodesActive(5)
	r.IncNodesLifetime()
	r.IncNodesLifetime()

	body := scrape(t, r)
	if !strings.Contains(body, "bbs_nodes_active 5") {
		t.Errorf("missing bbs_nodes_active 5, body:\n%s", body)
	}
	if !strings.Contains(body, "bbs_nodes_lifetime_total 2") {
		t.Errorf("missing bbs_nodes_lifetime_total 2, body:\n%s", body)
	}
}

func TestSandboxExecsLabeled(t *testing.T) {
	r := New()
	r.IncSandboxExecs(true)
	r.IncSandboxExecs(false)
	r.IncSandboxExecs(false)

	body := scrape(t, r)
	if !strings.Contains(body, `bbs_sandbox_execs_total{isolated="true"} 1`) {
		t.Errorf("missing isolated=true sample, body:\n%s", body)
	}
	if !strings.Contains(body, `bbs_sandbox_execs_total{isolated="false"} 2`) {
		t.Errorf("missing isolated=false sample, body:\n%s", body)
	}
}

func TestSampleIRC(t *testing.T) {
	r := New()
	e := ircd.New(bbslog.Discard())
	r.SampleIRC(e)

	body := scrape(t, r)
	if !strings.Contains(body, "bbs_irc_users_active 0") {
		t.Errorf("missing bbs_irc_users_active 0, body:\n%s", body)
	}
	if !strings.Contains(body, "bbs_irc_channels_active 0") {
		t.Errorf("missing bbs_irc_channels_active 0, body:\n%s", body)
	}
}

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}
