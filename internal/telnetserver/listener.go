package telnetserver

import "github.com/stlalpha/vision3bbs/internal/node"

// Listener wires the telnet server to the node registry, the telnet
// analog of sshserver.Listener (spec.md component H). Grounded on
// cmd/vision3's telnet startup, generalized the same way the SSH
// listener was: one accepted connection, one node, one driver run.
type Listener struct {
	Registry *node.Registry
	Driver   *node.Driver
}

// NewListener builds a telnet Server whose session handler registers a
// node and runs the lifecycle driver.
func NewListener(registry *node.Registry, driver *node.Driver, host string, port int) (*Server, error) {
	l := &Listener{Registry: registry, Driver: driver}
	return NewServer(Config{
		Host:           host,
		Port:           port,
		SessionHandler: l.handle,
	})
}

func (l *Listener) handle(adapter *TelnetSessionAdapter) {
	n, err := l.Registry.Request(adapter, "telnet", nil)
	if err != nil {
		_, _ = adapter.Write([]byte("\r\nConnection rejected: " + err.Error() + "\r\n"))
		return
	}
	l.Driver.HandleConnection(n)
}
