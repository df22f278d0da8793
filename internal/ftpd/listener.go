package ftpd

import (
	"github.com/goftp/server"

	"github.com/stlalpha/vision3bbs/internal/sftpd"
)

// Checker authenticates an FTP control-connection login. FTP sessions
// are not routed through the node registry the way SSH/telnet are —
// goftp/server owns its own protocol state machine end to end, so this
// is a standalone external listener (spec.md §4.0 lists FTP among the
// "external protocol listeners" that front the same transfer roots as
// the SFTP loop, not among the PTY-backed node protocols).
type Checker func(user, pass string) (bool, error)

// Auth adapts a Checker to server.Auth.
type Auth struct {
	Check Checker
}

func (a Auth) CheckPasswd(user, pass string) (bool, error) {
	if a.Check == nil {
		return false, nil
	}
	return a.Check(user, pass)
}

// Config collects the inputs needed to start an FTP listener.
type Config struct {
	Host          string
	Port          int
	PublicIP      string
	PassivePorts  string
	Name          string
	Root          *sftpd.Root
	Caps          sftpd.Capabilities
	Authenticator Checker
	TLSCertFile   string
	TLSKeyFile    string
	ExplicitTLS   bool
}

// Listen builds and returns the goftp server; call ListenAndServe on
// the result (normally from a goroutine, per the sandia-minimega
// protonuke ftpServer grounding).
func Listen(cfg Config) (*server.Server, error) {
	name := cfg.Name
	if name == "" {
		name = "vision3bbs"
	}
	factory := &Factory{Root: cfg.Root, Caps: cfg.Caps}
	opt := &server.ServerOpts{
		Factory:      factory,
		Auth:         Auth{Check: cfg.Authenticator},
		Name:         name,
		PublicIp:     cfg.PublicIP,
		PassivePorts: cfg.PassivePorts,
		Port:         cfg.Port,
		TLS:          cfg.TLSCertFile != "",
		CertFile:     cfg.TLSCertFile,
		KeyFile:      cfg.TLSKeyFile,
		ExplicitFTPS: cfg.ExplicitTLS,
	}
	return server.NewServer(opt), nil
}
