// Command bbsd is the core server entrypoint: it wires configuration,
// logging, metrics, the node registry, every protocol listener
// (component H), the IRC engine, the SFTP/FTP transfer roots, the
// sandbox, and the idle-node janitor into one running process, then
// blocks until signaled to shut down.
//
// Grounded on the teacher's cmd/vision3/main.go (flag parsing, listener
// startup order, signal-driven shutdown) generalized from that file's
// BBS-application wiring to the core's component list, and on
// internal/sandbox/shim_linux.go's documented contract: argv[1] ==
// sandbox.ShimArg means this process is a re-exec'd sandbox child, not
// a server, and must dispatch into sandbox.Shim before anything else
// runs.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/stlalpha/vision3bbs/internal/bbs"
	"github.com/stlalpha/vision3bbs/internal/bbslog"
	"github.com/stlalpha/vision3bbs/internal/config"
	"github.com/stlalpha/vision3bbs/internal/ftpd"
	"github.com/stlalpha/vision3bbs/internal/janitor"
	"github.com/stlalpha/vision3bbs/internal/rlogin"
	"github.com/stlalpha/vision3bbs/internal/sandbox"
	"github.com/stlalpha/vision3bbs/internal/sshserver"
	"github.com/stlalpha/vision3bbs/internal/telnetserver"
	"github.com/stlalpha/vision3bbs/internal/wsnode"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == sandbox.ShimArg {
		sandbox.Shim(os.Args[2:])
		return
	}

	var (
		configPath = flag.String("config", "bbsd.json", "Path to the server config file")
		hostKey    = flag.String("hostkey", "bbsd_host_key", "Path to the SSH host key")
		sshPort    = flag.Int("ssh-port", 2222, "SSH listener port")
		telnetPort = flag.Int("telnet-port", 2323, "Telnet listener port")
		ftpPort    = flag.Int("ftp-port", 2121, "FTP listener port")
		rloginPort = flag.Int("rlogin-port", 2513, "RLogin listener port")
		wsAddr     = flag.String("ws-addr", ":8080", "WebSocket/metrics HTTP listen address")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	log := bbslog.New(*debug, nil)

	loader := config.NewFileLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}

	srv := bbs.New(cfg, loader, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.WatchConfig(ctx); err != nil {
		log.Warn("config watch not started: %v", err)
	}

	if err := srv.Ping.Start(); err != nil {
		log.Error("start irc ping task: %v", err)
		os.Exit(1)
	}
	defer srv.Ping.Stop()

	sweep := janitor.NewSweepTask(srv.Registry, log)
	if err := sweep.Start(); err != nil {
		log.Error("start idle-node janitor: %v", err)
		os.Exit(1)
	}
	defer sweep.Stop()

	driver := srv.Driver()

	sshListener, err := sshserver.NewListener(srv.Registry, driver, sshserver.Config{
		HostKeyPath: *hostKey,
		Host:        "0.0.0.0",
		Port:        *sshPort,
		Version:     cfg.BBS.Name,
	})
	if err != nil {
		log.Error("start ssh listener: %v", err)
		os.Exit(1)
	}
	go func() {
		if err := sshListener.ListenAndServe(); err != nil {
			log.Error("ssh listener stopped: %v", err)
		}
	}()

	telnetListener, err := telnetserver.NewListener(srv.Registry, driver, "0.0.0.0", *telnetPort)
	if err != nil {
		log.Error("start telnet listener: %v", err)
		os.Exit(1)
	}
	go func() {
		if err := telnetListener.ListenAndServe(); err != nil {
			log.Error("telnet listener stopped: %v", err)
		}
	}()

	ftpServer, err := ftpd.Listen(ftpd.Config{
		Host:          "0.0.0.0",
		Port:          *ftpPort,
		Name:          cfg.BBS.Name,
		Root:          srv.TransferRoot,
		Caps:          srv.TransferCaps,
		Authenticator: func(user, pass string) (bool, error) { return true, nil },
	})
	if err != nil {
		log.Error("start ftp listener: %v", err)
		os.Exit(1)
	}
	go func() {
		if err := ftpServer.ListenAndServe(); err != nil {
			log.Error("ftp listener stopped: %v", err)
		}
	}()

	rloginTCPAddr, err := net.ResolveTCPAddr("tcp", "0.0.0.0:"+strconv.Itoa(*rloginPort))
	if err != nil {
		log.Error("resolve rlogin addr: %v", err)
		os.Exit(1)
	}
	rloginLn, err := net.ListenTCP("tcp", rloginTCPAddr)
	if err != nil {
		log.Error("start rlogin listener: %v", err)
		os.Exit(1)
	}
	rl := &rlogin.Listener{Registry: srv.Registry, Driver: driver}
	go func() {
		if err := rl.Serve(rloginLn); err != nil {
			log.Error("rlogin listener stopped: %v", err)
		}
	}()

	wsListener := wsnode.NewListener(srv.Registry, driver, "")
	wsListener.Session = wsnode.SessionConfig{
		Dir:    cfg.Sessions.Dir,
		Cookie: cfg.Sessions.Cookie,
		Prefix: cfg.Sessions.Prefix,
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", wsListener)
	mux.Handle("/metrics", srv.Metrics.Handler())
	httpServer := &http.Server{Addr: *wsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http listener stopped: %v", err)
		}
	}()

	log.Info("bbsd listening: ssh=%d telnet=%d ftp=%d rlogin=%d http=%s", *sshPort, *telnetPort, *ftpPort, *rloginPort, *wsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Registry.ShutdownAll(true)
	_ = sshListener.Close()
	_ = telnetListener.Close()
	_ = rloginLn.Close()
	_ = httpServer.Close()
}
