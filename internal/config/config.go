// Package config implements the ambient configuration loader (spec.md
// §6's "Config loader" contract and bbs/nodes/guests/container table).
// Grounded on the teacher's internal/config/config.go (JSON-backed
// structs, encoding/json, no third-party decoder) for the file format,
// and on cmd/vision3/config_watcher.go for the fsnotify hot-reload
// shape, generalized from that file's many menu/theme/door reload
// branches down to the single Config struct the core actually
// consumes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// BBS holds the presentation fields spec.md §6 lists under the "bbs"
// config section.
type BBS struct {
	Name               string `json:"name"`
	Tagline            string `json:"tagline"`
	Hostname           string `json:"hostname"`
	Sysop              string `json:"sysop"`
	ExitMsg            string `json:"exitmsg"`
	MinUptimeDisplayed int    `json:"minuptimedisplayed"`
}

// Nodes holds the node-policy fields spec.md §6 lists under "nodes".
type Nodes struct {
	MaxNodes   int `json:"maxnodes"`
	DefaultBPS int `json:"defaultbps"`
	IdleMins   int `json:"idlemins"`
}

// Guests holds the guest-policy fields spec.md §6 lists under "guests".
type Guests struct {
	Allow   bool `json:"allow"`
	AskInfo bool `json:"askinfo"`
}

// Container holds the sandbox-policy fields spec.md §6 lists under
// "container".
type Container struct {
	TemplateDir string `json:"templatedir"`
	RunDir      string `json:"rundir"`
	Hostname    string `json:"hostname"`
	MaxMemoryMB int    `json:"maxmemory"`
	MaxCPUSecs  int    `json:"maxcpu"`
	MinNice     int    `json:"minnice"`
}

// Sessions names the companion PHP web front end's session storage,
// matching net_ws.c's "sessions" config section (phpsessdir/phpsessname/
// phpsessprefix). Empty Dir/Cookie disables the lookup entirely.
type Sessions struct {
	Dir    string `json:"phpsessdir"`
	Cookie string `json:"phpsessname"`
	Prefix string `json:"phpsessprefix"`
}

// Config is the tagged key/value store spec.md §6's Config loader
// contract returns, narrowed to the sections the core consumes.
type Config struct {
	BBS       BBS       `json:"bbs"`
	Nodes     Nodes     `json:"nodes"`
	Guests    Guests    `json:"guests"`
	Container Container `json:"container"`
	Sessions  Sessions  `json:"sessions"`
}

// Default returns the documented defaults (spec.md §6: maxnodes 64,
// defaultbps 0 = unthrottled, idlemins 0 = disabled, guests allow/
// askinfo both default yes).
func Default() Config {
	return Config{
		Nodes: Nodes{
			MaxNodes:   64,
			DefaultBPS: 0,
			IdleMins:   0,
		},
		Guests: Guests{
			Allow:   true,
			AskInfo: true,
		},
		Container: Container{
			RunDir:  "./data/transfer",
			MinNice: 0,
		},
	}
}

// Loader is the external collaborator spec.md §6 names for
// configuration. Load reads the current configuration; Watch invokes
// onChange whenever the backing store changes, until ctx is canceled.
type Loader interface {
	Load() (Config, error)
	Watch(ctx context.Context, onChange func(Config)) error
}

// FileLoader is the default/reference Loader: a single JSON file,
// mirroring the teacher's LoadServerConfig/ConfigWatcher approach
// exactly, just narrowed to one struct instead of many.
type FileLoader struct {
	Path string

	mu          sync.Mutex
	debounce    time.Duration
}

// NewFileLoader returns a FileLoader reading/watching path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path, debounce: 500 * time.Millisecond}
}

func (l *FileLoader) Load() (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", l.Path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", l.Path, err)
	}
	return cfg, nil
}

// Save writes cfg to Path as indented JSON, for a sysop-facing "save
// config" action.
func (l *FileLoader) Save(cfg Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory: %w", err)
	}
	return os.WriteFile(l.Path, data, 0o644)
}

// Watch follows cmd/vision3/config_watcher.go's debounced-reload shape:
// a fsnotify watch on the config file's directory, coalescing bursts of
// Write/Create events behind a timer before re-reading and invoking
// onChange.
func (l *FileLoader) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}

	dir := filepath.Dir(l.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	go l.watchLoop(ctx, watcher, onChange)
	return nil
}

func (l *FileLoader) watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func(Config)) {
	defer w.Close()

	target := filepath.Base(l.Path)
	var debounceTimer *time.Timer

	reload := func() {
		cfg, err := l.Load()
		if err != nil {
			return
		}
		onChange(cfg)
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(l.debounce, reload)
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
