// Package bbslog provides the structured logger used throughout the core.
//
// The teacher's own internal/logging package was a single bool-gated
// log.Printf wrapper. This generalizes that idea to structured fields
// (node, component, protocol) backed by logrus, the only structured
// logging dependency that shows up anywhere in the retrieved pack.
package bbslog

import (
	"io"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// Logger is the interface every core component logs through. Components
// never import logrus directly, so the sink (and its library) stays a
// swappable collaborator per the core/external boundary in spec.md §1.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds the default Logger, writing colorized text output to w
// (os.Stderr when w is nil) via go-colorable so ANSI codes survive a
// Windows console the way the teacher's sysop output already assumes.
func New(debug bool, w io.Writer) Logger {
	l := logrus.New()
	if w == nil {
		w = colorable.NewColorableStderr()
	}
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Discard returns a Logger that writes nowhere, for tests.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(msg string, args ...any) { l.entry.Debugf(msg, args...) }
func (l *logrusLogger) Info(msg string, args ...any)  { l.entry.Infof(msg, args...) }
func (l *logrusLogger) Warn(msg string, args ...any)  { l.entry.Warnf(msg, args...) }
func (l *logrusLogger) Error(msg string, args ...any) { l.entry.Errorf(msg, args...) }

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]any) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}
