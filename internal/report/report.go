// Package report is the single process-wide notification sink the core
// uses to surface recoverable problems (§7): one line per event, color
// coded by severity. It mirrors bam's colorize() helper and is passed
// explicitly everywhere (§9 "Global state") so tests can construct
// isolated instances instead of reaching for a package-level logger.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Severity orders report lines the way bam's CLI colorizes them: info is
// unstyled, Warn is yellow, Error is red.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

var ansiCode = map[Severity]string{
	Info:  "",
	Warn:  "\x1b[33m",
	Error: "\x1b[31m",
}

const ansiReset = "\x1b[0m"

// Sink receives one line per notable step of a long operation (pack,
// walk, remap, commit). Construct with New; the zero value is not usable.
type Sink struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	onLine func(Severity, string) // test hook, nil in production
}

// New builds a Sink writing to w. Color is enabled automatically when w is
// a terminal (checked via isatty), matching how cmd/distri gates profiling
// output on *os.File identity.
func New(w io.Writer) *Sink {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Sink{w: w, color: color}
}

// Stderr is the default sink front-ends are expected to pass down; the
// core itself never logs to it directly.
func Stderr() *Sink { return New(os.Stderr) }

func (s *Sink) line(sev Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onLine != nil {
		s.onLine(sev, msg)
	}
	if s.color && ansiCode[sev] != "" {
		fmt.Fprintf(s.w, "%s%s%s\n", ansiCode[sev], msg, ansiReset)
	} else {
		fmt.Fprintln(s.w, msg)
	}
}

func (s *Sink) Infof(format string, args ...interface{})  { s.line(Info, format, args...) }
func (s *Sink) Warnf(format string, args ...interface{})  { s.line(Warn, format, args...) }
func (s *Sink) Errorf(format string, args ...interface{}) { s.line(Error, format, args...) }

// Discard returns a Sink that drops everything, for callers (and tests)
// that don't want report output.
func Discard() *Sink { return New(io.Discard) }
