// Package logging builds the structured loggers shared by the dashboard
// commands and components.
package logging

import (
	"io"
	"os"

	log15 "github.com/inconshreveable/log15/v3"
	"github.com/mattn/go-isatty"
)

// New returns a root logger writing to stderr.
// Debug records are dropped unless debug is set.
func New(debug bool) log15.Logger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter is New with an explicit destination. Terminals get the
// colored terminal format, everything else gets logfmt.
func NewWithWriter(w io.Writer, debug bool) log15.Logger {
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}

	format := log15.LogfmtFormat()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		format = log15.TerminalFormat()
	}

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, format)))
	return logger
}

// Discard returns a logger that drops every record. Used as the default
// for components constructed without a logger.
func Discard() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger log15.Logger) log15.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
