// Package diag collects parse diagnostics: severity, source position and a
// message rendered from a message catalog.
package diag

import (
	"fmt"

	"github.com/yuanying/epubparse/internal/xmlpos"
)

// Severity of a diagnostic.
type Severity int

const (
	// SeverityError diagnostics mean the document should be rejected.
	SeverityError Severity = iota
	// SeverityWarning diagnostics do not reject the document.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Error is a single diagnostic. ID is empty for diagnostics that wrap an
// underlying failure (Cause) rather than a catalog message.
type Error struct {
	Severity Severity
	Position xmlpos.Position
	ID       MessageID
	Message  string
	Cause    error
}

// Show renders the diagnostic as "severity: source:line:column: message".
func (e Error) Show() string {
	source := e.Position.Source
	if source == "" {
		source = "urn:unspecified"
	}
	return fmt.Sprintf("%s: %s:%d:%d: %s", e.Severity, source, e.Position.Line, e.Position.Column, e.Message)
}

// Sink receives diagnostics in the order they are produced.
type Sink func(Error)

// Collector accumulates diagnostics. It is not safe for concurrent use.
type Collector struct {
	errs []Error
}

// Add appends e.
func (c *Collector) Add(e Error) {
	c.errs = append(c.errs, e)
}

// Errors returns a copy of the collected diagnostics.
func (c *Collector) Errors() []Error {
	out := make([]Error, len(c.errs))
	copy(out, c.errs)
	return out
}

// HasErrors reports whether any SeverityError diagnostic was collected.
func (c *Collector) HasErrors() bool {
	for _, e := range c.errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Reset discards everything collected so far.
func (c *Collector) Reset() {
	c.errs = c.errs[:0]
}
