package diag

import (
	"errors"
	"log/slog"

	"github.com/yuanying/epubparse/internal/xmlpos"
)

// Logger turns message ids into diagnostics and forwards them to a Sink.
type Logger struct {
	catalog Catalog
	sink    Sink
	log     *slog.Logger
}

// NewLogger returns a Logger. A nil catalog selects DefaultCatalog; a nil log
// discards debug output.
func NewLogger(catalog Catalog, sink Sink, log *slog.Logger) *Logger {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{catalog: catalog, sink: sink, log: log}
}

// Format renders a message without emitting a diagnostic.
func (l *Logger) Format(id MessageID, args ...any) string {
	return l.catalog.Format(id, args...)
}

// Error emits an error diagnostic at pos.
func (l *Logger) Error(pos xmlpos.Position, id MessageID, args ...any) {
	l.emit(SeverityError, pos, id, args)
}

// Warning emits a warning diagnostic at pos.
func (l *Logger) Warning(pos xmlpos.Position, id MessageID, args ...any) {
	l.emit(SeverityWarning, pos, id, args)
}

// ElementError emits an error diagnostic at the start tag of el.
func (l *Logger) ElementError(el *xmlpos.Element, id MessageID, args ...any) {
	l.emit(SeverityError, el.Pos, id, args)
}

// ElementWarning emits a warning diagnostic at the start tag of el.
func (l *Logger) ElementWarning(el *xmlpos.Element, id MessageID, args ...any) {
	l.emit(SeverityWarning, el.Pos, id, args)
}

// Exception emits an error diagnostic for err. An *xmlpos.ParsingError
// supplies its own position; any other error is reported at pos.
func (l *Logger) Exception(pos xmlpos.Position, err error) {
	msg := err.Error()
	var pe *xmlpos.ParsingError
	if errors.As(err, &pe) {
		pos = pe.Position
		msg = pe.Msg
	}
	l.receive(Error{
		Severity: SeverityError,
		Position: pos,
		Message:  msg,
		Cause:    err,
	})
}

func (l *Logger) emit(sev Severity, pos xmlpos.Position, id MessageID, args []any) {
	l.receive(Error{
		Severity: sev,
		Position: pos,
		ID:       id,
		Message:  l.catalog.Format(id, args...),
	})
}

func (l *Logger) receive(e Error) {
	l.log.Debug("diagnostic",
		"severity", e.Severity.String(),
		"source", e.Position.Source,
		"line", e.Position.Line,
		"column", e.Position.Column,
		"message", e.Message,
	)
	if l.sink != nil {
		l.sink(e)
	}
}

// Debug writes a debug record to the underlying slog logger without
// producing a diagnostic.
func (l *Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}
