package calculation

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration faults reported by Resolve and Schedule. Match with errors.Is.
var (
	ErrSchemaMismatch        = errors.New("schema mismatch")
	ErrUnknownSchemaType     = errors.New("unknown schema type")
	ErrDuplicateEventName    = errors.New("duplicate event name")
	ErrMissingEventName      = errors.New("missing event name")
	ErrUnknownEventReference = errors.New("unknown event reference")
	ErrCyclicOffsetReference = errors.New("cyclic offset reference")
	ErrEventBeforeStart      = errors.New("event before start")
	ErrInvalidTiming         = errors.New("invalid timing")
)

// ConfigError locates a configuration fault.
type ConfigError struct {
	Kind   error
	File   string
	Event  string
	Detail string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Event != "" {
		fmt.Fprintf(&b, " (event %q)", e.Event)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Kind }

func configErr(kind error, file, event, format string, args ...any) *ConfigError {
	return &ConfigError{Kind: kind, File: file, Event: event, Detail: fmt.Sprintf(format, args...)}
}

// ErrorCode maps an error to a stable machine-readable code, or "internal".
func ErrorCode(err error) string {
	for _, k := range []struct {
		err  error
		code string
	}{
		{ErrSchemaMismatch, "schema_mismatch"},
		{ErrUnknownSchemaType, "unknown_schema_type"},
		{ErrDuplicateEventName, "duplicate_event_name"},
		{ErrMissingEventName, "missing_event_name"},
		{ErrUnknownEventReference, "unknown_event_reference"},
		{ErrCyclicOffsetReference, "cyclic_offset_reference"},
		{ErrEventBeforeStart, "event_before_start"},
		{ErrInvalidTiming, "invalid_timing"},
	} {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}
