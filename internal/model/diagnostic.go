package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// DiagnosticKind classifies a non-fatal reconciliation fallback.
type DiagnosticKind string

const (
	// FieldMissing means no source key resolved for the field; its default
	// policy was applied.
	FieldMissing DiagnosticKind = "field_missing"
	// FieldCoercionFailed means a source value resolved but could not be
	// converted to the field's target type; its default was applied.
	FieldCoercionFailed DiagnosticKind = "field_coercion_failed"
	// FieldRejected means a resolved value was refused by a safety rule
	// (e.g. a filename-shaped tank ID) and a fallback source was used.
	FieldRejected DiagnosticKind = "field_rejected"
)

// Diagnostic records a single reconciliation fallback for observability.
// Diagnostics never drive control flow: callers log them and proceed with
// the record.
type Diagnostic struct {
	Field  string         `json:"field"`
	Kind   DiagnosticKind `json:"kind"`
	Value  string         `json:"value,omitempty"`
	Detail string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Value != "" {
		return fmt.Sprintf("%s: %s (%q): %s", d.Field, d.Kind, d.Value, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Field, d.Kind, d.Detail)
}

// ErrInvalidInput is returned when the raw bag itself is structurally
// malformed. This is the only fatal reconciliation outcome; every per-field
// problem degrades to a default plus a Diagnostic.
var ErrInvalidInput = eris.New("invalid input: raw field bag is not a valid key/value mapping")

// ErrNotVerified is returned when the read-after-write check cannot find a
// record that was just saved. Callers must treat it as fatal for that record
// and must not report the import as successful.
var ErrNotVerified = eris.New("inspection not found on read-after-write verification")
