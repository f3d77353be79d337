// Package apperr definiert die Fehlerarten des Mapping- und Coverage-Kerns.
package apperr

import (
	"errors"
	"fmt"
)

// Kind unterscheidet die Fehlerklassen, die Aufrufer getrennt behandeln müssen.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindUnknownNoticeType
	KindDataFormat
	KindEmptyInput
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUnknownNoticeType:
		return "unknown_notice_type"
	case KindDataFormat:
		return "data_format"
	case KindEmptyInput:
		return "empty_input"
	default:
		return "unknown"
	}
}

// Sentinels für errors.Is.
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrUnknownNoticeType = &Error{Kind: KindUnknownNoticeType}
	ErrDataFormat        = &Error{Kind: KindDataFormat}
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
)

// Error trägt Art, Operation und Ursache eines Fehlers.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is vergleicht nur die Fehlerart, damit errors.Is(err, ErrDataFormat) greift.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Configuration meldet eine fehlerhafte oder fehlende Mapping-Tabelle.
func Configuration(op, format string, args ...any) *Error {
	return newf(KindConfiguration, op, format, args...)
}

// UnknownNoticeType meldet eine CSV, die keinem Notice-Typ zugeordnet werden kann.
func UnknownNoticeType(op, format string, args ...any) *Error {
	return newf(KindUnknownNoticeType, op, format, args...)
}

// DataFormat meldet Eingaben, die sich nicht als Tabelle lesen lassen.
func DataFormat(op, format string, args ...any) *Error {
	return newf(KindDataFormat, op, format, args...)
}

// EmptyInput meldet eine Coverage-Anfrage ohne Datensätze.
func EmptyInput(op, format string, args ...any) *Error {
	return newf(KindEmptyInput, op, format, args...)
}

// KindOf liefert die Fehlerart aus einer beliebig tief gewrappten Fehlerkette.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
