// Package domain holds the error taxonomy shared by the editor, the site
// persistence layer and the OAuth relay.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound       = errors.New("not found")
	ErrSaveInProgress = errors.New("save already in progress")
	ErrInvalidState   = errors.New("invalid state")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	// KindConfiguration is fatal to an editing session: no manifest, bad config.
	KindConfiguration ErrorKind = "configuration"
	// KindUnknownSection marks a manifest entry with no registered definition.
	KindUnknownSection ErrorKind = "unknown_section"
	// KindLoad is local to one section and recoverable with a reload.
	KindLoad ErrorKind = "load"
	// KindSave is local to one section; the draft is kept.
	KindSave ErrorKind = "save"
	// KindUpstream is a failure reported by GitHub or the relay.
	KindUpstream ErrorKind = "upstream"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op      string
	Kind    ErrorKind
	Section string // optional: section id
	Path    string // optional: file or URL
	Err     error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Section != "" {
		base += fmt.Sprintf(" (section=%s)", e.Section)
	}
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorKind implements kinded.
func (e *OpError) ErrorKind() ErrorKind { return e.Kind }

// Message is the text shown to a user: the innermost cause without the
// operation prefix.
func (e *OpError) Message() string {
	if e == nil || e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func ConfigurationError(op string, err error) *OpError {
	return &OpError{Op: op, Kind: KindConfiguration, Err: err}
}

func UnknownSectionError(op, section string) *OpError {
	return &OpError{Op: op, Kind: KindUnknownSection, Section: section, Err: fmt.Errorf("section %q is not registered: %w", section, ErrNotFound)}
}

func LoadError(op, section string, err error) *OpError {
	return &OpError{Op: op, Kind: KindLoad, Section: section, Err: err}
}

func SaveError(op, section string, err error) *OpError {
	return &OpError{Op: op, Kind: KindSave, Section: section, Err: err}
}

// UpstreamError is a failure reported by a remote service. It is surfaced to
// the caller as-is and never retried.
type UpstreamError struct {
	Service     string // "github", "relay"
	Status      int    // HTTP status, 0 for transport failures
	Code        string // e.g. "bad_verification_code"
	Description string
	Err         error // transport error, if any
}

func (e *UpstreamError) Error() string {
	msg := e.Service + " error"
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if d := e.Detail(); d != "" {
		msg += ": " + d
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) ErrorKind() ErrorKind { return KindUpstream }

// Detail is the description, falling back to the error code.
func (e *UpstreamError) Detail() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

type kinded interface {
	ErrorKind() ErrorKind
}

// IsKind helps callers classify errors without depending on infra packages.
func IsKind(err error, kind ErrorKind) bool {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind() == kind
	}
	return false
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind(), true
	}
	return "", false
}
