package types

import (
	"errors"
	"fmt"
)

// FaultKind classifies core errors so callers can recover mechanically.
type FaultKind string

const (
	FaultValidation        FaultKind = "validation"
	FaultNotFound          FaultKind = "not_found"
	FaultConflict          FaultKind = "conflict"
	FaultUpstreamTransient FaultKind = "upstream_transient"
	FaultUpstreamPermanent FaultKind = "upstream_permanent"
	FaultInternal          FaultKind = "internal"
)

// Fault is the typed error carried across service boundaries. Transient
// upstream faults are retried by workers; everything else is surfaced to the
// caller as-is.
type Fault struct {
	Kind FaultKind
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Err }

func NewFault(kind FaultKind, msg string) *Fault {
	return &Fault{Kind: kind, Msg: msg}
}

func Faultf(kind FaultKind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapFault(kind FaultKind, msg string, err error) *Fault {
	return &Fault{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the fault kind from an error chain. Unclassified errors are
// treated as internal.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultInternal
}

// IsRetryable reports whether a worker should retry the failed operation.
func IsRetryable(err error) bool {
	return KindOf(err) == FaultUpstreamTransient
}
