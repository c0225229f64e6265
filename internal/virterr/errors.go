// Package virterr defines the structured error taxonomy shared by all
// virtforge operations.
//
// Every externally-observable failure is converted into an *Error carrying a
// stable, machine-matchable Kind. Callers (CLI, HTTP presentation layers)
// match on Kind or use errors.Is with the kind sentinels; human-readable
// prose is left to the consumer's translation layer.
package virterr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable error key. Values never change once released.
type Kind string

const (
	KindConnection         Kind = "connection_error"
	KindDomainNotFound     Kind = "domain_not_found"
	KindInvalidRequest     Kind = "invalid_request"
	KindInvalidDescriptor  Kind = "invalid_descriptor"
	KindPoolNotFound       Kind = "storage_pool_not_found"
	KindPoolXMLInvalid     Kind = "storage_pool_xml_invalid"
	KindPoolPathMissing    Kind = "storage_pool_path_missing"
	KindDiskCreateFailed   Kind = "disk_creation_failed"
	KindDomainCreateFailed Kind = "domain_creation_failed"
	KindInvalidSnapshot    Kind = "invalid_snapshot_name"
	KindNoConsolePort      Kind = "no_console_port"
	KindRelaySpawnFailed   Kind = "relay_spawn_failed"
	KindActionFailed       Kind = "action_failed"
)

// Error is the structured error returned across operation boundaries.
type Error struct {
	Kind   Kind   // stable key
	Op     string // operation that failed, e.g. "vm.create"
	Name   string // domain/pool/snapshot name, if applicable
	Detail string // captured tool or driver diagnostic output
	Err    error  // underlying cause
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Name)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches against another *Error by Kind, so sentinel comparisons like
// errors.Is(err, &Error{Kind: KindDomainNotFound}) work without identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds an *Error. Detail and cause are attached via With/Wrap-style
// variadic use at call sites kept simple: use the struct literal when more
// fields are needed.
func New(kind Kind, op, name string) *Error {
	return &Error{Kind: kind, Op: op, Name: name}
}

// Wrap builds an *Error around a cause.
func Wrap(kind Kind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

// KindOf extracts the Kind from err, or empty string when err is not a
// virterr error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to the HTTP status class the presentation
// layer should use. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindDomainNotFound, KindPoolNotFound:
		return http.StatusNotFound
	case KindInvalidRequest, KindInvalidSnapshot:
		return http.StatusBadRequest
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
