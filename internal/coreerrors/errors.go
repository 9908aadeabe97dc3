// Package coreerrors defines the kind-based error taxonomy shared across the
// core: storage, io, config, vision, monitor, policy, and collaborator
// failures are each a distinct sentinel so callers can branch with errors.Is
// without parsing strings.
package coreerrors

import "errors"

var (
	// ErrStorageFull means the retention budget is already exceeded and
	// cannot be reclaimed; the write is rejected rather than silently
	// growing the database past its configured bound.
	ErrStorageFull = errors.New("storage: retention budget exceeded")

	// ErrIo wraps file/device failures from the OS.
	ErrIo = errors.New("io failure")

	// ErrConfig means the configuration file was invalid or unreadable.
	ErrConfig = errors.New("invalid configuration")

	// ErrPolicyDenied means a trigger or vision action was blocked by
	// configuration (privacy mode, excluded app, etc). Never surfaced to
	// the user; logged at debug only.
	ErrPolicyDenied = errors.New("action denied by policy")

	// ErrCollaborator wraps any error raised by an external collaborator
	// boundary (notifier, uploader, dashboard). Caught at the boundary and
	// never propagated into the core loops.
	ErrCollaborator = errors.New("collaborator error")

	// ErrSchemaCorrupt triggers the one-shot rename-aside-and-recreate
	// recovery path in storage.Open.
	ErrSchemaCorrupt = errors.New("storage: schema corrupt")
)

// Kind categorizes an error for structured logging at a loop boundary.
type Kind string

const (
	KindConfig       Kind = "config"
	KindIo           Kind = "io"
	KindStorage      Kind = "storage"
	KindVision       Kind = "vision"
	KindMonitor      Kind = "monitor"
	KindPolicy       Kind = "policy"
	KindCollaborator Kind = "collaborator"
)

// Classify returns the taxonomy kind for an error produced within the core,
// falling back to KindIo for anything unrecognized.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrStorageFull), errors.Is(err, ErrSchemaCorrupt):
		return KindStorage
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrPolicyDenied):
		return KindPolicy
	case errors.Is(err, ErrCollaborator):
		return KindCollaborator
	case errors.Is(err, ErrIo):
		return KindIo
	default:
		return KindIo
	}
}
