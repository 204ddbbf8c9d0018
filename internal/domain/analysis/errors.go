package analysis

import (
	"errors"
	"fmt"
)

// Error taxonomy for the analysis pipeline. Callers match with errors.Is.
var (
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrInvalidInput            = errors.New("invalid input")
	ErrEngineUnreachable       = errors.New("engine unreachable")
	ErrEngineMalformedResponse = errors.New("engine malformed response")
	ErrPersistenceUnavailable  = errors.New("persistence unavailable")

	// ErrSourceNotSupported is returned by engines that refuse a source kind
	// outright. It is a permanent answer for this deployment, so it reports
	// as a malformed response rather than an unreachable engine.
	ErrSourceNotSupported = fmt.Errorf("%w: engine does not accept this source kind", ErrEngineMalformedResponse)
)

// Kind names used in error response bodies.
const (
	KindUnauthenticated         = "Unauthenticated"
	KindInvalidInput            = "InvalidInput"
	KindEngineUnreachable       = "EngineUnreachable"
	KindEngineMalformedResponse = "EngineMalformedResponse"
	KindPersistenceUnavailable  = "PersistenceUnavailable"
	KindInternal                = "InternalError"
)

// KindOf maps err to its taxonomy name, KindInternal when it matches none.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrEngineUnreachable):
		return KindEngineUnreachable
	case errors.Is(err, ErrEngineMalformedResponse):
		return KindEngineMalformedResponse
	case errors.Is(err, ErrPersistenceUnavailable):
		return KindPersistenceUnavailable
	default:
		return KindInternal
	}
}
