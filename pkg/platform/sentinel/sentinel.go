package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, sinks and registries return
// these (optionally wrapped) so callers can branch with errors.Is:
// - ErrNotFound: record does not exist in a store
// - ErrInvalidState: component in wrong state for the requested operation
// - ErrUnavailable: sink or backing service temporarily unavailable
// - ErrCapacity: bounded buffer is full and the item was dropped
// - ErrInvalidInput: caller supplied a value the operation cannot accept
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrCapacity     = errors.New("capacity exceeded")
	ErrInvalidInput = errors.New("invalid input")
)
