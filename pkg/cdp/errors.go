package cdp

import "errors"

// Sentinel errors surfaced by the record/data/store algebra. All wrapped
// errors carry operation context via fmt.Errorf("%w: ...", ErrX) and are
// unwrappable with errors.Is.
var (
	ErrInvalidName        = errors.New("cdp: invalid name")
	ErrWrongBackend       = errors.New("cdp: operation incompatible with store backend")
	ErrWrongIndexing      = errors.New("cdp: operation incompatible with store indexing")
	ErrDuplicateKey       = errors.New("cdp: duplicate key")
	ErrEmptyStore         = errors.New("cdp: store has no children")
	ErrHasShadows         = errors.New("cdp: record still referenced by links")
	ErrReadOnly           = errors.New("cdp: data is read-only")
	ErrLocked             = errors.New("cdp: record is locked")
	ErrAgentMissing       = errors.New("cdp: no agent registered for domain/tag")
	ErrCapacityExceeded   = errors.New("cdp: capacity exceeded")
	ErrDanglingLink       = errors.New("cdp: link target no longer exists")
	ErrIsRoot             = errors.New("cdp: operation not valid on the root record")
	ErrNoStore            = errors.New("cdp: record has no child store")
	ErrNoData             = errors.New("cdp: record has no data payload")
	ErrNotFound           = errors.New("cdp: record not found")
	ErrAlreadySorted      = errors.New("cdp: store is already sorted")
	ErrAgentAlreadyCalled = errors.New("cdp: agent already invoked for this dispatch")
)
