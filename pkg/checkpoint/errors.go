package checkpoint

import "errors"

// Sentinel errors surfaced by checkpoint save/load. All wrapped errors carry
// operation context via fmt.Errorf("%w: ...", ErrX) and are unwrappable with
// errors.Is.
var (
	ErrUnsupportedRecord = errors.New("checkpoint: only leaf data records can be checkpointed")
	ErrCorruptFile       = errors.New("checkpoint: file is truncated or malformed")
	ErrVersionMismatch   = errors.New("checkpoint: file format version not supported")
)
