package system

import "errors"

// Sentinel errors surfaced by the system root and lifecycle.
var (
	ErrAgentRejected = errors.New("system: agent rejected dispatch")
	ErrNotDirectory  = errors.New("system: path segment is not a store")
)
