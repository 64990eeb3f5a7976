package circuit

import "errors"

// Construction faults. The routing graph is caller supplied and
// presumed static, so every violation is a hard error that propagates
// to the caller. There is no partial result and no retry path.
var (
	// ErrWrongNodeKind reports a node variant passed to a compiler
	// expecting a different one.
	ErrWrongNodeKind = errors.New("wrong node kind")

	// ErrInvalidTopology reports a register or register-mux node whose
	// fan-in or fan-out shape is malformed.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrDuplicateConfig reports a configuration register name
	// registered twice within one unit.
	ErrDuplicateConfig = errors.New("duplicate config name")

	// ErrAlreadyFinalized reports a second Finalize call.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrRouteNotConnected reports a route query whose source and
	// destination are not connected, or whose shape is inconsistent.
	ErrRouteNotConnected = errors.New("route not connected")

	// ErrCoordinateMismatch reports tiles merged at inconsistent
	// coordinates or with different cores.
	ErrCoordinateMismatch = errors.New("coordinate mismatch")
)
