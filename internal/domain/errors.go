package domain

import "errors"

// Error taxonomy for the routing and session core. Provider failures are
// deliberately absent: the signal analyzer recovers them locally and never
// surfaces them to callers.
var (
	// ErrNoCandidateAvailable means the routing pool had no online,
	// under-capacity staff. Callers must queue the work item, not drop it.
	ErrNoCandidateAvailable = errors.New("no candidate available for assignment")

	// ErrConnectionExhausted is the terminal state after the backbone
	// connection retry budget is spent.
	ErrConnectionExhausted = errors.New("connection retry attempts exhausted")

	// ErrDoubleAssignment means a session already with an agent was
	// assigned again. The locking discipline makes this a programming
	// error, never an expected runtime condition.
	ErrDoubleAssignment = errors.New("session already assigned to an agent")

	// ErrInvalidSessionTransition rejects operations on a session in an
	// incompatible state, e.g. messaging an ended session.
	ErrInvalidSessionTransition = errors.New("invalid session state transition")

	// ErrSessionNotFound means the session ID is unknown to the registry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStaffNotFound means the staff ID is unknown to the roster.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrAtCapacity means an assignment would push a staff member past
	// their maximum concurrent workload.
	ErrAtCapacity = errors.New("staff member at maximum capacity")
)
