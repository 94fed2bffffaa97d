package session

import "fmt"

// PreconditionError reports that the session lacks data its current state
// requires. It signals a flow defect, not a user or collaborator problem.
type PreconditionError struct {
	State   State
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("session precondition: %s requires %s", e.State, e.Missing)
}
