package alerts

import "errors"

var (
	// ErrNotActive is returned when acknowledging an alert that is not in
	// the active state
	ErrNotActive = errors.New("alert is not active")

	// ErrAlreadyResolved is returned when resolving an alert that already
	// reached the resolved terminal state
	ErrAlreadyResolved = errors.New("alert already resolved")
)
