package world

import "errors"

// World model errors.
var (
	// ErrStaleEntity is returned when a unique id no longer maps to a live
	// entity. Callers drop the affected operation; the error is recoverable.
	ErrStaleEntity = errors.New("world: entity no longer exists")

	// ErrAlreadySpawned is returned when an entity that already holds a
	// unique id is spawned again.
	ErrAlreadySpawned = errors.New("world: entity already spawned")
)
