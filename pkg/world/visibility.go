package world

// VisibilityChange is the delta one observer's visible set underwent during
// a visibility pass. Players translate added/removed into spawn and despawn
// packets for their session.
type VisibilityChange struct {
	Observer *Entity
	Added    []*Entity
	Removed  []uint32
}

// VisibilityPass recomputes every visibility-bearing entity's visible set
// against current positions and returns the per-observer deltas. It runs
// after movement integration so the emitted positions are current.
func (w *World) VisibilityPass() []VisibilityChange {
	entities := w.Entities()

	// Only entities that can see participate as observers, but anything may
	// be observed.
	var changes []VisibilityChange
	for _, observer := range entities {
		if observer.VisibilityRadius <= 0 {
			continue
		}

		radiusSquared := observer.VisibilityRadius * observer.VisibilityRadius
		inRange := make(map[uint32]*Entity)
		for _, other := range entities {
			if other.UniqueID == observer.UniqueID {
				continue
			}
			if observer.Position.ToLocation().DistanceSquared(other.Position.ToLocation()) < radiusSquared {
				inRange[other.UniqueID] = other
			}
		}

		var added []*Entity
		for id, other := range inRange {
			if _, seen := observer.visible[id]; !seen {
				added = append(added, other)
				observer.visible[id] = struct{}{}
			}
		}

		var removed []uint32
		for id := range observer.visible {
			if _, still := inRange[id]; !still {
				removed = append(removed, id)
				delete(observer.visible, id)
			}
		}

		if len(added) > 0 || len(removed) > 0 {
			changes = append(changes, VisibilityChange{
				Observer: observer,
				Added:    added,
				Removed:  removed,
			})
		}
	}
	return changes
}
