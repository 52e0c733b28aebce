package agent

import (
	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/protocol"
)

// Event is something the pipeline observed or caused during a tick. The
// server loop drains events after each tick and turns them into outbound
// packets and bookkeeping.
type Event interface {
	isEvent()
}

// StateTransitionEvent records one entity swapping states.
type StateTransitionEvent struct {
	EntityID uint32
	From     State
	To       State
}

// MovementFinishedEvent fires when a moving entity reaches its destination.
type MovementFinishedEvent struct {
	EntityID uint32
}

// MovementStartedEvent fires when an entity begins moving, carrying what the
// observers need to animate it.
type MovementStartedEvent struct {
	EntityID uint32
	Target   MovementTarget
}

// DamageEvent fires at a skill's execution phase when its parameters carry
// an attack.
type DamageEvent struct {
	SourceID uint32
	TargetID uint32
	Skill    *gamedata.Skill
	Instance uint32
	Amount   uint32
}

// DeathEvent fires when damage brings an entity's health to zero.
type DeathEvent struct {
	EntityID uint32
	KillerID uint32
}

// PickupEvent fires when a drop is collected, before the drop despawns.
type PickupEvent struct {
	EntityID uint32
	DropID   uint32
	ItemRef  uint32
	Amount   uint32
}

// ActionFailedEvent surfaces a per-entity pipeline failure that should reach
// the owning session as a structured response.
type ActionFailedEvent struct {
	EntityID uint32
	Code     protocol.ActionError
}

// ActionCompletedEvent fires when a pickup or action runs to completion and
// the owning session should receive a completed stop response.
type ActionCompletedEvent struct {
	EntityID uint32
}

func (StateTransitionEvent) isEvent()  {}
func (ActionCompletedEvent) isEvent()  {}
func (MovementFinishedEvent) isEvent() {}
func (MovementStartedEvent) isEvent()  {}
func (DamageEvent) isEvent()           {}
func (DeathEvent) isEvent()            {}
func (PickupEvent) isEvent()           {}
func (ActionFailedEvent) isEvent()     {}
