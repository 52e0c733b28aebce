// Package agent implements the per-entity state machine: persistent goals,
// the transition queue arbitrating concurrent state changes, and the tick
// pipeline that turns goals into movement, skill execution and interaction.
package agent

import "github.com/arvidian/sro-agent/pkg/world"

// Goal is what an entity wants; it persists across ticks until reached or
// cancelled. Concrete variants: GoalNone, GoalAttacking, GoalMoving,
// GoalPickingUp, GoalPerformingAction, GoalFollowing.
type Goal interface {
	isGoal()
}

// GoalNone is the absence of intent; the agent settles into Idle.
type GoalNone struct{}

// GoalAttacking pursues a target with a skill. A zero SkillID means the
// default attack for the attacker's weapon or species.
type GoalAttacking struct {
	TargetID uint32
	SkillID  uint32
}

// GoalMoving heads to a fixed destination or walks along a direction.
type GoalMoving struct {
	HasDestination bool
	Destination    world.GlobalPosition
	Direction      world.Heading
}

// GoalPickingUp walks to and collects a dropped item.
type GoalPickingUp struct {
	TargetID uint32
}

// GoalPerformingAction performs a world action by id (sit, emote, gather).
type GoalPerformingAction struct {
	ActionID uint32
}

// GoalFollowing walks towards a target, stopping followStopDistance short of
// it, and is dropped once the target is beyond the engine's maximum follow
// distance. DistanceSquared is carried along but not read by goal evaluation.
type GoalFollowing struct {
	TargetID        uint32
	DistanceSquared float32
}

func (GoalNone) isGoal()             {}
func (GoalAttacking) isGoal()        {}
func (GoalMoving) isGoal()           {}
func (GoalPickingUp) isGoal()        {}
func (GoalPerformingAction) isGoal() {}
func (GoalFollowing) isGoal()        {}

// MovingTo builds a destination movement goal.
func MovingTo(destination world.GlobalPosition) GoalMoving {
	return GoalMoving{HasDestination: true, Destination: destination}
}

// MovingAlong builds a free-direction movement goal.
func MovingAlong(direction world.Heading) GoalMoving {
	return GoalMoving{Direction: direction}
}
