package agent

import (
	"errors"

	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/world"
)

// destinationReachedSquared is how close an agent must be to its destination
// for the movement goal to count as fulfilled.
const destinationReachedSquared = 1.0

// followStopDistance is how far short of a follow target the follower aims.
const followStopDistance = 5.0

// evaluateGoal inspects the agent's goal against the world and enqueues the
// transitions realizing it. It mutates only the transition queue and, when a
// goal turns out void, the goal itself.
func (e *Engine) evaluateGoal(agent *Agent) {
	switch goal := agent.goal.(type) {
	case GoalAttacking:
		e.evaluateAttack(agent, goal)
	case GoalMoving:
		if !goal.HasDestination {
			agent.Push(&StateMoving{Target: MovementTarget{Direction: goal.Direction}})
			return
		}
		self := agent.Entity.Position.ToLocation()
		if self.DistanceSquared(goal.Destination.ToLocation()) < destinationReachedSquared {
			agent.goal = GoalNone{}
			return
		}
		agent.Push(&StateMoving{Target: MovementTarget{HasLocation: true, Location: goal.Destination}})
	case GoalPickingUp:
		e.evaluatePickup(agent, goal)
	case GoalPerformingAction:
		agent.Push(&StatePerformingAction{ActionID: goal.ActionID})
	case GoalFollowing:
		e.evaluateFollow(agent, goal)
	default:
		if _, idle := agent.State().(*StateIdle); !idle {
			agent.Push(&StateIdle{})
		}
	}
}

func (e *Engine) evaluateAttack(agent *Agent, goal GoalAttacking) {
	targetEntity, targetAgent, err := e.target(goal.TargetID)
	if err != nil || !targetEntity.Alive() || (targetAgent != nil && targetAgent.Dead()) {
		agent.goal = GoalNone{}
		e.failAction(agent, protocol.ActionErrorInvalidTarget)
		return
	}

	skill, err := e.resolveSkill(agent, goal)
	if err != nil {
		agent.goal = GoalNone{}
		switch {
		case errors.Is(err, gamedata.ErrInvalidWeapon):
			e.failAction(agent, protocol.ActionErrorInvalidWeapon)
		default:
			e.failAction(agent, protocol.ActionErrorNotLearned)
		}
		return
	}

	rng := e.data.AttackRange(skill, agent.weaponRef())
	self := agent.Entity.Position.ToLocation()
	targetLoc := targetEntity.Position.ToLocation()

	if self.DistanceSquared(targetLoc) <= rng*rng {
		agent.Push(&StatePerformingSkill{Skill: skill, TargetID: goal.TargetID})
		return
	}

	approach := self.PointInLineWithRange(targetLoc, rng)
	agent.Push(&StateMoving{Target: MovementTarget{
		HasLocation: true,
		Location:    approach.WithY(e.heightOr(approach, targetEntity.Position.Y)),
	}})
}

func (e *Engine) evaluatePickup(agent *Agent, goal GoalPickingUp) {
	targetEntity, _, err := e.target(goal.TargetID)
	if err != nil {
		agent.goal = GoalNone{}
		e.failAction(agent, protocol.ActionErrorInvalidTarget)
		return
	}

	character, err := e.data.Character(agent.Entity.RefID)
	if err != nil || character.PickupRange <= 0 {
		agent.goal = GoalNone{}
		return
	}

	rng := character.PickupRange
	self := agent.Entity.Position.ToLocation()
	targetLoc := targetEntity.Position.ToLocation()

	if self.DistanceSquared(targetLoc) <= rng*rng {
		agent.Push(&StatePickingUp{TargetID: goal.TargetID})
		return
	}

	approach := self.PointInLineWithRange(targetLoc, rng)
	agent.Push(&StateMoving{Target: MovementTarget{
		HasLocation: true,
		Location:    approach.WithY(e.heightOr(approach, agent.Entity.Position.Y)),
	}})
}

func (e *Engine) evaluateFollow(agent *Agent, goal GoalFollowing) {
	targetEntity, _, err := e.target(goal.TargetID)
	if err != nil {
		agent.goal = GoalNone{}
		return
	}

	self := agent.Entity.Position.ToLocation()
	targetLoc := targetEntity.Position.ToLocation()
	if self.DistanceSquared(targetLoc) > e.maxFollow*e.maxFollow {
		agent.goal = GoalNone{}
		return
	}

	approach := self.PointInLineWithRange(targetLoc, followStopDistance)
	agent.Push(&StateMoving{Target: MovementTarget{
		HasLocation: true,
		Location:    approach.WithY(e.heightOr(approach, agent.Entity.Position.Y)),
	}})
}

// resolveSkill picks the skill an attacking goal uses: the explicit one when
// given, otherwise the default attack for the player's weapon or the
// monster's species.
func (e *Engine) resolveSkill(agent *Agent, goal GoalAttacking) (*gamedata.Skill, error) {
	if goal.SkillID != 0 {
		return e.data.Skill(goal.SkillID)
	}
	if agent.Entity.Player != nil {
		return e.data.AttackForWeapon(agent.Entity.Player.WeaponRef)
	}
	return e.data.AttackForCharacter(agent.Entity.RefID)
}

// weaponRef returns the agent's equipped weapon reference, zero for
// non-players and the unarmed.
func (a *Agent) weaponRef() uint32 {
	if a.Entity.Player != nil {
		return a.Entity.Player.WeaponRef
	}
	return 0
}

// heightOr resolves terrain height at a location, falling back to the given
// elevation where the navmesh has no answer.
func (e *Engine) heightOr(loc world.GlobalLocation, fallback float32) float32 {
	if y, ok := e.terrain.HeightAt(loc); ok {
		return y
	}
	return fallback
}

// failAction reports a pipeline failure for delivery to the agent's session,
// if it belongs to a player.
func (e *Engine) failAction(agent *Agent, code protocol.ActionError) {
	if agent.Entity.Player == nil {
		return
	}
	e.emit(ActionFailedEvent{EntityID: agent.Entity.UniqueID, Code: code})
}
