package agent

import (
	"math"
	"time"

	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/world"
)

// movementEpsilonSquared is the squared remainder below which a moving agent
// snaps to its destination.
const movementEpsilonSquared = 1.0

// pickupCooldown is the post-collect animation delay before the agent is
// free again.
const pickupCooldown = time.Second

// actionDuration is the fixed length of a world action.
const actionDuration = 2 * time.Second

// tickState advances the agent's active state by the elapsed time.
func (e *Engine) tickState(agent *Agent, dt time.Duration) {
	switch s := agent.state.(type) {
	case *StateMoving:
		e.tickMovement(agent, s, dt)
	case *StatePerformingSkill:
		e.tickSkill(agent, s, dt)
	case *StatePickingUp:
		e.tickPickup(agent, s, dt)
	case *StatePerformingAction:
		s.Timer -= dt
		if s.Timer <= 0 {
			agent.state = nil
			if _, ok := agent.goal.(GoalPerformingAction); ok {
				agent.goal = GoalNone{}
			}
		}
	}
}

// tickMovement integrates one movement step and resolves the new elevation
// through the navmesh.
func (e *Engine) tickMovement(agent *Agent, s *StateMoving, dt time.Duration) {
	entity := agent.Entity
	speed := entity.Speed()
	delta := float32(dt.Seconds())

	if !s.Target.HasLocation {
		dx, dz := s.Target.Direction.UnitVector()
		next := world.GlobalLocation{
			X: entity.Position.X + dx*speed*delta,
			Z: entity.Position.Z + dz*speed*delta,
		}
		e.moveTo(entity, next, s.Target.Direction)
		return
	}

	current := entity.Position.ToLocation()
	target := s.Target.Location.ToLocation()

	dx := target.X - current.X
	dz := target.Z - current.Z
	distanceSquared := dx*dx + dz*dz
	step := speed * delta

	heading := entity.Heading
	if distanceSquared > 0 {
		heading = world.HeadingFromVector(dx, dz)
	}

	if distanceSquared < movementEpsilonSquared || step*step >= distanceSquared {
		e.moveTo(entity, target, heading)
		agent.state = &StateIdle{}
		e.emit(MovementFinishedEvent{EntityID: entity.UniqueID})
		return
	}

	length := sqrt32(distanceSquared)
	next := world.GlobalLocation{
		X: current.X + dx/length*step,
		Z: current.Z + dz/length*step,
	}
	e.moveTo(entity, next, heading)
}

// moveTo places the entity at the location with terrain-resolved elevation,
// keeping the previous elevation when the navmesh has no answer.
func (e *Engine) moveTo(entity *world.Entity, loc world.GlobalLocation, heading world.Heading) {
	entity.Position = loc.WithY(e.heightOr(loc, entity.Position.Y))
	entity.Heading = heading
}

// tickSkill advances the skill phase timer, skipping zero-duration phases,
// dealing damage at the execution boundary and removing the state after
// teardown.
func (e *Engine) tickSkill(agent *Agent, s *StatePerformingSkill, dt time.Duration) {
	s.Timer -= dt
	for s.Timer <= 0 {
		next, ok := s.Phase.next()
		if !ok {
			agent.state = nil
			return
		}
		s.Phase = next
		s.Timer = next.duration(s.Skill)

		if next == PhaseExecution && s.Skill.HasAttack {
			e.dealDamage(agent, s)
		}
	}
}

// dealDamage applies an attack execution to the skill's target.
func (e *Engine) dealDamage(agent *Agent, s *StatePerformingSkill) {
	targetEntity, targetAgent, err := e.target(s.TargetID)
	if err != nil {
		// Target vanished mid-swing; the strike hits air.
		return
	}
	if targetAgent != nil && targetAgent.Dead() {
		return
	}

	amount := uint32(baseAttackDamage)
	if targetEntity.Health < amount {
		amount = targetEntity.Health
	}
	targetEntity.Health -= amount

	e.emit(DamageEvent{
		SourceID: agent.Entity.UniqueID,
		TargetID: s.TargetID,
		Skill:    s.Skill,
		Instance: e.nextActionInstance(),
		Amount:   amount,
	})

	if targetEntity.MaxHealth > 0 && targetEntity.Health == 0 {
		e.emit(DeathEvent{EntityID: s.TargetID, KillerID: agent.Entity.UniqueID})
		if targetAgent != nil {
			targetAgent.PushWith(&StateDead{}, PriorityForced)
		}
	}
}

// tickPickup collects the drop on the first tick, then waits out the pickup
// animation before releasing the agent.
func (e *Engine) tickPickup(agent *Agent, s *StatePickingUp, dt time.Duration) {
	if !s.Collected {
		targetEntity, _, err := e.target(s.TargetID)
		if err != nil || targetEntity.ItemDrop == nil {
			e.failAction(agent, protocol.ActionErrorInvalidTarget)
			agent.state = nil
			agent.goal = GoalNone{}
			return
		}

		e.emit(PickupEvent{
			EntityID: agent.Entity.UniqueID,
			DropID:   s.TargetID,
			ItemRef:  targetEntity.ItemDrop.ItemRef,
			Amount:   targetEntity.ItemDrop.Amount,
		})
		e.Remove(s.TargetID)
		e.world.Despawn(s.TargetID)

		s.Collected = true
		s.Cooldown = pickupCooldown
		if _, ok := agent.goal.(GoalPickingUp); ok {
			agent.goal = GoalNone{}
		}
		return
	}

	s.Cooldown -= dt
	if s.Cooldown <= 0 {
		agent.state = nil
		e.emit(ActionCompletedEvent{EntityID: agent.Entity.UniqueID})
	}
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
