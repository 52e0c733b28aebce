package agent

import (
	"time"

	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/world"
)

// State is what an entity is doing right now, replaced as goals progress.
// Each state carries an importance rank used to arbitrate transitions.
type State interface {
	// Importance ranks the state for transition arbitration: 0 Idle,
	// 2 Moving, 3 skill/sit/action/pickup, 4 Dead.
	Importance() int

	isState()
}

// MovementTarget is where a Moving state heads: a concrete location or a
// free direction.
type MovementTarget struct {
	HasLocation bool
	Location    world.GlobalPosition
	Direction   world.Heading
}

// similar reports whether two movement targets are close enough to collapse
// into one: locations within squared distance 2, directions within one
// degree.
func (t MovementTarget) similar(other MovementTarget) bool {
	if t.HasLocation != other.HasLocation {
		return false
	}
	if t.HasLocation {
		return t.Location.ToLocation().DistanceSquared(other.Location.ToLocation()) < 2.0
	}
	return t.Direction.Difference(other.Direction) <= 1.0
}

// SkillPhase is the stage a skill execution is in.
type SkillPhase int

const (
	PhasePreparation SkillPhase = iota
	PhaseCasting
	PhaseExecution
	PhaseTeardown
)

// String returns the phase name.
func (p SkillPhase) String() string {
	switch p {
	case PhasePreparation:
		return "preparation"
	case PhaseCasting:
		return "casting"
	case PhaseExecution:
		return "execution"
	case PhaseTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// next returns the following phase, or false after teardown.
func (p SkillPhase) next() (SkillPhase, bool) {
	if p >= PhaseTeardown {
		return 0, false
	}
	return p + 1, true
}

// duration pulls the phase length from skill data.
func (p SkillPhase) duration(skill *gamedata.Skill) time.Duration {
	switch p {
	case PhasePreparation:
		return skill.Timings.Preparation
	case PhaseCasting:
		return skill.Timings.Cast
	case PhaseExecution:
		return skill.Timings.Duration
	case PhaseTeardown:
		return skill.Timings.NextDelay
	default:
		return 0
	}
}

// StateIdle is the resting state.
type StateIdle struct{}

// StateMoving advances towards its target every tick.
type StateMoving struct {
	Target MovementTarget
}

// StatePerformingSkill walks a skill through its phases against a target.
type StatePerformingSkill struct {
	Skill    *gamedata.Skill
	TargetID uint32

	Phase SkillPhase
	Timer time.Duration
}

// StateSitting is the resting stance toggled by the client.
type StateSitting struct{}

// StatePerformingAction runs a world action to completion.
type StatePerformingAction struct {
	ActionID uint32
	Timer    time.Duration
}

// StatePickingUp collects a drop, then waits out the pickup animation.
type StatePickingUp struct {
	TargetID  uint32
	Collected bool
	Cooldown  time.Duration
}

// StateDead is terminal until an explicit resurrection.
type StateDead struct{}

func (*StateIdle) isState()             {}
func (*StateMoving) isState()           {}
func (*StatePerformingSkill) isState()  {}
func (*StateSitting) isState()          {}
func (*StatePerformingAction) isState() {}
func (*StatePickingUp) isState()        {}
func (*StateDead) isState()             {}

func (*StateIdle) Importance() int             { return 0 }
func (*StateMoving) Importance() int           { return 2 }
func (*StatePerformingSkill) Importance() int  { return 3 }
func (*StateSitting) Importance() int          { return 3 }
func (*StatePerformingAction) Importance() int { return 3 }
func (*StatePickingUp) Importance() int        { return 3 }
func (*StateDead) Importance() int             { return 4 }

// similarStates reports whether installing b over a would change nothing:
// matching movement targets, the same skill against the same target, or the
// same parameterless variant.
func similarStates(a, b State) bool {
	switch sa := a.(type) {
	case *StateIdle:
		_, ok := b.(*StateIdle)
		return ok
	case *StateMoving:
		sb, ok := b.(*StateMoving)
		return ok && sa.Target.similar(sb.Target)
	case *StatePerformingSkill:
		sb, ok := b.(*StatePerformingSkill)
		return ok && sa.Skill.ID == sb.Skill.ID && sa.TargetID == sb.TargetID
	case *StateSitting:
		_, ok := b.(*StateSitting)
		return ok
	case *StatePerformingAction:
		sb, ok := b.(*StatePerformingAction)
		return ok && sa.ActionID == sb.ActionID
	case *StatePickingUp:
		sb, ok := b.(*StatePickingUp)
		return ok && sa.TargetID == sb.TargetID
	case *StateDead:
		_, ok := b.(*StateDead)
		return ok
	default:
		return false
	}
}
