package agent

import (
	"runtime"
	"sync"
	"time"

	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/world"
	"github.com/pion/logging"
)

// DefaultMaxFollowDistance is how far a follow target may stray before the
// goal is abandoned, in world units.
const DefaultMaxFollowDistance = 200.0

// baseAttackDamage is the flat damage applied per attack execution until the
// stat system lands.
// TODO: derive from attacker stats and skill parameters once masteries are in.
const baseAttackDamage = 10

// Agent binds one world entity to its goal, current state and transition
// queue. Agents are owned by an Engine and mutated only inside the tick.
type Agent struct {
	Entity *world.Entity

	goal  Goal
	state State
	queue TransitionQueue
}

// Goal returns the agent's current goal.
func (a *Agent) Goal() Goal {
	return a.goal
}

// SetGoal replaces the agent's goal; the next tick's evaluation acts on it.
func (a *Agent) SetGoal(goal Goal) {
	a.goal = goal
}

// State returns the agent's current state; a settled agent reports Idle.
func (a *Agent) State() State {
	if a.state == nil {
		return &StateIdle{}
	}
	return a.state
}

// Dead reports whether the agent sits in the terminal Dead state.
func (a *Agent) Dead() bool {
	_, dead := a.state.(*StateDead)
	return dead
}

// Push enqueues a transition for the next transition phase.
func (a *Agent) Push(target State) {
	a.queue.Push(target)
}

// PushWith enqueues a transition with an explicit priority.
func (a *Agent) PushWith(target State, priority Priority) {
	a.queue.PushWith(target, priority)
}

// Config configures an Engine.
type Config struct {
	// World is the entity lookup the pipeline reads and despawns through.
	World *world.World

	// Data is the static game data used for skill resolution.
	Data *gamedata.Store

	// Terrain resolves elevation after movement steps. Defaults to flat
	// ground at zero.
	Terrain world.HeightProvider

	// MaxFollowDistance bounds Following goals. Defaults to
	// DefaultMaxFollowDistance.
	MaxFollowDistance float32

	// LoggerFactory is the factory for creating loggers. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Engine runs the per-entity pipeline for every registered agent: goal
// evaluation, transition application and state ticking, in globally
// synchronized phases.
type Engine struct {
	world     *world.World
	data      *gamedata.Store
	terrain   world.HeightProvider
	maxFollow float32
	log       logging.LeveledLogger

	mu     sync.Mutex
	agents map[uint32]*Agent

	eventsMu     sync.Mutex
	events       []Event
	nextInstance uint32
}

// NewEngine creates an engine over the given world and game data.
func NewEngine(config Config) *Engine {
	e := &Engine{
		world:     config.World,
		data:      config.Data,
		terrain:   config.Terrain,
		maxFollow: config.MaxFollowDistance,
		agents:    make(map[uint32]*Agent),
	}
	if e.terrain == nil {
		e.terrain = world.FlatTerrain{}
	}
	if e.maxFollow <= 0 {
		e.maxFollow = DefaultMaxFollowDistance
	}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("agent")
	}
	return e
}

// Add registers a spawned entity with the pipeline and returns its agent.
func (e *Engine) Add(entity *world.Entity) *Agent {
	agent := &Agent{Entity: entity, goal: GoalNone{}}

	e.mu.Lock()
	e.agents[entity.UniqueID] = agent
	e.mu.Unlock()
	return agent
}

// Remove unregisters an entity, typically right before despawn.
func (e *Engine) Remove(id uint32) {
	e.mu.Lock()
	delete(e.agents, id)
	e.mu.Unlock()
}

// Get returns the agent of an entity id.
func (e *Engine) Get(id uint32) (*Agent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	agent, ok := e.agents[id]
	return agent, ok
}

// Resurrect forces a dead agent back to Idle and restores its health.
func (e *Engine) Resurrect(id uint32) {
	agent, ok := e.Get(id)
	if !ok || !agent.Dead() {
		return
	}
	agent.Entity.Health = agent.Entity.MaxHealth
	agent.PushWith(&StateIdle{}, PriorityForced)
}

// Tick runs one full pipeline iteration over every agent and returns the
// events it produced. Phase boundaries are global synchronization points:
// each phase completes across all agents before the next starts. Goal
// evaluation, transitions and cleanup fan out over workers since they only
// mutate their own agent; the state tick stays serialized because damage
// crosses entities.
func (e *Engine) Tick(dt time.Duration) []Event {
	agents := e.snapshot()

	forEachParallel(agents, func(agent *Agent) {
		if agent.Dead() {
			return
		}
		e.evaluateGoal(agent)
	})

	forEachParallel(agents, func(agent *Agent) {
		e.applyTransitions(agent)
	})

	for _, agent := range agents {
		e.tickState(agent, dt)
	}

	forEachParallel(agents, func(agent *Agent) {
		e.dropStaleTargets(agent)
	})

	e.eventsMu.Lock()
	events := e.events
	e.events = nil
	e.eventsMu.Unlock()
	return events
}

// forEachParallel runs fn over the agents on a bounded worker pool and waits
// for all of them.
func forEachParallel(agents []*Agent, fn func(*Agent)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(agents) {
		workers = len(agents)
	}
	if workers <= 1 {
		for _, agent := range agents {
			fn(agent)
		}
		return
	}

	work := make(chan *Agent)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for agent := range work {
				fn(agent)
			}
		}()
	}
	for _, agent := range agents {
		work <- agent
	}
	close(work)
	wg.Wait()
}

func (e *Engine) snapshot() []*Agent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Agent, 0, len(e.agents))
	for _, agent := range e.agents {
		out = append(out, agent)
	}
	return out
}

func (e *Engine) emit(event Event) {
	e.eventsMu.Lock()
	e.events = append(e.events, event)
	e.eventsMu.Unlock()
}

func (e *Engine) nextActionInstance() uint32 {
	e.nextInstance++
	return e.nextInstance
}

// target resolves a goal's target entity together with its agent, if it has
// one. The second return is nil for agentless entities such as drops.
func (e *Engine) target(id uint32) (*world.Entity, *Agent, error) {
	entity, err := e.world.Get(id)
	if err != nil {
		return nil, nil, err
	}
	agent, _ := e.Get(id)
	return entity, agent, nil
}

// dropStaleTargets enforces the end-of-tick invariant that no goal points at
// a despawned or dead entity.
func (e *Engine) dropStaleTargets(agent *Agent) {
	var targetID uint32
	needsAlive := false

	switch goal := agent.goal.(type) {
	case GoalAttacking:
		targetID = goal.TargetID
		needsAlive = true
	case GoalFollowing:
		targetID = goal.TargetID
		needsAlive = true
	case GoalPickingUp:
		targetID = goal.TargetID
	default:
		return
	}

	entity, targetAgent, err := e.target(targetID)
	if err != nil {
		if e.log != nil {
			e.log.Debugf("entity %d dropped goal on despawned target %d", agent.Entity.UniqueID, targetID)
		}
		agent.goal = GoalNone{}
		return
	}
	if needsAlive && (!entity.Alive() || (targetAgent != nil && targetAgent.Dead())) {
		agent.goal = GoalNone{}
	}
}
