package agent

// applyTransitions drains the agent's queue and installs at most one new
// state. Candidates are considered in order of descending priority, then
// descending target importance; the first admissible one wins. Installing a
// state similar to the current one is a no-op.
func (e *Engine) applyTransitions(agent *Agent) {
	if agent.state == nil {
		agent.state = &StateIdle{}
	}
	if agent.queue.Len() == 0 {
		return
	}

	current := agent.state
	currentImportance := current.Importance()

	for _, transition := range agent.queue.drain() {
		if !admissible(transition, currentImportance) {
			continue
		}
		if similarStates(current, transition.Target) {
			break
		}

		agent.state = transition.Target
		e.enterState(agent, transition.Target)
		e.emit(StateTransitionEvent{
			EntityID: agent.Entity.UniqueID,
			From:     current,
			To:       transition.Target,
		})
		break
	}
}

// admissible applies the priority rules: forced transitions always pass,
// important ones need strictly higher importance, default ones at least
// equal importance.
func admissible(t Transition, currentImportance int) bool {
	switch t.Priority {
	case PriorityForced:
		return true
	case PriorityImportant:
		return t.Target.Importance() > currentImportance
	default:
		return t.Target.Importance() >= currentImportance
	}
}

// enterState initializes the per-state bookkeeping of a freshly installed
// state.
func (e *Engine) enterState(agent *Agent, state State) {
	switch s := state.(type) {
	case *StatePerformingSkill:
		s.Phase = PhasePreparation
		s.Timer = s.Phase.duration(s.Skill)
	case *StateMoving:
		e.emit(MovementStartedEvent{EntityID: agent.Entity.UniqueID, Target: s.Target})
	case *StatePerformingAction:
		s.Timer = actionDuration
	}
}
