package server

import (
	"github.com/arvidian/sro-agent/pkg/agent"
	"github.com/arvidian/sro-agent/pkg/persistence"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/world"
)

// dispatchEvents converts one tick's pipeline events into outbound packets
// and persistence records.
func (s *Server) dispatchEvents(events []agent.Event) {
	for _, event := range events {
		switch e := event.(type) {
		case agent.MovementStartedEvent:
			s.announceMovement(e)
		case agent.MovementFinishedEvent:
			s.recordPosition(e.EntityID)
		case agent.DamageEvent:
			s.announceDamage(e)
		case agent.DeathEvent:
			s.broadcastAround(e.EntityID, true, &protocol.EntityUpdateState{
				UniqueID: e.EntityID,
				Kind:     protocol.UpdateStateLife,
				Value:    byte(protocol.LifeStateDead),
			})
		case agent.PickupEvent:
			s.recordPickup(e)
		case agent.ActionFailedEvent:
			if player := s.playerFor(e.EntityID); player != nil {
				player.session.Send(protocol.ActionResponseStop(e.Code))
			}
		case agent.ActionCompletedEvent:
			if player := s.playerFor(e.EntityID); player != nil {
				player.session.Send(protocol.ActionResponseStop(protocol.ActionErrorCompleted))
			}
		}
	}
}

// announceMovement tells the mover and its observers where the entity now
// heads.
func (s *Server) announceMovement(e agent.MovementStartedEvent) {
	entity, err := s.world.Get(e.EntityID)
	if err != nil {
		return
	}

	var destination protocol.MovementDestination
	if e.Target.HasLocation {
		local := e.Target.Location.ToLocal()
		destination = protocol.DestinationLocation(
			local.Region.ID(), uint16(local.X), uint16(local.Y), uint16(local.Z))
	} else {
		destination = protocol.DestinationDirection(true, e.Target.Direction.Wire())
	}

	source := movementSource(entity.Position)
	s.broadcastAround(e.EntityID, true, &protocol.MovementResponse{
		EntityID:    e.EntityID,
		Destination: destination,
		Source:      &source,
	})
}

// announceDamage broadcasts the action update with its damage, refreshes the
// target's bars and records the health change.
func (s *Server) announceDamage(e agent.DamageEvent) {
	targetEntity, err := s.world.Get(e.TargetID)
	killingBlow := err == nil && targetEntity.MaxHealth > 0 && targetEntity.Health == 0

	update := &protocol.PerformActionUpdate{
		SkillID:  e.Skill.ID,
		SourceID: e.SourceID,
		Instance: e.Instance,
		TargetID: e.TargetID,
		Kind:     protocol.ActionUpdateAttack,
		Damage: []protocol.PerEntityDamage{{
			Target:      e.TargetID,
			Value:       protocol.DamageValue{Kind: protocol.DamageStandard, Amount: e.Amount},
			KillingBlow: killingBlow,
		}},
	}
	s.broadcastAround(e.SourceID, true, update)

	if err != nil {
		return
	}
	s.broadcastAround(e.TargetID, true, &protocol.EntityBarsUpdate{
		SourceID: e.SourceID,
		TargetID: e.TargetID,
		Health:   targetEntity.Health,
		Mana:     targetEntity.Mana,
	})

	if s.recorder != nil && targetEntity.Player != nil {
		s.recorder.Queue(persistence.HealthChange{
			Character: e.TargetID,
			Health:    targetEntity.Health,
			Mana:      targetEntity.Mana,
		})
	}
}

// recordPickup persists the gained item and announces the vanished drop to
// everyone who saw it. The drop entity itself is already gone from the
// world, so reach is measured from the collector.
func (s *Server) recordPickup(e agent.PickupEvent) {
	s.broadcastAround(e.EntityID, true, &protocol.EntityDespawn{UniqueID: e.DropID})

	collector, err := s.world.Get(e.EntityID)
	if err != nil || collector.Player == nil {
		return
	}
	if s.recorder != nil {
		s.recorder.Queue(persistence.ItemGained{
			Character: e.EntityID,
			ItemRef:   e.ItemRef,
			Amount:    e.Amount,
		})
	}
}

// recordPosition queues the mover's settled position.
func (s *Server) recordPosition(entityID uint32) {
	if s.recorder == nil {
		return
	}
	entity, err := s.world.Get(entityID)
	if err != nil || entity.Player == nil {
		return
	}
	s.recorder.Queue(persistence.PositionChange{
		Character: entityID,
		Region:    entity.Position.Region().ID(),
		X:         entity.Position.X,
		Y:         entity.Position.Y,
		Z:         entity.Position.Z,
	})
}

// movementSource compresses a position into the client's movement-source
// form.
func movementSource(pos world.GlobalPosition) protocol.MovementSource {
	local := pos.ToLocal()
	return protocol.MovementSource{
		Region: local.Region.ID(),
		X:      uint16(local.X),
		Y:      local.Y,
		Z:      uint16(local.Z),
	}
}

// spawnData builds the spawn packet body describing an entity to a new
// observer.
func spawnData(entity *world.Entity) protocol.EntitySpawnData {
	local := entity.Position.ToLocal()
	data := protocol.EntitySpawnData{
		RefID:    entity.RefID,
		UniqueID: entity.UniqueID,
		Position: protocol.Position{
			Region:  local.Region.ID(),
			X:       local.X,
			Y:       local.Y,
			Z:       local.Z,
			Heading: entity.Heading.Wire(),
		},
	}

	switch entity.Kind() {
	case world.KindPlayer:
		data.Kind = protocol.SpawnKindPlayer
		data.Name = entity.Player.Name
	case world.KindMonster:
		data.Kind = protocol.SpawnKindMonster
		data.Rarity = entity.Monster.Rarity
	case world.KindNPC:
		data.Kind = protocol.SpawnKindNPC
		data.InteractOptions = entity.NPC.InteractOptions
	case world.KindItemDrop:
		data.Kind = protocol.SpawnKindItemDrop
		if entity.ItemDrop.OwnerID != 0 {
			data.HasOwner = true
			data.OwnerID = entity.ItemDrop.OwnerID
		}
	}
	return data
}
