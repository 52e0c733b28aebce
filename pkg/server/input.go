package server

import (
	"time"

	"github.com/arvidian/sro-agent/pkg/agent"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/world"
)

// drainInput pulls every pending packet off a session and applies it to the
// owning agent. Sessions are non-blocking; an empty queue ends the drain.
func (s *Server) drainInput(player *playerSession) {
	for {
		packet, err := player.session.Next()
		if err != nil || packet == nil {
			return
		}
		s.handlePacket(player, packet)
	}
}

func (s *Server) handlePacket(player *playerSession, packet protocol.Packet) {
	switch p := packet.(type) {
	case *protocol.IdentityInformation:
		player.session.Send(&protocol.IdentityInformation{ModuleName: "AgentServer", Locality: 0})
	case *protocol.FinishLoading:
		player.loaded = true
		player.agent.Entity.VisibilityRadius = defaultVisibilityRadius
	case *protocol.MovementRequest:
		s.handleMovement(player, p)
	case *protocol.Rotation:
		s.handleRotation(player, p)
	case *protocol.TargetEntity:
		s.handleTarget(player, p)
	case *protocol.UntargetEntity:
		player.targetID = 0
		player.session.Send(&protocol.UntargetResponse{Success: true})
	case *protocol.PerformAction:
		s.handleAction(player, p)
	case *protocol.LogoutRequest:
		s.handleLogout(player, p)
	case *protocol.ChatMessage:
		s.handleChat(player, p)
	default:
		if s.log != nil {
			s.log.Debugf("entity %d sent unhandled packet %#04x", player.agent.Entity.UniqueID, packet.Opcode())
		}
	}
}

func (s *Server) handleMovement(player *playerSession, p *protocol.MovementRequest) {
	if player.agent.Dead() {
		return
	}
	if p.Kind.HasDestination {
		local := world.LocalPosition{
			Region: world.RegionFromID(p.Kind.Region),
			X:      float32(p.Kind.X),
			Y:      float32(p.Kind.Y),
			Z:      float32(p.Kind.Z),
		}
		player.agent.SetGoal(agent.MovingTo(local.ToGlobal()))
	} else {
		player.agent.SetGoal(agent.MovingAlong(world.HeadingFromWire(p.Kind.Angle)))
	}
}

func (s *Server) handleRotation(player *playerSession, p *protocol.Rotation) {
	// Turning in place only applies while nothing else drives the body.
	if _, idle := player.agent.State().(*agent.StateIdle); !idle {
		return
	}
	player.agent.Entity.Heading = world.HeadingFromWire(p.Heading)
}

func (s *Server) handleTarget(player *playerSession, p *protocol.TargetEntity) {
	target, err := s.world.Get(p.UniqueID)
	if err != nil {
		player.session.Send(&protocol.TargetEntityResponse{Failure: protocol.TargetErrorInvalidTarget})
		return
	}

	self := player.agent.Entity.Position.ToLocation()
	if self.DistanceSquared(target.Position.ToLocation()) > maxTargetDistanceSquared {
		player.session.Send(&protocol.TargetEntityResponse{Failure: protocol.TargetErrorOutOfRange})
		return
	}
	if !target.Alive() {
		player.session.Send(&protocol.TargetEntityResponse{Failure: protocol.TargetErrorDead})
		return
	}

	player.targetID = p.UniqueID
	response := &protocol.TargetEntityResponse{Success: true, UniqueID: p.UniqueID}
	if target.Monster != nil {
		response.HasHealth = true
		response.Health = target.Health
	}
	player.session.Send(response)
}

func (s *Server) handleAction(player *playerSession, p *protocol.PerformAction) {
	if p.Stop {
		player.agent.SetGoal(agent.GoalNone{})
		player.session.Send(protocol.ActionResponseStop(protocol.ActionErrorCompleted))
		return
	}
	if player.agent.Dead() {
		player.session.Send(protocol.ActionResponseFailure(protocol.ActionErrorInvalidTarget))
		return
	}

	switch p.Kind {
	case protocol.ActionAttack:
		if p.Target.Kind != protocol.ActionTargetEntity {
			player.session.Send(protocol.ActionResponseFailure(protocol.ActionErrorInvalidTarget))
			return
		}
		player.agent.SetGoal(agent.GoalAttacking{TargetID: p.Target.EntityID})
	case protocol.ActionUseSkill:
		target := p.Target.EntityID
		if p.Target.Kind == protocol.ActionTargetNone {
			target = player.targetID
		}
		if target == 0 {
			player.session.Send(protocol.ActionResponseFailure(protocol.ActionErrorInvalidTarget))
			return
		}
		player.agent.SetGoal(agent.GoalAttacking{TargetID: target, SkillID: p.SkillID})
	case protocol.ActionPickupItem:
		if p.Target.Kind != protocol.ActionTargetEntity {
			player.session.Send(protocol.ActionResponseFailure(protocol.ActionErrorInvalidTarget))
			return
		}
		player.agent.SetGoal(agent.GoalPickingUp{TargetID: p.Target.EntityID})
	default:
		player.session.Send(protocol.ActionResponseFailure(protocol.ActionErrorInvalidTarget))
		return
	}

	player.session.Send(protocol.ActionResponseSuccess())
}

func (s *Server) handleLogout(player *playerSession, p *protocol.LogoutRequest) {
	duration := s.config.LogoutDuration
	if duration <= 0 {
		duration = DefaultLogoutDuration
	}
	player.logoutAt = time.Now().Add(duration)
	player.session.Send(&protocol.LogoutResponse{
		Success: true,
		Seconds: uint32(duration / time.Second),
		Mode:    p.Mode,
	})
}

func (s *Server) handleChat(player *playerSession, p *protocol.ChatMessage) {
	switch p.Channel {
	case protocol.ChatChannelAll:
		s.broadcastAround(player.agent.Entity.UniqueID, false, &protocol.ChatUpdate{
			Channel:  protocol.ChatChannelAll,
			SourceID: player.agent.Entity.UniqueID,
			Message:  p.Message,
		})
		player.session.Send(&protocol.ChatMessageResponse{Success: true, Channel: p.Channel, Index: p.Index})
	default:
		// Other channels need party/guild plumbing that lives upstream.
		player.session.Send(&protocol.ChatMessageResponse{Success: false, Channel: p.Channel, Index: p.Index})
	}
}
