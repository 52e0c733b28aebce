package protocol

// DefaultRegistry returns the registry of every packet the agent server
// speaks, with the client-mandated delivery flags.
func DefaultRegistry() *Registry {
	return NewRegistry(
		// Session lifecycle and security.
		Definition{Opcode: OpcodeSecuritySetup, Direction: Outbound, New: func() Packet { return &SecuritySetup{} }},
		Definition{Opcode: OpcodeHandshakeChallenge, Direction: Inbound, New: func() Packet { return &HandshakeChallenge{} }},
		Definition{Opcode: OpcodeHandshakeAccepted, Direction: Inbound, New: func() Packet { return &HandshakeAccepted{} }},
		Definition{Opcode: OpcodeIdentityInformation, Direction: Both, New: func() Packet { return &IdentityInformation{} }},
		Definition{Opcode: OpcodeKeepAlive, Direction: Inbound, New: func() Packet { return &KeepAlive{} }},
		Definition{Opcode: OpcodeDisconnect, Direction: Outbound, New: func() Packet { return &Disconnect{} }},

		// Authentication adjacent.
		Definition{Opcode: OpcodeLoginResponse, Direction: Outbound, Encrypted: true, New: func() Packet { return &LoginResponse{} }},
		Definition{Opcode: OpcodePatchResponse, Direction: Outbound, Massive: true, New: func() Packet { return &PatchResponse{} }},
		Definition{Opcode: OpcodeGatewayNoticeResponse, Direction: Outbound, Massive: true, New: func() Packet { return &GatewayNoticeResponse{} }},
		Definition{Opcode: OpcodeLogoutRequest, Direction: Inbound, New: func() Packet { return &LogoutRequest{} }},
		Definition{Opcode: OpcodeLogoutResponse, Direction: Outbound, New: func() Packet { return &LogoutResponse{} }},
		Definition{Opcode: OpcodeLogoutFinished, Direction: Outbound, New: func() Packet { return &LogoutFinished{} }},
		Definition{Opcode: OpcodeFinishLoading, Direction: Inbound, New: func() Packet { return &FinishLoading{} }},

		// Movement.
		Definition{Opcode: OpcodeMovementRequest, Direction: Inbound, New: func() Packet { return &MovementRequest{} }},
		Definition{Opcode: OpcodeMovementResponse, Direction: Outbound, New: func() Packet { return &MovementResponse{} }},
		Definition{Opcode: OpcodeRotation, Direction: Inbound, New: func() Packet { return &Rotation{} }},
		Definition{Opcode: OpcodeMovementInterrupt, Direction: Outbound, New: func() Packet { return &MovementInterrupt{} }},

		// Targeting and actions.
		Definition{Opcode: OpcodeTargetEntity, Direction: Inbound, New: func() Packet { return &TargetEntity{} }},
		Definition{Opcode: OpcodeTargetEntityResponse, Direction: Outbound, New: func() Packet { return &TargetEntityResponse{} }},
		Definition{Opcode: OpcodeUntargetEntity, Direction: Inbound, New: func() Packet { return &UntargetEntity{} }},
		Definition{Opcode: OpcodeUntargetResponse, Direction: Outbound, New: func() Packet { return &UntargetResponse{} }},
		Definition{Opcode: OpcodePerformAction, Direction: Inbound, New: func() Packet { return &PerformAction{} }},
		Definition{Opcode: OpcodePerformActionResponse, Direction: Outbound, New: func() Packet { return &PerformActionResponse{} }},
		Definition{Opcode: OpcodePerformActionUpdate, Direction: Outbound, New: func() Packet { return &PerformActionUpdate{} }},

		// Spawning and entity state.
		Definition{Opcode: OpcodeEntitySpawn, Direction: Outbound, New: func() Packet { return &EntitySpawn{} }},
		Definition{Opcode: OpcodeEntityDespawn, Direction: Outbound, New: func() Packet { return &EntityDespawn{} }},
		Definition{Opcode: OpcodeGroupSpawnStart, Direction: Outbound, New: func() Packet { return &GroupSpawnStart{} }},
		Definition{Opcode: OpcodeGroupSpawnData, Direction: Outbound, New: func() Packet { return &GroupSpawnData{} }},
		Definition{Opcode: OpcodeGroupSpawnEnd, Direction: Outbound, New: func() Packet { return &GroupSpawnEnd{} }},
		Definition{Opcode: OpcodeEntityUpdateState, Direction: Outbound, New: func() Packet { return &EntityUpdateState{} }},
		Definition{Opcode: OpcodeEntityBarsUpdate, Direction: Outbound, New: func() Packet { return &EntityBarsUpdate{} }},

		// Chat.
		Definition{Opcode: OpcodeChatMessage, Direction: Inbound, New: func() Packet { return &ChatMessage{} }},
		Definition{Opcode: OpcodeChatMessageResponse, Direction: Outbound, New: func() Packet { return &ChatMessageResponse{} }},
		Definition{Opcode: OpcodeChatUpdate, Direction: Outbound, New: func() Packet { return &ChatUpdate{} }},
	)
}
