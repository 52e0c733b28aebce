package protocol

// Opcodes of the packets this server speaks. Game requests from the client
// mostly sit in 0x7xxx and server responses and updates in 0x3xxx/0xAxxx/
// 0xBxxx, mirroring the client's conventions. The framework opcodes in
// 0x2xxx/0x5xxx/0x9xxx cover both directions (the server sends 0x2001,
// 0x2212 and 0x5000 too), and FinishLoading (0x34C6) comes from the client.
const (
	// Session lifecycle and security.
	OpcodeIdentityInformation uint16 = 0x2001
	OpcodeKeepAlive           uint16 = 0x2002
	OpcodeSecuritySetup       uint16 = 0x5000
	OpcodeHandshakeChallenge  uint16 = 0x5000
	OpcodeHandshakeAccepted   uint16 = 0x9000
	OpcodeDisconnect          uint16 = 0x2212

	// Authentication adjacent traffic handled upstream but framed here.
	OpcodeLoginResponse         uint16 = 0xA10A
	OpcodePatchResponse         uint16 = 0xA100
	OpcodeGatewayNoticeResponse uint16 = 0xA104
	OpcodeLogoutRequest         uint16 = 0x7005
	OpcodeLogoutResponse        uint16 = 0xB005
	OpcodeLogoutFinished        uint16 = 0x300A
	OpcodeFinishLoading         uint16 = 0x34C6

	// Movement.
	OpcodeMovementRequest   uint16 = 0x7021
	OpcodeMovementResponse  uint16 = 0xB021
	OpcodeRotation          uint16 = 0x7024
	OpcodeMovementInterrupt uint16 = 0xB023

	// Targeting and actions.
	OpcodeTargetEntity          uint16 = 0x7045
	OpcodeTargetEntityResponse  uint16 = 0xB045
	OpcodeUntargetEntity        uint16 = 0x704B
	OpcodeUntargetResponse      uint16 = 0xB04B
	OpcodePerformAction         uint16 = 0x7074
	OpcodePerformActionResponse uint16 = 0xB074
	OpcodePerformActionUpdate   uint16 = 0xB070

	// Spawning and entity state.
	OpcodeEntitySpawn       uint16 = 0x3015
	OpcodeEntityDespawn     uint16 = 0x3016
	OpcodeGroupSpawnStart   uint16 = 0x3017
	OpcodeGroupSpawnEnd     uint16 = 0x3018
	OpcodeGroupSpawnData    uint16 = 0x3019
	OpcodeEntityUpdateState uint16 = 0x30BF
	OpcodeEntityBarsUpdate  uint16 = 0x3057

	// Chat.
	OpcodeChatMessage         uint16 = 0x7025
	OpcodeChatMessageResponse uint16 = 0xB025
	OpcodeChatUpdate          uint16 = 0x3026
)
