package server

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/arvidian/sro-agent/pkg/frame"
	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/persistence"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/security"
	"github.com/arvidian/sro-agent/pkg/world"
	"github.com/pion/transport/v3/test"
)

func testData() *gamedata.Store {
	return gamedata.NewStore(
		[]*gamedata.Skill{
			{ID: gamedata.PunchSkillID, Group: "PUNCH", Range: 5, HasAttack: true},
		},
		[]*gamedata.Character{
			{ID: DefaultPlayerRefID, CodeName: "CHAR_CH_MAN", WalkSpeed: 16, RunSpeed: 50, PickupRange: 3},
			{ID: 1954, CodeName: "MOB_CH_MANGNYANG", WalkSpeed: 12, RunSpeed: 30,
				DefaultAttack: gamedata.PunchSkillID},
		},
		nil,
	)
}

// gameClient is a protocol-speaking test client.
type gameClient struct {
	t    *testing.T
	conn net.Conn
	reg  *protocol.Registry
	sec  *security.Security
	buf  []byte
}

func dialClient(t *testing.T, addr string) *gameClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &gameClient{t: t, conn: conn, reg: protocol.DefaultRegistry()}
	c.handshake()
	return c
}

func (c *gameClient) readFrame() frame.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		consumed, f, err := frame.Parse(c.buf, c.sec)
		if err == nil {
			c.buf = c.buf[consumed:]
			return f
		}
		if !errors.Is(err, frame.ErrIncomplete) {
			c.t.Fatalf("client parse error: %v", err)
		}

		chunk := make([]byte, 4096)
		n, err := c.conn.Read(chunk)
		if err != nil {
			c.t.Fatalf("client read error: %v", err)
		}
		c.buf = append(c.buf, chunk[:n]...)
	}
}

func (c *gameClient) send(packet protocol.Packet) {
	c.t.Helper()
	var w protocol.Writer
	packet.EncodeTo(&w)
	encoded, err := frame.Encode(&frame.Packet{Opcode: packet.Opcode(), Data: w.Bytes()}, nil)
	if err != nil {
		c.t.Fatalf("client encode error: %v", err)
	}
	if _, err := c.conn.Write(encoded); err != nil {
		c.t.Fatalf("client write error: %v", err)
	}
}

func (c *gameClient) handshake() {
	c.t.Helper()

	setupFrame, ok := c.readFrame().(*frame.Packet)
	if !ok || setupFrame.Opcode != protocol.OpcodeSecuritySetup {
		c.t.Fatalf("expected security setup")
	}
	var setup protocol.SecuritySetup
	if err := setup.DecodeFrom(protocol.NewReader(setupFrame.Data)); err != nil {
		c.t.Fatalf("decoding setup: %v", err)
	}

	var handshake security.ClientHandshake
	b, key, err := handshake.Respond(security.InitializationData{
		Seed: setup.Seed, CountSeed: setup.CountSeed, CRCSeed: setup.CRCSeed,
		HandshakeSeed: setup.HandshakeSeed, G: setup.G, P: setup.P, A: setup.A,
	})
	if err != nil {
		c.t.Fatalf("handshake response: %v", err)
	}
	c.send(&protocol.HandshakeChallenge{B: b, Key: key})

	challengeFrame, ok := c.readFrame().(*frame.Packet)
	if !ok || challengeFrame.Opcode != protocol.OpcodeSecuritySetup {
		c.t.Fatalf("expected challenge")
	}
	if err := handshake.VerifyChallenge(protocol.NewReader(challengeFrame.Data).U64()); err != nil {
		c.t.Fatalf("challenge verification: %v", err)
	}
	c.send(&protocol.HandshakeAccepted{})

	sec, err := handshake.Establish()
	if err != nil {
		c.t.Fatalf("establish: %v", err)
	}
	c.sec = sec
}

// waitFor reads packets until one matches the predicate.
func waitFor[T protocol.Packet](c *gameClient, match func(T) bool) T {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		packetFrame, ok := c.readFrame().(*frame.Packet)
		if !ok {
			continue
		}
		decoded, err := c.reg.Decode(protocol.Outbound, packetFrame.Opcode, packetFrame.Data)
		if err != nil {
			continue
		}
		if typed, ok := decoded.(T); ok && (match == nil || match(typed)) {
			return typed
		}
	}
	c.t.Fatalf("expected packet did not arrive")
	panic("unreachable")
}

func startServer(t *testing.T, recorder *persistence.Recorder) *Server {
	t.Helper()
	server, err := New(Config{
		ListenAddr:   "127.0.0.1:0",
		Data:         testData(),
		Recorder:     recorder,
		SpawnPoint:   world.GlobalPosition{X: 1000, Y: 0, Z: 1000},
		TickInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

func TestServerSpawnVisibility(t *testing.T) {
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	server := startServer(t, nil)
	if _, err := server.SpawnMonster(1954, world.GlobalPosition{X: 1020, Z: 1000}, 30); err != nil {
		t.Fatalf("SpawnMonster() error: %v", err)
	}

	client := dialClient(t, server.Addr())
	client.send(&protocol.FinishLoading{})

	spawn := waitFor[*protocol.EntitySpawn](client, func(p *protocol.EntitySpawn) bool {
		return p.Data.Kind == protocol.SpawnKindMonster
	})
	if spawn.Data.RefID != 1954 {
		t.Fatalf("spawned ref = %d, want 1954", spawn.Data.RefID)
	}
}

func TestServerMovementRoundtrip(t *testing.T) {
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	server := startServer(t, nil)
	client := dialClient(t, server.Addr())
	client.send(&protocol.FinishLoading{})

	// Request a short move; the server announces it and the entity settles.
	local := world.GlobalPosition{X: 1010, Y: 0, Z: 1000}.ToLocal()
	client.send(&protocol.MovementRequest{Kind: protocol.MovementTarget{
		HasDestination: true,
		Region:         local.Region.ID(),
		X:              uint16(local.X),
		Y:              uint16(local.Y),
		Z:              uint16(local.Z),
	}})

	response := waitFor[*protocol.MovementResponse](client, nil)
	if !response.Destination.HasLocation {
		t.Fatalf("movement response = %+v, want location destination", response)
	}
}

func TestServerCombatFlow(t *testing.T) {
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	server := startServer(t, nil)
	monster, err := server.SpawnMonster(1954, world.GlobalPosition{X: 1002, Z: 1000}, 30)
	if err != nil {
		t.Fatalf("SpawnMonster() error: %v", err)
	}

	client := dialClient(t, server.Addr())
	client.send(&protocol.FinishLoading{})

	// Target the monster first.
	client.send(&protocol.TargetEntity{UniqueID: monster.Entity.UniqueID})
	target := waitFor[*protocol.TargetEntityResponse](client, nil)
	if !target.Success || target.UniqueID != monster.Entity.UniqueID {
		t.Fatalf("target response = %+v", target)
	}
	if !target.HasHealth || target.Health != 30 {
		t.Fatalf("target health = %+v, want 30", target)
	}

	// Attack and watch the damage land.
	client.send(&protocol.PerformAction{
		Kind:   protocol.ActionAttack,
		Target: protocol.ActionTarget{Kind: protocol.ActionTargetEntity, EntityID: monster.Entity.UniqueID},
	})

	ack := waitFor[*protocol.PerformActionResponse](client, nil)
	if ack.Stop || !ack.Success {
		t.Fatalf("action ack = %+v", ack)
	}

	update := waitFor[*protocol.PerformActionUpdate](client, nil)
	if update.TargetID != monster.Entity.UniqueID || len(update.Damage) != 1 {
		t.Fatalf("action update = %+v", update)
	}
	if update.Damage[0].Value.Amount != 10 {
		t.Fatalf("damage amount = %d, want 10", update.Damage[0].Value.Amount)
	}

	bars := waitFor[*protocol.EntityBarsUpdate](client, nil)
	if bars.TargetID != monster.Entity.UniqueID || bars.Health >= 30 {
		t.Fatalf("bars update = %+v", bars)
	}

	// Three punches kill; the state flip goes out to observers.
	life := waitFor[*protocol.EntityUpdateState](client, func(p *protocol.EntityUpdateState) bool {
		return p.Kind == protocol.UpdateStateLife
	})
	if life.Value != byte(protocol.LifeStateDead) {
		t.Fatalf("life update = %+v, want dead", life)
	}
}

func TestServerLogoutFlow(t *testing.T) {
	lim := test.TimeOut(20 * time.Second)
	defer lim.Stop()

	applied := make(chan int, 1)
	recorder := persistence.NewRecorder(persistence.Config{
		Applier: persistence.ApplierFunc(func(changes []persistence.Change) error {
			select {
			case applied <- len(changes):
			default:
			}
			return nil
		}),
		FlushInterval: time.Hour,
	})

	server, err := New(Config{
		ListenAddr:     "127.0.0.1:0",
		Data:           testData(),
		Recorder:       recorder,
		TickInterval:   10 * time.Millisecond,
		LogoutDuration: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer server.Stop()

	client := dialClient(t, server.Addr())
	client.send(&protocol.FinishLoading{})
	client.send(&protocol.LogoutRequest{Mode: protocol.LogoutModeExit})

	response := waitFor[*protocol.LogoutResponse](client, nil)
	if !response.Success {
		t.Fatalf("logout response = %+v", response)
	}

	waitFor[*protocol.LogoutFinished](client, nil)

	// The disconnect flush carries the character's parting state.
	select {
	case n := <-applied:
		if n == 0 {
			t.Fatalf("disconnect flush applied no changes")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("disconnect flush never ran")
	}
}
