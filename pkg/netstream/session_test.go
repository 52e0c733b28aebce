package netstream

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/arvidian/sro-agent/pkg/frame"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/security"
	"github.com/pion/transport/v3/test"
)

// testClient drives the client half of a session: handshake, typed sends and
// typed reads, the way the real client would.
type testClient struct {
	t    *testing.T
	conn net.Conn
	reg  *protocol.Registry
	sec  *security.Security
	buf  []byte
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	return &testClient{t: t, conn: conn, reg: protocol.DefaultRegistry()}
}

func (c *testClient) readFrame() frame.Frame {
	c.t.Helper()
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

func (c *testClient) readPacket() protocol.Packet {
	c.t.Helper()
	f := c.readFrame()
	packet, ok := f.(*frame.Packet)
	if !ok {
		c.t.Fatalf("client received %T, want packet frame", f)
	}
	decoded, err := c.reg.Decode(protocol.Outbound, packet.Opcode, packet.Data)
	if err != nil {
		c.t.Fatalf("client decode error: %v", err)
	}
	return decoded
}

func (c *testClient) sendRaw(opcode uint16, payload []byte) {
	c.t.Helper()
	encoded, err := frame.Encode(&frame.Packet{Opcode: opcode, Data: payload}, nil)
	if err != nil {
		c.t.Fatalf("client encode error: %v", err)
	}
	if _, err := c.conn.Write(encoded); err != nil {
		c.t.Fatalf("client write error: %v", err)
	}
}

func (c *testClient) send(packet protocol.Packet) {
	c.t.Helper()
	var w protocol.Writer
	packet.EncodeTo(&w)
	c.sendRaw(packet.Opcode(), w.Bytes())
}

// handshake performs the client half of the security exchange.
func (c *testClient) handshake() {
	c.t.Helper()

	setupFrame := c.readFrame()
	packet, ok := setupFrame.(*frame.Packet)
	if !ok || packet.Opcode != protocol.OpcodeSecuritySetup {
		c.t.Fatalf("expected security setup, got %+v", setupFrame)
	}
	var setup protocol.SecuritySetup
	if err := setup.DecodeFrom(protocol.NewReader(packet.Data)); err != nil {
		c.t.Fatalf("decoding security setup: %v", err)
	}

	var handshake security.ClientHandshake
	b, key, err := handshake.Respond(security.InitializationData{
		Seed:          setup.Seed,
		CountSeed:     setup.CountSeed,
		CRCSeed:       setup.CRCSeed,
		HandshakeSeed: setup.HandshakeSeed,
		G:             setup.G,
		P:             setup.P,
		A:             setup.A,
	})
	if err != nil {
		c.t.Fatalf("client handshake response: %v", err)
	}
	c.send(&protocol.HandshakeChallenge{B: b, Key: key})

	challengeFrame := c.readFrame()
	challengePacket, ok := challengeFrame.(*frame.Packet)
	if !ok || challengePacket.Opcode != protocol.OpcodeSecuritySetup {
		c.t.Fatalf("expected challenge, got %+v", challengeFrame)
	}
	challenge := protocol.NewReader(challengePacket.Data).U64()
	if err := handshake.VerifyChallenge(challenge); err != nil {
		c.t.Fatalf("challenge verification: %v", err)
	}

	c.send(&protocol.HandshakeAccepted{})
	sec, err := handshake.Establish()
	if err != nil {
		c.t.Fatalf("client establish: %v", err)
	}
	c.sec = sec
}

// startSession wires a pipe between a server session and a test client.
func startSession(t *testing.T, config SessionConfig) (*Session, *testClient) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	config.Conn = serverConn
	if config.Registry == nil {
		config.Registry = protocol.DefaultRegistry()
	}

	client := newTestClient(t, clientConn)
	done := make(chan struct{})
	if !config.DisableEncryption {
		go func() {
			client.handshake()
			close(done)
		}()
	} else {
		close(done)
	}

	session, err := Accept(config)
	if err != nil {
		t.Fatalf("Accept() error: %v", err)
	}
	<-done

	t.Cleanup(func() {
		session.Close()
		clientConn.Close()
	})
	return session, client
}

// waitPacket polls Next until a packet arrives.
func waitPacket(t *testing.T, session *Session) protocol.Packet {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		packet, err := session.Next()
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if packet != nil {
			return packet
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no packet within deadline")
	return nil
}

func TestSessionHandshakeAndTraffic(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{})

	// Client to server.
	client.send(&protocol.MovementRequest{
		Kind: protocol.MovementTarget{HasDestination: true, Region: 24998, X: 950, Y: 30, Z: 1840},
	})
	packet := waitPacket(t, session)
	request, ok := packet.(*protocol.MovementRequest)
	if !ok {
		t.Fatalf("received %T, want *MovementRequest", packet)
	}
	if request.Kind.Region != 24998 || request.Kind.X != 950 {
		t.Fatalf("request = %+v", request)
	}

	// Server to client.
	if err := session.Send(&protocol.MovementResponse{
		EntityID:    7,
		Destination: protocol.DestinationLocation(24998, 950, 30, 1840),
	}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	response, ok := client.readPacket().(*protocol.MovementResponse)
	if !ok {
		t.Fatalf("client received wrong packet type")
	}
	if response.EntityID != 7 {
		t.Fatalf("response = %+v", response)
	}
}

func TestSessionEncryptedOutbound(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{})

	if err := session.Send(&protocol.LoginResponse{Success: true, Token: 0xCAFE}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	// The login response is flagged encrypted; the established client
	// security decrypts it transparently.
	response, ok := client.readPacket().(*protocol.LoginResponse)
	if !ok {
		t.Fatalf("client received wrong packet type")
	}
	if !response.Success || response.Token != 0xCAFE {
		t.Fatalf("response = %+v", response)
	}
}

func TestSessionMassiveOutbound(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{})

	notices := &protocol.GatewayNoticeResponse{Notices: []protocol.Notice{
		{Subject: "maintenance", Article: "The server restarts at dawn."},
	}}
	if err := session.Send(notices); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	// Massive packets arrive as header plus containers.
	header, ok := client.readFrame().(*frame.MassiveHeader)
	if !ok {
		t.Fatalf("expected massive header")
	}
	if header.InnerOpcode != protocol.OpcodeGatewayNoticeResponse {
		t.Fatalf("header opcode = %#x", header.InnerOpcode)
	}

	var assembler frame.Assembler
	if _, err := assembler.Push(header); err != nil {
		t.Fatalf("Push(header) error: %v", err)
	}
	var logical *frame.LogicalPacket
	for logical == nil {
		container, ok := client.readFrame().(*frame.MassiveContainer)
		if !ok {
			t.Fatalf("expected massive container")
		}
		var err error
		logical, err = assembler.Push(container)
		if err != nil {
			t.Fatalf("Push(container) error: %v", err)
		}
	}

	decoded, err := client.reg.Decode(protocol.Outbound, logical.Opcode, logical.Data)
	if err != nil {
		t.Fatalf("decoding reassembled packet: %v", err)
	}
	got, ok := decoded.(*protocol.GatewayNoticeResponse)
	if !ok || len(got.Notices) != 1 || got.Notices[0].Subject != "maintenance" {
		t.Fatalf("reassembled packet = %+v", decoded)
	}
}

func TestSessionSkipsUnknownOpcodes(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{})

	client.sendRaw(0x7777, []byte{1, 2, 3})
	client.send(&protocol.Rotation{Heading: 0x1000})

	packet := waitPacket(t, session)
	if _, ok := packet.(*protocol.Rotation); !ok {
		t.Fatalf("received %T after unknown opcode, want *Rotation", packet)
	}
	if session.Err() != nil {
		t.Fatalf("session died on unknown opcode: %v", session.Err())
	}
}

func TestSessionIdleTimeout(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, _ := startSession(t, SessionConfig{ClientTimeout: 100 * time.Millisecond})

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session not cancelled by idle timeout")
	}
	if !errors.Is(session.Err(), ErrIdleTimeout) {
		t.Fatalf("Err() = %v, want ErrIdleTimeout", session.Err())
	}
}

func TestSessionPeerClose(t *testing.T) {
	lim := test.TimeOut(5 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{})

	client.conn.Close()
	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session not cancelled by peer close")
	}

	if err := session.Send(&protocol.LogoutFinished{}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Send() after close error = %v, want ErrSessionClosed", err)
	}
}

func TestSessionKeepAliveOnlyRefreshesTimer(t *testing.T) {
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	session, client := startSession(t, SessionConfig{ClientTimeout: 300 * time.Millisecond})

	// Keep-alives hold the session open well past the idle cutoff without
	// surfacing as packets.
	deadline := time.Now().Add(900 * time.Millisecond)
	for time.Now().Before(deadline) {
		client.send(&protocol.KeepAlive{})
		if packet, err := session.Next(); err != nil || packet != nil {
			t.Fatalf("Next() = (%v, %v), want no surfaced packets", packet, err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if session.Err() != nil {
		t.Fatalf("session died despite keep-alives: %v", session.Err())
	}
}

func TestServerAcceptLoop(t *testing.T) {
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	sessions := make(chan *Session, 1)
	server, err := NewServer(ServerConfig{
		Registry: protocol.DefaultRegistry(),
		Handler:  func(s *Session) { sessions <- s },
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer server.Stop()

	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	client := newTestClient(t, conn)
	client.handshake()

	select {
	case session := <-sessions:
		defer session.Close()
		client.send(&protocol.TargetEntity{UniqueID: 12})
		packet := waitPacket(t, session)
		if target, ok := packet.(*protocol.TargetEntity); !ok || target.UniqueID != 12 {
			t.Fatalf("received %+v, want TargetEntity{12}", packet)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no session delivered to handler")
	}
}
