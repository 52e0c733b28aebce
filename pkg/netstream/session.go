// Package netstream binds one TCP connection to the framing, security and
// typed packet layers: it runs the security handshake, pumps inbound frames
// into typed packets on a reader task, serializes outbound packets on a
// writer task, and enforces the handshake and idle deadlines.
package netstream

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arvidian/sro-agent/pkg/frame"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/security"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// Defaults for session timing.
const (
	// DefaultClientTimeout is the inactivity cutoff when the config leaves
	// it zero.
	DefaultClientTimeout = 60 * time.Second

	// HandshakeTimeout bounds the wall-clock duration of the security
	// handshake.
	HandshakeTimeout = 10 * time.Second

	// inboundBacklog is how many decoded packets may queue before the reader
	// applies backpressure.
	inboundBacklog = 128

	// outboundBacklog is how many outbound packets may queue before Send
	// applies backpressure.
	outboundBacklog = 128

	// readChunkSize is the read buffer granularity.
	readChunkSize = 4096
)

// SessionConfig configures one accepted connection.
type SessionConfig struct {
	// Conn is the accepted connection. Required.
	Conn net.Conn

	// Registry decodes inbound and encodes outbound packets. Required.
	Registry *protocol.Registry

	// DisableEncryption skips the security handshake; frames then travel in
	// the clear. Used by tools and tests.
	DisableEncryption bool

	// ClientTimeout is the inactivity cutoff. Zero means
	// DefaultClientTimeout.
	ClientTimeout time.Duration

	// LoggerFactory is the factory for creating loggers. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Session owns one connection end-to-end: handshake, reader and writer tasks
// and the shared cancellation between them. Packets are consumed with Next
// and produced with Send; both sides may race a teardown and get
// ErrSessionClosed.
type Session struct {
	id       uuid.UUID
	conn     net.Conn
	registry *protocol.Registry
	security *security.Security
	log      logging.LeveledLogger

	inbound  chan protocol.Packet
	outbound chan protocol.Packet

	// readBuf holds bytes read but not yet parsed; it survives the handshake
	// so no client bytes are lost when the reader task takes over.
	readBuf []byte

	lastInput atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
	wg        sync.WaitGroup
}

// Accept runs the security handshake on a fresh connection and starts the
// session's reader and writer tasks. The handshake must complete within
// HandshakeTimeout or the connection is torn down.
func Accept(config SessionConfig) (*Session, error) {
	timeout := config.ClientTimeout
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}

	s := &Session{
		id:       uuid.New(),
		conn:     config.Conn,
		registry: config.Registry,
		inbound:  make(chan protocol.Packet, inboundBacklog),
		outbound: make(chan protocol.Packet, outboundBacklog),
		closed:   make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("netstream")
	}
	if !config.DisableEncryption {
		s.security = &security.Security{}
	}

	if s.security != nil {
		if err := s.handshake(); err != nil {
			s.conn.Close()
			return nil, err
		}
	}

	s.lastInput.Store(time.Now().UnixNano())

	s.wg.Add(3)
	go s.readLoop()
	go s.writeLoop()
	go s.watchIdle(timeout)

	return s, nil
}

// ID returns the session's identifier, used for log correlation.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Next returns the next inbound packet without blocking. It returns
// (nil, nil) when no packet is pending and ErrSessionClosed once the session
// is torn down and drained.
func (s *Session) Next() (protocol.Packet, error) {
	select {
	case packet := <-s.inbound:
		return packet, nil
	default:
	}
	select {
	case <-s.closed:
		return nil, ErrSessionClosed
	default:
		return nil, nil
	}
}

// Send queues an outbound packet onto the single writer.
func (s *Session) Send(packet protocol.Packet) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case s.outbound <- packet:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	}
}

// Done is closed when the session has been cancelled.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Err returns why the session ended; nil for an orderly local Close.
func (s *Session) Err() error {
	select {
	case <-s.closed:
		return s.closeErr
	default:
		return nil
	}
}

// Close tears the session down. Both the reader and the writer observe the
// shared cancellation and stop.
func (s *Session) Close() error {
	s.cancel(nil)
	return nil
}

// cancel closes the session exactly once, recording the first cause. On an
// error cause the connection drops immediately; on an orderly close the
// writer drains its queue first so already-sent packets still reach the
// client.
func (s *Session) cancel(cause error) {
	s.closeOnce.Do(func() {
		s.closeErr = cause
		close(s.closed)
		if cause != nil {
			s.conn.Close()
			if s.log != nil {
				s.log.Infof("session %s closed: %v", s.id, cause)
			}
		}
	})
}

// handshake drives the server side of the security exchange:
// initialization data out, challenge exchange in, confirmation in.
func (s *Session) handshake() error {
	deadline := time.Now().Add(HandshakeTimeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return err
	}
	defer s.conn.SetDeadline(time.Time{})

	init, err := s.security.Initialize()
	if err != nil {
		return err
	}

	setup := &protocol.SecuritySetup{
		Seed:          init.Seed,
		CountSeed:     init.CountSeed,
		CRCSeed:       init.CRCSeed,
		HandshakeSeed: init.HandshakeSeed,
		G:             init.G,
		P:             init.P,
		A:             init.A,
	}
	var w protocol.Writer
	setup.EncodeTo(&w)
	if err := s.writeFrames(frame.FramesFor(setup.Opcode(), w.Bytes(), false, false)); err != nil {
		return err
	}

	challengePacket, err := s.readHandshakePacket(protocol.OpcodeHandshakeChallenge)
	if err != nil {
		return err
	}
	challenge, ok := challengePacket.(*protocol.HandshakeChallenge)
	if !ok {
		return ErrUnexpectedHandshakePacket
	}

	response, err := s.security.StartChallenge(challenge.B, challenge.Key)
	if err != nil {
		return fmt.Errorf("netstream: key exchange: %w", err)
	}

	var cw protocol.Writer
	cw.U64(response)
	if err := s.writeFrames(frame.FramesFor(protocol.OpcodeSecuritySetup, cw.Bytes(), false, false)); err != nil {
		return err
	}

	if _, err := s.readHandshakePacket(protocol.OpcodeHandshakeAccepted); err != nil {
		return err
	}
	if err := s.security.AcceptChallenge(); err != nil {
		return err
	}

	if s.log != nil {
		s.log.Debugf("session %s handshake established", s.id)
	}
	return nil
}

// readHandshakePacket reads one frame and requires it to carry the wanted
// opcode. Any other traffic during the handshake is a protocol violation.
func (s *Session) readHandshakePacket(opcode uint16) (protocol.Packet, error) {
	f, err := s.readFrame()
	if err != nil {
		return nil, err
	}
	packet, ok := f.(*frame.Packet)
	if !ok || packet.Opcode != opcode {
		return nil, ErrUnexpectedHandshakePacket
	}
	return s.registry.Decode(protocol.Inbound, packet.Opcode, packet.Data)
}

// readFrame reads from the connection until one complete frame is parsed.
func (s *Session) readFrame() (frame.Frame, error) {
	for {
		consumed, f, err := frame.Parse(s.readBuf, s.security)
		if err == nil {
			s.readBuf = s.readBuf[consumed:]
			return f, nil
		}
		if err != frame.ErrIncomplete {
			return nil, err
		}

		chunk := make([]byte, readChunkSize)
		n, err := s.conn.Read(chunk)
		if err != nil {
			return nil, err
		}
		s.readBuf = append(s.readBuf, chunk[:n]...)
	}
}

// readLoop decodes frames into typed packets and feeds the inbound queue.
// Framing and security failures tear the session down; unknown opcodes and
// decode failures are logged and skipped.
func (s *Session) readLoop() {
	defer s.wg.Done()

	var assembler frame.Assembler

	for {
		f, err := s.readFrame()
		if err != nil {
			s.cancel(err)
			return
		}

		logical, err := assembler.Push(f)
		if err != nil {
			s.cancel(err)
			return
		}
		if logical == nil {
			continue
		}

		s.lastInput.Store(time.Now().UnixNano())

		packet, err := s.registry.Decode(protocol.Inbound, logical.Opcode, logical.Data)
		if err != nil {
			if s.log != nil {
				s.log.Warnf("session %s: dropping packet %#04x: %v", s.id, logical.Opcode, err)
			}
			continue
		}

		// Keep-alives exist only to refresh the idle timer.
		if _, ok := packet.(*protocol.KeepAlive); ok {
			continue
		}

		select {
		case s.inbound <- packet:
		case <-s.closed:
			return
		}
	}
}

// writeLoop serializes outbound packets onto the connection in send order.
func (s *Session) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case packet := <-s.outbound:
			payload, encrypted, massive, err := s.registry.Encode(packet)
			if err != nil {
				if s.log != nil {
					s.log.Warnf("session %s: cannot encode %#04x: %v", s.id, packet.Opcode(), err)
				}
				continue
			}
			if encrypted && s.security == nil {
				encrypted = false
			}
			if err := s.writeFrames(frame.FramesFor(packet.Opcode(), payload, encrypted, massive)); err != nil {
				s.cancel(err)
				return
			}
		case <-s.closed:
			s.drainOutbound()
			s.conn.Close()
			return
		}
	}
}

// drainOutbound flushes packets queued before the session closed. Write
// failures end the drain; the connection is going away either way.
func (s *Session) drainOutbound() {
	for {
		select {
		case packet := <-s.outbound:
			payload, encrypted, massive, err := s.registry.Encode(packet)
			if err != nil {
				continue
			}
			if encrypted && s.security == nil {
				encrypted = false
			}
			if err := s.writeFrames(frame.FramesFor(packet.Opcode(), payload, encrypted, massive)); err != nil {
				return
			}
		default:
			return
		}
	}
}

// writeFrames encodes and writes a frame sequence back to back.
func (s *Session) writeFrames(frames []frame.Frame) error {
	for _, f := range frames {
		encoded, err := frame.Encode(f, s.security)
		if err != nil {
			return err
		}
		if _, err := s.conn.Write(encoded); err != nil {
			return err
		}
	}
	return nil
}

// watchIdle cancels the session when no inbound packet arrives within the
// timeout.
func (s *Session) watchIdle(timeout time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(timeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			last := time.Unix(0, s.lastInput.Load())
			if time.Since(last) > timeout {
				s.cancel(ErrIdleTimeout)
				return
			}
		case <-s.closed:
			return
		}
	}
}
