package netstream

import (
	"net"
	"sync"
	"time"

	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/pion/logging"
)

// SessionHandler receives each successfully accepted session.
type SessionHandler func(*Session)

// ServerConfig configures the accepting listener.
type ServerConfig struct {
	// Listener is an optional pre-existing listener to use. If nil, a new
	// one is created on ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g. ":15779"). Ignored if
	// Listener is provided; empty means an ephemeral port.
	ListenAddr string

	// Registry decodes inbound and encodes outbound packets. Required.
	Registry *protocol.Registry

	// Handler is called for each session that completes its handshake.
	// Required.
	Handler SessionHandler

	// DisableEncryption accepts sessions without the security handshake.
	DisableEncryption bool

	// ClientTimeout is the per-session inactivity cutoff.
	ClientTimeout time.Duration

	// LoggerFactory is the factory for creating loggers. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Server accepts connections and turns each into a Session. Handshakes run
// on the accepting connection's own goroutine so a slow client cannot stall
// the accept loop.
type Server struct {
	listener net.Listener
	config   ServerConfig
	log      logging.LeveledLogger

	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewServer creates a server from the configuration.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	s := &Server{
		listener: config.Listener,
		config:   config,
		closeCh:  make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("netstream")
	}

	if s.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		s.listener = listener
	}
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("listening on %s", s.listener.Addr())
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and waits for in-flight handshakes to settle.
// Established sessions are not closed; their owners tear them down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			if s.log != nil {
				s.log.Warnf("accept failed: %v", err)
			}
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session, err := Accept(SessionConfig{
				Conn:              conn,
				Registry:          s.config.Registry,
				DisableEncryption: s.config.DisableEncryption,
				ClientTimeout:     s.config.ClientTimeout,
				LoggerFactory:     s.config.LoggerFactory,
			})
			if err != nil {
				if s.log != nil {
					s.log.Warnf("handshake with %s failed: %v", conn.RemoteAddr(), err)
				}
				return
			}
			s.config.Handler(session)
		}()
	}
}
