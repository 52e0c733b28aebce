// Package server composes the core into a running agent server: it accepts
// sessions, feeds their packets into the agent pipeline, runs the world tick
// loop and fans the pipeline's events back out as packets.
package server

import (
	"sync"
	"time"

	"github.com/arvidian/sro-agent/pkg/agent"
	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/netstream"
	"github.com/arvidian/sro-agent/pkg/persistence"
	"github.com/arvidian/sro-agent/pkg/protocol"
	"github.com/arvidian/sro-agent/pkg/world"
	"github.com/pion/logging"
)

// Defaults for server timing and placement.
const (
	// DefaultTickInterval is the simulation step when the config leaves it
	// zero.
	DefaultTickInterval = 50 * time.Millisecond

	// DefaultLogoutDuration is the logout countdown length.
	DefaultLogoutDuration = 5 * time.Second

	// DefaultPlayerRefID is the character template new sessions spawn as
	// until character selection is wired to the gateway.
	DefaultPlayerRefID = 1907

	// maxTargetDistanceSquared bounds how far away a target command may
	// reach.
	maxTargetDistanceSquared = 500.0 * 500.0

	// defaultVisibilityRadius is how far players and monsters see.
	defaultVisibilityRadius = 500.0
)

// Config configures the agent server.
type Config struct {
	// ListenAddr is the TCP address to accept clients on.
	ListenAddr string

	// Data is the loaded static game data. Required.
	Data *gamedata.Store

	// Terrain resolves elevation; nil means flat ground.
	Terrain world.HeightProvider

	// Registry overrides the packet registry; nil means the default.
	Registry *protocol.Registry

	// Recorder receives persistence changes; nil disables recording.
	Recorder *persistence.Recorder

	// SpawnPoint is where new players appear.
	SpawnPoint world.GlobalPosition

	// TickInterval is the simulation step. Zero means DefaultTickInterval.
	TickInterval time.Duration

	// ClientTimeout is the per-session idle cutoff.
	ClientTimeout time.Duration

	// LogoutDuration is the logout countdown. Zero means
	// DefaultLogoutDuration.
	LogoutDuration time.Duration

	// MaxFollowDistance bounds follow goals.
	MaxFollowDistance float32

	// DisableEncryption accepts sessions without the security handshake.
	DisableEncryption bool

	// LoggerFactory is the factory for creating loggers. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// playerSession binds one established session to its in-world agent.
type playerSession struct {
	session  *netstream.Session
	agent    *agent.Agent
	loaded   bool
	targetID uint32
	logoutAt time.Time
}

// Server is the running agent server.
type Server struct {
	config   Config
	registry *protocol.Registry
	world    *world.World
	engine   *agent.Engine
	listener *netstream.Server
	recorder *persistence.Recorder
	log      logging.LeveledLogger

	joined chan *netstream.Session

	mu      sync.Mutex
	players map[uint32]*playerSession

	closeCh  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a server; call Start to begin accepting and ticking.
func New(config Config) (*Server, error) {
	registry := config.Registry
	if registry == nil {
		registry = protocol.DefaultRegistry()
	}

	w := world.New()
	engine := agent.NewEngine(agent.Config{
		World:             w,
		Data:              config.Data,
		Terrain:           config.Terrain,
		MaxFollowDistance: config.MaxFollowDistance,
		LoggerFactory:     config.LoggerFactory,
	})

	s := &Server{
		config:   config,
		registry: registry,
		world:    w,
		engine:   engine,
		recorder: config.Recorder,
		joined:   make(chan *netstream.Session, 16),
		players:  make(map[uint32]*playerSession),
		closeCh:  make(chan struct{}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("server")
	}

	listener, err := netstream.NewServer(netstream.ServerConfig{
		ListenAddr:        config.ListenAddr,
		Registry:          registry,
		Handler:           s.onSession,
		DisableEncryption: config.DisableEncryption,
		ClientTimeout:     config.ClientTimeout,
		LoggerFactory:     config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	s.listener = listener
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// World exposes the entity lookup, mainly to spawning code and tests.
func (s *Server) World() *world.World {
	return s.world
}

// Engine exposes the agent pipeline, mainly to spawning code and tests.
func (s *Server) Engine() *agent.Engine {
	return s.engine
}

// Start launches the accept loop and the tick loop.
func (s *Server) Start() error {
	if err := s.listener.Start(); err != nil {
		return err
	}
	if s.recorder != nil {
		s.recorder.Start()
	}

	s.wg.Add(1)
	go s.tickLoop()
	return nil
}

// Stop halts the listener and the tick loop and closes every session.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.closeCh)
		err = s.listener.Stop()
		s.wg.Wait()

		s.mu.Lock()
		players := make([]*playerSession, 0, len(s.players))
		for _, player := range s.players {
			players = append(players, player)
		}
		s.mu.Unlock()

		for _, player := range players {
			player.session.Close()
		}
		if s.recorder != nil {
			s.recorder.Stop()
		}
	})
	return err
}

// onSession queues a freshly established session for the tick loop to join
// into the world.
func (s *Server) onSession(session *netstream.Session) {
	select {
	case s.joined <- session:
	case <-s.closeCh:
		session.Close()
	}
}

// SpawnMonster places a monster into the world and registers it with the
// pipeline.
func (s *Server) SpawnMonster(refID uint32, pos world.GlobalPosition, health uint32) (*agent.Agent, error) {
	entity := &world.Entity{
		RefID:            refID,
		Position:         pos,
		Health:           health,
		MaxHealth:        health,
		VisibilityRadius: defaultVisibilityRadius,
		Monster:          &world.Monster{},
	}
	if character, err := s.config.Data.Character(refID); err == nil {
		entity.WalkSpeed = character.WalkSpeed
		entity.RunSpeed = character.RunSpeed
	}
	if _, err := s.world.Spawn(entity); err != nil {
		return nil, err
	}
	return s.engine.Add(entity), nil
}

// SpawnDrop places an item drop into the world.
func (s *Server) SpawnDrop(itemRef uint32, amount uint32, pos world.GlobalPosition, ownerID uint32) (*world.Entity, error) {
	entity := &world.Entity{
		RefID:    itemRef,
		Position: pos,
		ItemDrop: &world.ItemDrop{ItemRef: itemRef, Amount: amount, OwnerID: ownerID},
	}
	if _, err := s.world.Spawn(entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// tickLoop is the global simulation loop. All world and agent mutation
// happens on this goroutine; sessions only exchange packets with it through
// their queues.
func (s *Server) tickLoop() {
	defer s.wg.Done()

	interval := s.config.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(last)
			last = now
			s.tick(now, dt)
		case session := <-s.joined:
			s.joinPlayer(session)
		case <-s.closeCh:
			return
		}
	}
}

// tick runs one full iteration: session input, the agent pipeline, logout
// countdowns, visibility and disconnect reaping.
func (s *Server) tick(now time.Time, dt time.Duration) {
	players := s.playerList()

	for _, player := range players {
		s.drainInput(player)
	}

	events := s.engine.Tick(dt)
	s.dispatchEvents(events)

	for _, player := range players {
		if !player.logoutAt.IsZero() && now.After(player.logoutAt) {
			s.finishLogout(player)
			continue
		}
		select {
		case <-player.session.Done():
			s.dropPlayer(player)
		default:
		}
	}

	s.runVisibility()
}

func (s *Server) playerList() []*playerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*playerSession, 0, len(s.players))
	for _, player := range s.players {
		out = append(out, player)
	}
	return out
}

// joinPlayer creates the player's entity and agent and binds the session.
func (s *Server) joinPlayer(session *netstream.Session) {
	// Visibility stays off until the client reports the world loaded, so the
	// first visibility pass after loading delivers the initial spawns.
	entity := &world.Entity{
		RefID:     DefaultPlayerRefID,
		Position:  s.config.SpawnPoint,
		Health:    100,
		MaxHealth: 100,
		Mana:      50,
		MaxMana:   50,
		WalkSpeed: 16,
		RunSpeed:  50,
		Running:   true,
		Player:    &world.Player{Name: "Player"},
	}
	if character, err := s.config.Data.Character(DefaultPlayerRefID); err == nil {
		entity.WalkSpeed = character.WalkSpeed
		entity.RunSpeed = character.RunSpeed
	}

	id, err := s.world.Spawn(entity)
	if err != nil {
		session.Close()
		return
	}

	player := &playerSession{
		session: session,
		agent:   s.engine.Add(entity),
	}

	s.mu.Lock()
	s.players[id] = player
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("session %s joined as entity %d", session.ID(), id)
	}
}

// dropPlayer tears down a disconnected player: the agent layer first, then
// the world entity, then the persistence flush.
func (s *Server) dropPlayer(player *playerSession) {
	id := player.agent.Entity.UniqueID

	s.mu.Lock()
	delete(s.players, id)
	s.mu.Unlock()

	s.engine.Remove(id)
	s.despawnEntity(id)

	if s.recorder != nil {
		s.recorder.Queue(persistence.PositionChange{
			Character: id,
			Region:    player.agent.Entity.Position.Region().ID(),
			X:         player.agent.Entity.Position.X,
			Y:         player.agent.Entity.Position.Y,
			Z:         player.agent.Entity.Position.Z,
		})
		if err := s.recorder.FlushCharacter(id); err != nil && s.log != nil {
			s.log.Errorf("disconnect flush for %d failed: %v", id, err)
		}
	}

	if s.log != nil {
		s.log.Infof("entity %d left the world", id)
	}
}

// finishLogout completes a logout countdown.
func (s *Server) finishLogout(player *playerSession) {
	player.session.Send(&protocol.LogoutFinished{})
	player.session.Close()
	s.dropPlayer(player)
}

// despawnEntity removes an entity and tells everyone who saw it.
func (s *Server) despawnEntity(id uint32) {
	for _, player := range s.playerList() {
		if player.agent.Entity.Sees(id) {
			player.session.Send(&protocol.EntityDespawn{UniqueID: id})
		}
	}
	s.world.Despawn(id)
}

// runVisibility emits spawn/despawn packets for every player whose view
// changed.
func (s *Server) runVisibility() {
	for _, change := range s.world.VisibilityPass() {
		if change.Observer.Player == nil {
			continue
		}
		player := s.playerFor(change.Observer.UniqueID)
		if player == nil || !player.loaded {
			continue
		}

		for _, added := range change.Added {
			player.session.Send(&protocol.EntitySpawn{Data: spawnData(added)})
		}
		for _, removed := range change.Removed {
			player.session.Send(&protocol.EntityDespawn{UniqueID: removed})
		}
	}
}

func (s *Server) playerFor(id uint32) *playerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[id]
}

// broadcastAround sends a packet to every loaded player that currently sees
// the entity, optionally including the entity's own session.
func (s *Server) broadcastAround(entityID uint32, includeSelf bool, packet protocol.Packet) {
	for _, player := range s.playerList() {
		if !player.loaded {
			continue
		}
		self := player.agent.Entity.UniqueID == entityID
		if (self && includeSelf) || (!self && player.agent.Entity.Sees(entityID)) {
			player.session.Send(packet)
		}
	}
}
