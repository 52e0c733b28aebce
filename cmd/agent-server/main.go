// agent-server runs the in-game server: it accepts client connections,
// drives the security handshake and feeds the world simulation.
//
// Usage:
//
//	agent-server [options]
//
// Options:
//
//	-config  Path to the YAML configuration (default: agent-server.yml)
//	-listen  Listen address override (default: from config or :15779)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arvidian/sro-agent/pkg/gamedata"
	"github.com/arvidian/sro-agent/pkg/persistence"
	"github.com/arvidian/sro-agent/pkg/server"
	"github.com/arvidian/sro-agent/pkg/world"
	"github.com/pion/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the server configuration loaded from agent-server.yml.
type Config struct {
	ListenAddr        string  `yaml:"listen_addr"`
	DataDir           string  `yaml:"data_dir"`
	ClientTimeoutSec  int     `yaml:"client_timeout_seconds"`
	TickIntervalMS    int     `yaml:"tick_interval_ms"`
	LogoutSeconds     int     `yaml:"logout_seconds"`
	MaxFollowDistance float32 `yaml:"max_follow_distance"`
	DisableEncryption bool    `yaml:"disable_encryption"`

	Spawn struct {
		Region uint16  `yaml:"region"`
		X      float32 `yaml:"x"`
		Y      float32 `yaml:"y"`
		Z      float32 `yaml:"z"`
	} `yaml:"spawn"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{
		ListenAddr: ":15779",
		DataDir:    "server_dep/silkroad/textdata",
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "agent-server.yml", "path to configuration file")
	listen := flag.String("listen", "", "listen address override")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	data, err := gamedata.Load(cfg.DataDir)
	if err != nil {
		log.Fatalf("Could not load game data from %s: %v", cfg.DataDir, err)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()

	recorder := persistence.NewRecorder(persistence.Config{
		Applier:       persistence.ApplierFunc(logChanges(loggerFactory)),
		LoggerFactory: loggerFactory,
	})

	spawn := world.LocalPosition{
		Region: world.RegionFromID(cfg.Spawn.Region),
		X:      cfg.Spawn.X,
		Y:      cfg.Spawn.Y,
		Z:      cfg.Spawn.Z,
	}.ToGlobal()

	srv, err := server.New(server.Config{
		ListenAddr:        cfg.ListenAddr,
		Data:              data,
		Recorder:          recorder,
		SpawnPoint:        spawn,
		TickInterval:      time.Duration(cfg.TickIntervalMS) * time.Millisecond,
		ClientTimeout:     time.Duration(cfg.ClientTimeoutSec) * time.Second,
		LogoutDuration:    time.Duration(cfg.LogoutSeconds) * time.Second,
		MaxFollowDistance: cfg.MaxFollowDistance,
		DisableEncryption: cfg.DisableEncryption,
		LoggerFactory:     loggerFactory,
	})
	if err != nil {
		log.Fatalf("Could not create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Could not start server: %v", err)
	}
	log.Printf("agent-server listening on %s", srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("shutting down")
	if err := srv.Stop(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// logChanges is the development applier: the relational store lives in a
// separate service, so a standalone server just logs what it would persist.
func logChanges(factory logging.LoggerFactory) func([]persistence.Change) error {
	logger := factory.NewLogger("store")
	return func(changes []persistence.Change) error {
		for _, change := range changes {
			logger.Debugf("apply %T for character %d", change, change.CharacterID())
		}
		return nil
	}
}
