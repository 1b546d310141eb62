package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/api"
	"github.com/dvelikov/climate-controller/internal/config"
	"github.com/dvelikov/climate-controller/internal/engine"
	"github.com/dvelikov/climate-controller/internal/logging"
	"github.com/dvelikov/climate-controller/internal/metrics"
	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/notifications"
	"github.com/dvelikov/climate-controller/internal/poller"
	"github.com/dvelikov/climate-controller/internal/registry"
	"github.com/dvelikov/climate-controller/internal/relay"
	"github.com/dvelikov/climate-controller/internal/sensor"
	"github.com/dvelikov/climate-controller/internal/settings"
	"github.com/dvelikov/climate-controller/system/shutdown"
	"github.com/dvelikov/climate-controller/system/startup"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Int("rooms", len(cfg.Rooms)).
		Msg("Starting climate controller")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED — relay writes are disabled system-wide")
	}

	metrics.Init(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags, cfg.EnableDatadog)
	notifications.Init(cfg.NtfyTopic)

	pins := relayPins(&cfg)
	board, err := buildBoard(&cfg, pins)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize relay board")
	}

	if cfg.BootScriptFilePath != "" {
		if err := startup.WriteBootScript(&cfg, pins); err != nil {
			log.Warn().Err(err).Msg("Failed to write boot pin script")
		}
	}

	store, err := settings.Open(cfg.SettingsDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open settings store")
	}

	saved, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load room settings, starting with defaults")
		saved = nil
	}

	reg := registry.New(configuredRooms(&cfg), saved)
	log.Info().Strs("rooms", reg.RoomIDs()).Msg("Room registry initialized")

	source := sensor.NewW1Source(cfg.SensorBasePath, time.Duration(cfg.SensorTimeoutMillis)*time.Millisecond)

	p := poller.New(reg, source, time.Duration(cfg.PollIntervalSeconds)*time.Second)
	eng := engine.New(reg, board, cfg.HysteresisC, time.Duration(cfg.ControlIntervalSeconds)*time.Second)
	p.Start()
	eng.Start()

	server := api.NewServer(reg, store)
	go func() {
		if err := server.Start(cfg.APIPort); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	received := <-sig

	log.Info().Str("signal", received.String()).Msg("Shutting down")
	eng.Stop()
	p.Stop()
	shutdown.Run(board, reg, store)
}

func relayPins(cfg *config.Config) map[string]relay.Pin {
	pins := make(map[string]relay.Pin, len(cfg.Rooms)+len(cfg.SharedRelays))
	for _, room := range cfg.Rooms {
		pins[room.ID] = relay.Pin{Number: room.RelayPin, ActiveHigh: cfg.RelayActiveHigh}
	}
	for name, number := range cfg.SharedRelays {
		pins[name] = relay.Pin{Number: number, ActiveHigh: cfg.RelayActiveHigh}
	}
	return pins
}

func buildBoard(cfg *config.Config, pins map[string]relay.Pin) (*relay.Board, error) {
	switch cfg.RelayBackend {
	case "rpio":
		backend, err := relay.NewRPIOBackend()
		if err != nil {
			return nil, err
		}
		return relay.NewBoard(pins, backend, cfg.SafeMode), nil
	default:
		if !cfg.SafeMode {
			if err := relay.ValidateInactive(pins); err != nil {
				return nil, err
			}
		}
		return relay.NewBoard(pins, relay.PinctrlBackend{}, cfg.SafeMode), nil
	}
}

func configuredRooms(cfg *config.Config) []model.Room {
	rooms := make([]model.Room, 0, len(cfg.Rooms))
	for _, spec := range cfg.Rooms {
		rooms = append(rooms, model.Room{
			ID:     spec.ID,
			Label:  spec.Label,
			Sensor: spec.Sensor,
		})
	}
	return rooms
}
