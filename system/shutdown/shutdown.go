package shutdown

import (
	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/registry"
	"github.com/dvelikov/climate-controller/internal/relay"
	"github.com/dvelikov/climate-controller/internal/settings"
)

// Run performs the exit sequence: every actuator off, configuration
// persisted. Called on any termination path; a settings save failure is
// reported but never blocks the relay sweep or the exit.
func Run(board *relay.Board, reg *registry.Registry, store *settings.Store) {
	board.AllOff()
	log.Info().Msg("All relays switched off")

	if err := store.Save(reg.ConfigSnapshot()); err != nil {
		log.Error().Err(err).Msg("Failed to persist room settings at shutdown")
	} else {
		log.Info().Msg("Room settings persisted")
	}

	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close settings store")
	}
}
