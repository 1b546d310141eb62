package relay

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Sink applies a desired boolean state to one actuator. Implementations must
// be idempotent: re-applying the current state is a no-op for the caller.
type Sink interface {
	Set(actuator string, on bool) error
}

// Pin identifies one relay line and its polarity.
type Pin struct {
	Number     int
	ActiveHigh bool
}

// Backend drives a physical relay line.
type Backend interface {
	Drive(pin Pin, on bool) error
}

// Board maps actuator ids onto relay pins and drives them through a backend.
type Board struct {
	pins     map[string]Pin
	backend  Backend
	safeMode bool
}

func NewBoard(pins map[string]Pin, backend Backend, safeMode bool) *Board {
	return &Board{pins: pins, backend: backend, safeMode: safeMode}
}

func (b *Board) Set(actuator string, on bool) error {
	pin, ok := b.pins[actuator]
	if !ok {
		return fmt.Errorf("unknown actuator %q", actuator)
	}
	if b.safeMode {
		log.Debug().Str("actuator", actuator).Bool("on", on).Msg("Safe mode: relay write suppressed")
		return nil
	}
	if err := b.backend.Drive(pin, on); err != nil {
		return fmt.Errorf("set %s (pin %d) to %v: %w", actuator, pin.Number, on, err)
	}
	return nil
}

// AllOff drives every actuator to its off state, best effort. Used on
// shutdown; failures are logged and do not stop the sweep.
func (b *Board) AllOff() {
	for _, actuator := range b.Actuators() {
		if err := b.Set(actuator, false); err != nil {
			log.Error().Err(err).Str("actuator", actuator).Msg("Failed to switch relay off during shutdown")
		}
	}
}

// Actuators returns all actuator ids in a stable order.
func (b *Board) Actuators() []string {
	ids := make([]string, 0, len(b.pins))
	for id := range b.pins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
