package registry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/model"
)

// Registry is the single owner of per-room configuration and runtime state.
// The sensor poller, control engine, and presentation gateway all go through
// it; every mutation happens under one lock so a manual-flag edit and its
// flag-clearing side effect are atomic for any concurrent reader.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
	order []string
}

// New builds a registry from the configured room list merged with persisted
// settings. Rooms missing from saved (or with unusable saved values) get
// default setpoints and cleared manual flags.
func New(rooms []model.Room, saved map[string]model.RoomConfig) *Registry {
	r := &Registry{rooms: make(map[string]*model.Room, len(rooms))}

	for i := range rooms {
		room := rooms[i]
		cfg, ok := saved[room.ID]
		if !ok {
			cfg = model.DefaultRoomConfig()
		}
		if cfg.MinTemp >= cfg.MaxTemp {
			log.Warn().
				Str("room", room.ID).
				Int("min_temp", cfg.MinTemp).
				Int("max_temp", cfg.MaxTemp).
				Msg("Persisted setpoints are inverted, using defaults")
			cfg = model.DefaultRoomConfig()
		}
		if cfg.ManualHeat && cfg.ManualCool {
			// Persisted state violates exclusivity; heat wins, matching edit order
			cfg.ManualCool = false
		}
		room.Config = cfg

		r.rooms[room.ID] = &room
		r.order = append(r.order, room.ID)
	}

	return r
}

// RoomIDs returns room ids in their configured, stable order.
func (r *Registry) RoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Get returns a copy of the room.
func (r *Registry) Get(id string) (model.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return model.Room{}, false
	}
	return *room, true
}

// Snapshot returns copies of all rooms in stable order.
func (r *Registry) Snapshot() []model.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]model.Room, 0, len(r.order))
	for _, id := range r.order {
		rooms = append(rooms, *r.rooms[id])
	}
	return rooms
}

func (r *Registry) SetReading(id string, reading model.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[id]; ok {
		room.LastReading = reading
	}
}

// SetRuntime commits a room's heating/cooling flags. Heating and cooling are
// mutually exclusive; a request for both is rejected.
func (r *Registry) SetRuntime(id string, heating, cooling bool) error {
	if heating && cooling {
		return fmt.Errorf("room %s: heating and cooling are mutually exclusive", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return fmt.Errorf("unknown room %s", id)
	}
	room.Heating = heating
	room.Cooling = cooling
	return nil
}

// AdjustMinTemp moves the room's min setpoint by delta degrees, refusing any
// edit that would break min < max.
func (r *Registry) AdjustMinTemp(id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return 0, fmt.Errorf("unknown room %s", id)
	}
	next := room.Config.MinTemp + delta
	if next >= room.Config.MaxTemp {
		return room.Config.MinTemp, fmt.Errorf("room %s: min_temp %d must stay below max_temp %d", id, next, room.Config.MaxTemp)
	}
	room.Config.MinTemp = next
	return next, nil
}

// AdjustMaxTemp moves the room's max setpoint by delta degrees, refusing any
// edit that would break min < max.
func (r *Registry) AdjustMaxTemp(id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return 0, fmt.Errorf("unknown room %s", id)
	}
	next := room.Config.MaxTemp + delta
	if next <= room.Config.MinTemp {
		return room.Config.MaxTemp, fmt.Errorf("room %s: max_temp %d must stay above min_temp %d", id, next, room.Config.MinTemp)
	}
	room.Config.MaxTemp = next
	return next, nil
}

// ToggleManualHeat flips the manual heat flag and returns its new value.
// Enabling it clears manual cool in the same critical section.
func (r *Registry) ToggleManualHeat(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return false, fmt.Errorf("unknown room %s", id)
	}
	room.Config.ManualHeat = !room.Config.ManualHeat
	if room.Config.ManualHeat {
		room.Config.ManualCool = false
	}
	return room.Config.ManualHeat, nil
}

// ToggleManualCool flips the manual cool flag and returns its new value.
// Enabling it clears manual heat in the same critical section.
func (r *Registry) ToggleManualCool(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	if !ok {
		return false, fmt.Errorf("unknown room %s", id)
	}
	room.Config.ManualCool = !room.Config.ManualCool
	if room.Config.ManualCool {
		room.Config.ManualHeat = false
	}
	return room.Config.ManualCool, nil
}

// ConfigSnapshot returns the persistable configuration subset for all rooms.
func (r *Registry) ConfigSnapshot() map[string]model.RoomConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfgs := make(map[string]model.RoomConfig, len(r.rooms))
	for id, room := range r.rooms {
		cfgs[id] = room.Config
	}
	return cfgs
}
