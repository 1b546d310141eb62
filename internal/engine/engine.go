package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/metrics"
	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/notifications"
	"github.com/dvelikov/climate-controller/internal/registry"
	"github.com/dvelikov/climate-controller/internal/relay"
)

// Notifier pushes actuator fault events for observability.
type Notifier interface {
	Send(title, message string) error
}

type realNotifier struct{}

func (realNotifier) Send(title, message string) error {
	return notifications.Send(title, message)
}

type action int

const (
	actionNone action = iota
	actionStartHeat
	actionStartCool
	actionStop
)

type command struct {
	actuator string
	on       bool
}

// Engine evaluates every room against its setpoints on a fixed period and
// drives the relay sink. Manual overrides dominate automatic rules, a room
// without a reading is skipped, and a room's state transition commits only if
// every relay command in the rule's sequence succeeded.
type Engine struct {
	registry   *registry.Registry
	sink       relay.Sink
	hysteresis float64
	interval   time.Duration
	notifier   Notifier
	done       chan struct{}
}

func New(reg *registry.Registry, sink relay.Sink, hysteresisC int, interval time.Duration) *Engine {
	return &Engine{
		registry:   reg,
		sink:       sink,
		hysteresis: float64(hysteresisC),
		interval:   interval,
		notifier:   realNotifier{},
		done:       make(chan struct{}),
	}
}

// NewForTest builds an engine with an injectable notifier.
func NewForTest(reg *registry.Registry, sink relay.Sink, hysteresisC int, notifier Notifier) *Engine {
	e := New(reg, sink, hysteresisC, time.Second)
	e.notifier = notifier
	return e
}

func (e *Engine) Start() {
	go func() {
		log.Info().Dur("interval", e.interval).Msg("Starting control engine")
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.done:
				return
			case <-ticker.C:
				e.RunCycle()
			}
		}
	}()
}

func (e *Engine) Stop() {
	close(e.done)
}

// RunCycle performs one full control pass: per-room evaluation followed by
// shared-actuator consolidation. Exported so tests and the debug CLI can
// step the engine without the timer.
func (e *Engine) RunCycle() {
	for _, room := range e.registry.Snapshot() {
		e.controlRoom(room)
	}
	e.consolidate()
}

func (e *Engine) controlRoom(room model.Room) {
	act := evaluateRoom(room, e.hysteresis)
	if act == actionNone {
		return
	}

	var commands []command
	var heating, cooling bool

	switch act {
	case actionStartHeat:
		commands = []command{
			{room.ID, true},
			{model.ActuatorHeaterVent, true},
			{model.ActuatorSupply, true},
		}
		heating = true
	case actionStartCool:
		commands = []command{
			{room.ID, true},
			{model.ActuatorAC, true},
		}
		cooling = true
	case actionStop:
		commands = []command{{room.ID, false}}
	}

	if !e.apply(room.ID, commands) {
		// Transition did not happen; the same rule re-fires next cycle
		return
	}

	if err := e.registry.SetRuntime(room.ID, heating, cooling); err != nil {
		log.Error().Err(err).Str("room", room.ID).Msg("Failed to commit room state")
		return
	}

	log.Info().
		Str("room", room.ID).
		Bool("heating", heating).
		Bool("cooling", cooling).
		Msg("Room state transition")
}

// apply issues the rule's relay commands in order, stopping at the first
// failure. Returns true only if every command succeeded.
func (e *Engine) apply(roomID string, commands []command) bool {
	for _, c := range commands {
		if err := e.sink.Set(c.actuator, c.on); err != nil {
			e.reportFault(roomID, c.actuator, err)
			return false
		}
	}
	return true
}

// consolidate derives each shared actuator's required state from the union of
// all rooms' needs and commands it every cycle, so a missed or stuck relay
// self-heals. Reapplying an unchanged state is harmless and expected.
func (e *Engine) consolidate() {
	var anyHeating, anyCooling bool
	for _, room := range e.registry.Snapshot() {
		if room.Heating {
			anyHeating = true
		}
		if room.Cooling {
			anyCooling = true
		}
	}

	shared := []command{
		{model.ActuatorAC, anyCooling},
		{model.ActuatorHeaterVent, anyHeating},
		{model.ActuatorSupply, anyHeating},
	}
	for _, c := range shared {
		if err := e.sink.Set(c.actuator, c.on); err != nil {
			e.reportFault("", c.actuator, err)
			continue
		}
		metrics.Gauge("actuator.on", boolToFloat(c.on), fmt.Sprintf("actuator:%s", c.actuator))
	}
}

func (e *Engine) reportFault(roomID, actuator string, err error) {
	log.Error().
		Err(err).
		Str("room", roomID).
		Str("actuator", actuator).
		Msg("Actuator command failed")
	metrics.Count("actuator.fault", 1, fmt.Sprintf("room:%s", roomID), fmt.Sprintf("actuator:%s", actuator))

	if sendErr := e.notifier.Send("Climate actuator fault",
		fmt.Sprintf("relay %s failed (room %s): %v", actuator, roomID, err)); sendErr != nil {
		log.Debug().Err(sendErr).Msg("Failed to send actuator fault notification")
	}
}

// evaluateRoom decides the required transition for one room. Rules are
// checked in fixed priority order and the first match wins: manual heat,
// manual cool, missing-reading skip, cool-on, cool-off, heat-on, heat-off.
func evaluateRoom(room model.Room, hysteresis float64) action {
	cfg := room.Config

	if cfg.ManualHeat {
		if !room.Heating {
			return actionStartHeat
		}
		return actionNone
	}

	if cfg.ManualCool {
		if !room.Cooling {
			return actionStartCool
		}
		return actionNone
	}

	// A missing sample never triggers or cancels automatic action
	if !room.LastReading.Valid {
		return actionNone
	}

	temp := room.LastReading.Temperature
	minTemp := float64(cfg.MinTemp)
	maxTemp := float64(cfg.MaxTemp)

	switch {
	case temp > maxTemp && !room.Cooling:
		return actionStartCool
	case temp <= maxTemp-hysteresis && room.Cooling:
		return actionStop
	case temp < minTemp && !room.Heating:
		return actionStartHeat
	case temp >= minTemp+hysteresis && room.Heating:
		return actionStop
	}

	return actionNone
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
