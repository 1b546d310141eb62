package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/registry"
)

type fakeSink struct {
	states  map[string]bool
	log     []command
	failing map[string]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		states:  make(map[string]bool),
		failing: make(map[string]bool),
	}
}

func (f *fakeSink) Set(actuator string, on bool) error {
	if f.failing[actuator] {
		return errors.New("relay fault")
	}
	f.states[actuator] = on
	f.log = append(f.log, command{actuator, on})
	return nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(title, message string) error {
	f.sent = append(f.sent, title+": "+message)
	return nil
}

func newTestEngine(t *testing.T, roomIDs ...string) (*Engine, *registry.Registry, *fakeSink, *fakeNotifier) {
	t.Helper()
	rooms := make([]model.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		rooms = append(rooms, model.Room{ID: id, Sensor: "28-" + id})
	}
	reg := registry.New(rooms, nil)
	sink := newFakeSink()
	notifier := &fakeNotifier{}
	return NewForTest(reg, sink, 3, notifier), reg, sink, notifier
}

func setReading(reg *registry.Registry, id string, temp float64) {
	reg.SetReading(id, model.Reading{Temperature: temp, Timestamp: time.Now(), Valid: true})
}

func assertStateInvariant(t *testing.T, reg *registry.Registry) {
	t.Helper()
	for _, room := range reg.Snapshot() {
		assert.False(t, room.Heating && room.Cooling,
			"room %s is both heating and cooling", room.ID)
	}
}

func TestEvaluateRoom(t *testing.T) {
	tests := []struct {
		name string
		room model.Room
		want action
	}{
		{
			name: "manual heat starts heating without a reading",
			room: model.Room{Config: model.RoomConfig{MinTemp: 20, MaxTemp: 25, ManualHeat: true}},
			want: actionStartHeat,
		},
		{
			name: "manual heat already heating is a no-op",
			room: model.Room{Config: model.RoomConfig{MinTemp: 20, MaxTemp: 25, ManualHeat: true}, Heating: true},
			want: actionNone,
		},
		{
			name: "manual heat dominates a hot reading",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25, ManualHeat: true},
				LastReading: model.Reading{Temperature: 30, Valid: true},
			},
			want: actionStartHeat,
		},
		{
			name: "manual cool starts cooling",
			room: model.Room{Config: model.RoomConfig{MinTemp: 20, MaxTemp: 25, ManualCool: true}},
			want: actionStartCool,
		},
		{
			name: "missing reading skips automatic rules",
			room: model.Room{Config: model.RoomConfig{MinTemp: 20, MaxTemp: 25}},
			want: actionNone,
		},
		{
			name: "missing reading never cancels active cooling",
			room: model.Room{Config: model.RoomConfig{MinTemp: 20, MaxTemp: 25}, Cooling: true},
			want: actionNone,
		},
		{
			name: "cool on above max",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 25.1, Valid: true},
			},
			want: actionStartCool,
		},
		{
			name: "at max is within band",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 25.0, Valid: true},
			},
			want: actionNone,
		},
		{
			name: "cooling holds inside hysteresis band",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 22.1, Valid: true},
				Cooling:     true,
			},
			want: actionNone,
		},
		{
			name: "cool off at max minus hysteresis",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 22.0, Valid: true},
				Cooling:     true,
			},
			want: actionStop,
		},
		{
			name: "heat on below min",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 19.9, Valid: true},
			},
			want: actionStartHeat,
		},
		{
			name: "heating holds inside hysteresis band",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 22.9, Valid: true},
				Heating:     true,
			},
			want: actionNone,
		},
		{
			name: "heat off at min plus hysteresis",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 23.0, Valid: true},
				Heating:     true,
			},
			want: actionStop,
		},
		{
			name: "idle inside dead band",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 22.5, Valid: true},
			},
			want: actionNone,
		},
		{
			name: "hot reading while heating switches to cooling",
			room: model.Room{
				Config:      model.RoomConfig{MinTemp: 20, MaxTemp: 25},
				LastReading: model.Reading{Temperature: 26.0, Valid: true},
				Heating:     true,
			},
			want: actionStartCool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluateRoom(tt.room, 3))
		})
	}
}

// Reading sequence 26.0 -> 24.0 -> 21.9 against setpoints 20-25: cooling
// starts above max, holds inside the hysteresis band, and stops at max-3.
func TestCoolingHysteresisCycle(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room1")

	setReading(reg, "room1", 26.0)
	eng.RunCycle()
	room, _ := reg.Get("room1")
	assert.True(t, room.Cooling)
	assert.True(t, sink.states["room1"])
	assert.True(t, sink.states[model.ActuatorAC])
	assertStateInvariant(t, reg)

	setReading(reg, "room1", 24.0)
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.True(t, room.Cooling, "24.0 > 22.0, cooling must hold")
	assert.True(t, sink.states[model.ActuatorAC])

	setReading(reg, "room1", 21.9)
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.False(t, room.Cooling, "21.9 <= 22.0, cooling must stop")
	assert.False(t, sink.states["room1"])
	assert.False(t, sink.states[model.ActuatorAC], "no room cooling, consolidation turns AC off")
	assertStateInvariant(t, reg)
}

func TestHeatingHysteresisCycle(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room1")

	setReading(reg, "room1", 19.5)
	eng.RunCycle()
	room, _ := reg.Get("room1")
	assert.True(t, room.Heating)
	assert.True(t, sink.states["room1"])
	assert.True(t, sink.states[model.ActuatorHeaterVent])
	assert.True(t, sink.states[model.ActuatorSupply])

	setReading(reg, "room1", 22.5)
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.True(t, room.Heating, "22.5 < 23.0, heating must hold")

	setReading(reg, "room1", 23.0)
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.False(t, room.Heating, "23.0 >= 23.0, heating must stop")
	assert.False(t, sink.states[model.ActuatorHeaterVent])
	assert.False(t, sink.states[model.ActuatorSupply])
}

// Manual heat bypasses the reading requirement entirely.
func TestManualHeatWithoutReading(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room2")

	_, err := reg.ToggleManualHeat("room2")
	require.NoError(t, err)

	eng.RunCycle()
	room, _ := reg.Get("room2")
	assert.True(t, room.Heating)
	assert.False(t, room.Cooling)
	assert.True(t, sink.states["room2"])
	assert.True(t, sink.states[model.ActuatorHeaterVent])
	assert.True(t, sink.states[model.ActuatorSupply])
}

// AC stays on while any room still needs cooling.
func TestSharedACHeldByRemainingRoom(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room3", "room4")

	setReading(reg, "room3", 26.0)
	setReading(reg, "room4", 27.0)
	eng.RunCycle()
	assert.True(t, sink.states[model.ActuatorAC])

	// room3 drops past its cool-off threshold, room4 still hot
	setReading(reg, "room3", 21.0)
	eng.RunCycle()

	room3, _ := reg.Get("room3")
	room4, _ := reg.Get("room4")
	assert.False(t, room3.Cooling)
	assert.True(t, room4.Cooling)
	assert.False(t, sink.states["room3"])
	assert.True(t, sink.states[model.ActuatorAC], "AC must stay on for room4")

	// now room4 clears too
	setReading(reg, "room4", 21.0)
	eng.RunCycle()
	assert.False(t, sink.states[model.ActuatorAC])
}

// A failed relay command leaves the room uncommitted; the same rule re-fires
// and succeeds on the next cycle.
func TestRelayFaultRollsBackTransition(t *testing.T) {
	eng, reg, sink, notifier := newTestEngine(t, "room5")

	sink.failing[model.ActuatorAC] = true
	setReading(reg, "room5", 26.0)
	eng.RunCycle()

	room, _ := reg.Get("room5")
	assert.False(t, room.Cooling, "partial relay failure must not commit the transition")
	assert.NotEmpty(t, notifier.sent, "fault must be reported")

	sink.failing = map[string]bool{}
	eng.RunCycle()
	room, _ = reg.Get("room5")
	assert.True(t, room.Cooling, "rule must re-fire after the fault clears")
	assert.True(t, sink.states[model.ActuatorAC])
}

// Consolidation runs unconditionally so a stuck shared relay is corrected
// even on a cycle where no room changed state.
func TestConsolidationSelfHeals(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room1")

	setReading(reg, "room1", 22.0)
	sink.states[model.ActuatorAC] = true // simulate stuck relay
	eng.RunCycle()
	assert.False(t, sink.states[model.ActuatorAC])
	assert.False(t, sink.states[model.ActuatorHeaterVent])
	assert.False(t, sink.states[model.ActuatorSupply])

	room, _ := reg.Get("room1")
	assert.False(t, room.Heating)
	assert.False(t, room.Cooling)
}

func TestMissingReadingLeavesStateUntouched(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room1")

	setReading(reg, "room1", 26.0)
	eng.RunCycle()
	room, _ := reg.Get("room1")
	require.True(t, room.Cooling)

	reg.SetReading("room1", model.Reading{Timestamp: time.Now(), Valid: false})
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.True(t, room.Cooling, "missing sample must not cancel cooling")
	assert.True(t, sink.states[model.ActuatorAC])
}

// Room relay is commanded before the shared actuator, matching the rule's
// action sequence, so a shared-relay fault leaves only the room relay moved.
func TestCommandOrdering(t *testing.T) {
	eng, reg, sink, _ := newTestEngine(t, "room1")

	setReading(reg, "room1", 26.0)
	eng.RunCycle()

	require.GreaterOrEqual(t, len(sink.log), 2)
	assert.Equal(t, command{"room1", true}, sink.log[0])
	assert.Equal(t, command{model.ActuatorAC, true}, sink.log[1])
}

func TestManualOverridesSwitchModes(t *testing.T) {
	eng, reg, _, _ := newTestEngine(t, "room1")

	_, err := reg.ToggleManualCool("room1")
	require.NoError(t, err)
	eng.RunCycle()
	room, _ := reg.Get("room1")
	require.True(t, room.Cooling)

	// flipping to manual heat clears manual cool and the next cycle heats
	_, err = reg.ToggleManualHeat("room1")
	require.NoError(t, err)
	eng.RunCycle()
	room, _ = reg.Get("room1")
	assert.True(t, room.Heating)
	assert.False(t, room.Cooling)
	assertStateInvariant(t, reg)
}
