package model

import "time"

// Shared actuator ids. Per-room relays are addressed by the room id itself.
const (
	ActuatorAC         = "ac"
	ActuatorHeaterVent = "heater_vent"
	ActuatorSupply     = "supply"
)

// Default setpoints applied to any room missing from persisted settings.
const (
	DefaultMinTemp = 20
	DefaultMaxTemp = 25
)

// RoomConfig is the persisted, operator-editable subset of a room.
// ManualHeat and ManualCool are mutually exclusive.
type RoomConfig struct {
	MinTemp    int  `json:"min_temp"`
	MaxTemp    int  `json:"max_temp"`
	ManualHeat bool `json:"manual_heat"`
	ManualCool bool `json:"manual_cool"`
}

// Reading is one temperature sample in Celsius. Valid=false means no usable
// sample exists; the temperature field must not be interpreted in that case.
type Reading struct {
	Temperature float64
	Timestamp   time.Time
	Valid       bool
}

type Room struct {
	ID     string
	Label  string
	Sensor string

	Config RoomConfig

	// Runtime state, never persisted. Heating and Cooling are mutually
	// exclusive for a room at any instant.
	LastReading Reading
	Heating     bool
	Cooling     bool
}

func DefaultRoomConfig() RoomConfig {
	return RoomConfig{MinTemp: DefaultMinTemp, MaxTemp: DefaultMaxTemp}
}
