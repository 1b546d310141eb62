package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvelikov/climate-controller/internal/model"
)

type RoomSpec struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Sensor   string `json:"sensor"`
	RelayPin int    `json:"relay_pin"`
}

type Config struct {
	ConfigFile string
	SettingsDB string
	LogLevel   zerolog.Level
	SafeMode   bool

	PollIntervalSeconds    int `json:"poll_interval_seconds"`
	ControlIntervalSeconds int `json:"control_interval_seconds"`
	HysteresisC            int `json:"hysteresis_c"`
	SensorTimeoutMillis    int `json:"sensor_timeout_millis"`

	SensorBasePath string `json:"sensor_base_path"`

	RelayBackend    string `json:"relay_backend"` // "pinctrl" or "rpio"
	RelayActiveHigh bool   `json:"relay_active_high"`

	Rooms        []RoomSpec     `json:"rooms"`
	SharedRelays map[string]int `json:"shared_relays"`

	APIPort int `json:"api_port"`

	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`
	EnableDatadog bool     `json:"enable_datadog"`
	NtfyTopic     string   `json:"ntfy_topic"`

	BootScriptFilePath string `json:"boot_script_file_path"`
	OSServicePath      string `json:"os_service_path"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&cfg.SettingsDB, "settings-db", "data/settings.db", "Path to room settings database")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.SafeMode, "safe-mode", false, "Disable physical relay writes")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	file, err := os.Open(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = 5
	}
	if cfg.ControlIntervalSeconds == 0 {
		cfg.ControlIntervalSeconds = 10
	}
	if cfg.HysteresisC == 0 {
		cfg.HysteresisC = 3
	}
	if cfg.SensorTimeoutMillis == 0 {
		cfg.SensorTimeoutMillis = 1500
	}
	if cfg.SensorBasePath == "" {
		cfg.SensorBasePath = "/sys/bus/w1/devices"
	}
	if cfg.RelayBackend == "" {
		cfg.RelayBackend = "pinctrl"
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
}

func (cfg *Config) validate() {
	var problems []string

	if len(cfg.Rooms) == 0 {
		problems = append(problems, "no rooms configured")
	}
	if cfg.RelayBackend != "pinctrl" && cfg.RelayBackend != "rpio" {
		problems = append(problems, fmt.Sprintf("unknown relay backend %q", cfg.RelayBackend))
	}
	if cfg.ControlIntervalSeconds <= cfg.PollIntervalSeconds {
		problems = append(problems, "control_interval_seconds must be greater than poll_interval_seconds")
	}
	if cfg.HysteresisC < 0 {
		problems = append(problems, "hysteresis_c must not be negative")
	}

	for _, name := range []string{model.ActuatorAC, model.ActuatorHeaterVent, model.ActuatorSupply} {
		if _, ok := cfg.SharedRelays[name]; !ok {
			problems = append(problems, "missing shared relay: "+name)
		}
	}

	usedPins := map[int]string{}
	claim := func(owner string, pin int) {
		if other, exists := usedPins[pin]; exists {
			problems = append(problems, fmt.Sprintf("%s and %s both use pin %d", owner, other, pin))
			return
		}
		usedPins[pin] = owner
	}

	seenRooms := map[string]bool{}
	for _, room := range cfg.Rooms {
		if room.ID == "" {
			problems = append(problems, "room with empty id")
			continue
		}
		if seenRooms[room.ID] {
			problems = append(problems, "duplicate room id: "+room.ID)
		}
		seenRooms[room.ID] = true
		if room.Sensor == "" {
			problems = append(problems, "room "+room.ID+" has no sensor")
		}
		claim("rooms."+room.ID, room.RelayPin)
	}
	for name, pin := range cfg.SharedRelays {
		claim("shared_relays."+name, pin)
	}

	if len(problems) > 0 {
		panic("Invalid controller config: " + strings.Join(problems, ", "))
	}
}
