package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/pinctrl"
	"github.com/dvelikov/climate-controller/internal/settings"
)

func main() {
	var dbPath, command, roomID string
	var minTemp, maxTemp, pin int
	var activeHigh bool
	flag.StringVar(&dbPath, "db", "data/settings.db", "Path to the settings database file")
	flag.StringVar(&command, "cmd", "", "Command to run: show-settings, set-setpoints, cycle-relay")
	flag.StringVar(&roomID, "room", "", "Room ID for settings commands")
	flag.IntVar(&minTemp, "min", model.DefaultMinTemp, "Min setpoint for set-setpoints")
	flag.IntVar(&maxTemp, "max", model.DefaultMaxTemp, "Max setpoint for set-setpoints")
	flag.IntVar(&pin, "pin", -1, "GPIO pin for cycle-relay")
	flag.BoolVar(&activeHigh, "active-high", false, "Relay polarity for cycle-relay")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of climate-debug:")
		fmt.Println("  -db string\tPath to the settings database file (default 'data/settings.db')")
		fmt.Println("  -cmd string\tCommand to run: show-settings, set-setpoints, cycle-relay")
		fmt.Println("  -room string\tRoom ID for settings commands")
		fmt.Println("  -min int\tMin setpoint for set-setpoints")
		fmt.Println("  -max int\tMax setpoint for set-setpoints")
		fmt.Println("  -pin int\tGPIO pin for cycle-relay")
		fmt.Println("  -active-high\tRelay polarity for cycle-relay")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "show-settings":
		err = showSettings(dbPath)
	case "set-setpoints":
		if roomID == "" {
			fmt.Println("Error: room ID is required")
			os.Exit(1)
		}
		err = setSetpoints(dbPath, roomID, minTemp, maxTemp)
	case "cycle-relay":
		if pin < 0 {
			fmt.Println("Error: pin is required")
			os.Exit(1)
		}
		err = cycleRelay(pin, activeHigh)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func showSettings(dbPath string) error {
	store, err := settings.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cfgs, err := store.Load()
	if err != nil {
		return err
	}
	for id, cfg := range cfgs {
		fmt.Printf("%s: min=%d max=%d manual_heat=%v manual_cool=%v\n",
			id, cfg.MinTemp, cfg.MaxTemp, cfg.ManualHeat, cfg.ManualCool)
	}
	return nil
}

func setSetpoints(dbPath, roomID string, minTemp, maxTemp int) error {
	if minTemp >= maxTemp {
		return fmt.Errorf("min %d must be below max %d", minTemp, maxTemp)
	}

	store, err := settings.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cfgs, err := store.Load()
	if err != nil {
		return err
	}
	cfg, ok := cfgs[roomID]
	if !ok {
		cfg = model.DefaultRoomConfig()
	}
	cfg.MinTemp = minTemp
	cfg.MaxTemp = maxTemp
	return store.Save(map[string]model.RoomConfig{roomID: cfg})
}

// cycleRelay pulses a relay on for one second for bench checks.
func cycleRelay(pin int, activeHigh bool) error {
	onDrive, offDrive := "dl", "dh"
	if activeHigh {
		onDrive, offDrive = "dh", "dl"
	}

	if err := pinctrl.SetPin(pin, "op", "pn", onDrive); err != nil {
		return err
	}
	time.Sleep(time.Second)
	return pinctrl.SetPin(pin, "op", "pn", offDrive)
}
