package relay

import (
	"fmt"

	"github.com/dvelikov/climate-controller/internal/pinctrl"
)

// PinctrlBackend shells out to pinctrl(1) for each relay write. It is the
// default backend and needs no process-lifetime GPIO handle.
type PinctrlBackend struct{}

func (PinctrlBackend) Drive(pin Pin, on bool) error {
	return pinctrl.SetPin(pin.Number, "op", "pn", driveLevel(pin, on))
}

func driveLevel(pin Pin, on bool) string {
	if pin.ActiveHigh == on {
		return "dh"
	}
	return "dl"
}

// ValidateInactive confirms that every managed relay line currently reads as
// inactive. Run before the controller takes over so a stuck-on relay from a
// crashed run is caught instead of inherited.
func ValidateInactive(pins map[string]Pin) error {
	for name, pin := range pins {
		level, err := pinctrl.ReadLevel(pin.Number)
		if err != nil {
			return fmt.Errorf("read level for %s (pin %d): %w", name, pin.Number, err)
		}
		if level == pin.ActiveHigh {
			return fmt.Errorf("relay %s (pin %d) is active at startup", name, pin.Number)
		}
	}
	return nil
}
