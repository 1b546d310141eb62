package relay

import (
	"fmt"

	"github.com/stianeikeland/go-rpio"
)

// RPIOBackend drives relays through memory-mapped GPIO. Alternative to the
// pinctrl backend for boards where shelling out per write is too slow.
type RPIOBackend struct{}

func NewRPIOBackend() (*RPIOBackend, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory map: %w", err)
	}
	return &RPIOBackend{}, nil
}

func (*RPIOBackend) Drive(pin Pin, on bool) error {
	p := rpio.Pin(pin.Number)
	p.Output()
	if pin.ActiveHigh == on {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (*RPIOBackend) Close() error {
	return rpio.Close()
}
