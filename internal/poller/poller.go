package poller

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvelikov/climate-controller/internal/metrics"
	"github.com/dvelikov/climate-controller/internal/model"
	"github.com/dvelikov/climate-controller/internal/registry"
	"github.com/dvelikov/climate-controller/internal/sensor"
)

// Poller pulls a reading for every room on a fixed period and stores it in
// the registry. One room's slow or failing sensor never skips another room:
// an unavailable sample is stored as an invalid reading and the pass moves on.
type Poller struct {
	registry *registry.Registry
	source   sensor.Source
	interval time.Duration
	done     chan struct{}
}

func New(reg *registry.Registry, source sensor.Source, interval time.Duration) *Poller {
	return &Poller{
		registry: reg,
		source:   source,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start() {
	go func() {
		log.Info().Dur("interval", p.interval).Msg("Starting sensor poller")
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				p.pollOnce(time.Now())
			}
		}
	}()
}

func (p *Poller) Stop() {
	close(p.done)
}

func (p *Poller) pollOnce(now time.Time) {
	for _, id := range p.registry.RoomIDs() {
		room, ok := p.registry.Get(id)
		if !ok {
			continue
		}

		// Sensor read happens without the registry lock held
		temp, err := p.source.Read(room.Sensor)
		if err != nil {
			log.Warn().
				Str("room", id).
				Str("sensor_id", room.Sensor).
				Msg("No temperature reading available")
			metrics.Count("sensor.unavailable", 1, fmt.Sprintf("room:%s", id))
			p.registry.SetReading(id, model.Reading{Timestamp: now, Valid: false})
			continue
		}

		log.Debug().
			Str("room", id).
			Float64("temp", temp).
			Msg("Temperature reading stored")
		metrics.Gauge("room.temperature", temp, "component:sensor", fmt.Sprintf("room:%s", id))
		p.registry.SetReading(id, model.Reading{Temperature: temp, Timestamp: now, Valid: true})
	}
}
