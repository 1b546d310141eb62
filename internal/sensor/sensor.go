package sensor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable means no valid reading could be produced. Callers must treat
// it as "no sample", never as zero degrees.
var ErrUnavailable = errors.New("sensor reading unavailable")

// Source produces temperature readings in Celsius for opaque sensor ids.
type Source interface {
	Read(sensorID string) (float64, error)
}

const readinessBackoff = 200 * time.Millisecond

// W1Source reads DS18B20-style sensors from the 1-Wire device directory.
// The device reports readiness with a "YES" CRC flag; a sensor that never
// becomes ready within the configured timeout yields ErrUnavailable instead
// of blocking the caller.
type W1Source struct {
	basePath    string
	maxAttempts int

	readFile func(string) ([]byte, error)
	sleep    func(time.Duration)
}

func NewW1Source(basePath string, timeout time.Duration) *W1Source {
	attempts := int(timeout / readinessBackoff)
	if attempts < 1 {
		attempts = 1
	}
	return &W1Source{
		basePath:    basePath,
		maxAttempts: attempts,
		readFile:    os.ReadFile,
		sleep:       time.Sleep,
	}
}

func (s *W1Source) Read(sensorID string) (float64, error) {
	path := filepath.Join(s.basePath, sensorID, "w1_slave")

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			s.sleep(readinessBackoff)
		}

		data, err := s.readFile(path)
		if err != nil {
			log.Warn().Err(err).Str("sensor_id", sensorID).Msg("Failed to read sensor device file")
			return 0, fmt.Errorf("%w: %s", ErrUnavailable, sensorID)
		}

		lines := strings.Split(string(data), "\n")
		if len(lines) < 2 {
			log.Warn().Str("sensor_id", sensorID).Msg("Sensor device file truncated")
			return 0, fmt.Errorf("%w: %s", ErrUnavailable, sensorID)
		}

		// CRC not confirmed yet; give the bus a moment and retry
		if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
			continue
		}

		return parseTempLine(sensorID, lines[1])
	}

	log.Warn().Str("sensor_id", sensorID).Int("attempts", s.maxAttempts).Msg("Sensor never reported ready")
	return 0, fmt.Errorf("%w: %s", ErrUnavailable, sensorID)
}

func parseTempLine(sensorID, line string) (float64, error) {
	idx := strings.Index(line, "t=")
	if idx < 0 {
		log.Warn().Str("sensor_id", sensorID).Msg("Temperature field missing from sensor data")
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, sensorID)
	}

	milliC, err := strconv.Atoi(strings.TrimSpace(line[idx+2:]))
	if err != nil {
		log.Warn().Err(err).Str("sensor_id", sensorID).Msg("Malformed temperature value in sensor data")
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, sensorID)
	}

	return float64(milliC) / 1000.0, nil
}
