package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Init(level zerolog.Level) {
	logFile, err := os.OpenFile("/var/log/climate-controller.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)

	var logger zerolog.Logger
	if err != nil {
		// No log file available (dev box, missing permissions): stderr only
		logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	} else {
		multi := zerolog.MultiLevelWriter(logFile, os.Stderr)
		logger = zerolog.New(multi).Level(level).With().Timestamp().Logger()
	}
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("Log level set to DEBUG")
	}
}
