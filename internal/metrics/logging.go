/*-------------------------------------------------------------------------
 *
 * logging.go
 *    Global logger initialization
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/metrics/logging.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

/* InitLogging configures the global zerolog logger. Format is "json" or
 * "console"; unknown levels fall back to info. */
func InitLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if format == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
}
