package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the command logger: console output on stderr by
// default, or a size-rotated file when --log-file is set.
func newLogger(config *rootCmdConfig) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if config.logFile != "" {
		w = &lumberjack.Logger{
			Filename:   config.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}
	}

	level := zerolog.InfoLevel
	if config.verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
