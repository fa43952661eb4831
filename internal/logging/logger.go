package logging

import (
	"fmt"
	"strings"

	"github.com/mikey/phish-fusion/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how a logger is built
type Options struct {
	Level string
	JSON  bool
	// Component is attached to every entry when set
	Component string
}

// InitLogger initializes the daemon logger from the logging section of the
// configuration
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	return New(Options{
		Level:     cfg.GetString("logging.level"),
		JSON:      cfg.GetString("logging.format") == "json",
		Component: "phish-fusion",
	})
}

// InitConsoleLogger initializes a console-friendly logger for phish-check
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return New(Options{Level: level, JSON: jsonFormat})
}

// New builds a logger. An empty or unknown level falls back to info.
func New(opts Options) (*zap.Logger, error) {
	var logConfig zap.Config
	if opts.JSON {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if opts.Component != "" {
		logger = logger.With(zap.String("component", opts.Component))
	}
	return logger, nil
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel
	}
	// fatal and panic would hide scoring warnings
	if level > zapcore.ErrorLevel {
		return zapcore.ErrorLevel
	}
	return level
}
