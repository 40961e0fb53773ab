package app

import "github.com/stocktrail/stocktrail/pkg/logger"

// ConfigureLogging initialises the global logger from configuration.
func ConfigureLogging(cfg LoggingConfig) error {
	return logger.Init(cfg.Level, cfg.Encoding)
}
