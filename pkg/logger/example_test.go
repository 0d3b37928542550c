package logger_test

import (
	"errors"

	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	log := logger.New(&config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	})

	log.WithComponent("frontier").WithFields(map[string]interface{}{
		"trials":      1000,
		"min_var_vol": 0.81,
	}).Info("Frontier search completed")

	log.WithError(errors.New("upstream timeout")).Error("Price sync failed")
}
