// Package logger wires the process-wide zap logger.
package logger

import (
	"go.uber.org/zap"
)

// Init installs the global logger. Development mode gets the console
// encoder; anything else logs production JSON.
func Init(environment string) error {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(l)
	return nil
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = zap.L().Sync()
}
