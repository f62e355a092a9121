package logger

import (
	"go.uber.org/zap"
)

// Init builds the process-wide zap logger. Development mode gets the
// human-readable console encoder, everything else logs JSON.
func Init(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
