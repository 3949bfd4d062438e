package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger for LOG_MODE. Anything other than
// "development" gets the JSON production config.
func NewLogger(mode string) (*zap.Logger, error) {
	var zapConfig zap.Config
	if mode == "development" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	return zapConfig.Build(zap.AddCaller())
}
