package logger

import "go.uber.org/zap"

var Log *zap.Logger

func Init() {
	Log = zap.Must(zap.NewProduction())
}

// InitDevelopment switches to the human-readable encoder; used by adminutil
// commands and tests.
func InitDevelopment() {
	Log = zap.Must(zap.NewDevelopment())
}

func Sugar() *zap.SugaredLogger {
	return Log.Sugar()
}
