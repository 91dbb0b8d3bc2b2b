// Package logger builds the zap loggers shared by every component.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/campus-booking/internal/config"
)

// New returns a JSON logger at cfg.Level named after the service.  An
// empty sink writes to stderr; otherwise the sink is opened as a file
// path or zap sink URL.
func New(cfg config.Log, name string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	ws := zapcore.Lock(os.Stderr)
	if cfg.Sink != "" {
		if sink, _, err := zap.Open(cfg.Sink); err == nil {
			ws = sink
		}
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zap.NewAtomicLevelAt(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named(name)
}
