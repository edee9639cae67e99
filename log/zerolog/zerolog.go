package zerolog

import (
	"github.com/rs/zerolog"
	"github.com/unkn0wn-root/sessioncache"
)

var _ sessioncache.Logger = ZerologLogger{}

type ZerologLogger struct{ L zerolog.Logger }

// New tags every line with component=sessioncache.
func New(l zerolog.Logger) ZerologLogger {
	return ZerologLogger{L: l.With().Str("component", "sessioncache").Logger()}
}

func (z ZerologLogger) Debug(msg string, f sessioncache.Fields) { z.emit(z.L.Debug(), msg, f) }
func (z ZerologLogger) Info(msg string, f sessioncache.Fields)  { z.emit(z.L.Info(), msg, f) }
func (z ZerologLogger) Warn(msg string, f sessioncache.Fields)  { z.emit(z.L.Warn(), msg, f) }
func (z ZerologLogger) Error(msg string, f sessioncache.Fields) { z.emit(z.L.Error(), msg, f) }

func (z ZerologLogger) emit(e *zerolog.Event, msg string, f sessioncache.Fields) {
	if e == nil {
		return // level disabled
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
