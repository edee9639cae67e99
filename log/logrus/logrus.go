package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/sessioncache"
)

var _ sessioncache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every line with component=sessioncache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "sessioncache")}
}

func (l LogrusLogger) Debug(msg string, f sessioncache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f sessioncache.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f sessioncache.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f sessioncache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
