package log

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	waLevelDebug = iota
	waLevelInfo
	waLevelWarn
	waLevelError
	waLevelFatal
	waLevelSilent
)

var waLevels = map[string]int{
	"debug":  waLevelDebug,
	"info":   waLevelInfo,
	"warn":   waLevelWarn,
	"error":  waLevelError,
	"fatal":  waLevelFatal,
	"silent": waLevelSilent,
}

// waLogger routes whatsmeow logs into logrus with its own minimum level
type waLogger struct {
	entry *logrus.Entry
	min   int
}

// WhatsApp builds a whatsmeow logger writing through logrus.
// Unknown levels fall back to "warn".
func WhatsApp(module string, level string) waLog.Logger {
	min, ok := waLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		min = waLevelWarn
	}
	return &waLogger{
		entry: logger.WithField("module", module),
		min:   min,
	}
}

func (l *waLogger) Debugf(msg string, args ...interface{}) {
	if l.min <= waLevelDebug {
		l.entry.Debug(fmt.Sprintf(msg, args...))
	}
}

func (l *waLogger) Infof(msg string, args ...interface{}) {
	if l.min <= waLevelInfo {
		l.entry.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *waLogger) Warnf(msg string, args ...interface{}) {
	if l.min <= waLevelWarn {
		l.entry.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *waLogger) Errorf(msg string, args ...interface{}) {
	if l.min <= waLevelError {
		l.entry.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *waLogger) Sub(module string) waLog.Logger {
	parent, _ := l.entry.Data["module"].(string)
	if parent != "" {
		module = parent + "/" + module
	}
	return &waLogger{
		entry: logger.WithField("module", module),
		min:   l.min,
	}
}
