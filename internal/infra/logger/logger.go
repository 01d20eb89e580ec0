package logger

import (
	"os"
	"strings"

	"outreach_scheduler/internal/infra/config"

	"github.com/sirupsen/logrus"
)

const serviceName = "outreach-scheduler"

// Log is the process-wide logger. Components log through Component.
var Log = logrus.New()

// Init applies level and format from cfg. An unknown level falls back to info.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(formatterFor(cfg.Environment))

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		Log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	Log.SetLevel(level)
	Log.WithFields(logrus.Fields{
		"level":       level.String(),
		"environment": cfg.Environment,
	}).Debug("Logger configured")
}

// formatterFor picks JSON with ingest-friendly keys for deployed environments and text elsewhere.
func formatterFor(environment string) logrus.Formatter {
	switch strings.ToLower(environment) {
	case "production", "staging":
		return &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		}
	}
}

// Component returns an entry tagged with the service and component names.
func Component(name string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"service":   serviceName,
		"component": name,
	})
}
