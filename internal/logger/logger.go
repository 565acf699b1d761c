package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Init configures the process-wide structured logger. JSON output, level
// from LOG_LEVEL, info by default.
func Init(serviceName string) *logrus.Logger {
	log := logrus.StandardLogger()

	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "ts",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetLevel(logrus.InfoLevel)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			log.SetLevel(lvl)
		}
	}

	log.WithField("service", serviceName).Info("logger initialized")
	return log
}
