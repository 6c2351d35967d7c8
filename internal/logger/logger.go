package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. Production output is JSON so it can be
// shipped as-is; development output is human readable.
func New(level string, isProduction bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if isProduction {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("invalid log level, using info")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	return logger
}
