package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New: текстовый вывод с debug для local, JSON с info для остальных окружений
func New(env string) *logrus.Logger {
	return NewWithOutput(env, os.Stdout)
}

func NewWithOutput(env string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	if env == "local" {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return log
	}

	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}
