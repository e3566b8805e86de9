package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logrus builds per-component loggers sharing a level and an output.
type Logrus struct {
	level  string
	output io.Writer
}

// NewLogrus creates a new logrus factory. A nil output means stderr.
func NewLogrus(level string, output io.Writer) *Logrus {
	if output == nil {
		output = os.Stderr
	}
	return &Logrus{level: level, output: output}
}

// Get returns a logger tagged with the given component name. An unknown level
// falls back to info.
func (l *Logrus) Get(context string) *logrus.Entry {
	log := logrus.New()
	level, err := logrus.ParseLevel(l.level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(l.output)

	return log.WithFields(logrus.Fields{
		"Context": context,
	})
}
