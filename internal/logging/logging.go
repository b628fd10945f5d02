// Package logging configures the daemon's structured logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger writing text-formatted lines to stderr, with
// the level taken from the TOUCHCTL_LOG environment variable (falling back
// to info). This mirrors the level-from-env pattern used across the
// example corpus's daemons.
func New() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(os.Getenv("TOUCHCTL_LOG"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
