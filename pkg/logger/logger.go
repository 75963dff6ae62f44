package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func init() {
	Log = logrus.New()

	// Output to stdout instead of the default stderr
	Log.Out = os.Stdout

	// Structured JSON logs so entries stay parseable in cloud log viewers
	Log.SetFormatter(&logrus.JSONFormatter{})

	Log.SetLevel(logrus.InfoLevel)
}

// SetDebug switches the logger to debug level for local development.
func SetDebug() {
	Log.SetLevel(logrus.DebugLevel)
}
