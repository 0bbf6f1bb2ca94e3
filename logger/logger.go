// Package log is the logging facade shared by all minjq packages.
// Printf only writes when Debug is set.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Debug bool

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	std.SetLevel(logrus.DebugLevel)
	if os.Getenv("MINJQ_DEBUG") != "" {
		Debug = true
	}
}

// Logger returns the underlying logrus logger, e.g. to redirect output.
func Logger() *logrus.Logger {
	return std
}

func Printf(format string, v ...interface{}) {
	if Debug {
		std.Debugf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	std.Infof(format, v...)
}

func Errorf(format string, v ...interface{}) {
	std.Errorf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	std.Fatalf(format, v...)
}
