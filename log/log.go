package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

type Fields map[string]interface{}

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		LogFormat:       "[%time%][%lvl%]: %msg%\n",
	})
	l.SetLevel(logrus.DebugLevel)
	return l
}

func SetOutput(o io.Writer) {
	std.SetOutput(o)
}

func SetLogFormatter(f logrus.Formatter) {
	std.SetFormatter(f)
}

func SetLevel(level string) {
	if l, err := logrus.ParseLevel(level); err == nil {
		std.SetLevel(l)
	}
}

// Debug logs a message at level Debug on the standard logger.
func Debug(args ...interface{}) {
	std.Debug(args...)
}

// Info logs a message at level Info on the standard logger.
func Info(args ...interface{}) {
	std.Info(args...)
}

// Warn logs a message at level Warn on the standard logger.
func Warn(args ...interface{}) {
	std.Warn(args...)
}

// Error logs a message at level Error on the standard logger.
func Error(args ...interface{}) {
	std.Error(args...)
}

// Fatal logs a message at level Fatal on the standard logger.
func Fatal(args ...interface{}) {
	std.Fatal(args...)
}

// Panic logs a message at level Panic on the standard logger.
func Panic(args ...interface{}) {
	std.Panic(args...)
}

func InfoWithFields(msg string, f Fields) {
	std.WithFields(logrus.Fields(f)).Info(msg)
}

func ErrorWithFields(msg string, f Fields) {
	std.WithFields(logrus.Fields(f)).Error(msg)
}
