package logging

import (
	"log"
	"os"
)

// Logger is the logging capability handed to services. Constructors receive
// it explicitly instead of reaching for a package-level logger.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// StdLogger writes leveled lines through the standard library log package.
type StdLogger struct {
	info *log.Logger
	warn *log.Logger
	err  *log.Logger
}

// NewStdLogger creates a logger writing info/warn to stdout and errors to stderr.
func NewStdLogger() *StdLogger {
	return &StdLogger{
		info: log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warn: log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		err:  log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Infof logs info level messages
func (l *StdLogger) Infof(format string, v ...interface{}) {
	l.info.Printf(format, v...)
}

// Warnf logs warning level messages
func (l *StdLogger) Warnf(format string, v ...interface{}) {
	l.warn.Printf(format, v...)
}

// Errorf logs error level messages
func (l *StdLogger) Errorf(format string, v ...interface{}) {
	l.err.Printf(format, v...)
}

// Nop discards all log output. Used in tests.
type Nop struct{}

func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}
