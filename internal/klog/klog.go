// Package klog is the kernel's leveled logger. Every subsystem logs the
// same way the teacher's fs package does: a call keyed on "the object this
// message is about" (a file descriptor, a segment, a process group) plus
// a printf-style format, rather than a bare string.
package klog

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// std is the package-level logger every Debugf/Infof/Errorf call goes
// through. Tests can swap std.Out via SetOutput without touching call
// sites, mirroring how rclone's fs package centralizes its log config.
var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts verbosity; "debug" also enables Debugf output.
func SetLevel(level string) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	std.SetLevel(lv)
	return nil
}

// SetOutput redirects log output, used by tests to capture what was logged.
func SetOutput(w interface{ Write([]byte) (int, error) }) {
	std.SetOutput(w)
}

// subject renders the object a log line is about the way fs.Debugf does:
// %v for anything with a String() method, "-" for a nil subject (a
// syscall with no natural receiver, e.g. a bare setpgid call).
func subject(o any) string {
	if o == nil {
		return "-"
	}
	if s, ok := o.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", o)
}

// Debugf logs at debug level about o.
func Debugf(o any, format string, args ...any) {
	std.WithField("obj", subject(o)).Debugf(format, args...)
}

// Infof logs at info level about o.
func Infof(o any, format string, args ...any) {
	std.WithField("obj", subject(o)).Infof(format, args...)
}

// Logf is an alias for Infof, matching the teacher's fs.Logf name for its
// default-visible log level.
func Logf(o any, format string, args ...any) {
	Infof(o, format, args...)
}

// Errorf logs at error level about o.
func Errorf(o any, format string, args ...any) {
	std.WithField("obj", subject(o)).Errorf(format, args...)
}

// Fatalf logs at fatal level about o then exits the process. No package
// in this module calls it.
func Fatalf(o any, format string, args ...any) {
	std.WithField("obj", subject(o)).Fatalf(format, args...)
}
