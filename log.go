package serial

import "github.com/sirupsen/logrus"

// componentLogger returns a nil-safe logger for a named component.
// Callers pass nil for entry to fall back to the package logger rooted
// at logrus's standard logger, matching the ambient-logging idiom the
// rest of the pack uses for device-driving code.
func componentLogger(entry *logrus.Entry, component string) *logrus.Entry {
	if entry != nil {
		return entry.WithField("component", component)
	}
	return logrus.StandardLogger().WithField("component", component)
}
