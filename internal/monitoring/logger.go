// Package monitoring holds the diagnostic logger shared by the dataset tools.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf.
// Library code logs through it so that the CLI can mute it with --quiet and
// tests can capture it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput routes Logf to a standard logger writing to w with the given prefix.
func SetOutput(w io.Writer, prefix string) {
	l := log.New(w, prefix, log.LstdFlags)
	Logf = l.Printf
}

// Framef logs a message about a single capture frame, prefixed with its token.
func Framef(token int, format string, v ...interface{}) {
	args := make([]interface{}, 0, len(v)+1)
	args = append(args, token)
	args = append(args, v...)
	Logf("frame %d: "+format, args...)
}
