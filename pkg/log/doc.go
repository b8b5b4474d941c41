// Package log provides the global zerolog-based logger for cloudtun.
// Call Init once at startup, then derive component loggers with
// WithComponent("reconciler") etc. Diagnostic output always goes to stderr.
package log
