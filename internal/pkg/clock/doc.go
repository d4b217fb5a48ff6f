// Package clock provides a tiny time abstraction.
//
// Production code should depend on the Clocker and Sleeper interfaces instead
// of calling time.Now() or time.Sleep() directly. Every wait in the
// authentication flow goes through Sleeper so it stays cancellable and so
// tests can advance a fake clock instead of sleeping for real.
package clock
