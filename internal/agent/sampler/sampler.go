// Package sampler isolates platform-dependent activity sampling behind a
// capability interface. The implementation is selected once at build time;
// platforms without a native backend get a no-op fallback so the agent keeps
// reporting with placeholder values.
package sampler

import "time"

// Sampler reads the current foreground activity state of the endpoint.
type Sampler interface {
	// ActiveWindowTitle returns the title of the foreground window
	ActiveWindowTitle() (string, error)
	// IdleTime returns the time since the last user input
	IdleTime() (time.Duration, error)
}
