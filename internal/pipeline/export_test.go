package pipeline

import "time"

// SetBackoff shortens retry delays for tests.
func SetBackoff(p *Pipeline, initial, maxBackoff time.Duration) {
	p.initialBackoff = initial
	p.maxBackoff = maxBackoff
}
