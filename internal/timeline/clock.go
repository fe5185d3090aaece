package timeline

import "sync"

// PlaybackClock is the last reported playback position in seconds.
type PlaybackClock struct {
	mu sync.RWMutex
	t  float64
}

// Set records the playback position.
func (c *PlaybackClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Time implements representation.PlaybackClock.
func (c *PlaybackClock) Time() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}
