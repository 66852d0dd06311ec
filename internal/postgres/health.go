package postgres

import "sync/atomic"

// Health is the last known reachability of the database, shared between the
// background health check and request handlers.
type Health struct {
	up atomic.Bool
}

func (h *Health) Up() bool {
	return h.up.Load()
}

// Set records the health check result and reports whether it changed.
func (h *Health) Set(up bool) bool {
	return h.up.Swap(up) != up
}
