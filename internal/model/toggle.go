package model

import "sync/atomic"

// Toggle is an embeddable enabled flag safe for concurrent use.
type Toggle struct {
	on atomic.Bool
}

func (t *Toggle) Enabled() bool      { return t.on.Load() }
func (t *Toggle) SetEnabled(on bool) { t.on.Store(on) }
