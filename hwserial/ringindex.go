//go:build !avr

package hwserial

import "sync/atomic"

// ringIndex is a ring position shared between goroutines on the host.
type ringIndex struct{ v atomic.Uint32 }

func (i *ringIndex) Load() uint32 { return i.v.Load() }

func (i *ringIndex) Store(v uint32) { i.v.Store(v) }
