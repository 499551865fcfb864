//go:build avr

package hwserial

import "runtime/volatile"

// ringIndex is a ring position held in one byte. Single-byte loads and
// stores are atomic on AVR, so the receive interrupt updates it without the
// interrupt masking a 32-bit atomic costs.
type ringIndex struct{ r volatile.Register8 }

func (i *ringIndex) Load() uint32 { return uint32(i.r.Get()) }

func (i *ringIndex) Store(v uint32) { i.r.Set(uint8(v)) }

// Ring positions must fit the byte.
const _ = uint8(BufferSize - 1)
