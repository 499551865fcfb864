//go:build hwserialdebug

package hwserial

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	// Receive interrupt
	ISRCount    uint32 // Receiver.Handle calls
	RingPuts    uint32 // bytes stored in the ring
	RingDrops   uint32 // bytes dropped because the ring was full
	RingMaxUsed uint32 // high-water mark of ring occupancy

	// Transmit
	TxBytes uint32 // bytes written to the data register
	TxSpins uint32 // status polls that found the data register busy
}

func (u *UART) DebugReset() {
	atomic.StoreUint32(&u.stats.ISRCount, 0)
	atomic.StoreUint32(&u.stats.RingPuts, 0)
	atomic.StoreUint32(&u.stats.RingDrops, 0)
	atomic.StoreUint32(&u.stats.RingMaxUsed, 0)
	atomic.StoreUint32(&u.stats.TxBytes, 0)
	atomic.StoreUint32(&u.stats.TxSpins, 0)
}

func (u *UART) DebugStats() Stats {
	// Field-wise atomic loads; the ISR may update counters mid-copy.
	return Stats{
		ISRCount:    atomic.LoadUint32(&u.stats.ISRCount),
		RingPuts:    atomic.LoadUint32(&u.stats.RingPuts),
		RingDrops:   atomic.LoadUint32(&u.stats.RingDrops),
		RingMaxUsed: atomic.LoadUint32(&u.stats.RingMaxUsed),

		TxBytes: atomic.LoadUint32(&u.stats.TxBytes),
		TxSpins: atomic.LoadUint32(&u.stats.TxSpins),
	}
}

// Regs is a snapshot of the USART registers. The data register is left out:
// reading it would consume a received byte.
type Regs struct {
	UBRRH uint8
	UBRRL uint8
	UCSRA uint8
	UCSRB uint8
}

func (u *UART) DebugRegs() Regs {
	return Regs{
		UBRRH: u.regs.BaudHigh.Get(),
		UBRRL: u.regs.BaudLow.Get(),
		UCSRA: u.regs.Status.Get(),
		UCSRB: u.regs.Control.Get(),
	}
}
