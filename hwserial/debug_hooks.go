//go:build hwserialdebug

package hwserial

import "sync/atomic"

// checkActive panics on foreground use of an Inactive UART.
func (u *UART) checkActive() {
	if !u.active {
		panic(ErrInactive)
	}
}

func (u *UART) dbgTxSpin() {
	atomic.AddUint32(&u.stats.TxSpins, 1)
}

func (u *UART) dbgTx() {
	atomic.AddUint32(&u.stats.TxBytes, 1)
}

// Called once per received byte with the Push outcome.
func (r *Receiver) dbgOnByte(putOK bool) {
	s := r.stats
	atomic.AddUint32(&s.ISRCount, 1)
	if !putOK {
		atomic.AddUint32(&s.RingDrops, 1)
		return
	}
	atomic.AddUint32(&s.RingPuts, 1)
	// track high-water mark
	used := uint32(r.rx.rb.Used())
	for {
		max := atomic.LoadUint32(&s.RingMaxUsed)
		if used <= max {
			break
		}
		if atomic.CompareAndSwapUint32(&s.RingMaxUsed, max, used) {
			break
		}
	}
}
