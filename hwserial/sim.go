// hwserial/sim.go

//go:build !atmega2560 && !atmega1284p

package hwserial

import (
	"io"
	"sync"
	"sync/atomic"
)

// Host shim: a simulated USART for unit tests and host tools, no device or
// machine deps.

// SimRegister8 is an 8-bit register held in memory. It stands in for
// runtime/volatile.Register8 off target and is safe for concurrent use.
type SimRegister8 struct{ v atomic.Uint32 }

func (r *SimRegister8) Get() uint8 { return uint8(r.v.Load()) }

func (r *SimRegister8) Set(value uint8) { r.v.Store(uint32(value)) }

func (r *SimRegister8) SetBits(value uint8) {
	r.update(func(old uint8) uint8 { return old | value })
}

func (r *SimRegister8) ClearBits(value uint8) {
	r.update(func(old uint8) uint8 { return old &^ value })
}

func (r *SimRegister8) HasBits(value uint8) bool { return (r.Get() & value) > 0 }

func (r *SimRegister8) update(f func(uint8) uint8) {
	for {
		old := r.v.Load()
		if r.v.CompareAndSwap(old, uint32(f(uint8(old)))) {
			return
		}
	}
}

// simStatus is a status register whose hw bits only the simulated hardware
// may change.
type simStatus struct {
	SimRegister8
	hw uint8
}

func (r *simStatus) Set(value uint8) {
	r.update(func(old uint8) uint8 { return old&r.hw | value&^r.hw })
}

func (r *simStatus) SetBits(value uint8) { r.SimRegister8.SetBits(value &^ r.hw) }

func (r *simStatus) ClearBits(value uint8) { r.SimRegister8.ClearBits(value &^ r.hw) }

// simData is the shared data address: reads return the receive latch,
// writes go to the transmitter.
type simData struct {
	rx  atomic.Uint32
	dev *SimUSART
}

func (r *simData) Get() uint8 { return uint8(r.rx.Load()) }

func (r *simData) Set(value uint8) { r.dev.transmit(value) }

func (r *simData) SetBits(value uint8) { r.Set(r.Get() | value) }

func (r *simData) ClearBits(value uint8) { r.Set(r.Get() &^ value) }

func (r *simData) HasBits(value uint8) bool { return (r.Get() & value) > 0 }

// SimUSART models one byte-at-a-time USART: a receive latch and a
// transmitter behind the same data register, a data-register-empty flag owned
// by the hardware, and a receive-complete interrupt that only fires while the
// receiver and its interrupt are enabled. Bytes arriving otherwise are lost,
// as on the real part.
//
// Transmission is instantaneous unless the transmitter is stalled.
type SimUSART struct {
	BaudHigh SimRegister8
	BaudLow  SimRegister8
	Control  SimRegister8
	status   simStatus
	data     simData
	bits     Bits

	irqMu sync.Mutex // one simulated interrupt at a time, as on a single core
	irq   func()

	mu   sync.Mutex
	sent []byte
	sink io.Writer

	rxLost atomic.Uint32
	txLost atomic.Uint32
}

// NewSimUSART returns an idle USART with the AVR bit layout and an empty
// transmit data register.
func NewSimUSART() *SimUSART {
	s := &SimUSART{bits: AVRBits()}
	s.status.hw = 1 << s.bits.DataEmpty
	s.status.SimRegister8.SetBits(s.status.hw)
	s.data.dev = s
	return s
}

// NewSimPort returns a UART bound to a fresh SimUSART whose receive
// interrupt is wired to the UART's Receiver.
func NewSimPort(clockHz uint32) (*UART, *SimUSART) {
	sim := NewSimUSART()
	u, r := New(Config{
		Registers: sim.Registers(),
		Bits:      sim.Bits(),
		ClockHz:   clockHz,
	}, NewRingBuffer())
	sim.Attach(r)
	return u, sim
}

// Registers returns the register handles to pass in a Config.
func (s *SimUSART) Registers() Registers {
	return Registers{
		BaudHigh: &s.BaudHigh,
		BaudLow:  &s.BaudLow,
		Status:   &s.status,
		Control:  &s.Control,
		Data:     &s.data,
	}
}

// Bits returns the bit layout of the simulated USART.
func (s *SimUSART) Bits() Bits { return s.bits }

// Attach wires the receive-complete interrupt to r.
func (s *SimUSART) Attach(r *Receiver) {
	s.irqMu.Lock()
	s.irq = r.Handle
	s.irqMu.Unlock()
}

// Deliver simulates bytes arriving on the RX line, raising the receive
// interrupt once per byte. The caller plays the interrupt context.
func (s *SimUSART) Deliver(p ...byte) {
	armed := uint8(1<<s.bits.RxEnable | 1<<s.bits.RxInterrupt)
	s.irqMu.Lock()
	defer s.irqMu.Unlock()
	for _, c := range p {
		if s.irq == nil || s.Control.Get()&armed != armed {
			s.rxLost.Add(1)
			continue
		}
		s.data.rx.Store(uint32(c))
		s.irq()
	}
}

// Write delivers p as received bytes, so one SimUSART can be the transmit
// sink of another.
func (s *SimUSART) Write(p []byte) (int, error) {
	s.Deliver(p...)
	return len(p), nil
}

// SetSink sends every transmitted byte to w as well as recording it.
func (s *SimUSART) SetSink(w io.Writer) {
	s.mu.Lock()
	s.sink = w
	s.mu.Unlock()
}

func (s *SimUSART) transmit(c byte) {
	if !s.Control.HasBits(1 << s.bits.TxEnable) {
		s.txLost.Add(1)
		return
	}
	s.mu.Lock()
	s.sent = append(s.sent, c)
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		_, _ = sink.Write([]byte{c})
	}
}

// Stall holds the data register busy so that a transmitting UART spins.
func (s *SimUSART) Stall() { s.status.SimRegister8.ClearBits(s.status.hw) }

// Release marks the data register empty again.
func (s *SimUSART) Release() { s.status.SimRegister8.SetBits(s.status.hw) }

// Transmitted returns a copy of every byte transmitted so far.
func (s *SimUSART) Transmitted() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.sent...)
}

// Status returns the raw status register.
func (s *SimUSART) Status() uint8 { return s.status.Get() }

// Divisor returns the programmed UBRR value.
func (s *SimUSART) Divisor() uint16 {
	return uint16(s.BaudHigh.Get())<<8 | uint16(s.BaudLow.Get())
}

// DoubleSpeed reports whether U2X is set.
func (s *SimUSART) DoubleSpeed() bool {
	return s.status.HasBits(1 << s.bits.DoubleSpeed)
}

// RxLost returns how many delivered bytes were lost because the receiver or
// its interrupt was disabled.
func (s *SimUSART) RxLost() uint32 { return s.rxLost.Load() }

// TxLost returns how many bytes were written while the transmitter was
// disabled.
func (s *SimUSART) TxLost() uint32 { return s.txLost.Load() }
