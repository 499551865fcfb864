// hwserial/uart.go

// Package hwserial drives a byte-at-a-time AVR-style USART. Received bytes are
// pushed into a ring buffer by the receive interrupt and drained by foreground
// code through non-blocking Available/Peek/Get (or the io.Reader methods).
// Transmit is synchronous: Send spins on the data-register-empty flag and
// writes the data register directly, with no software transmit buffer.
//
// A UART is Inactive until Begin and again after End. Foreground operations
// are only meaningful while Active; see the individual methods.
package hwserial

// Config binds a UART to one USART.
type Config struct {
	Registers Registers
	Bits      Bits
	ClockHz   uint32 // peripheral input clock (F_CPU)
}

// UART is the foreground side of one USART. It owns the consumer view of its
// receive ring; the matching Receiver owns the producer view.
//
// UART methods must not be called concurrently with each other. They may be
// preempted at any point by the Receiver.
type UART struct {
	rx      Consumer
	rb      *RingBuffer
	regs    Registers
	bits    Bits
	clockHz uint32

	active  bool
	baud    uint32      // last rate passed to Begin
	setting BaudSetting // divisor chosen for baud

	stats Stats
}

// New binds a UART and its Receiver to cfg and rb. Nothing is written to the
// registers until Begin. rb must not be shared with another UART.
func New(cfg Config, rb *RingBuffer) (*UART, *Receiver) {
	if cfg.Bits.DataEmpty == 0 {
		cfg.Bits.DataEmpty = bitUDRE
	}
	u := &UART{
		rx:      rb.Consumer(),
		rb:      rb,
		regs:    cfg.Registers,
		bits:    cfg.Bits,
		clockHz: cfg.ClockHz,
	}
	r := &Receiver{
		data:  cfg.Registers.Data,
		rx:    rb.Producer(),
		stats: &u.stats,
	}
	return u, r
}

// Begin programs the divisor for baud (see Divisor), sets or clears
// double-speed mode, and enables the receiver, the transmitter and the
// receive interrupt. It may be called again to change the rate; buffered data
// is kept.
func (u *UART) Begin(baud uint32) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	s := Divisor(u.clockHz, baud)

	u.regs.BaudHigh.Set(uint8(s.UBRR >> 8))
	u.regs.BaudLow.Set(uint8(s.UBRR))
	if s.DoubleSpeed {
		u.regs.Status.Set(1 << u.bits.DoubleSpeed)
	} else {
		u.regs.Status.Set(0)
	}
	u.regs.Control.SetBits(u.bits.control())

	u.baud = baud
	u.setting = s
	u.active = true
}

// End flushes, disables the receiver, transmitter and receive interrupt, and
// discards any buffered received bytes. With the receiver off nothing new
// arrives, so the buffer stays empty until the next Begin.
func (u *UART) End() {
	u.Flush()
	u.regs.Control.ClearBits(u.bits.control())
	u.rx.Clear()
	u.active = false
}

// Flush is a no-op: Send writes straight to the data register, so there is
// nothing queued in software. It does not wait for the last byte to leave the
// shift register.
func (u *UART) Flush() {}

// Active reports whether the UART is between Begin and End.
func (u *UART) Active() bool { return u.active }

// Baud returns the rate passed to the last Begin, or 0 before the first.
func (u *UART) Baud() uint32 { return u.baud }

// Setting returns the divisor programmed by the last Begin.
func (u *UART) Setting() BaudSetting { return u.setting }

// Available returns the number of received bytes waiting to be read.
// Requires an Active UART.
func (u *UART) Available() int { return u.rx.Count() }

// Clear discards all buffered received bytes.
func (u *UART) Clear() { u.rx.Clear() }

// Peek returns the next received byte without consuming it, or -1 if there
// is none. Requires an Active UART.
func (u *UART) Peek() int {
	b, ok := u.rx.Peek()
	if !ok {
		return -1
	}
	return int(b)
}

// Get consumes and returns the next received byte, or -1 if there is none.
// Requires an Active UART.
func (u *UART) Get() int {
	b, ok := u.rx.Pop()
	if !ok {
		return -1
	}
	return int(b)
}

// Send waits for the data register to empty and writes c to it. It always
// returns 1. There is no timeout: if the USART never drains, Send never
// returns. The receive interrupt keeps running while Send spins.
//
// Calling Send on an Inactive UART is a precondition violation: the byte is
// written to a disabled transmitter. Builds with the hwserialdebug tag panic
// with ErrInactive instead.
func (u *UART) Send(c byte) int {
	u.checkActive()
	empty := uint8(1 << u.bits.DataEmpty)
	for !u.regs.Status.HasBits(empty) {
		u.dbgTxSpin()
	}
	u.regs.Data.Set(c)
	u.dbgTx()
	return 1
}

// Dropped returns how many received bytes were discarded because the buffer
// was full.
func (u *UART) Dropped() uint32 { return u.rb.Dropped() }

// ---------- machine.UART-compatible behaviour ----------

// Buffered returns the number of bytes currently stored in the RX buffer.
func (u *UART) Buffered() int { return u.Available() }

// ReadByte reads a single byte from the RX buffer.
// If there is no data available, it returns ErrBufferEmpty.
func (u *UART) ReadByte() (byte, error) {
	if b, ok := u.rx.Pop(); ok {
		return b, nil
	}
	return 0, ErrBufferEmpty
}

// Read copies up to len(p) buffered bytes into p. It never blocks: with
// nothing buffered it returns 0, nil, like machine.UART.
func (u *UART) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, ok := u.rx.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// WriteByte sends a single byte, blocking until the data register accepts it.
func (u *UART) WriteByte(c byte) error {
	u.Send(c)
	return nil
}

// Write sends p one byte at a time through Send. It blocks until the last
// byte has been written to the data register and never returns an error.
func (u *UART) Write(p []byte) (int, error) {
	for _, c := range p {
		u.Send(c)
	}
	return len(p), nil
}
