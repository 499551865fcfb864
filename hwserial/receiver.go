// hwserial/receiver.go

package hwserial

// Receiver is the receive-interrupt side of a UART. It holds the only
// producer view of the UART's ring buffer.
type Receiver struct {
	data  Register8
	rx    Producer
	stats *Stats
}

// Handle reads one byte from the data register and pushes it into the ring
// buffer, dropping it if the buffer is full. It must only be called from the
// USART's receive-complete interrupt, or from whatever stands in for it.
func (r *Receiver) Handle() {
	c := r.data.Get()
	ok := r.rx.Push(c)
	r.dbgOnByte(ok)
}
