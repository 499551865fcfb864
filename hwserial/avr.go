// hwserial/avr.go

//go:build atmega2560 || atmega1284p

package hwserial

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
	"sync/atomic"
)

// Both parts have two USARTs with the same register layout. Buffers and
// UARTs are allocated statically; OpenUSART0/OpenUSART1 hand each one out once.
var (
	rxBuffer0, rxBuffer1 RingBuffer

	usart0, receiver0 = New(Config{
		Registers: Registers{
			BaudHigh: avr.UBRR0H,
			BaudLow:  avr.UBRR0L,
			Status:   avr.UCSR0A,
			Control:  avr.UCSR0B,
			Data:     avr.UDR0,
		},
		Bits:    AVRBits(),
		ClockHz: machine.CPUFrequency(),
	}, &rxBuffer0)

	usart1, receiver1 = New(Config{
		Registers: Registers{
			BaudHigh: avr.UBRR1H,
			BaudLow:  avr.UBRR1L,
			Status:   avr.UCSR1A,
			Control:  avr.UCSR1B,
			Data:     avr.UDR1,
		},
		Bits:    AVRBits(),
		ClockHz: machine.CPUFrequency(),
	}, &rxBuffer1)

	claimed0, claimed1 atomic.Bool
)

func init() {
	interrupt.New(avr.IRQ_USART0_RX, func(interrupt.Interrupt) { receiver0.Handle() })
	interrupt.New(avr.IRQ_USART1_RX, func(interrupt.Interrupt) { receiver1.Handle() })
}

// OpenUSART0 returns the UART for USART0. Only the first call succeeds; later
// calls return ErrInUse so that the peripheral has exactly one owner.
func OpenUSART0() (*UART, error) {
	if !claimed0.CompareAndSwap(false, true) {
		return nil, ErrInUse
	}
	return usart0, nil
}

// OpenUSART1 returns the UART for USART1, once.
func OpenUSART1() (*UART, error) {
	if !claimed1.CompareAndSwap(false, true) {
		return nil, ErrInUse
	}
	return usart1, nil
}
