package hwserial

import "tinygo.org/x/drivers"

// UART can be handed to any tinygo.org/x/drivers device that talks over a
// serial line.
var _ drivers.UART = (*UART)(nil)

// Stream returns u as the stream interface expected by tinygo.org/x/drivers
// devices and by print-style formatting layers.
func (u *UART) Stream() drivers.UART { return u }
