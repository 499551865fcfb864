// hwserial/baud.go

package hwserial

// DefaultBaudRate is used when Begin is asked for a rate of zero.
const DefaultBaudRate = 115200

const (
	// maxUBRR is the largest divisor the 12-bit UBRR register can hold.
	maxUBRR = 4095

	// fixedNormalSpeedBaud always runs with double-speed off. Bootloaders and
	// USB bridge firmware that talk to these boards expect the normal-speed
	// divisor at this rate.
	fixedNormalSpeedBaud = 57600
)

// BaudSetting is the divisor and speed mode programmed into a USART.
type BaudSetting struct {
	UBRR        uint16 // clock divisor, high byte to UBRRnH and low byte to UBRRnL
	DoubleSpeed bool   // U2Xn: sample at 8x instead of 16x
}

// Divisor picks the divisor for baud given the peripheral input clock.
//
// Double-speed is preferred because it halves the divisor granularity. If
// the double-speed divisor does not fit the 12-bit register, the normal-speed
// divisor is used instead; this fallback happens at most once. A rate of 57600
// always uses normal speed. Nothing is validated: rates the clock cannot
// produce still yield some divisor, computed with unsigned wrap-around like
// the 16-bit register variable it ends up in.
func Divisor(clockHz, baud uint32) BaudSetting {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	s := BaudSetting{DoubleSpeed: baud != fixedNormalSpeedBaud}
	for attempt := 0; attempt < 2; attempt++ {
		if s.DoubleSpeed {
			s.UBRR = uint16((clockHz/4/baud - 1) / 2)
		} else {
			s.UBRR = uint16((clockHz/8/baud - 1) / 2)
		}
		if s.UBRR <= maxUBRR || !s.DoubleSpeed {
			break
		}
		s.DoubleSpeed = false
	}
	return s
}

// Rate returns the bit rate the USART actually produces with this setting.
func (s BaudSetting) Rate(clockHz uint32) uint32 {
	div := uint64(16)
	if s.DoubleSpeed {
		div = 8
	}
	return uint32(uint64(clockHz) / (div * (uint64(s.UBRR) + 1)))
}

// ErrorPermille returns the signed deviation of the produced rate from baud,
// in parts per thousand. Receivers usually tolerate about ±20.
func (s BaudSetting) ErrorPermille(clockHz, baud uint32) int {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	diff := int64(s.Rate(clockHz)) - int64(baud)
	return int(diff * 1000 / int64(baud))
}
