// hwserial/registers.go

package hwserial

// Register8 is an 8-bit memory-mapped peripheral register.
// *runtime/volatile.Register8 implements it on TinyGo targets.
type Register8 interface {
	Get() uint8
	Set(value uint8)
	SetBits(value uint8)
	ClearBits(value uint8)
	HasBits(value uint8) bool
}

// Registers are the USART registers a UART drives. Data is both the receive
// buffer (read) and the transmit buffer (write).
type Registers struct {
	BaudHigh Register8 // UBRRnH
	BaudLow  Register8 // UBRRnL
	Status   Register8 // UCSRnA
	Control  Register8 // UCSRnB
	Data     Register8 // UDRn
}

// Bits are bit positions (not masks) within the Status and Control registers.
type Bits struct {
	RxEnable    uint8 // RXENn in Control
	TxEnable    uint8 // TXENn in Control
	RxInterrupt uint8 // RXCIEn in Control
	DoubleSpeed uint8 // U2Xn in Status
	DataEmpty   uint8 // UDREn in Status; 0 selects the AVR position
}

// AVR USART bit positions, identical for every USART on the megaAVR parts.
const (
	bitRXCIE = 7
	bitUDRE  = 5
	bitRXEN  = 4
	bitTXEN  = 3
	bitU2X   = 1
)

// AVRBits returns the bit layout shared by all megaAVR USARTs.
func AVRBits() Bits {
	return Bits{
		RxEnable:    bitRXEN,
		TxEnable:    bitTXEN,
		RxInterrupt: bitRXCIE,
		DoubleSpeed: bitU2X,
		DataEmpty:   bitUDRE,
	}
}

func (b Bits) control() uint8 {
	return 1<<b.RxEnable | 1<<b.TxEnable | 1<<b.RxInterrupt
}
