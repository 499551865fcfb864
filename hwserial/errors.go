package hwserial

import "errors"

var (
	// ErrBufferEmpty is returned by ReadByte when no byte is buffered.
	ErrBufferEmpty = errors.New("UART buffer empty")

	// ErrInUse is returned when a USART has already been handed out.
	ErrInUse = errors.New("USART already in use")

	// ErrInactive reports use of a UART outside Begin/End. Only builds with
	// the hwserialdebug tag check for it.
	ErrInactive = errors.New("UART not active")
)
