// cmd/serialsim/main.go
// Interactive run of two simulated USARTs on the host.
//
//	keyboard -> USART0 RX -> app -> USART1 TX -+
//	                                           | loopback jumper
//	terminal <- USART0 TX <- app <- USART1 RX -+
//
// Every typed key goes through both receive rings and both transmit paths
// before it is echoed. Ctrl-C or Ctrl-] quits and prints per-channel stats.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-tty"
	"tinygo.org/x/drivers"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
	"github.com/jangala-dev/tinygo-hwserial/internal/logx"
)

type bridge struct {
	u0, u1     *hwserial.UART
	sim0, sim1 *hwserial.SimUSART
	buf        [32]byte
}

// newBridge builds both channels, begins them and wires the lines: USART0
// transmits to out, USART1 transmits into its own receiver.
func newBridge(clockHz, baud0, baud1 uint32, out io.Writer) *bridge {
	b := &bridge{}
	b.u0, b.sim0 = hwserial.NewSimPort(clockHz)
	b.u1, b.sim1 = hwserial.NewSimPort(clockHz)
	b.sim0.SetSink(out)
	b.sim1.SetSink(b.sim1)
	b.u0.Begin(baud0)
	b.u1.Begin(baud1)
	return b
}

// pump moves whatever src has buffered to dst.
func pump(dst, src drivers.UART, buf []byte) int {
	n, _ := src.Read(buf)
	if n > 0 {
		_, _ = dst.Write(buf[:n])
	}
	return n
}

// step runs one pass of the application loop and returns the bytes moved.
func (b *bridge) step() int {
	return pump(b.u1, b.u0, b.buf[:]) + pump(b.u0, b.u1, b.buf[:])
}

func (b *bridge) run(ctx context.Context, idle time.Duration) {
	for ctx.Err() == nil {
		if b.step() == 0 {
			time.Sleep(idle)
		}
	}
}

func (b *bridge) logStats() {
	for i, u := range []*hwserial.UART{b.u0, b.u1} {
		s := u.Setting()
		logx.Info(logx.ComponentSim, "channel",
			"usart", i, "baud", u.Baud(), "ubrr", s.UBRR, "u2x", s.DoubleSpeed,
			"buffered", u.Available(), "dropped", u.Dropped())
	}
}

// crlf expands LF and CR to CRLF for a terminal in raw mode.
type crlf struct{ w io.Writer }

func (c crlf) Write(p []byte) (int, error) {
	for _, ch := range p {
		var err error
		switch ch {
		case '\r', '\n':
			_, err = c.w.Write([]byte("\r\n"))
		default:
			_, err = c.w.Write([]byte{ch})
		}
		if err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func main() {
	clock := flag.Uint("clock", 16_000_000, "simulated CPU clock in Hz")
	baud0 := flag.Uint("baud0", 115200, "USART0 baud rate")
	baud1 := flag.Uint("baud1", 57600, "USART1 baud rate")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if l, err := logx.ParseLevel(*level); err == nil {
		logx.SetLevel(l)
	}

	t, err := tty.Open()
	if err != nil {
		logx.Error(logx.ComponentSim, "open tty", "err", err)
		os.Exit(1)
	}
	defer t.Close()

	b := newBridge(uint32(*clock), uint32(*baud0), uint32(*baud1), crlf{t.Output()})
	defer b.logStats()

	restore, err := t.Raw()
	if err != nil {
		logx.Error(logx.ComponentSim, "raw mode", "err", err)
		return
	}
	defer restore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.run(ctx, 200*time.Microsecond)

	fmt.Fprint(t.Output(), "hwserial simulator: type to echo through USART0 and USART1, Ctrl-] to quit\r\n")

	// This goroutine is the line: it raises USART0's receive interrupt.
	var enc [utf8.UTFMax]byte
	for {
		r, err := t.ReadRune()
		if err != nil {
			logx.Error(logx.ComponentSim, "read tty", "err", err)
			return
		}
		if r == 0x03 || r == 0x1d {
			return
		}
		n := utf8.EncodeRune(enc[:], r)
		logx.Debug(logx.ComponentSim, "deliver", "rune", r, "bytes", n)
		b.sim0.Deliver(enc[:n]...)
	}
}
