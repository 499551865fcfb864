// cmd/serialmon/main.go
// Serial monitor for boards running hwserial. Opens a host serial port,
// bridges it to the terminal in raw mode, and warns when the rate the target
// will actually produce (UBRR rounding at its CPU clock) is too far from the
// host's rate for reliable framing.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-tty"
	"go.bug.st/serial"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
	"github.com/jangala-dev/tinygo-hwserial/internal/logx"
)

// Receivers resample mid-bit; beyond about 2% the stop bit drifts out.
const maxErrorPermille = 20

func main() {
	list := flag.Bool("list", false, "list serial ports and exit")
	port := flag.String("port", "", "serial port, e.g. /dev/ttyACM0 or COM3")
	baud := flag.Uint("baud", 115200, "baud rate passed to Begin on the target")
	clock := flag.Uint("clock", 16_000_000, "target CPU clock in Hz")
	reset := flag.Bool("reset", false, "pulse DTR after opening (auto-reset boards)")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	if l, err := logx.ParseLevel(*level); err == nil {
		logx.SetLevel(l)
	}

	if *list {
		if err := listPorts(os.Stdout); err != nil {
			logx.Error(logx.ComponentMonitor, "list ports", "err", err)
			os.Exit(1)
		}
		return
	}
	if *port == "" {
		fmt.Fprintln(os.Stderr, "serialmon: -port is required (see -list)")
		os.Exit(2)
	}

	s, e, ok := checkRate(uint32(*clock), uint32(*baud))
	logx.Info(logx.ComponentBaud, "target divisor",
		"baud", *baud, "ubrr", s.UBRR, "u2x", s.DoubleSpeed, "actual", s.Rate(uint32(*clock)), "error_permille", e)
	if !ok {
		logx.Warn(logx.ComponentBaud, "target rate error exceeds tolerance, expect framing errors",
			"error_permille", e, "limit", maxErrorPermille)
	}

	if err := monitor(*port, int(*baud), *reset); err != nil {
		logx.Error(logx.ComponentMonitor, "monitor", "port", *port, "err", err)
		os.Exit(1)
	}
}

// checkRate returns the target's divisor for baud, its error in parts per
// thousand, and whether that error is within tolerance.
func checkRate(clockHz, baud uint32) (hwserial.BaudSetting, int, bool) {
	s := hwserial.Divisor(clockHz, baud)
	e := s.ErrorPermille(clockHz, baud)
	return s, e, e <= maxErrorPermille && e >= -maxErrorPermille
}

func listPorts(w io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

func monitor(name string, baud int, reset bool) error {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer p.Close()

	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	if reset {
		if err := pulseDTR(p); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("open tty: %w", err)
	}
	defer t.Close()
	restore, err := t.Raw()
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer restore()

	logx.Info(logx.ComponentMonitor, "connected, Ctrl-] to quit", "port", name, "baud", baud)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	portErr := make(chan error, 1)
	go func() { portErr <- copyLoop(ctx, t.Output(), p) }()

	// ReadRune blocks, so keys are read on their own goroutine and a port
	// failure ends the session without waiting for a keystroke.
	keys := make(chan rune)
	keyErr := make(chan error, 1)
	go func() {
		for {
			r, err := t.ReadRune()
			if err != nil {
				keyErr <- err
				return
			}
			select {
			case keys <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	return forwardKeys(p, keys, keyErr, portErr)
}

// forwardKeys writes each key to dst as UTF-8 until Ctrl-] is typed or
// either side fails. A nil on portErr means the port reached EOF.
func forwardKeys(dst io.Writer, keys <-chan rune, keyErr, portErr <-chan error) error {
	var enc [utf8.UTFMax]byte
	for {
		select {
		case err := <-portErr:
			return err
		case err := <-keyErr:
			return fmt.Errorf("read tty: %w", err)
		case r := <-keys:
			if r == 0x1d {
				return nil
			}
			n := utf8.EncodeRune(enc[:], r)
			if _, err := dst.Write(enc[:n]); err != nil {
				return fmt.Errorf("write port: %w", err)
			}
		}
	}
}

// pulseDTR drops DTR briefly; boards with an auto-reset capacitor restart
// into their bootloader and then the sketch.
func pulseDTR(p serial.Port) error {
	if err := p.SetDTR(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := p.SetDTR(true); err != nil {
		return err
	}
	return p.ResetInputBuffer()
}

// copyLoop copies src to dst until ctx ends or src fails. A read that times
// out returns 0, nil and is retried.
func copyLoop(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write terminal: %w", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read port: %w", err)
		}
	}
	return nil
}
