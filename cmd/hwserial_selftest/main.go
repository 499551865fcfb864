//go:build atmega2560 || atmega1284p

// Self-test for hwserial on a Mega-class board.
//
// USART0 carries the report to the host; build with -serial=none so the
// machine package does not also claim it. USART1 is tested in loopback:
// jumper TX1 to RX1 (pins 18 and 19 on an Arduino Mega) before flashing.
//
//	tinygo flash -target=arduino-mega2560 -serial=none ./cmd/hwserial_selftest
package main

import (
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
)

const (
	consoleBaud = 115200
	testBaud    = 115200
	lineEnding  = "\r\n"
)

var console *hwserial.UART

func say(s string) { console.Write([]byte(s + lineEnding)) }

func drain(u *hwserial.UART) {
	for u.Get() >= 0 {
	}
}

// waitAvailable spins until at least n bytes are buffered or d elapses.
func waitAvailable(u *hwserial.UART, n int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for u.Available() < n {
		if time.Now().After(deadline) {
			return false
		}
	}
	return true
}

// settle waits a few character times so bytes still on the wire land.
func settle(u *hwserial.UART) {
	bits := 10 * 4 * time.Second / time.Duration(u.Setting().Rate(machine.CPUFrequency()))
	time.Sleep(bits + time.Millisecond)
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}

func main() {
	var err error
	if console, err = hwserial.OpenUSART0(); err != nil {
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	console.Begin(consoleBaud)
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Give the monitor time to attach after the auto-reset.
	time.Sleep(2 * time.Second)
	say("hwserial self-test starting")

	u, err := hwserial.OpenUSART1()
	if err != nil {
		say("OpenUSART1 failed: " + err.Error())
		return
	}
	if _, err := hwserial.OpenUSART1(); err != hwserial.ErrInUse {
		say("second OpenUSART1 did not report ErrInUse")
	}
	u.Begin(testBaud)
	settle(u)
	drain(u)

	pass, fail := 0, 0
	run := func(name string, f func() string) {
		say("")
		say("[Test] " + name)
		if msg := f(); msg == "" {
			say("  PASS")
			pass++
		} else {
			say("  FAIL: " + msg)
			fail++
		}
	}

	run("divisor: registers match Divisor", func() string {
		want := hwserial.Divisor(machine.CPUFrequency(), testBaud)
		if !u.Active() || u.Setting() != want {
			return "setting " + itoa(int(u.Setting().UBRR)) + " want " + itoa(int(want.UBRR))
		}
		say("  ubrr=" + itoa(int(want.UBRR)) + " u2x=" + btoa(want.DoubleSpeed) +
			" error=" + itoa(want.ErrorPermille(machine.CPUFrequency(), testBaud)) + " permille")
		return ""
	})

	run("order: short loopback", func() string {
		drain(u)
		msg := []byte("hello, hwserial")
		u.Write(msg)
		if !waitAvailable(u, len(msg), 200*time.Millisecond) {
			return "timeout, have " + itoa(u.Available())
		}
		for i, want := range msg {
			if got := u.Get(); got != int(want) {
				return "byte " + itoa(i) + " = " + itoa(got)
			}
		}
		return ""
	})

	run("empty: Get and Peek return -1", func() string {
		drain(u)
		if u.Get() != -1 || u.Peek() != -1 {
			return "not empty"
		}
		return ""
	})

	run("peek: does not consume", func() string {
		drain(u)
		u.Send('P')
		if !waitAvailable(u, 1, 100*time.Millisecond) {
			return "timeout"
		}
		if u.Peek() != 'P' || u.Peek() != 'P' || u.Available() != 1 {
			return "peek changed state"
		}
		if u.Get() != 'P' || u.Available() != 0 {
			return "get after peek"
		}
		return ""
	})

	run("clear: discards received bytes", func() string {
		drain(u)
		u.Write([]byte("12345"))
		if !waitAvailable(u, 5, 100*time.Millisecond) {
			return "timeout"
		}
		u.Clear()
		if u.Available() != 0 {
			return "available " + itoa(u.Available())
		}
		return ""
	})

	run("overflow: 200 bytes unread", func() string {
		drain(u)
		before := u.Dropped()
		for i := 0; i < 200; i++ {
			u.Send(byte(i))
		}
		settle(u)
		if u.Available() != hwserial.BufferSize-1 {
			return "available " + itoa(u.Available())
		}
		if d := u.Dropped() - before; d != 200-(hwserial.BufferSize-1) {
			return "dropped " + itoa(int(d))
		}
		for i := 0; i < hwserial.BufferSize-1; i++ {
			if got := u.Get(); got != i {
				return "kept byte " + itoa(i) + " = " + itoa(got)
			}
		}
		return ""
	})

	run("57600: normal speed", func() string {
		u.Begin(57600)
		settle(u)
		drain(u)
		if u.Setting().DoubleSpeed {
			return "U2X set"
		}
		u.Write([]byte("slow"))
		if !waitAvailable(u, 4, 200*time.Millisecond) {
			return "timeout"
		}
		var got [4]byte
		if n, _ := u.Read(got[:]); n != 4 || string(got[:]) != "slow" {
			return "mismatch"
		}
		return ""
	})

	run("9600: low rate loopback", func() string {
		u.Begin(9600)
		settle(u)
		drain(u)
		u.Write([]byte("ok"))
		if !waitAvailable(u, 2, 100*time.Millisecond) {
			return "timeout"
		}
		if u.Get() != 'o' || u.Get() != 'k' {
			return "mismatch"
		}
		return ""
	})

	run("end: disables and discards", func() string {
		u.Write([]byte("zz"))
		u.End()
		if u.Active() {
			return "still active"
		}
		if u.Available() != 0 {
			return "available " + itoa(u.Available())
		}
		time.Sleep(5 * time.Millisecond)
		if u.Available() != 0 {
			return "received after End"
		}
		return ""
	})

	say("")
	say("Summary")
	say("  passed = " + itoa(pass))
	say("  failed = " + itoa(fail))
	console.Flush()
	if fail == 0 {
		ledBlink(3, 120*time.Millisecond)
		return
	}
	for {
		ledBlink(1, 600*time.Millisecond)
		time.Sleep(800 * time.Millisecond)
	}
}

// --- tiny helpers (no fmt) ---

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
