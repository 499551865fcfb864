//go:build (atmega2560 || atmega1284p) && hwserialdebug

package main

import (
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-hwserial/hwserial"
)

/*
USART register and counter diagnostic.

Report goes out on USART0. USART1 runs in loopback, TX1 jumpered to RX1.

	tinygo flash -target=arduino-mega2560 -serial=none -tags hwserialdebug ./cmd/hwserial_diag
*/

// ---------- Tunables ----------
var rates = []uint32{9600, 57600, 115200, 250000, 500000, 1000000}

const (
	burstLen = 300 // more than one ring's worth
)

var console *hwserial.UART

// ---------- Minimal formatting helpers (no fmt) ----------
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
func u8hex(v uint8) string {
	const hd = "0123456789abcdef"
	return string([]byte{hd[v>>4], hd[v&0xF]})
}
func say(s string)                { console.Write([]byte(s + "\r\n")) }
func printKV(k string, v string)  { say("  " + k + ": " + v) }
func printU8(k string, v uint8)   { printKV(k, "0x"+u8hex(v)) }
func printU32(k string, v uint32) { printKV(k, itoa(int(v))) }

func report(u *hwserial.UART) {
	r := u.DebugRegs()
	printU8("UBRRH", r.UBRRH)
	printU8("UBRRL", r.UBRRL)
	printU8("UCSRA", r.UCSRA)
	printU8("UCSRB", r.UCSRB)
}

func reportStats(u *hwserial.UART) {
	s := u.DebugStats()
	printU32("isr", s.ISRCount)
	printU32("ring puts", s.RingPuts)
	printU32("ring drops", s.RingDrops)
	printU32("ring max used", s.RingMaxUsed)
	printU32("tx bytes", s.TxBytes)
	printU32("tx spins", s.TxSpins)
}

// burst sends n pattern bytes while the ring is drained only after the
// burst, then checks that what was kept is the leading run of the pattern.
func burst(u *hwserial.UART, n int) (kept, bad int) {
	for i := 0; i < n; i++ {
		u.Send(byte(i*31 + 0x55))
	}
	time.Sleep(5 * time.Millisecond)
	for i := 0; ; i++ {
		c := u.Get()
		if c < 0 {
			return kept, bad
		}
		if c != int(byte(i*31+0x55)) {
			bad++
		}
		kept++
	}
}

// ---------- Test orchestration ----------
func main() {
	var err error
	if console, err = hwserial.OpenUSART0(); err != nil {
		return
	}
	console.Begin(115200)
	time.Sleep(2 * time.Second)
	say("hwserial diagnostic start")

	u, err := hwserial.OpenUSART1()
	if err != nil {
		say("OpenUSART1: " + err.Error())
		return
	}

	say("Before Begin:")
	report(u)

	clk := machine.CPUFrequency()
	for _, baud := range rates {
		u.Begin(baud)
		s := u.Setting()
		say("")
		say("Begin(" + itoa(int(baud)) + "):")
		report(u)
		printKV("divisor", itoa(int(s.UBRR)))
		printKV("actual", itoa(int(s.Rate(clk))))
		printKV("error permille", itoa(s.ErrorPermille(clk, baud)))

		u.Clear()
		u.DebugReset()
		kept, bad := burst(u, burstLen)
		printKV("burst kept", itoa(kept))
		printKV("burst mismatched", itoa(bad))
		printKV("dropped total", itoa(int(u.Dropped())))
		reportStats(u)
	}

	u.End()
	say("")
	say("After End:")
	report(u)
	say("done")

	for {
		time.Sleep(time.Second)
	}
}
