//go:build !hwserialdebug

package hwserial

type Stats struct{}

func (u *UART) DebugReset()       {}
func (u *UART) DebugStats() Stats { return Stats{} }

type Regs struct{}

func (u *UART) DebugRegs() Regs { return Regs{} }

func (u *UART) checkActive()       {}
func (u *UART) dbgTxSpin()         {}
func (u *UART) dbgTx()             {}
func (r *Receiver) dbgOnByte(bool) {}
