package logi

import (
	"fmt"
	"io"
)

// DebugFlag indexes the fixed array of per-subsystem debug flags. Flags are
// strictly observational: no flag value alters the success or failure of any
// computation, heap contents, or trail contents; only diagnostic text output
// differs.
type DebugFlag int

const (
	// ProgFlag traces program flow: one line per executed instruction.
	ProgFlag DebugFlag = iota
	// GotoFlag traces the target of every control jump.
	GotoFlag
	// CallFlag traces call entry.
	CallFlag
	// HeapFlag traces heap allocation and binding activity.
	HeapFlag
	// DetStackFlag traces environment frame push/pop.
	DetStackFlag
	// NondStackFlag traces choicepoint push/pop/cut.
	NondStackFlag
	// FinalFlag reports the terminal state of each run.
	FinalFlag
	// MemFlag reports region sizes at initialization.
	MemFlag
	// SRegFlag dumps the register file at each observation point.
	SRegFlag
	// DetailFlag raises the verbosity of the other flags.
	DetailFlag
	// MaxFlag is the flag count; DetailFlag is the last real flag.
	MaxFlag
)

var flagNames = [MaxFlag]string{
	"prog", "goto", "call", "heap", "detstack", "nondstack",
	"final", "mem", "sreg", "detail",
}

func (f DebugFlag) String() string {
	if f < 0 || f >= MaxFlag {
		return fmt.Sprintf("flag(%d)", int(f))
	}
	return flagNames[f]
}

// FlagByName resolves a debug flag name as used by the external debugger.
func FlagByName(name string) (DebugFlag, bool) {
	for i, n := range flagNames {
		if n == name {
			return DebugFlag(i), true
		}
	}
	return 0, false
}

// FlagNames returns the recognized debug flag names in index order.
func FlagNames() []string {
	names := make([]string, MaxFlag)
	copy(names, flagNames[:])
	return names
}

// DebugFlagSet reports whether flag is on.
func (m *Machine) DebugFlagSet(f DebugFlag) bool {
	return f >= 0 && f < MaxFlag && m.debugflag[f]
}

// SetDebugFlag toggles flag. Safe only between steps.
func (m *Machine) SetDebugFlag(f DebugFlag, on bool) {
	if f >= 0 && f < MaxFlag {
		m.debugflag[f] = on
	}
}

// SetDebugOut redirects diagnostic emission. Safe only between steps.
func (m *Machine) SetDebugOut(w io.Writer) {
	m.debugOut = w
}

func (m *Machine) debugProg(pc CodeAddr, c instr) {
	if !m.debugflag[ProgFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\t%d\t%s\n", pc, m.prog.disasmInstr(pc))
	if m.debugflag[DetailFlag] {
		m.dumpRegs()
	}
}

func (m *Machine) debugGoto(target CodeAddr, why string) {
	if !m.debugflag[GotoFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tgoto %s (%s)\n", target, why)
	if m.debugflag[SRegFlag] {
		m.dumpRegs()
	}
}

func (m *Machine) debugCall(target CodeAddr) {
	if !m.debugflag[CallFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tcall %s, succip %s\n", target, m.succip)
}

func (m *Machine) debugCallEntry(entry CodeAddr) {
	if !m.debugflag[CallFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tcall_engine %s\n", entry)
}

func (m *Machine) debugHeap(addr Addr, n int) {
	if !m.debugflag[HeapFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\theap alloc %d at %d, hp %d\n", n, addr, m.heap.hp())
}

func (m *Machine) debugBind(addr Addr, cell Cell) {
	if !m.debugflag[HeapFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tbind %d to %s\n", addr, cell)
}

func (m *Machine) debugTrail(addr Addr) {
	if !m.debugflag[HeapFlag] || !m.debugflag[DetailFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\ttrail %d, tr %d\n", addr, m.trail.tr())
}

func (m *Machine) debugDetStack(event string, n int) {
	if !m.debugflag[DetStackFlag] {
		return
	}
	if event == "push" {
		fmt.Fprintf(m.debugOut, "\tdetstack push %d slots, sp %d\n", n, m.det.sp())
	} else {
		fmt.Fprintf(m.debugOut, "\tdetstack pop, sp %d\n", m.det.sp())
	}
}

func (m *Machine) debugNondStack(event string, cp *choicepoint) {
	if !m.debugflag[NondStackFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tnondstack %s, redoip %s, maxfr %d\n",
		event, cp.redoip, m.nond.maxfr())
	if m.debugflag[DetailFlag] {
		fmt.Fprintf(m.debugOut, "\t\tsaved hp %d tr %d sp %d succip %s\n",
			cp.hp, cp.tr, cp.sp, cp.succip)
	}
}

func (m *Machine) debugFinal() {
	if !m.debugflag[FinalFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\tfinal %s after %d steps\n", m.status, m.steps)
	if m.debugflag[SRegFlag] || m.debugflag[DetailFlag] {
		m.dumpRegs()
	}
}

func (m *Machine) debugMemReport() {
	if !m.debugflag[MemFlag] {
		return
	}
	fmt.Fprintf(m.debugOut, "\theap limit      = %d cells\n", m.heap.limit)
	fmt.Fprintf(m.debugOut, "\ttrail limit     = %d entries\n", m.trail.limit)
	fmt.Fprintf(m.debugOut, "\tdetstack limit  = %d slots\n", m.det.limit)
	fmt.Fprintf(m.debugOut, "\tnondstack limit = %d choicepoints\n", m.nond.limit)
}

func (m *Machine) dumpRegs() {
	fmt.Fprintf(m.debugOut, "\t\t%s\n", m.Registers())
}
