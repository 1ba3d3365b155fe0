package logi

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Status is the terminal or suspension state of an engine run.
type Status int

const (
	// StatusIdle means the engine has been initialized but no entry point
	// has been called yet.
	StatusIdle Status = iota
	// StatusRunning means execution is suspended between two instructions
	// (single-stepping); the engine can be stepped or resumed.
	StatusRunning
	// StatusSuccess means the computation reached the success
	// continuation. Further solutions may exist; request them with Redo.
	StatusSuccess
	// StatusExhausted means the nondeterministic stack is exhausted: no
	// (more) solutions. This is logical failure, not an error.
	StatusExhausted
	// StatusAborted means a fatal invariant violation stopped the engine.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusExhausted:
		return "exhausted"
	case StatusAborted:
		return "aborted"
	default:
		return "status(" + fmt.Sprint(int(s)) + ")"
	}
}

// Registers is the engine register file. The heap pointer is monotonic except
// on explicit backtrack rewind; SP only grows on call and shrinks on return;
// MaxFr only grows on choicepoint creation and shrinks on consumption.
type Registers struct {
	PC     CodeAddr
	SuccIP CodeAddr
	HP     Addr
	SolHP  Addr
	TR     int
	SP     int
	MaxFr  int
}

func (r Registers) String() string {
	return fmt.Sprintf("pc=%s succip=%s hp=%d solhp=%d tr=%d sp=%d maxfr=%d",
		r.PC, r.SuccIP, r.HP, r.SolHP, r.TR, r.SP, r.MaxFr)
}

// Machine is one engine instance: register file, heap, trail, both stacks,
// and debug flags. All state is exclusively owned by the single logical
// thread running the engine; an attached debugger may read or mutate state
// only between steps, never concurrently with an in-flight instruction.
type Machine struct {
	id   uuid.UUID
	prog *Program

	pc     CodeAddr
	succip CodeAddr
	solhp  Addr

	heap  *heap
	trail *trail
	det   *detStack
	nond  *nondStack

	// framevars of the nondeterministic frame the current code runs in.
	// These survive the owning choicepoint's consumption: the retried
	// alternative still addresses them.
	curfv []Addr

	status    Status
	steps     int
	solutions int

	stepLimit int
	debugflag [MaxFlag]bool
	debugOut  io.Writer

	cmds map[string]*TraceCmd
}

// NewMachine allocates and default-initializes an engine for prog: empty
// stacks, empty heap and trail, all debug flags off. Re-initializing a live
// engine is not supported; create a new one or Reset between runs.
func NewMachine(prog *Program, opts ...Option) *Machine {
	m := &Machine{
		id:       uuid.New(),
		prog:     prog,
		debugOut: os.Stderr,
		cmds:     map[string]*TraceCmd{},
	}
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	m.heap = newHeap(cfg.heapLimit)
	m.trail = newTrail(cfg.trailLimit)
	m.det = newDetStack(cfg.detLimit)
	m.nond = newNondStack(cfg.nondLimit)
	m.stepLimit = cfg.stepLimit
	if cfg.debugOut != nil {
		m.debugOut = cfg.debugOut
	}
	for _, f := range cfg.debugFlags {
		m.debugflag[f] = true
	}
	m.resetState()
	m.debugMemReport()
	return m
}

// ID returns the engine instance identifier.
func (m *Machine) ID() uuid.UUID {
	return m.id
}

// Program returns the program the engine executes.
func (m *Machine) Program() *Program {
	return m.prog
}

// Status returns the engine's current state.
func (m *Machine) Status() Status {
	return m.status
}

// Steps returns the number of dispatch steps executed since the last reset.
func (m *Machine) Steps() int {
	return m.steps
}

// Solutions returns the number of solutions reported since the last reset.
func (m *Machine) Solutions() int {
	return m.solutions
}

// Registers returns a copy of the register file.
func (m *Machine) Registers() Registers {
	return Registers{
		PC:     m.pc,
		SuccIP: m.succip,
		HP:     m.heap.hp(),
		SolHP:  m.solhp,
		TR:     m.trail.tr(),
		SP:     m.det.sp(),
		MaxFr:  m.nond.maxfr(),
	}
}

// Reset tears down all execution state, returning the engine to the state it
// had right after initialization. Debug flags are kept.
func (m *Machine) Reset() {
	m.heap.reset()
	m.trail.reset()
	m.det.reset()
	m.nond.reset()
	m.resetState()
}

func (m *Machine) resetState() {
	m.pc = 0
	m.succip = doEngineDone
	m.solhp = 0
	m.curfv = nil
	m.status = StatusIdle
	m.steps = 0
	m.solutions = 0
}

// CallEngine transfers control to the code address entry and runs the
// dispatch loop until a terminal state: overall success, exhaustion of the
// nondeterministic stack, or a fatal invariant violation. Only this boundary
// uses ordinary Go call/return; all control transfer inside is a direct jump.
func (m *Machine) CallEngine(entry CodeAddr) (Status, error) {
	if err := m.Start(entry); err != nil {
		return m.status, err
	}
	return m.run()
}

// Start transfers control to entry but suspends before the first step,
// leaving the engine ready for single-stepping with Step or Resume.
func (m *Machine) Start(entry CodeAddr) error {
	if m.status == StatusRunning {
		return &engineStateError{"start", m.status}
	}
	if entry < 0 || int(entry) >= len(m.prog.code) {
		_, err := m.fatal(&badAddressError{m.errState(), entry})
		return err
	}
	m.succip = doEngineDone
	m.pc = entry
	m.status = StatusRunning
	m.debugCallEntry(entry)
	return nil
}

// StartEntry resolves a label and starts the engine at its address.
func (m *Machine) StartEntry(label string) error {
	entry, ok := m.prog.Lookup(label)
	if !ok {
		return &unknownEntryError{label}
	}
	return m.Start(entry)
}

// CallEntry resolves a label and calls the engine at its address.
func (m *Machine) CallEntry(label string) (Status, error) {
	entry, ok := m.prog.Lookup(label)
	if !ok {
		return m.status, &unknownEntryError{label}
	}
	return m.CallEngine(entry)
}

// Redo requests the next solution: a fail targeted at the newest live
// choicepoint, without a preceding failure signal. Against an empty
// nondeterministic stack it reports exhaustion, exactly like fail.
func (m *Machine) Redo() (Status, error) {
	switch m.status {
	case StatusSuccess, StatusExhausted:
	default:
		return m.status, &engineStateError{"redo", m.status}
	}
	m.pc = DoRedo
	m.status = StatusRunning
	return m.run()
}

// Resume continues a suspended (single-stepped) engine to a terminal state.
func (m *Machine) Resume() (Status, error) {
	if m.status != StatusRunning {
		return m.status, &engineStateError{"resume", m.status}
	}
	return m.run()
}

// run is the trampoline: it repeatedly executes the current continuation
// until a terminal state is reached. The Go call stack never holds
// backtracking state, so a failed alternative can resume into code that has
// already been left behind.
func (m *Machine) run() (Status, error) {
	for {
		st, err := m.Step()
		if err != nil || st != StatusRunning {
			return st, err
		}
	}
}

// Step executes a single dispatch step: one instruction, or one
// control-transfer continuation when PC holds a reserved entry address.
func (m *Machine) Step() (Status, error) {
	if m.status != StatusRunning {
		return m.status, &engineStateError{"step", m.status}
	}
	m.steps++
	if m.stepLimit > 0 && m.steps > m.stepLimit {
		return m.fatal(&stepLimitError{m.errState(), m.stepLimit})
	}
	if cont, ok := entryContinuation(m.pc); ok {
		return m.perform(cont)
	}
	if m.pc < 0 || int(m.pc) >= len(m.prog.code) {
		return m.fatal(&badAddressError{m.errState(), m.pc})
	}
	return m.execute()
}

// perform carries out one control-transfer primitive. The set is closed; the
// switch is exhaustive over it.
func (m *Machine) perform(c continuation) (Status, error) {
	switch c {
	case contSucceed:
		m.debugGoto(m.succip, "succeed")
		if m.succip == doEngineDone {
			return m.succeedEngine()
		}
		m.pc = m.succip
		return m.status, nil
	case contFail:
		return m.backtrack(contFail)
	case contRedo:
		return m.backtrack(contRedo)
	case contResetHPFail:
		return m.backtrack(contResetHPFail)
	case contResetFramevar0Fail:
		return m.backtrack(contResetFramevar0Fail)
	case contNotReached:
		return m.fatal(&notReachedError{m.errState(), m.pc})
	default:
		return m.fatal(&notReachedError{m.errState(), m.pc})
	}
}

func (m *Machine) succeedEngine() (Status, error) {
	m.status = StatusSuccess
	m.solutions++
	m.debugFinal()
	return m.status, nil
}

// backtrack consumes the newest choicepoint: restore its register snapshot,
// undo the trail entries recorded above its saved trail pointer in strict
// reverse creation order, rewind the heap to its saved mark, and jump to its
// retry address. The retried alternative observes exactly the bindings that
// existed when the choicepoint was created.
func (m *Machine) backtrack(c continuation) (Status, error) {
	if m.nond.empty() {
		// Exhaustion: no rewind is possible, none is performed.
		m.status = StatusExhausted
		m.debugFinal()
		return m.status, nil
	}
	cp := m.nond.pop()
	m.debugNondStack("pop", &cp)
	if dangling, ok := m.trail.unwind(m.heap, cp.tr); !ok {
		// A reset_hp_fail rewound past a cell an older choicepoint's
		// trail entry still references.
		return m.fatal(&badHeapAddrError{m.errState(), dangling})
	}
	m.heap.rewind(cp.hp)
	m.det.truncate(cp.sp)
	m.succip = cp.succip
	m.solhp = cp.solhp
	m.curfv = cp.slots
	switch c {
	case contResetHPFail:
		// Extra cleanup: rewind below the saved mark, to the solution
		// watermark recorded when the choicepoint was created.
		if cp.solhp < cp.hp {
			m.heap.rewind(cp.solhp)
		}
	case contResetFramevar0Fail:
		if len(cp.slots) > 0 {
			cp.slots[0] = InvalidAddr
		}
	}
	m.debugGoto(cp.redoip, c.String())
	m.pc = cp.redoip
	return m.status, nil
}

func (m *Machine) fatal(err EngineError) (Status, error) {
	m.status = StatusAborted
	m.debugFinal()
	return m.status, err
}

func (m *Machine) errState() engineErr {
	return engineErr{m.Registers()}
}
