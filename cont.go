package logi

import "strconv"

// CodeAddr is a code address: an index into the program's instruction slice.
// Negative addresses are reserved entry points that the dispatch loop resolves
// to control-transfer continuations, so generated code can store them as retry
// addresses or success continuations like any other address.
type CodeAddr int

// Reserved entry addresses.
const (
	// DoFail pops the newest choicepoint, restores its snapshot, unwinds
	// the trail above its saved mark, and jumps to its retry address.
	// With no choicepoint left the whole computation is exhausted.
	DoFail CodeAddr = -1 - iota
	// DoRedo asks for the next solution: a fail targeted at the newest
	// live choicepoint without a preceding failure signal.
	DoRedo
	// DoSucceed transfers to the success continuation. No rewind.
	DoSucceed
	// DoResetHPFail fails like DoFail and additionally rewinds the heap
	// pointer to the solution watermark below the choicepoint's saved
	// mark.
	DoResetHPFail
	// DoResetFramevar0Fail fails like DoFail and clears framevar slot 0 of
	// the target choicepoint before transferring to its retry address.
	DoResetFramevar0Fail
	// DoNotReached marks code that must never be executed. Reaching it is
	// a fatal invariant violation, never a normal control target.
	DoNotReached
	// doEngineDone is the success continuation installed by CallEngine;
	// reaching it terminates the dispatch loop with overall success.
	doEngineDone
)

// continuation is the closed set of control-transfer primitives the dispatch
// loop switches over. Control transfer between code fragments is a direct
// jump to a stored address, never a nested Go call: backtracking has to be
// able to resume into code that has already returned, so the host call stack
// must not hold any backtracking state.
type continuation int

const (
	contNone continuation = iota
	contFail
	contRedo
	contSucceed
	contResetHPFail
	contResetFramevar0Fail
	contNotReached
)

func (c continuation) String() string {
	switch c {
	case contNone:
		return "none"
	case contFail:
		return "fail"
	case contRedo:
		return "redo"
	case contSucceed:
		return "succeed"
	case contResetHPFail:
		return "reset_hp_fail"
	case contResetFramevar0Fail:
		return "reset_framevar0_fail"
	case contNotReached:
		return "not_reached"
	default:
		return "continuation(" + strconv.Itoa(int(c)) + ")"
	}
}

// entryContinuation maps a reserved entry address to its continuation, and
// reports whether addr is reserved at all.
func entryContinuation(addr CodeAddr) (continuation, bool) {
	switch addr {
	case DoFail:
		return contFail, true
	case DoRedo:
		return contRedo, true
	case DoSucceed:
		return contSucceed, true
	case DoResetHPFail:
		return contResetHPFail, true
	case DoResetFramevar0Fail:
		return contResetFramevar0Fail, true
	case DoNotReached:
		return contNotReached, true
	default:
		return contNone, false
	}
}

func (a CodeAddr) String() string {
	switch a {
	case DoFail:
		return "do_fail"
	case DoRedo:
		return "do_redo"
	case DoSucceed:
		return "do_succeed"
	case DoResetHPFail:
		return "do_reset_hp_fail"
	case DoResetFramevar0Fail:
		return "do_reset_framevar0_fail"
	case DoNotReached:
		return "do_not_reached"
	case doEngineDone:
		return "engine_done"
	default:
		return strconv.Itoa(int(a))
	}
}
