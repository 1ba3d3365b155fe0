package logi

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildProgram(t *testing.T, build func(a *Assembler)) *Program {
	t.Helper()
	a := NewAssembler()
	build(a)
	prog, err := a.Assemble()
	require.NoError(t, err)
	return prog
}

// stepUntil single-steps the machine until PC reaches addr.
func stepUntil(t *testing.T, m *Machine, addr CodeAddr) {
	t.Helper()
	for m.Registers().PC != addr {
		st, err := m.Step()
		require.NoError(t, err)
		require.Equal(t, StatusRunning, st, "terminated before reaching %s", addr)
	}
}

func TestCallEngineSuccess(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "hello").
			Deallocate().
			Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, m.Solutions())
	assert.Equal(t, 1, m.HeapLen())
}

func TestCallEngineUnknownEntry(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Succeed()
	})
	m := NewMachine(prog)
	_, err := m.CallEntry("nope")
	assert.EqualError(t, err, "undefined entry point: nope")
}

// A computation creating no choicepoint whose single path fails reports
// exhaustion immediately, with no rewind performed.
func TestExhaustionWithoutChoicepoint(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "x").
			Fail()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, st)
	// No rewind happened: the allocation is still there.
	assert.Equal(t, 1, m.HeapLen())
	assert.Equal(t, 0, m.Solutions())
}

// For a choicepoint push immediately followed by fail with no intervening
// mutation, the post-fail register state equals the pre-push snapshot, with
// PC at the retry address.
func TestFailRestoresPrePushSnapshot(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Nop().
			Try(0, "alt").
			Fail().
			Label("alt").
			Succeed()
	})
	m := NewMachine(prog)
	require.NoError(t, m.StartEntry("main"))

	tryAddr, ok := prog.Lookup("main")
	require.True(t, ok)
	stepUntil(t, m, tryAddr+1) // after nop, at try
	pre := m.Registers()

	st, err := m.Step() // try
	require.NoError(t, err)
	require.Equal(t, StatusRunning, st)
	assert.Equal(t, pre.MaxFr+1, m.Registers().MaxFr)

	st, err = m.Step() // fail
	require.NoError(t, err)
	require.Equal(t, StatusRunning, st)

	alt, ok := prog.Lookup("alt")
	require.True(t, ok)
	want := pre
	want.PC = alt
	assert.Empty(t, cmp.Diff(want, m.Registers()))

	st, err = m.Resume()
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
}

// Scenario A: one choicepoint with two alternatives, zero prior trail
// entries. CallEngine reports the first alternative's outcome; a following
// Redo reports the second alternative's success with the heap rewound to the
// choicepoint's mark before that alternative executed.
func TestRedoRetriesSecondAlternative(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "pre").
			Try(0, "alt2").
			Const(EnvSlot(0), "one").
			Succeed().
			Label("alt2").
			Const(EnvSlot(0), "two").
			Succeed()
	})
	m := NewMachine(prog)

	st, err := m.CallEntry("main")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 2, m.HeapLen())
	frames := m.EnvFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "one", m.Readback(frames[0].Slots[0]))

	st, err = m.Redo()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	assert.Equal(t, 2, m.Solutions())
	// The heap was rewound to the choicepoint's mark before the second
	// alternative allocated its own cell.
	assert.Equal(t, 2, m.HeapLen())
	frames = m.EnvFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "two", m.Readback(frames[0].Slots[0]))

	st, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, st)
}

// Redo against an empty nondeterministic stack yields the same outcome as
// fail against an empty stack: overall exhaustion.
func TestRedoAgainstEmptyStack(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	st, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, st)
	// A further redo still reports exhaustion.
	st, err = m.Redo()
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, st)
}

// Failing back to a choicepoint undoes exactly the trail entries created
// after its saved trail pointer and no entry created before it.
func TestTrailUnwinding(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(3).
			NewVar(EnvSlot(0)).
			NewVar(EnvSlot(1)).
			NewVar(EnvSlot(2)).
			Try(0, "outer_alt").
			GetConst(EnvSlot(0), "a").
			Try(0, "inner_alt").
			GetConst(EnvSlot(1), "b").
			Fail().
			Label("inner_alt").
			Succeed().
			Label("outer_alt").
			NotReached()
	})
	m := NewMachine(prog)
	require.NoError(t, m.StartEntry("main"))
	inner, ok := prog.Lookup("inner_alt")
	require.True(t, ok)
	stepUntil(t, m, inner)

	// The fail into the inner choicepoint undid the binding of slot 1 but
	// left the binding of slot 0, which predates that choicepoint.
	c0, ok := m.HeapCell(0)
	require.True(t, ok)
	assert.Equal(t, TagAtom, c0.Tag)
	assert.Equal(t, "a", c0.Atom)
	c1, ok := m.HeapCell(1)
	require.True(t, ok)
	assert.Equal(t, TagUnbound, c1.Tag)
	assert.Equal(t, []Addr{0}, m.TrailEntries())

	st, err := m.Resume()
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
}

// After failing back to a choicepoint, the heap pointer never exceeds its
// saved mark.
func TestHeapRewindOnFail(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "pre").
			Try(0, "alt").
			Const(EnvSlot(0), "junk1").
			Const(EnvSlot(0), "junk2").
			Fail().
			Label("alt").
			Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	// Only the pre-choicepoint cell remains.
	assert.Equal(t, 1, m.HeapLen())
}

// reset_hp_fail performs the standard fail restore plus a heap rewind below
// the choicepoint's saved mark, to the recorded solution watermark.
func TestResetHPFail(t *testing.T) {
	build := func(failOp func(a *Assembler) *Assembler) *Program {
		a := NewAssembler()
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "keep").
			MarkHP().
			Const(EnvSlot(0), "junk").
			Try(0, "alt")
		failOp(a)
		a.Label("alt").
			Succeed()
		prog, err := a.Assemble()
		require.NoError(t, err)
		return prog
	}

	m := NewMachine(build(func(a *Assembler) *Assembler { return a.ResetHPFail() }))
	st, err := m.CallEngine(0)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	// Rewound below the choicepoint's mark, to the watermark.
	assert.Equal(t, 1, m.HeapLen())

	m = NewMachine(build(func(a *Assembler) *Assembler { return a.Fail() }))
	st, err = m.CallEngine(0)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	// A plain fail only restores the choicepoint's own mark.
	assert.Equal(t, 2, m.HeapLen())
}

// A reset_hp_fail whose choicepoint never ran markhp rewinds to the stale
// watermark, discarding a cell an older choicepoint's trail entry still
// names. Failing into that older choicepoint must abort with a diagnostic,
// not write past the heap.
func TestResetHPFailStrandedTrail(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			NewVar(EnvSlot(0)).
			Try(0, "outer_alt").
			GetConst(EnvSlot(0), "a").
			Try(0, "inner_alt").
			ResetHPFail()
		a.Label("inner_alt").
			Fail()
		a.Label("outer_alt").
			Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	var engineErr EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Contains(t, err.Error(), "dangling heap address 0")
}

// Scenario C: a choicepoint's retry path depends on framevar 0 starting
// cleared. reset_framevar0_fail clears it; a plain fail leaves it unchanged.
func TestResetFramevar0Fail(t *testing.T) {
	build := func(failOp func(a *Assembler) *Assembler) *Program {
		a := NewAssembler()
		a.Label("main").
			Allocate(1).
			Const(EnvSlot(0), "x").
			Try(1, "retrypath").
			Move(Framevar(0), EnvSlot(0))
		failOp(a)
		a.Label("retrypath").
			JumpUnbound(Framevar(0), "cleared").
			Fail().
			Label("cleared").
			Succeed()
		prog, err := a.Assemble()
		require.NoError(t, err)
		return prog
	}

	m := NewMachine(build(func(a *Assembler) *Assembler { return a.ResetFramevar0Fail() }))
	st, err := m.CallEngine(0)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st, "framevar 0 reads as cleared at the retried address")

	m = NewMachine(build(func(a *Assembler) *Assembler { return a.Fail() }))
	st, err = m.CallEngine(0)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, st, "a plain fail leaves framevar 0 unchanged")
}

func TestCutDiscardsChoicepoint(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			NewVar(EnvSlot(0)).
			Try(0, "alt").
			GetConst(EnvSlot(0), "a").
			Cut().
			Fail().
			Label("alt").
			NotReached()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	// The cut removed the only choicepoint, so the fail exhausts the
	// computation instead of retrying, and the binding survives.
	assert.Equal(t, StatusExhausted, st)
	c0, ok := m.HeapCell(0)
	require.True(t, ok)
	assert.Equal(t, "a", c0.Atom)
}

func TestUnifyBacktracking(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(3).
			NewVar(EnvSlot(0)).
			NewVar(EnvSlot(1)).
			Try(0, "alt").
			Unify(EnvSlot(0), EnvSlot(1)).
			GetConst(EnvSlot(0), "a").
			GetConst(EnvSlot(1), "b"). // a /= b
			NotReached().
			Label("alt").
			Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	// Both variables are unbound again after the backtrack.
	for addr := Addr(0); addr < 2; addr++ {
		c, ok := m.HeapCell(addr)
		require.True(t, ok)
		assert.Equal(t, TagUnbound, c.Tag, "cell %d", addr)
	}
	assert.Empty(t, m.TrailEntries())
}

func TestUnifyCompound(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(4).
			NewVar(EnvSlot(0)).
			Const(EnvSlot(1), "a").
			Compound(EnvSlot(2), "f", EnvSlot(0), EnvSlot(1)).
			NewVar(EnvSlot(3)).
			Compound(EnvSlot(3), "f", EnvSlot(3), EnvSlot(3)).
			Unify(EnvSlot(2), EnvSlot(3)).
			Succeed()
	})
	// f(X, a) = f(Y, Y) binds X and Y to a.
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)
	frames := m.EnvFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, "f(a, a)", m.Readback(frames[0].Slots[2]))
	assert.Equal(t, "a", m.Readback(frames[0].Slots[0]))
}

func TestNotReachedAborts(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").NotReached()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	var engineErr EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Contains(t, err.Error(), "not_reached")
}

func TestDetStackOverflow(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Allocate(3).Succeed()
	})
	m := NewMachine(prog, WithDetStackLimit(2))
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	assert.Contains(t, err.Error(), "det stack overflow")
}

func TestNondStackOverflow(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Try(0, "alt").
			Try(0, "alt").
			Succeed().
			Label("alt").
			NotReached()
	})
	m := NewMachine(prog, WithNondStackLimit(1))
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	assert.Contains(t, err.Error(), "nondet stack overflow")
}

func TestHeapOverflow(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			NewVar(EnvSlot(0)).
			NewVar(EnvSlot(0)).
			NewVar(EnvSlot(0)).
			Succeed()
	})
	m := NewMachine(prog, WithHeapLimit(2))
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	assert.Contains(t, err.Error(), "heap exhausted")
}

func TestStepLimit(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Jump("main")
	})
	m := NewMachine(prog, WithStepLimit(16))
	st, err := m.CallEntry("main")
	require.Error(t, err)
	assert.Equal(t, StatusAborted, st)
	assert.Contains(t, err.Error(), "step limit")
}

func TestCallAndProceed(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Call("sub").
			Deallocate().
			Succeed().
			Label("sub").
			Const(EnvSlot(0), "inner").
			Proceed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
	assert.Equal(t, 1, m.HeapLen())
}

func TestStartWhileRunning(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Nop().Succeed()
	})
	m := NewMachine(prog)
	require.NoError(t, m.StartEntry("main"))
	err := m.StartEntry("main")
	assert.EqualError(t, err, "cannot start while engine is running")
	_, err = m.Redo()
	assert.EqualError(t, err, "cannot redo while engine is running")
}

func TestReset(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			NewVar(EnvSlot(0)).
			Try(0, "alt").
			GetConst(EnvSlot(0), "a").
			Succeed().
			Label("alt").
			Succeed()
	})
	m := NewMachine(prog)
	st, err := m.CallEntry("main")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, st)

	m.Reset()
	assert.Equal(t, StatusIdle, m.Status())
	assert.Equal(t, 0, m.HeapLen())
	assert.Empty(t, m.TrailEntries())
	assert.Equal(t, Registers{PC: 0, SuccIP: doEngineDone}, m.Registers())

	st, err = m.CallEntry("main")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st)
}

// Toggling debug flags never changes a computation's outcome or its final
// heap and trail contents; only diagnostic text output differs.
func TestDebugFlagsAreObservational(t *testing.T) {
	build := func() *Program {
		return buildProgram(t, func(a *Assembler) {
			a.Label("main").
				Allocate(2).
				NewVar(EnvSlot(0)).
				NewVar(EnvSlot(1)).
				Try(0, "alt").
				GetConst(EnvSlot(0), "a").
				Unify(EnvSlot(0), EnvSlot(1)).
				Fail().
				Label("alt").
				GetConst(EnvSlot(1), "b").
				Succeed()
		})
	}
	quiet := NewMachine(build())
	st1, err := quiet.CallEntry("main")
	require.NoError(t, err)

	var buf bytes.Buffer
	allFlags := make([]DebugFlag, MaxFlag)
	for i := range allFlags {
		allFlags[i] = DebugFlag(i)
	}
	loud := NewMachine(build(), WithDebugOut(&buf), WithDebugFlags(allFlags...))
	st2, err := loud.CallEntry("main")
	require.NoError(t, err)

	assert.Equal(t, st1, st2)
	assert.Equal(t, quiet.Registers(), loud.Registers())
	assert.Equal(t, quiet.HeapLen(), loud.HeapLen())
	assert.Equal(t, quiet.TrailEntries(), loud.TrailEntries())
	assert.Equal(t, quiet.Solutions(), loud.Solutions())
	assert.NotZero(t, buf.Len(), "flags emit diagnostic text")
}
