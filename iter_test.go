package logi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterSolutions(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(1).
			Try(0, "alt2").
			Const(EnvSlot(0), "one").
			Succeed().
			Label("alt2").
			Try(0, "alt3").
			Const(EnvSlot(0), "two").
			Succeed().
			Label("alt3").
			Fail()
	})
	m := NewMachine(prog)
	iter := m.RunEntry("main")

	var got []string
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		sol, ok := v.(*Solution)
		require.True(t, ok, "unexpected %v", v)
		frames := m.EnvFrames()
		require.Len(t, frames, 1)
		got = append(got, m.Readback(frames[0].Slots[0]))
		assert.Equal(t, len(got), sol.Seq)
	}
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Equal(t, StatusExhausted, m.Status())

	// The iterator stays exhausted.
	_, ok := iter.Next()
	assert.False(t, ok)
}

func TestIterNoSolutions(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Fail()
	})
	m := NewMachine(prog)
	iter := m.RunEntry("main")
	v, ok := iter.Next()
	assert.Nil(t, v)
	assert.False(t, ok)
}

func TestIterError(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").NotReached()
	})
	m := NewMachine(prog)
	iter := m.RunEntry("main")
	v, ok := iter.Next()
	require.True(t, ok)
	err, isErr := v.(error)
	require.True(t, isErr)
	assert.Contains(t, err.Error(), "not_reached")
	_, ok = iter.Next()
	assert.False(t, ok)
}

func TestIterUnknownEntry(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Succeed()
	})
	m := NewMachine(prog)
	iter := m.RunEntry("nope")
	v, ok := iter.Next()
	require.True(t, ok)
	err, isErr := v.(error)
	require.True(t, isErr)
	assert.EqualError(t, err, "undefined entry point: nope")
	_, ok = iter.Next()
	assert.False(t, ok)
}
