package logi

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceCmdRegistry(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Succeed()
	})
	m := NewMachine(prog)

	regs := &TraceCmd{
		Name: "regs",
		Func: func(m *Machine, args []string, out io.Writer) error {
			fmt.Fprintln(out, m.Registers())
			return nil
		},
	}
	m.RegisterTraceCmd(regs)
	m.RegisterTraceCmd(&TraceCmd{Name: "break", Args: []string{"addr"}})

	cmd, ok := m.LookupTraceCmd("regs")
	require.True(t, ok)
	var buf bytes.Buffer
	require.NoError(t, cmd.Func(m, nil, &buf))
	assert.Contains(t, buf.String(), "pc=")

	_, ok = m.LookupTraceCmd("unknown")
	assert.False(t, ok)

	names := make([]string, 0, 2)
	for _, c := range m.TraceCmds() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"break", "regs"}, names)

	// Re-registering a name replaces the command.
	m.RegisterTraceCmd(&TraceCmd{Name: "regs", Args: []string{"verbose"}})
	cmd, ok = m.LookupTraceCmd("regs")
	require.True(t, ok)
	assert.Equal(t, []string{"verbose"}, cmd.Args)
}

func TestIntrospection(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").
			Allocate(2).
			NewVar(EnvSlot(0)).
			Const(EnvSlot(1), "a").
			Try(1, "alt").
			Move(Framevar(0), EnvSlot(1)).
			GetConst(EnvSlot(0), "b").
			Label("stop").
			Succeed().
			Label("alt").
			NotReached()
	})
	m := NewMachine(prog)
	require.NoError(t, m.StartEntry("main"))
	stop, ok := prog.Lookup("stop")
	require.True(t, ok)
	stepUntil(t, m, stop)

	frames := m.EnvFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, []Addr{0, 1}, frames[0].Slots)

	cps := m.Choicepoints()
	require.Len(t, cps, 1)
	alt, ok := prog.Lookup("alt")
	require.True(t, ok)
	assert.Equal(t, alt, cps[0].RedoIP)
	assert.Equal(t, Addr(2), cps[0].HP)
	assert.Equal(t, 0, cps[0].TR)
	assert.Equal(t, 1, cps[0].SP)
	assert.Equal(t, []Addr{1}, cps[0].Framevar)

	assert.Equal(t, []Addr{1}, m.Framevars())
	assert.Equal(t, []Addr{0}, m.TrailEntries())
	assert.Equal(t, 2, m.HeapLen())
	assert.Equal(t, "b", m.Readback(0))
	assert.Equal(t, "a", m.Readback(1))
	assert.Equal(t, "<invalid>", m.Readback(99))

	c, ok := m.HeapCell(0)
	require.True(t, ok)
	assert.Equal(t, TagAtom, c.Tag)
	_, ok = m.HeapCell(-1)
	assert.False(t, ok)
}

func TestFramevarsOutsideChoicepoint(t *testing.T) {
	prog := buildProgram(t, func(a *Assembler) {
		a.Label("main").Succeed()
	})
	m := NewMachine(prog)
	assert.Nil(t, m.Framevars())
}
