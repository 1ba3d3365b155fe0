package logi

import (
	"io"
	"sort"
)

// TraceCmdFunc handles one debugger command invocation. It runs between
// dispatch steps and may read or mutate engine state through the machine's
// introspection surface; the engine never calls it mid-instruction.
type TraceCmdFunc func(m *Machine, args []string, out io.Writer) error

// TraceCmd is a named debugger command together with the argument names it
// recognizes. Parsing, presentation, and control policy all live in the
// external debugger; the core only stores the registration.
type TraceCmd struct {
	Name string
	Args []string
	Func TraceCmdFunc
}

// RegisterTraceCmd registers cmd, replacing any command of the same name.
func (m *Machine) RegisterTraceCmd(cmd *TraceCmd) {
	m.cmds[cmd.Name] = cmd
}

// LookupTraceCmd resolves a registered command by name.
func (m *Machine) LookupTraceCmd(name string) (*TraceCmd, bool) {
	cmd, ok := m.cmds[name]
	return cmd, ok
}

// TraceCmds returns the registered commands sorted by name.
func (m *Machine) TraceCmds() []*TraceCmd {
	cmds := make([]*TraceCmd, 0, len(m.cmds))
	for _, cmd := range m.cmds {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ChoicepointInfo is a read-only view of one nondeterministic-stack frame.
type ChoicepointInfo struct {
	RedoIP   CodeAddr
	HP       Addr
	SolHP    Addr
	TR       int
	SP       int
	SuccIP   CodeAddr
	Framevar []Addr
}

// Choicepoints returns the live choicepoints, innermost last.
func (m *Machine) Choicepoints() []ChoicepointInfo {
	infos := make([]ChoicepointInfo, len(m.nond.cps))
	for i, cp := range m.nond.cps {
		infos[i] = ChoicepointInfo{
			RedoIP:   cp.redoip,
			HP:       cp.hp,
			SolHP:    cp.solhp,
			TR:       cp.tr,
			SP:       cp.sp,
			SuccIP:   cp.succip,
			Framevar: append([]Addr(nil), cp.slots...),
		}
	}
	return infos
}

// EnvFrameInfo is a read-only view of one deterministic-stack frame.
type EnvFrameInfo struct {
	SuccIP CodeAddr
	Slots  []Addr
}

// EnvFrames returns the live environment frames, innermost last.
func (m *Machine) EnvFrames() []EnvFrameInfo {
	var infos []EnvFrameInfo
	for i := m.det.cur; i >= 0; i = m.det.frames[i].prev {
		f := m.det.frames[i]
		infos = append(infos, EnvFrameInfo{
			SuccIP: f.succip,
			Slots:  append([]Addr(nil), m.det.slots[f.base:f.base+f.size]...),
		})
	}
	for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
		infos[i], infos[j] = infos[j], infos[i]
	}
	return infos
}

// HeapLen returns the heap pointer as a cell count.
func (m *Machine) HeapLen() int {
	return len(m.heap.cells)
}

// HeapCell returns the cell at addr.
func (m *Machine) HeapCell(addr Addr) (Cell, bool) {
	if addr < 0 || int(addr) >= len(m.heap.cells) {
		return Cell{}, false
	}
	return m.heap.at(addr), true
}

// TrailEntries returns a copy of the trail, oldest first.
func (m *Machine) TrailEntries() []Addr {
	return append([]Addr(nil), m.trail.entries...)
}

// Framevars returns the current framevars, or nil outside any
// nondeterministic frame.
func (m *Machine) Framevars() []Addr {
	return append([]Addr(nil), m.curfv...)
}

// Readback renders the term rooted at addr as text.
func (m *Machine) Readback(addr Addr) string {
	if addr < 0 || int(addr) >= len(m.heap.cells) {
		return "<invalid>"
	}
	return m.heap.readback(addr)
}
