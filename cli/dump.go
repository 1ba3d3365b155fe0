package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/logi-lang/logi"
)

// machineState is the serializable snapshot written by the dump command.
type machineState struct {
	ID        string        `json:"id" yaml:"id"`
	Status    string        `json:"status" yaml:"status"`
	Steps     int           `json:"steps" yaml:"steps"`
	Solutions int           `json:"solutions" yaml:"solutions"`
	Registers registerState `json:"registers" yaml:"registers"`
	Heap      []string      `json:"heap" yaml:"heap"`
	Trail     []int         `json:"trail" yaml:"trail"`
	EnvFrames [][]int       `json:"env_frames" yaml:"env_frames"`
	Nondet    []procState   `json:"nondet_stack" yaml:"nondet_stack"`
}

type registerState struct {
	PC     string `json:"pc" yaml:"pc"`
	SuccIP string `json:"succip" yaml:"succip"`
	HP     int    `json:"hp" yaml:"hp"`
	SolHP  int    `json:"solhp" yaml:"solhp"`
	TR     int    `json:"tr" yaml:"tr"`
	SP     int    `json:"sp" yaml:"sp"`
	MaxFr  int    `json:"maxfr" yaml:"maxfr"`
}

type procState struct {
	RedoIP   string `json:"redoip" yaml:"redoip"`
	HP       int    `json:"hp" yaml:"hp"`
	SolHP    int    `json:"solhp" yaml:"solhp"`
	TR       int    `json:"tr" yaml:"tr"`
	SP       int    `json:"sp" yaml:"sp"`
	SuccIP   string `json:"succip" yaml:"succip"`
	Framevar []int  `json:"framevars" yaml:"framevars"`
}

func buildState(m *logi.Machine) *machineState {
	regs := m.Registers()
	state := &machineState{
		ID:        m.ID().String(),
		Status:    m.Status().String(),
		Steps:     m.Steps(),
		Solutions: m.Solutions(),
		Registers: registerState{
			PC:     regs.PC.String(),
			SuccIP: regs.SuccIP.String(),
			HP:     int(regs.HP),
			SolHP:  int(regs.SolHP),
			TR:     regs.TR,
			SP:     regs.SP,
			MaxFr:  regs.MaxFr,
		},
		Heap:      make([]string, m.HeapLen()),
		Trail:     make([]int, 0, len(m.TrailEntries())),
		EnvFrames: [][]int{},
		Nondet:    []procState{},
	}
	for i := range state.Heap {
		c, _ := m.HeapCell(logi.Addr(i))
		state.Heap[i] = c.String()
	}
	for _, addr := range m.TrailEntries() {
		state.Trail = append(state.Trail, int(addr))
	}
	for _, f := range m.EnvFrames() {
		state.EnvFrames = append(state.EnvFrames, addrInts(f.Slots))
	}
	for _, cp := range m.Choicepoints() {
		state.Nondet = append(state.Nondet, procState{
			RedoIP:   cp.RedoIP.String(),
			HP:       int(cp.HP),
			SolHP:    int(cp.SolHP),
			TR:       cp.TR,
			SP:       cp.SP,
			SuccIP:   cp.SuccIP.String(),
			Framevar: addrInts(cp.Framevar),
		})
	}
	return state
}

func addrInts(addrs []logi.Addr) []int {
	xs := make([]int, len(addrs))
	for i, a := range addrs {
		xs[i] = int(a)
	}
	return xs
}

func dumpState(w io.Writer, m *logi.Machine, format string) error {
	state := buildState(m)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(state); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown dump format %q (json or yaml)", format)
	}
}

// heapTable renders the heap as an aligned two-column table for the debugger.
func heapTable(w io.Writer, m *logi.Machine) {
	cells := make([]string, m.HeapLen())
	width := 4
	for i := range cells {
		c, _ := m.HeapCell(logi.Addr(i))
		cells[i] = c.String()
		if l := runewidth.StringWidth(cells[i]); l > width {
			width = l
		}
	}
	for i, c := range cells {
		fmt.Fprintf(w, "%s %s %s\n",
			colorize(addrColor, fmt.Sprintf("%6d", i)),
			runewidth.FillRight(c, width),
			colorize(unboundColor, "# "+m.Readback(logi.Addr(i))))
	}
	if len(cells) == 0 {
		fmt.Fprintln(w, "empty heap")
	}
}
