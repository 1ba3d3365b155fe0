package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/logi-lang/logi"
)

// debugger is the interactive command loop around a machine. Every command
// runs between dispatch steps through the machine's trace command registry,
// so external tooling can extend the command set by registering its own.
type debugger struct {
	cli   *cli
	m     *logi.Machine
	entry string
	quit  bool
}

func (cli *cli) debug(m *logi.Machine, entry string) int {
	d := &debugger{cli: cli, m: m, entry: entry}
	d.register()
	fmt.Fprintf(cli.outStream, "%s session %s started at %s\n",
		name, m.ID(), timefmt.Format(time.Now(), "%Y-%m-%d %H:%M:%S"))
	fmt.Fprintf(cli.outStream, "type \"help\" for commands\n")
	if f, ok := cli.inStream.(*os.File); ok &&
		(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		d.replTTY()
	} else {
		d.repl()
	}
	return exitCodeOK
}

func (d *debugger) replTTY() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) (candidates []string) {
		for _, cmd := range d.m.TraceCmds() {
			if strings.HasPrefix(cmd.Name, prefix) {
				candidates = append(candidates, cmd.Name)
			}
		}
		return
	})
	for !d.quit {
		input, err := line.Prompt(colorize(promptColor, "("+name+") "))
		if err != nil {
			if err != liner.ErrPromptAborted && err != io.EOF {
				fmt.Fprintf(d.cli.errStream, "%s: %s\n", name, err)
			}
			return
		}
		if input = strings.TrimSpace(input); input != "" {
			line.AppendHistory(input)
			d.dispatch(input)
		}
	}
}

func (d *debugger) repl() {
	scanner := bufio.NewScanner(d.cli.inStream)
	for !d.quit && scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			d.dispatch(input)
		}
	}
}

func (d *debugger) dispatch(input string) {
	fields := strings.Fields(input)
	cmd, ok := d.m.LookupTraceCmd(fields[0])
	if !ok {
		fmt.Fprintf(d.cli.errStream, "%s: unknown command %q\n", name, fields[0])
		return
	}
	if err := cmd.Func(d.m, fields[1:], d.cli.outStream); err != nil {
		fmt.Fprintf(d.cli.errStream, "%s: %s\n", name, err)
	}
}

func (d *debugger) register() {
	for _, cmd := range []*logi.TraceCmd{
		{Name: "run", Func: d.cmdRun},
		{Name: "step", Args: []string{"n"}, Func: d.cmdStep},
		{Name: "redo", Func: d.cmdRedo},
		{Name: "regs", Func: d.cmdRegs},
		{Name: "heap", Func: d.cmdHeap},
		{Name: "det", Func: d.cmdDet},
		{Name: "nond", Func: d.cmdNond},
		{Name: "trail", Func: d.cmdTrail},
		{Name: "flags", Args: []string{"name", "on|off"}, Func: d.cmdFlags},
		{Name: "dump", Args: []string{"json|yaml"}, Func: d.cmdDump},
		{Name: "disasm", Func: d.cmdDisasm},
		{Name: "reset", Func: d.cmdReset},
		{Name: "help", Func: d.cmdHelp},
		{Name: "quit", Func: d.cmdQuit},
	} {
		d.m.RegisterTraceCmd(cmd)
	}
}

func (d *debugger) report(out io.Writer, st logi.Status) {
	fmt.Fprintf(out, "%s  %s\n",
		colorize(statusColor(st), st.String()), d.m.Registers())
}

// cmdRun starts the machine at the entry point, or resumes it when stopped
// mid-computation, and runs to the next terminal state.
func (d *debugger) cmdRun(m *logi.Machine, args []string, out io.Writer) error {
	var (
		st  logi.Status
		err error
	)
	if m.Status() == logi.StatusRunning {
		st, err = m.Resume()
	} else {
		st, err = m.CallEntry(d.entry)
	}
	if err != nil {
		return err
	}
	d.report(out, st)
	return nil
}

func (d *debugger) cmdStep(m *logi.Machine, args []string, out io.Writer) error {
	n := 1
	if len(args) > 0 {
		var err error
		if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
	}
	if m.Status() != logi.StatusRunning {
		if err := m.StartEntry(d.entry); err != nil {
			return err
		}
	}
	st := m.Status()
	for i := 0; i < n && st == logi.StatusRunning; i++ {
		var err error
		if st, err = m.Step(); err != nil {
			return err
		}
	}
	d.report(out, st)
	return nil
}

func (d *debugger) cmdRedo(m *logi.Machine, args []string, out io.Writer) error {
	st, err := m.Redo()
	if err != nil {
		return err
	}
	d.report(out, st)
	return nil
}

func (d *debugger) cmdRegs(m *logi.Machine, args []string, out io.Writer) error {
	fmt.Fprintln(out, m.Registers())
	return nil
}

func (d *debugger) cmdHeap(m *logi.Machine, args []string, out io.Writer) error {
	heapTable(out, m)
	return nil
}

func (d *debugger) cmdDet(m *logi.Machine, args []string, out io.Writer) error {
	frames := m.EnvFrames()
	if len(frames) == 0 {
		fmt.Fprintln(out, "empty det stack")
		return nil
	}
	for i, f := range frames {
		fmt.Fprintf(out, "frame %d, succip %s\n", i, f.SuccIP)
		for j, addr := range f.Slots {
			fmt.Fprintf(out, "  %s = %s\n",
				colorize(slotColor, fmt.Sprintf("ev%d", j)), formatSlot(m, addr))
		}
	}
	return nil
}

func (d *debugger) cmdNond(m *logi.Machine, args []string, out io.Writer) error {
	cps := m.Choicepoints()
	if len(cps) == 0 {
		fmt.Fprintln(out, "empty nondet stack")
		return nil
	}
	for i, cp := range cps {
		fmt.Fprintf(out, "choicepoint %d, redoip %s, hp %d, solhp %d, tr %d, sp %d, succip %s\n",
			i, cp.RedoIP, cp.HP, cp.SolHP, cp.TR, cp.SP, cp.SuccIP)
		for j, addr := range cp.Framevar {
			fmt.Fprintf(out, "  %s = %s\n",
				colorize(slotColor, fmt.Sprintf("fv%d", j)), formatSlot(m, addr))
		}
	}
	return nil
}

func (d *debugger) cmdTrail(m *logi.Machine, args []string, out io.Writer) error {
	entries := m.TrailEntries()
	if len(entries) == 0 {
		fmt.Fprintln(out, "empty trail")
		return nil
	}
	for i, addr := range entries {
		fmt.Fprintf(out, "%6d %s\n", i,
			colorize(addrColor, strconv.Itoa(int(addr))))
	}
	return nil
}

func (d *debugger) cmdFlags(m *logi.Machine, args []string, out io.Writer) error {
	switch len(args) {
	case 0:
		for i, nm := range logi.FlagNames() {
			state := "off"
			if m.DebugFlagSet(logi.DebugFlag(i)) {
				state = "on"
			}
			fmt.Fprintf(out, "%-10s %s\n", nm, state)
		}
		return nil
	case 2:
		f, ok := logi.FlagByName(args[0])
		if !ok {
			return fmt.Errorf("unknown debug flag %q", args[0])
		}
		switch args[1] {
		case "on":
			m.SetDebugFlag(f, true)
		case "off":
			m.SetDebugFlag(f, false)
		default:
			return fmt.Errorf("flags expects on or off, got %q", args[1])
		}
		return nil
	default:
		return fmt.Errorf("usage: flags [name on|off]")
	}
}

func (d *debugger) cmdDump(m *logi.Machine, args []string, out io.Writer) error {
	format := "json"
	if len(args) > 0 {
		format = args[0]
	}
	return dumpState(out, m, format)
}

func (d *debugger) cmdDisasm(m *logi.Machine, args []string, out io.Writer) error {
	m.Program().Disasm(out)
	return nil
}

func (d *debugger) cmdReset(m *logi.Machine, args []string, out io.Writer) error {
	m.Reset()
	d.report(out, m.Status())
	return nil
}

func (d *debugger) cmdHelp(m *logi.Machine, args []string, out io.Writer) error {
	for _, cmd := range m.TraceCmds() {
		if len(cmd.Args) > 0 {
			fmt.Fprintf(out, "%s [%s]\n", cmd.Name, strings.Join(cmd.Args, "] ["))
		} else {
			fmt.Fprintln(out, cmd.Name)
		}
	}
	return nil
}

func (d *debugger) cmdQuit(m *logi.Machine, args []string, out io.Writer) error {
	d.quit = true
	return nil
}

func formatSlot(m *logi.Machine, addr logi.Addr) string {
	if addr == logi.InvalidAddr {
		return colorize(unboundColor, "unset")
	}
	return fmt.Sprintf("%s %s",
		colorize(addrColor, "@"+strconv.Itoa(int(addr))), m.Readback(addr))
}
