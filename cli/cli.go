package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/logi-lang/logi"
)

const name = "logi"

const version = "0.1.0"

var revision = "HEAD"

const (
	exitCodeOK = iota
	exitCodeNoSolution
	exitCodeFlagParseErr
	exitCodeParseErr
	exitCodeRunErr
)

type cli struct {
	inStream  io.Reader
	outStream io.Writer
	errStream io.Writer
}

// Run the command line interface on the standard streams and return the
// exit code for os.Exit.
func Run() int {
	cli := &cli{
		inStream:  os.Stdin,
		outStream: os.Stdout,
		errStream: os.Stderr,
	}
	return cli.run(os.Args[1:])
}

func (cli *cli) run(args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.errStream)
	fs.Usage = func() {
		fs.SetOutput(cli.outStream)
		fmt.Fprintf(cli.outStream, `%[1]s - abstract machine for logic programs

Version: %s (rev: %s/%s)

Synopsis:
    %% %[1]s -e main program.lam

Options:
`, name, version, revision, runtime.Version())
		fs.PrintDefaults()
	}
	var (
		showVersion  bool
		entry        string
		maxSolutions int
		debugFlags   string
		interactive  bool
		dumpFormat   string
		colorOutput  bool
		monoOutput   bool
		heapLimit    int
		trailLimit   int
		detLimit     int
		nondLimit    int
		stepLimit    int
	)
	fs.BoolVar(&showVersion, "v", false, "print version")
	fs.StringVar(&entry, "e", "main", "entry point label")
	fs.IntVar(&maxSolutions, "n", 0, "stop after n solutions (0 for all)")
	fs.StringVar(&debugFlags, "d", "", `comma-separated debug flags ("all" for all)`)
	fs.BoolVar(&interactive, "i", false, "interactive debugger")
	fs.StringVar(&dumpFormat, "dump", "", "dump final machine state (json or yaml)")
	fs.BoolVar(&colorOutput, "C", false, "output with colors even if not tty")
	fs.BoolVar(&monoOutput, "M", false, "output without colors")
	fs.IntVar(&heapLimit, "heap", 0, "heap limit in cells (0 for default)")
	fs.IntVar(&trailLimit, "trail", 0, "trail limit in entries (0 for default)")
	fs.IntVar(&detLimit, "detstack", 0, "det stack limit in slots (0 for default)")
	fs.IntVar(&nondLimit, "nondstack", 0, "nondet stack limit in choicepoints (0 for default)")
	fs.IntVar(&stepLimit, "steps", 0, "abort after n dispatch steps (0 for no limit)")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitCodeOK
		}
		return exitCodeFlagParseErr
	}
	if showVersion {
		fmt.Fprintf(cli.outStream, "%s %s (rev: %s/%s)\n", name, version, revision, runtime.Version())
		return exitCodeOK
	}
	if monoOutput || os.Getenv("NO_COLOR") != "" {
		noColor = true
	} else if !colorOutput && !isTTY(cli.outStream) {
		noColor = true
	}
	var fname, src string
	switch args = fs.Args(); len(args) {
	case 0:
		fname = "<stdin>"
		contents, err := io.ReadAll(cli.inStream)
		if err != nil {
			fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
			return exitCodeParseErr
		}
		src = string(contents)
	case 1:
		fname = args[0]
		contents, err := os.ReadFile(fname)
		if err != nil {
			fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
			return exitCodeParseErr
		}
		src = string(contents)
	default:
		fmt.Fprintf(cli.errStream, "%s: too many arguments\n", name)
		return exitCodeFlagParseErr
	}
	prog, err := parseProgram(fname, src)
	if err != nil {
		fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
		return exitCodeParseErr
	}
	flags, err := parseDebugFlags(debugFlags)
	if err != nil {
		fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
		return exitCodeFlagParseErr
	}
	opts := []logi.Option{
		logi.WithDebugOut(cli.errStream),
		logi.WithDebugFlags(flags...),
	}
	if heapLimit > 0 {
		opts = append(opts, logi.WithHeapLimit(heapLimit))
	}
	if trailLimit > 0 {
		opts = append(opts, logi.WithTrailLimit(trailLimit))
	}
	if detLimit > 0 {
		opts = append(opts, logi.WithDetStackLimit(detLimit))
	}
	if nondLimit > 0 {
		opts = append(opts, logi.WithNondStackLimit(nondLimit))
	}
	if stepLimit > 0 {
		opts = append(opts, logi.WithStepLimit(stepLimit))
	}
	m := logi.NewMachine(prog, opts...)
	if interactive {
		return cli.debug(m, entry)
	}
	iter := m.RunEntry(entry)
	var count int
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
			return exitCodeRunErr
		}
		cli.printSolution(m, v.(*logi.Solution))
		if count++; maxSolutions > 0 && count >= maxSolutions {
			break
		}
	}
	if dumpFormat != "" {
		if err := dumpState(cli.outStream, m, dumpFormat); err != nil {
			fmt.Fprintf(cli.errStream, "%s: %s\n", name, err)
			return exitCodeRunErr
		}
	}
	if count == 0 {
		fmt.Fprintln(cli.outStream, colorize(statusColor(m.Status()), m.Status().String()))
		return exitCodeNoSolution
	}
	return exitCodeOK
}

func (cli *cli) printSolution(m *logi.Machine, sol *logi.Solution) {
	fmt.Fprintf(cli.outStream, "%s %d\n",
		colorize(successColor, "solution"), sol.Seq)
	frames := m.EnvFrames()
	if len(frames) == 0 {
		return
	}
	slots := frames[len(frames)-1].Slots
	for i, addr := range slots {
		if addr == logi.InvalidAddr {
			continue
		}
		fmt.Fprintf(cli.outStream, "  %s = %s\n",
			colorize(slotColor, fmt.Sprintf("ev%d", i)), m.Readback(addr))
	}
}

func parseDebugFlags(s string) ([]logi.DebugFlag, error) {
	if s == "" {
		return nil, nil
	}
	if s == "all" {
		flags := make([]logi.DebugFlag, logi.MaxFlag)
		for i := range flags {
			flags[i] = logi.DebugFlag(i)
		}
		return flags, nil
	}
	var flags []logi.DebugFlag
	for _, nm := range strings.Split(s, ",") {
		f, ok := logi.FlagByName(strings.TrimSpace(nm))
		if !ok {
			return nil, fmt.Errorf("unknown debug flag %q (one of %s)",
				nm, strings.Join(logi.FlagNames(), ", "))
		}
		flags = append(flags, f)
	}
	return flags, nil
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
