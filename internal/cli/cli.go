// Package cli implements the `organic` command-line driver (SPEC_FULL §F
// component K): argument parsing, the compile pipeline (tokenize -> parse
// -> emit -> roundtrip -> run), and dispatch to either real-time playback
// or offline export, per spec.md §6/§7.
//
// Grounded on the teacher's cmd/play_mml/main.go shape (flag parsing,
// resolve-input, build-player, play-or-report-error), re-armed per
// SPEC_FULL §B with github.com/spf13/pflag for POSIX-style flags and
// github.com/charmbracelet/log for leveled diagnostic output in place of
// the teacher's flag/log standard-library pair.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/organic-audio/organic/internal/audio"
	"github.com/organic-audio/organic/internal/audiosink"
	"github.com/organic-audio/organic/internal/diag"
	"github.com/organic-audio/organic/internal/lang/bytecode"
	"github.com/organic-audio/organic/internal/lang/parser"
	"github.com/organic-audio/organic/internal/lang/vm"
	"github.com/organic-audio/organic/internal/resource"
	"github.com/organic-audio/organic/internal/rtctx"
	"github.com/organic-audio/organic/internal/srcfile"
)

const defaultSampleRate = 44100

// Run parses args (excluding argv[0]) and executes the organic CLI,
// returning the process exit code (§6: 0 success, 1 any diagnostic).
// Argument errors are reported and returned before any file I/O, per §6.
func Run(args []string) int {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})

	fs := pflag.NewFlagSet("organic", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: organic <program-path> [flags]")
		fs.PrintDefaults()
	}
	renderTime := fs.Float64P("time", "t", 0, "total render duration in seconds (required with --export)")
	exportPath := fs.String("export", "", "write PCM to this path instead of playing in real time")
	mono := fs.Bool("mono", false, "force single-channel output")
	sampleRate := fs.Int("sample-rate", defaultSampleRate, "output sample rate in Hz")

	if err := fs.Parse(args); err != nil {
		logger.Error(diag.Argument.String(), "err", err)
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		logger.Error(diag.Argument.String(), "msg", "expected exactly one program path", "got", rest)
		return 1
	}
	if *exportPath != "" && *renderTime <= 0 {
		logger.Error(diag.Argument.String(), "msg", "--export requires --time > 0")
		return 1
	}
	if *sampleRate <= 0 {
		logger.Error(diag.Argument.String(), "msg", "--sample-rate must be positive")
		return 1
	}

	programPath := rest[0]
	if !srcfile.Exists(programPath) {
		logger.Error(diag.File.String(), "path", programPath, "msg", "source file not found")
		return 1
	}

	container, warnings, err := compile(programPath)
	if err != nil {
		logger.Error(err.Error())
		return diag.ExitCode(err)
	}
	for _, w := range warnings {
		logger.Warn(w.Error())
	}
	logger.Info("compiled program", "blocks", len(container.Blocks), "resources", len(container.Resources), "variables", container.VariableCount)

	channels := 2
	if *mono {
		channels = 1
	}
	ctx := rtctx.New(float64(*sampleRate), channels, 1024, time.Now().UnixNano())

	m := vm.New(ctx, container)
	if err := m.Run(); err != nil {
		logger.Error(diag.Machine.String(), "err", err)
		return 1
	}
	logger.Info("running program", "voices", len(m.Voices))

	if *exportPath != "" {
		logger.Info("rendering", "duration_s", *renderTime, "path", *exportPath)
		if err := audiosink.Render(ctx, m, *renderTime, *exportPath); err != nil {
			logger.Error(diag.File.String(), "err", err)
			return 1
		}
		logger.Info("render complete", "path", *exportPath)
		return 0
	}

	return playRealtime(logger, ctx, m, *renderTime)
}

// compile runs the parse -> emit -> wire-roundtrip pipeline. Re-parsing
// the emitted bytes (rather than running the Emitter's own in-memory
// Container straight through the VM) matches spec.md §8's bytecode
// roundtrip property and §5's "bytecode file is held only during VM
// initialization" note: the VM always loads from the wire format, never
// from the compiler's working state.
func compile(path string) (*bytecode.Container, []*diag.Error, error) {
	p := parser.New()
	prog, err := p.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}

	e := bytecode.NewEmitter()
	e.ResourceLoader = resource.Load
	built, err := e.Emit(prog)
	if err != nil {
		return nil, nil, err
	}

	data := built.Write()
	parsed, err := bytecode.Parse(data)
	if err != nil {
		return nil, nil, diag.Filef("%v", err)
	}
	// The wire format's resource blocks don't carry channel count
	// (§9 Open Questions); restore it from the Emitter's own in-memory
	// metadata, which decoded each resource exactly once.
	for i := range parsed.Resources {
		if i < len(built.Resources) {
			parsed.Resources[i].Channels = built.Resources[i].Channels
		}
	}
	return parsed, p.Warnings, nil
}

// playRealtime drives the graph through the teacher's internal/audio
// player. With no --time it runs until interrupted (SIGINT/SIGTERM);
// with --time it stops after that many seconds, matching --export's
// duration semantics for the interactive case too.
func playRealtime(logger *log.Logger, ctx *rtctx.Context, m *vm.Machine, renderTime float64) int {
	g := audiosink.NewGraph(ctx, m)
	src := audiosink.NewStreamSource(g, 1.0)
	player, err := audio.NewPlayer(int(ctx.SampleRate), src)
	if err != nil {
		logger.Error(diag.Machine.String(), "msg", "failed to open audio output", "err", err)
		return 1
	}
	player.Play()
	defer player.Stop()

	if renderTime > 0 {
		time.Sleep(time.Duration(renderTime * float64(time.Second)))
		return 0
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("stopping")
	return 0
}
