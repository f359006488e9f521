package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/sambeau/filtr/config"
	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/filtr"
	"github.com/sambeau/filtr/pkg/filtr/repl"
)

// Exit codes beyond those of a program run, following sysexits.h.
const (
	exitUsage   = 64
	exitNoInput = 66
	exitConfig  = 78
)

const description = `A small language for importing, reshaping and exporting tabular data.

Without a script filtr starts an interactive session.

Config resolution: --config, FILTR_CONFIG, ./filtr.yaml, ~/.config/filtr/filtr.yaml`

// CLI is the top-level command-line interface for filtr.
type CLI struct {
	Config     string `help:"Path to config file (default: auto-detect)." placeholder:"PATH" type:"path"`
	LogLevel   string `default:"" enum:",trace,debug,info,warn,error" help:"Override the configured log level." name:"log-level"`
	LogFormat  string `default:"" enum:",text,json" help:"Override the configured log format." name:"log-format"`
	NoColor    bool   `help:"Disable colored errors and logs." name:"no-color"`
	Watch      bool   `help:"Re-run the script whenever it is saved."`
	Profile    string `default:"" enum:",cpu,mem" help:"Write a cpu or mem profile."`
	ProfileDir string `default:"." help:"Profile output directory." name:"profile-dir" type:"path"`

	Version kong.VersionFlag `help:"Show version and exit."`

	Run   RunCmd   `cmd:"" default:"withargs" help:"Run a script, or start the REPL without one."`
	Check CheckCmd `cmd:"" help:"Parse scripts without running them."`
	Fmt   FmtCmd   `cmd:"" help:"Print scripts in canonical form."`
}

// app is the resolved runtime state handed to every command.
type app struct {
	cli    *CLI
	cfg    *config.Config
	logger log.Logger
	color  bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	var cli CLI

	exited, exitCode := false, 0
	parser, err := kong.New(&cli,
		kong.Name("filtr"),
		kong.Description(description),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited, exitCode = true, code
		}),
		kong.Vars{"version": "filtr version " + Version},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "filtr: %v\n", err)
		return perrors.ExitRuntime
	}

	ktx, err := parser.Parse(args)
	if exited {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "filtr: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(cli.Config, getenv)
	if err != nil {
		fmt.Fprintf(stderr, "filtr: loading config: %v\n", err)
		return exitConfig
	}

	// Apply CLI overrides
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "filtr: config validation: %v\n", err)
		return exitConfig
	}

	color := cfg.REPL.Color && !cli.NoColor
	logOpts := []log.Option{
		log.WithLevel(log.ParseLevel(cfg.Logging.Level)),
		log.WithFormat(log.ParseFormat(cfg.Logging.Format)),
		log.WithColor(color),
	}
	log.Config(append([]log.Option{log.WithOutput(stderr)}, logOpts...)...)
	logger := log.Make(stderr, logOpts...)
	logger.Debug("configuration loaded",
		slog.String("path", cfg.Path),
		slog.String("level", cfg.Logging.Level),
		slog.String("format", cfg.Logging.Format),
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	defer startProfile(cli.Profile, cli.ProfileDir, logger)()

	a := &app{
		cli:    &cli,
		cfg:    cfg,
		logger: logger,
		color:  color,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	ktx.BindTo(ctx, (*context.Context)(nil))
	err = ktx.Run(a)
	var ee *exitError
	switch {
	case err == nil:
		return perrors.ExitOK
	case errors.As(err, &ee):
		if ee.err != nil {
			fmt.Fprintf(stderr, "filtr: %v\n", ee.err)
		}
		return ee.code
	default:
		fmt.Fprintf(stderr, "filtr: %v\n", err)
		return perrors.ExitRuntime
	}
}

// codecOptions maps the import and export settings onto the codec.
func (a *app) codecOptions() codec.Options {
	return codec.Options{
		Logger:      a.logger,
		InferDates:  a.cfg.Import.InferDates,
		JSONStrings: a.cfg.Export.JSONStrings,
		CreateDirs:  a.cfg.Export.CreateDirs,
	}
}

// runScript runs the script at path once and returns its exit code. A path
// of "-" reads the program from stdin.
func (a *app) runScript(path string) int {
	opts := []filtr.Option{
		filtr.WithOutput(a.stdout),
		filtr.WithErrors(a.stderr),
		filtr.WithColor(a.color),
		filtr.WithCodec(a.codecOptions()),
		filtr.WithLogger(a.logger),
	}

	var res *filtr.Result
	var err error
	if path == "-" {
		var src []byte
		if src, err = io.ReadAll(a.stdin); err == nil {
			res, err = filtr.Eval(string(src), append(opts, filtr.WithFilename("<stdin>"))...)
		}
	} else {
		res, err = filtr.EvalFile(path, opts...)
	}
	if res == nil {
		fmt.Fprintf(a.stderr, "filtr: %v\n", err)
		return exitNoInput
	}
	return res.ExitCode
}

// RunCmd runs a script or starts the REPL.
type RunCmd struct {
	Script string `arg:"" help:"Script to run, or '-' for stdin." optional:""`
}

// Run executes the run command.
func (r *RunCmd) Run(ctx context.Context, a *app) error {
	if r.Script == "" {
		if a.cli.Watch {
			return &exitError{code: exitUsage, err: errors.New("--watch needs a script")}
		}
		return repl.Start(a.stdout, repl.Config{
			Prompt:      a.cfg.REPL.Prompt,
			HistoryFile: a.cfg.REPL.HistoryFile,
			Color:       a.color,
			Version:     Version,
			Codec:       a.codecOptions(),
			Logger:      a.logger,
		})
	}

	if a.cli.Watch {
		if r.Script == "-" {
			return &exitError{code: exitUsage, err: errors.New("--watch cannot read stdin")}
		}
		return watchScript(ctx, r.Script, a.logger, func() {
			code := a.runScript(r.Script)
			a.logger.Info("run finished", slog.String("script", r.Script), slog.Int("exit", code))
		})
	}

	if code := a.runScript(r.Script); code != perrors.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// CheckCmd parses scripts and reports their errors.
type CheckCmd struct {
	Files []string `arg:"" help:"Scripts to check." name:"file" type:"path"`
}

// Run executes the check command.
func (c *CheckCmd) Run(a *app) error {
	code := perrors.ExitOK
	for _, path := range c.Files {
		src, err := os.ReadFile(path)
		if err != nil {
			return &exitError{code: exitNoInput, err: err}
		}
		errs := filtr.Check(string(src))
		if len(errs) > 0 {
			a.report(path, errs)
			code = perrors.ExitParse
			continue
		}
		a.logger.Info("check passed", slog.String("file", path))
	}
	if code != perrors.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

// FmtCmd prints or rewrites scripts in canonical form.
type FmtCmd struct {
	Write bool     `help:"Write the result back to the source file." short:"w"`
	Files []string `arg:"" help:"Scripts to format." name:"file" type:"path"`
}

// Run executes the fmt command.
func (f *FmtCmd) Run(a *app) error {
	code := perrors.ExitOK
	for _, path := range f.Files {
		info, err := os.Stat(path)
		if err != nil {
			return &exitError{code: exitNoInput, err: err}
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return &exitError{code: exitNoInput, err: err}
		}

		out, errs := filtr.Format(string(src))
		if len(errs) > 0 {
			a.report(path, errs)
			code = perrors.ExitParse
			continue
		}

		if !f.Write {
			fmt.Fprint(a.stdout, out)
			continue
		}
		if out == string(src) {
			a.logger.Debug("already formatted", slog.String("file", path))
			continue
		}
		if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
			return err
		}
		a.logger.Info("formatted", slog.String("file", path))
	}
	if code != perrors.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func (a *app) report(path string, errs []*perrors.FiltrError) {
	reporter := perrors.NewReporter(a.stderr)
	reporter.SetFile(path)
	reporter.SetColor(a.color)
	for _, err := range errs {
		reporter.Report(err)
	}
}
