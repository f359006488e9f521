// Package repl runs filtr interactively: one input at a time through the
// lexer, parser and evaluator, keeping bindings between inputs.
package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/sahilm/fuzzy"

	"github.com/sambeau/filtr/log"
	"github.com/sambeau/filtr/pkg/filtr/codec"
	perrors "github.com/sambeau/filtr/pkg/filtr/errors"
	"github.com/sambeau/filtr/pkg/filtr/evaluator"
	"github.com/sambeau/filtr/pkg/filtr/lexer"
	"github.com/sambeau/filtr/pkg/filtr/object"
	"github.com/sambeau/filtr/pkg/filtr/parser"
)

const (
	DefaultPrompt      = "> "
	ContinuationPrompt = ". "
)

const banner = `filtr %s
Type 'exit' or Ctrl+D to quit, ':help' for commands.
`

// Config holds REPL settings.
type Config struct {
	Prompt      string
	HistoryFile string // empty keeps no history
	Color       bool
	Version     string
	Codec       codec.Options
	Logger      log.Logger
}

// Session is the state of one interactive session. It is driven by Feed,
// which makes it usable without a terminal.
type Session struct {
	cfg      Config
	out      io.Writer
	reporter *perrors.Reporter
	eval     *evaluator.Evaluator
	buf      strings.Builder
	done     bool
}

// NewSession creates a session writing results and errors to out.
func NewSession(out io.Writer, cfg Config) *Session {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Logger.Logger == nil {
		cfg.Logger = log.Default()
	}
	s := &Session{cfg: cfg, out: out, reporter: perrors.NewReporter(out)}
	s.reporter.SetColor(cfg.Color)
	s.reset()
	return s
}

func (s *Session) reset() {
	s.eval = evaluator.New(s.reporter,
		evaluator.WithOutput(s.out),
		evaluator.WithCodec(s.cfg.Codec),
		evaluator.WithLogger(s.cfg.Logger))
}

// Done reports whether the user asked to leave.
func (s *Session) Done() bool { return s.done }

// Prompt returns the prompt for the next line.
func (s *Session) Prompt() string {
	if s.buf.Len() > 0 {
		return ContinuationPrompt
	}
	return s.cfg.Prompt
}

// Pending reports whether an incomplete input is buffered.
func (s *Session) Pending() bool { return s.buf.Len() > 0 }

// Cancel drops any buffered input.
func (s *Session) Cancel() { s.buf.Reset() }

// Feed takes one line of input. It returns the complete input once the
// buffered lines balance their braces and parentheses, or "" while more
// input is needed or the line was a command.
func (s *Session) Feed(line string) string {
	trimmed := strings.TrimSpace(line)
	if s.buf.Len() == 0 {
		switch {
		case trimmed == "":
			return ""
		case trimmed == "exit" || trimmed == "quit":
			s.done = true
			return ""
		case strings.HasPrefix(trimmed, ":"):
			s.command(trimmed)
			return ""
		}
	}

	if s.buf.Len() > 0 {
		s.buf.WriteByte('\n')
	}
	s.buf.WriteString(line)
	input := s.buf.String()
	if needsMoreInput(input) {
		return ""
	}
	s.buf.Reset()
	s.Run(input)
	return input
}

// Run parses and evaluates one complete input. Errors are printed and
// then forgotten so that one bad input does not poison the session.
func (s *Session) Run(input string) {
	defer s.reporter.Reset()

	prog, errs := parser.Parse(input)
	if len(errs) > 0 {
		for _, err := range errs {
			s.reporter.Report(err)
		}
		return
	}
	v, err := s.eval.Interpret(prog)
	if err != nil || v == nil || v == object.NULL {
		return
	}
	fmt.Fprintln(s.out, v.Inspect())
}

func (s *Session) command(cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprint(s.out, `Commands:
  :help, :h, :?   Show this help
  :env            Show bindings in scope
  :clear          Remove all bindings
  exit, quit      Leave the REPL
`)
	case ":env":
		s.printEnvironment()
	case ":clear":
		s.reset()
		fmt.Fprintln(s.out, "Environment cleared")
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

func (s *Session) printEnvironment() {
	vars := s.eval.Globals().Local()
	names := s.eval.Globals().Names()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "(no bindings)")
		return
	}
	for _, name := range names {
		v := vars[name]
		value := v.Inspect()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", name, object.TypeName(v), value)
	}
}

// Complete returns completions for the last word of line: keywords and
// bound names, ranked by fuzzy match.
func (s *Session) Complete(line string) []string {
	if line == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return nil
	}
	start := strings.LastIndexAny(line, " \t(.,;{") + 1
	word := line[start:]
	if word == "" {
		return nil
	}

	candidates := append(lexer.Keywords(), s.eval.Globals().Names()...)
	matches := fuzzy.Find(word, candidates)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m.Str] || m.Str == word {
			continue
		}
		seen[m.Str] = true
		out = append(out, line[:start]+m.Str)
	}
	return out
}

// needsMoreInput reports whether input has unclosed braces or parentheses
// outside string literals.
func needsMoreInput(input string) bool {
	braces, parens := 0, 0
	inString := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if ch == '/' && i+1 < len(input) && input[i+1] == '/' {
			for i < len(input) && input[i] != '\n' {
				i++
			}
			continue
		}
		switch ch {
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		}
	}
	return inString || braces > 0 || parens > 0
}

// Start runs the REPL on the terminal with line editing, history and tab
// completion until the user quits.
func Start(out io.Writer, cfg Config) error {
	s := NewSession(out, cfg)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(s.Complete)

	if cfg.HistoryFile != "" {
		if f, err := os.Open(cfg.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if err := os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o755); err != nil {
				s.cfg.Logger.Warn("cannot save history", slog.String("error", err.Error()))
				return
			}
			if f, err := os.Create(cfg.HistoryFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(out, banner, cfg.Version)

	for !s.Done() {
		input, err := line.Prompt(s.Prompt())
		if errors.Is(err, liner.ErrPromptAborted) {
			if s.Pending() {
				fmt.Fprintln(out, "^C (cleared)")
			}
			s.Cancel()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if complete := s.Feed(input); complete != "" {
			line.AppendHistory(complete)
		}
	}
	return nil
}
