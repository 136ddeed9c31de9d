package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // rejected declarations, missing exports
	ExitCommandError = 2 // bad flags, unreadable files, corrupt documents
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Errors that are not an
// *ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// colorEnabled resolves the --color mode for w.
func colorEnabled(w io.Writer, mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type styles struct {
	title lipgloss.Style
	kind  lipgloss.Style
	name  lipgloss.Style
	typ   lipgloss.Style
	muted lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		kind:  r.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Width(6),
		name:  r.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		typ:   r.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		muted: r.NewStyle().Foreground(lipgloss.Color("#666666")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFD75F")),
		err:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// printer writes command output in the selected format.
type printer struct {
	opts  *RootOptions
	out   io.Writer
	errW  io.Writer
	style styles
}

func newPrinter(opts *RootOptions, out, errW io.Writer) *printer {
	return &printer{
		opts:  opts,
		out:   out,
		errW:  errW,
		style: newStyles(out, colorEnabled(out, opts.Color)),
	}
}

func (p *printer) json() bool {
	return p.opts.Format == "json"
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// diag writes to the error stream, styled like out.
func (p *printer) diag(s lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.errW, s.Render(fmt.Sprintf(format, args...)))
}
