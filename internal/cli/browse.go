package cli

import (
	"context"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/wasm-nucleus/abi"
	"github.com/wippyai/wasm-nucleus/guest"
	"github.com/wippyai/wasm-nucleus/internal/inspect"
)

func newABIBrowseCommand(rootOpts *RootOptions, opts *abiOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <module.wasm>",
		Short: "Pick and call exposed functions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return NewExitError(ExitCommandError, "browse has no json output")
			}
			return withModule(cmd, opts, args[0], func(ctx context.Context, m *inspect.Module) error {
				schema, err := m.ABI(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "read schema", err)
				}
				out := cmd.OutOrStdout()
				model := newBrowseModel(ctx, m, schema, args[0], newStyles(out, colorEnabled(out, rootOpts.Color)))

				progOpts := []tea.ProgramOption{
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(out),
				}
				if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
					progOpts = append(progOpts, tea.WithAltScreen())
				}
				if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
					return WrapExitError(ExitFailure, "browse", err)
				}
				return nil
			})
		},
	}
}

type browseState int

const (
	stateSelect browseState = iota
	stateArgs
	stateResult
)

type callDoneMsg struct {
	out []byte
	err error
}

// browseModel lists the schema functions, reads hex arguments for the
// selected one and shows the encoded result.
type browseModel struct {
	ctx      context.Context
	module   *inspect.Module
	schema   abi.PortableSchema
	filename string
	style    styles

	selected int
	input    textinput.Model
	state    browseState
	result   string
	err      error
}

func newBrowseModel(ctx context.Context, m *inspect.Module, schema abi.PortableSchema, filename string, style styles) *browseModel {
	ti := textinput.New()
	ti.Prompt = "args: "
	ti.Placeholder = "hex"
	ti.Width = 48
	return &browseModel{
		ctx:      ctx,
		module:   m,
		schema:   schema,
		filename: filename,
		style:    style,
		input:    ti,
	}
}

func (b *browseModel) Init() tea.Cmd {
	return nil
}

func (b *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return b, tea.Quit
		case "q":
			if b.state != stateArgs {
				return b, tea.Quit
			}
		case "up", "k":
			if b.state == stateSelect && b.selected > 0 {
				b.selected--
			}
		case "down", "j":
			if b.state == stateSelect && b.selected < len(b.schema.Functions)-1 {
				b.selected++
			}
		case "enter":
			switch b.state {
			case stateSelect:
				if len(b.schema.Functions) == 0 {
					return b, nil
				}
				if len(b.current().Params) == 0 {
					return b, b.call("")
				}
				b.input.Reset()
				b.input.Focus()
				b.state = stateArgs
				return b, textinput.Blink
			case stateArgs:
				return b, b.call(b.input.Value())
			case stateResult:
				b.back()
			}
		case "esc":
			if b.state != stateSelect {
				b.back()
			}
		}

	case callDoneMsg:
		b.result = hex.EncodeToString(msg.out)
		b.err = msg.err
		b.state = stateResult
		return b, nil
	}

	if b.state == stateArgs {
		var cmd tea.Cmd
		b.input, cmd = b.input.Update(msg)
		return b, cmd
	}
	return b, nil
}

func (b *browseModel) current() abi.Function {
	return b.schema.Functions[b.selected]
}

func (b *browseModel) back() {
	b.input.Blur()
	b.state = stateSelect
	b.result = ""
	b.err = nil
}

// call returns a command invoking the selected function with argsHex.
func (b *browseModel) call(argsHex string) tea.Cmd {
	fn := b.current()
	return func() tea.Msg {
		input, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(argsHex), "0x"))
		if err != nil {
			return callDoneMsg{err: fmt.Errorf("invalid arguments: %w", err)}
		}
		switch fn.Kind {
		case abi.Init:
			return callDoneMsg{err: b.module.Init(b.ctx)}
		case abi.Callback:
			return callDoneMsg{err: b.module.Callback(b.ctx, input)}
		}
		out, err := b.module.Call(b.ctx, fn.Kind, fn.Name, input)
		return callDoneMsg{out: out, err: err}
	}
}

func (b *browseModel) View() string {
	var s strings.Builder
	s.WriteString(b.style.title.Render("nucleus"))
	s.WriteString(" ")
	s.WriteString(b.filename)
	s.WriteString("\n\n")

	if len(b.schema.Functions) == 0 {
		s.WriteString(b.style.muted.Render("no functions exposed"))
		s.WriteString("\n\n")
		s.WriteString(b.style.muted.Render("q quit"))
		return s.String()
	}

	switch b.state {
	case stateSelect:
		for i, fn := range b.schema.Functions {
			cursor := "  "
			if i == b.selected {
				cursor = "> "
			}
			s.WriteString(cursor)
			s.WriteString(b.style.kind.Render(fn.Kind.String()))
			s.WriteString(b.style.name.Render(b.schema.Signature(fn)))
			s.WriteString("\n")
		}
		s.WriteString("\n")
		s.WriteString(b.style.muted.Render("up/down select, enter call, q quit"))

	case stateArgs:
		fmt.Fprintf(&s, "Calling %s\n\n", b.style.name.Render(b.schema.Signature(b.current())))
		s.WriteString(b.input.View())
		s.WriteString("\n\n")
		s.WriteString(b.style.muted.Render("enter call, esc back"))

	case stateResult:
		fmt.Fprintf(&s, "Result of %s:\n\n", b.style.name.Render(b.current().Kind.ExportName(b.current().Name)))
		var callErr *guest.CallError
		switch {
		case stderrors.As(b.err, &callErr):
			s.WriteString(b.style.warn.Render("failed: " + callErr.Message))
		case b.err != nil:
			s.WriteString(b.style.err.Render("error: " + b.err.Error()))
		case b.current().Kind.HasReturn():
			s.WriteString(b.style.typ.Render(b.result))
		default:
			s.WriteString(b.style.muted.Render("ok"))
		}
		s.WriteString("\n\n")
		s.WriteString(b.style.muted.Render("enter continue, q quit"))
	}
	return s.String()
}
