package errors

import (
	"fmt"
	"go/token"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // Go value to SCALE bytes
	PhaseDecode   Phase = "decode"   // SCALE bytes to Go value
	PhaseRegister Phase = "register" // type registration
	PhaseGenerate Phase = "generate" // wrapper generation
	PhaseExport   Phase = "export"   // build-time export channel
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseCache    Phase = "cache"    // generation cache
	PhaseInspect  Phase = "inspect"  // host-side module inspection
	PhaseCall     Phase = "call"     // boundary entry point invocation
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindUnsupported    Kind = "unsupported"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindOverflow       Kind = "overflow"
	KindNilPointer     Kind = "nil_pointer"
	KindInvalidVariant Kind = "invalid_variant"
	KindTrailingData   Kind = "trailing_data"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindMalformedDecl  Kind = "malformed_decl"
	KindDuplicate      Kind = "duplicate"
	KindIO             Kind = "io"
	KindLock           Kind = "lock"
	KindCorrupt        Kind = "corrupt"
	KindInstantiation  Kind = "instantiation"
	KindTrap           Kind = "trap"
)

// Error is the structured error type used throughout the SDK
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	GoType    string
	ScaleType string
	Detail    string
	Path      []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ScaleType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ScaleType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", SCALE type ")
			b.WriteString(e.ScaleType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("SCALE type ")
			b.WriteString(e.ScaleType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ScaleType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ScaleType sets the SCALE type name
func (b *Builder) ScaleType(t string) *Builder {
	b.err.ScaleType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidDiscriminant creates an invalid discriminant error for enums
func InvalidDiscriminant(phase Phase, path []string, disc uint32, maxValid uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: fmt.Sprintf("discriminant %d out of range (max %d)", disc, maxValid),
		Value:  disc,
	}
}

// Unsupported creates an unsupported type error
func Unsupported(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: goType,
		Detail: "type has no SCALE representation",
	}
}

// OutOfBounds reports a read past the end of the input
func OutOfBounds(phase Phase, path []string, want, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", want, have),
		Value:  want,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:     phase,
		Kind:      KindOverflow,
		Path:      path,
		ScaleType: targetType,
		Detail:    fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:     value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// IO wraps a filesystem failure on path
func IO(phase Phase, op, path string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: fmt.Sprintf("%s %s", op, path),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseInspect,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Diagnostic is a single malformed declaration found during generation
type Diagnostic struct {
	Pos     token.Position
	Decl    string
	Message string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Pos.IsValid() {
		b.WriteString(d.Pos.String())
		b.WriteString(": ")
	}
	if d.Decl != "" {
		b.WriteString(d.Decl)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// MalformedDeclsError is returned when generation rejects one or more declarations
type MalformedDeclsError struct {
	Diagnostics []Diagnostic
}

// NewMalformedDeclsError creates an error from collected diagnostics
func NewMalformedDeclsError(diags []Diagnostic) *MalformedDeclsError {
	return &MalformedDeclsError{Diagnostics: diags}
}

func (e *MalformedDeclsError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "[generate] malformed_decl: no diagnostics"
	}
	if len(e.Diagnostics) == 1 {
		return "[generate] malformed_decl: " + e.Diagnostics[0].String()
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[generate] malformed_decl: %d declaration(s) rejected:\n", len(e.Diagnostics)))

	// Group by file for cleaner output
	byFile := make(map[string][]Diagnostic)
	var fileOrder []string
	for _, d := range e.Diagnostics {
		if _, exists := byFile[d.Pos.Filename]; !exists {
			fileOrder = append(fileOrder, d.Pos.Filename)
		}
		byFile[d.Pos.Filename] = append(byFile[d.Pos.Filename], d)
	}

	for _, file := range fileOrder {
		for _, d := range byFile[file] {
			b.WriteString("\n  - ")
			b.WriteString(d.String())
		}
	}

	return b.String()
}

// Is reports whether target matches this error type. A MalformedDeclsError also
// matches any *Error with PhaseGenerate and KindMalformedDecl.
func (e *MalformedDeclsError) Is(target error) bool {
	switch t := target.(type) {
	case *MalformedDeclsError:
		return true
	case *Error:
		return t.Phase == PhaseGenerate && t.Kind == KindMalformedDecl
	}
	return false
}
