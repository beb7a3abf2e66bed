// Package output renders command results for terminals, pipes and machines.
//
// Output adapts to the environment: a TTY gets styled text, anything else
// gets markdown, and json mode emits a single JSON document.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ParseMode validates a mode name. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeText, ModeMarkdown, ModeJSON:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown output mode %q (want auto, text, markdown or json)", s)
}

// Renderer writes results to an output stream and diagnostics to an error
// stream.
type Renderer struct {
	w      io.Writer
	errW   io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer. TTY detection only applies when w is a
// terminal file.
func NewRenderer(w, errW io.Writer, mode Mode) *Renderer {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{w: w, errW: errW, mode: mode, isTTY: tty, styles: NewStyles(tty)}
}

// Writer returns the output stream.
func (r *Renderer) Writer() io.Writer { return r.w }

// ErrWriter returns the diagnostics stream.
func (r *Renderer) ErrWriter() io.Writer { return r.errW }

// IsTTY reports whether the output stream is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the styles for the current output stream.
func (r *Renderer) Styles() *Styles { return r.styles }

// EffectiveMode resolves ModeAuto against the output stream.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// Println writes a line.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// Header writes a heading of the given level.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.styles.Header.Render(text))
		return
	}
	r.Println(FormatHeader(level, text))
}

// Success writes a success line.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render("✓ " + msg))
}

// Warning writes a warning line to the diagnostics stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.styles.Warning.Render("! "+msg))
}

// Error writes an error line to the diagnostics stream.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.styles.Error.Render("✗ "+msg))
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// StatusLine writes "<icon> name  detail" with the icon styled by status.
func (r *Renderer) StatusLine(name, status, detail string) {
	icon := r.statusIcon(status)
	if detail == "" {
		r.Printf("  %s %s\n", icon, name)
		return
	}
	r.Printf("  %s %s  %s\n", icon, name, r.styles.Muted.Render(detail))
}

func (r *Renderer) statusIcon(status string) string {
	switch status {
	case "success", "created", "completed":
		return r.styles.Success.Render("✓")
	case "verified":
		return r.styles.Info.Render("=")
	case "warning", "skipped", "running":
		return r.styles.Warning.Render("!")
	default:
		return r.styles.Error.Render("✗")
	}
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
