package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// printer writes human-facing command output. Logs go to stderr through
// slog; this is what the user asked to see.
type printer struct {
	out io.Writer
	err io.Writer
}

func (p *printer) success(format string, args ...any) {
	color.New(color.FgGreen, color.Bold).Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) info(format string, args ...any) {
	color.New(color.Faint).Fprintf(p.out, "• "+format+"\n", args...)
}

func (p *printer) warn(format string, args ...any) {
	color.New(color.FgYellow, color.Bold).Fprintf(p.err, "⚠ "+format+"\n", args...)
}

func (p *printer) fail(err error, hint string) {
	color.New(color.FgRed, color.Bold).Fprintf(p.err, "[ERROR] %v\n", err)
	if hint != "" {
		fmt.Fprintln(p.err, hint)
	}
}

func (p *printer) plain(s string) {
	fmt.Fprint(p.out, s)
	if !strings.HasSuffix(s, "\n") {
		fmt.Fprintln(p.out)
	}
}

// diff prints a unified diff with added and removed lines colored.
func (p *printer) diff(d string) {
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	for _, line := range strings.SplitAfter(d, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++ "), strings.HasPrefix(line, "--- "):
			color.New(color.Bold).Fprint(p.out, line)
		case strings.HasPrefix(line, "@@"):
			hunk.Fprint(p.out, line)
		case strings.HasPrefix(line, "+"):
			add.Fprint(p.out, line)
		case strings.HasPrefix(line, "-"):
			del.Fprint(p.out, line)
		default:
			fmt.Fprint(p.out, line)
		}
	}
}
