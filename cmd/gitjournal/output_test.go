package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestPrinterDiffColorsRemovedRule(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	p := &printer{out: &buf, err: &buf}
	p.diff("--- a/j.md\n+++ b/j.md\n@@ -1,2 +1,1 @@\n x\n----\n")

	red := color.New(color.FgRed).Sprint("----\n")
	bold := color.New(color.Bold).Sprint("----\n")
	out := buf.String()
	if !strings.Contains(out, red) {
		t.Errorf("removed rule line not red: %q", out)
	}
	if strings.Contains(out, bold) {
		t.Errorf("removed rule line printed as a header: %q", out)
	}
	if !strings.Contains(out, color.New(color.Bold).Sprint("--- a/j.md\n")) {
		t.Errorf("file header not bold: %q", out)
	}
}
