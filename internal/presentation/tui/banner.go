// Package tui holds the terminal presentation helpers of the qcal CLI.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the qcal ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   __ _  ___ __ _| |", "#38bdf8"},
		{"  / _` |/ __/ _` | |", "#60a5fa"},
		{" | (_| | (_| (_| | |", "#818cf8"},
		{"  \\__, |\\___\\__,_|_|", "#a78bfa"},
		{"     |_|            ", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
