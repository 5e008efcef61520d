package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/qcal/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintTruncations lists every truncation with its target placement.
// Colors are dropped automatically when w is not a terminal.
func PrintTruncations(w io.Writer, truncations []domain.Truncation, targets []domain.Target) {
	out := termenv.NewOutput(w)
	header := func(s string) termenv.Style { return out.String(s).Bold().Foreground(out.Color("#818cf8")) }
	dim := func(s string) termenv.Style { return out.String(s).Faint() }

	if len(truncations) == 0 {
		fmt.Fprintln(w, dim("no occurrences of the target operation"))
		return
	}

	for i, tr := range truncations {
		fmt.Fprintf(w, "%s occurrence %d at t=%d (instruction %d)\n",
			header(fmt.Sprintf("#%d", tr.Index)), tr.Occurrence.Ordinal, tr.Occurrence.StartTime, tr.Occurrence.Index)
		fmt.Fprintf(w, "  qubits   %d  %s\n", tr.Custom.NumQubits, dim(roles(tr.Layout)))
		fmt.Fprintf(w, "  baseline %d ops  custom %d ops  levels %d\n", tr.Baseline.Len(), tr.Custom.Len(), tr.Levels())
		if i < len(targets) {
			tg := targets[i]
			fmt.Fprintf(w, "  target   %s on %v  nn %v  next %v\n",
				out.String(tg.Gate).Foreground(out.Color("#f472b6")), tg.PhysicalQubits, tg.NeighborQubits, tg.NextNeighbors)
		}
		for _, in := range tr.Custom.Instructions {
			label := in.Label()
			if len(in.Symbols()) > 0 {
				fmt.Fprintf(w, "    %s\n", out.String(label).Foreground(out.Color("#fb923c")))
				continue
			}
			fmt.Fprintf(w, "    %s\n", label)
		}
	}
}

func roles(l domain.Layout) string {
	parts := make([]string, 0, l.Len())
	for _, e := range l.Entries() {
		parts = append(parts, fmt.Sprintf("%d:%s->%d", e.Local, e.Role.RegisterName(), e.Physical))
	}
	return strings.Join(parts, " ")
}
