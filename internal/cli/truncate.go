package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/qcal/internal/presentation/graph"
	"github.com/aretw0/qcal/internal/presentation/tui"
	"github.com/aretw0/qcal/pkg/domain"
)

// Output formats of WriteTruncations.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMermaid = "mermaid"
)

type truncationView struct {
	domain.Truncation
	Target domain.Target `json:"target"`
}

// WriteTruncations prints the truncations of the environment in the given format.
// index < 0 selects all of them.
func WriteTruncations(w io.Writer, app *App, format string, index int) error {
	truncations := app.Env.Truncations()
	targets := app.Env.Targets()
	if index >= 0 {
		tr, err := app.Env.Truncation(index)
		if err != nil {
			return err
		}
		tg, err := app.Env.Target(index)
		if err != nil {
			return err
		}
		truncations = []domain.Truncation{tr}
		targets = []domain.Target{tg}
	}

	switch format {
	case FormatText, "":
		tui.PrintTruncations(w, truncations, targets)
		return nil
	case FormatJSON:
		views := make([]truncationView, len(truncations))
		for i := range truncations {
			views[i] = truncationView{Truncation: truncations[i], Target: targets[i]}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case FormatMermaid:
		for i, tr := range truncations {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, graph.GenerateTruncation(tr))
		}
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or mermaid)", format)
}
