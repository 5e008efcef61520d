// Package graph renders truncations as Mermaid dependency diagrams.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/qcal/pkg/domain"
)

// Overlay highlights parts of a diagram.
type Overlay struct {
	// Qubits are local qubit indices whose instructions get the "focus" class.
	Qubits []int
}

// GenerateMermaid produces a Mermaid flowchart for a program. Each instruction is a node
// and each edge links an instruction to the next one acting on the same qubit.
// Shapes:
// - symbolic parameters: [[Subroutine]]
// - delay: [/Parallelogram/]
// - default: [Rectangle]
func GenerateMermaid(p domain.Program, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	if p.Name != "" {
		fmt.Fprintf(&sb, "    %%%% %s\n", p.Name)
	}

	last := make(map[int]int)
	var param []string
	for i, in := range p.Instructions {
		id := nodeID(i)

		opener, closer := "[", "]"
		switch {
		case len(in.Symbols()) > 0:
			opener, closer = "[[", "]]"
			param = append(param, id)
		case in.Kind == domain.KindDelay:
			opener, closer = "[/", "/]"
		}

		label := escape(in.Label())
		if p.Scheduled {
			label = fmt.Sprintf("%s <br/> t=%d", label, in.StartTime)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)

		for _, q := range in.Qubits {
			if prev, ok := last[q]; ok {
				fmt.Fprintf(&sb, "    %s -- \"q%d\" --> %s\n", nodeID(prev), q, id)
			}
			last[q] = i
		}
	}

	if len(param) > 0 {
		sb.WriteString("\n    classDef param fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s param;\n", strings.Join(param, ","))
	}

	if overlay != nil && len(overlay.Qubits) > 0 {
		focus := make(map[int]bool, len(overlay.Qubits))
		for _, q := range overlay.Qubits {
			focus[q] = true
		}
		var ids []string
		for i, in := range p.Instructions {
			for _, q := range in.Qubits {
				if focus[q] {
					ids = append(ids, nodeID(i))
					break
				}
			}
		}
		if len(ids) > 0 {
			sb.WriteString("\n    %% Overlay Styles\n")
			sb.WriteString("    classDef focus stroke:#01579b,stroke-width:4px;\n")
			fmt.Fprintf(&sb, "    class %s focus;\n", strings.Join(ids, ","))
		}
	}

	return sb.String()
}

// GenerateTruncation renders the custom program of a truncation with its target qubits in focus.
func GenerateTruncation(tr domain.Truncation) string {
	return GenerateMermaid(tr.Custom, &Overlay{Qubits: tr.Mapping.Register(domain.RoleTarget).Qubits})
}

func nodeID(i int) string {
	return fmt.Sprintf("op%d", i)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
