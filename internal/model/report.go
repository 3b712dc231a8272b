package model

import (
	"fmt"
	"strings"
	"time"
)

// RenderReport renders the state as a Markdown vigilance report.
func RenderReport(s State, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Vigilance Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.UTC().Format(time.RFC3339))

	b.WriteString("## Indices\n\n")
	fmt.Fprintf(&b, "- Global risk: %.1f\n", s.Indices.GlobalRisk)
	fmt.Fprintf(&b, "- Stability: %.1f\n\n", s.Indices.Stability)

	b.WriteString("## Flows\n\n")
	b.WriteString("| Flow | Status | Detail |\n")
	b.WriteString("|------|--------|--------|\n")
	for _, name := range FlowNames {
		status, _ := s.Flows.Status(name)
		fmt.Fprintf(&b, "| %s | %s | %s |\n", name, status, s.Flows.Detail(name))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Events (%d)\n\n", len(s.Events))
	if len(s.Events) == 0 {
		b.WriteString("_No events recorded._\n")
	}
	for _, e := range s.Events {
		fmt.Fprintf(&b, "- %s\n", e)
	}

	return b.String()
}
