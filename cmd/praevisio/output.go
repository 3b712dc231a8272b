package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/praevisio/internal/client"
	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/alfredjeanlab/praevisio/internal/model"
	"github.com/alfredjeanlab/praevisio/internal/ui"
)

// maxStateEvents bounds the events printed by printState.
const maxStateEvents = 10

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printState(w io.Writer, st *model.State) {
	fmt.Fprintf(w, "Global risk: %s\n", ui.RenderRisk(st.Indices.GlobalRisk))
	fmt.Fprintf(w, "Stability:   %.1f\n\n", st.Indices.Stability)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOW\tSTATUS\tDETAIL")
	for _, name := range model.FlowNames {
		status, _ := st.Flows.Status(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, ui.RenderStatus(string(status)), st.Flows.Detail(name))
	}
	tw.Flush()

	if len(st.Events) == 0 {
		return
	}
	fmt.Fprintf(w, "\nRecent events (%d total):\n", len(st.Events))
	for i, e := range st.Events {
		if i == maxStateEvents {
			break
		}
		fmt.Fprintf(w, "  %s\n", ui.RenderMuted(e))
	}
}

func printToken(w io.Writer, tok *client.Token) {
	fmt.Fprintln(w, tok.Value)
	fmt.Fprintf(w, "%s\n", ui.RenderMuted("expires "+tok.Deadline().Format(time.RFC3339)))
}

// formatVigilance renders one stream payload as a single line.
func formatVigilance(v events.Vigilance) string {
	risk := ui.RenderRisk(v.State.Indices.GlobalRisk)
	switch v.Event {
	case events.EventInit:
		return fmt.Sprintf("%s risk=%s events=%d", ui.RenderAccent("[init]"), risk, len(v.State.Events))
	case events.EventCleared:
		return fmt.Sprintf("%s risk=%s", ui.RenderAccent("[cleared]"), risk)
	default:
		return fmt.Sprintf("%s risk=%s %s", ui.RenderAccent("["+v.Event+"]"), risk, v.Message)
	}
}
