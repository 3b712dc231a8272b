package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/praevisio/internal/events"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow the vigilance stream",
	GroupID: "client",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		ephemeral, _ := cmd.Flags().GetBool("ephemeral")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		if natsURL != "" {
			return watchNATS(ctx, out, natsURL)
		}

		credential := authToken
		if ephemeral {
			tok, err := apiClient.IssueToken(ctx, nil)
			if err != nil {
				return fmt.Errorf("issuing stream token: %w", err)
			}
			credential = tok.Value
		}
		return apiClient.Stream(ctx, credential, func(v events.Vigilance) error {
			return printVigilance(out, v)
		})
	},
}

func init() {
	watchCmd.Flags().String("nats", os.Getenv("PRAEVISIO_NATS_URL"), "follow the NATS mirror instead of the SSE stream")
	watchCmd.Flags().Bool("ephemeral", false, "authenticate the stream with a freshly issued token")
}

func printVigilance(w io.Writer, v events.Vigilance) error {
	if jsonOutput {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, formatVigilance(v))
	return err
}

// watchNATS prints every message published under the praevisio topics.
func watchNATS(ctx context.Context, w io.Writer, natsURL string) error {
	sub, err := events.NewNATSSubscriber(natsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if err := printNATSMessage(w, data); err != nil {
				return err
			}
		}
	}
}

// printNATSMessage prints vigilance payloads like the SSE stream does and
// flow toggles as a single status line.
func printNATSMessage(w io.Writer, data []byte) error {
	if jsonOutput {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}
	var v events.Vigilance
	if err := json.Unmarshal(data, &v); err == nil && v.Event != "" {
		return printVigilance(w, v)
	}
	var toggled events.FlowsToggled
	if err := json.Unmarshal(data, &toggled); err != nil {
		return fmt.Errorf("decoding NATS message: %w", err)
	}
	state := "stopped"
	if toggled.Running {
		state = "started"
	}
	_, err := fmt.Fprintf(w, "[flows] %s\n", state)
	return err
}
