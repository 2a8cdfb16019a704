package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/client"
	"github.com/alfredjeanlab/sortgate/internal/events"
	"github.com/alfredjeanlab/sortgate/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow gateway events, or poll status when NATS is not configured",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		topic, _ := cmd.Flags().GetString("topic")
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, cmd.OutOrStdout(), natsURL, topic)
		}
		return watchPoll(ctx, cmd.OutOrStdout(), interval)
	},
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("SORTGATE_NATS_URL"), "NATS server to subscribe to")
	watchCmd.Flags().String("topic", events.TopicAll, "NATS subject pattern to follow")
	watchCmd.Flags().Duration("interval", 5*time.Second, "status poll interval without NATS")
}

// watchNATS prints each event on topic until ctx is done.
func watchNATS(ctx context.Context, out io.Writer, natsURL, topic string) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()
	return watchEvents(ctx, out, sub, topic)
}

func watchEvents(ctx context.Context, out io.Writer, sub events.Subscriber, topic string) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := events.DecodeEnvelope(payload)
			if err != nil {
				log.Printf("skipping event: %v", err)
				continue
			}
			if jsonOutput {
				fmt.Fprintln(out, string(payload))
				continue
			}
			fmt.Fprintln(out, formatEvent(env))
		}
	}
}

// watchPoll prints the status whenever it changes.
func watchPoll(ctx context.Context, out io.Writer, interval time.Duration) error {
	last := ""
	for {
		line := ""
		st, err := gatewayClient.Status(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			line = ui.RenderError(err.Error())
		default:
			line = formatStatusLine(st)
		}
		if line != last {
			fmt.Fprintf(out, "%s %s\n", ui.RenderMuted(time.Now().Format("15:04:05")), line)
			last = line
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func formatStatusLine(st *client.StatusResponse) string {
	db := ui.RenderOK("online")
	if !st.DatabaseOnline {
		db = ui.RenderError("offline")
	}
	cache := "never"
	if st.CacheLastUpdated != nil {
		cache = st.CacheLastUpdated.Local().Format("15:04:05")
	}
	return fmt.Sprintf("database %s, %d items and %d bins cached at %s, %d pending",
		db, st.CachedItemsCount, st.CachedTrashBinsCount, cache, st.PendingPostsCount)
}

// formatEvent renders one event as a single line.
func formatEvent(env events.Envelope) string {
	ts := ui.RenderMuted(env.PublishedAt.Local().Format("15:04:05"))
	data, _ := env.Data.(map[string]any)
	switch env.Topic {
	case events.TopicSelectionApplied:
		return fmt.Sprintf("%s %s %v at %v (%v times)", ts, ui.RenderOK("applied"), data["item"], data["location"], data["times_selected"])
	case events.TopicSelectionQueued:
		return fmt.Sprintf("%s %s %v at %v (%v)", ts, ui.RenderWarn("queued"), data["item"], data["location"], data["id"])
	case events.TopicQueueReplayed:
		applied, _ := data["applied_ids"].([]any)
		return fmt.Sprintf("%s %s %d writes, %v remaining", ts, ui.RenderAccent("replayed"), len(applied), data["remaining"])
	case events.TopicSnapshotRefreshed:
		return fmt.Sprintf("%s %s %v", ts, ui.RenderAccent("refreshed"), data["resources"])
	default:
		return fmt.Sprintf("%s %s", ts, env.Topic)
	}
}
