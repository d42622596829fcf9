package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/formsync/internal/client"
	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/model"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for deployments drifting behind their formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")
		req := deploymentFilterFromFlags(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		seen := make(map[string]int)

		// Initial query.
		if err := queryAndPrint(ctx, req, seen); err != nil {
			return err
		}
		if once {
			return nil
		}

		// Event-driven when a NATS URL is available, polling otherwise.
		natsURL := os.Getenv("FORMSYNC_NATS_URL")
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL, req, seen)
		}
		return watchPoll(ctx, interval, req, seen)
	},
}

// watchNATS subscribes to server events and re-queries on changes with debounce.
func watchNATS(ctx context.Context, natsURL string, req *client.ListDeploymentsRequest, seen map[string]int) error {
	// reconnectCh receives a signal when the NATS client reconnects after
	// a disconnect, so we can immediately re-query for missed events.
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe("formats.>")
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	debounce := time.NewTimer(0)
	debounce.Stop()
	// Drain the timer channel in case it fired between NewTimer and Stop.
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			debounce.Reset(200 * time.Millisecond)
		case <-reconnectCh:
			debounce.Reset(0) // immediate re-query
		case <-debounce.C:
			if err := queryAndPrint(ctx, req, seen); err != nil {
				return err
			}
		}
	}
}

// watchPoll polls for drift at the given interval.
func watchPoll(ctx context.Context, interval time.Duration, req *client.ListDeploymentsRequest, seen map[string]int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		if err := queryAndPrint(ctx, req, seen); err != nil {
			return err
		}
	}
}

// queryAndPrint lists drifted deployments, diffs against the seen map, and
// prints any entries that are new or whose live version moved.
func queryAndPrint(ctx context.Context, req *client.ListDeploymentsRequest, seen map[string]int) error {
	statuses, err := fetchUpdates(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	changed := diffStatuses(statuses, seen)
	if len(changed) > 0 {
		if jsonOutput {
			printJSON(changed)
		} else {
			printDeploymentListTable(changed)
		}
	}
	return nil
}

// diffStatuses returns entries that are new or whose live version changed
// since last seen. It updates seen in place.
func diffStatuses(statuses []*model.DeploymentStatus, seen map[string]int) []*model.DeploymentStatus {
	var changed []*model.DeploymentStatus
	for _, st := range statuses {
		prev, ok := seen[st.ID]
		if !ok || st.LiveVersion != prev {
			changed = append(changed, st)
		}
		seen[st.ID] = st.LiveVersion
	}
	return changed
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "polling interval")
	watchCmd.Flags().Bool("once", false, "exit after first query")
	watchCmd.Flags().String("instance", "", "filter by instance id")
	watchCmd.Flags().String("service", "", "filter by service kind")
}
