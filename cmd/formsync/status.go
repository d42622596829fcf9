package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/formsync/internal/client"
	"github.com/groblegark/formsync/internal/model"
)

func deploymentFilterFromFlags(cmd *cobra.Command) *client.ListDeploymentsRequest {
	instanceID, _ := cmd.Flags().GetString("instance")
	service, _ := cmd.Flags().GetString("service")
	return &client.ListDeploymentsRequest{InstanceID: instanceID, Service: service}
}

var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "List the deployment ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := api.ListDeployments(context.Background(), deploymentFilterFromFlags(cmd))
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(statuses)
		} else {
			printDeploymentListTable(statuses)
		}
		return nil
	},
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "List deployments that have drifted behind their format",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := api.ListUpdates(context.Background(), deploymentFilterFromFlags(cmd))
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(statuses)
			return nil
		}
		if len(statuses) == 0 {
			fmt.Println("All deployments are in sync.")
			return nil
		}
		printDeploymentListTable(statuses)
		return nil
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <deployment-id>",
	Short: "Forget a deployment record without touching the remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.Untrack(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Untracked %s\n", args[0])
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := api.Health(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

// fetchUpdates is shared with watch mode.
func fetchUpdates(ctx context.Context, req *client.ListDeploymentsRequest) ([]*model.DeploymentStatus, error) {
	return api.ListUpdates(ctx, req)
}

func init() {
	for _, cmd := range []*cobra.Command{deploymentsCmd, updatesCmd} {
		cmd.Flags().String("instance", "", "filter by instance id")
		cmd.Flags().String("service", "", "filter by service kind")
	}
}
