package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <instance-id> <format-id>...",
	Short: "Deploy formats to an instance",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := api.Deploy(context.Background(), args[0], args[1:])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(res)
		} else {
			printBatchResult(res)
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d format(s) failed to deploy", len(res.Failed))
		}
		return nil
	},
}
