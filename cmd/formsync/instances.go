package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/formsync/internal/client"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage deployment targets",
}

var instanceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a Radarr or Sonarr instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		url, _ := cmd.Flags().GetString("url")
		apiKey, _ := cmd.Flags().GetString("api-key")
		service, _ := cmd.Flags().GetString("service")

		inst, err := api.CreateInstance(context.Background(), &client.CreateInstanceRequest{
			Label:   label,
			URL:     url,
			APIKey:  apiKey,
			Service: service,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(inst)
		} else {
			fmt.Printf("Added %s (%s, %s)\n", inst.ID, inst.Label, inst.Service)
		}
		return nil
	},
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		instances, err := api.ListInstances(context.Background())
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(instances)
		} else {
			printInstanceListTable(instances)
		}
		return nil
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := api.GetInstance(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(inst)
		} else {
			fmt.Printf("%s  %s\n", inst.ID, inst.Label)
			fmt.Printf("  service: %s\n", inst.Service)
			fmt.Printf("  url:     %s\n", inst.URL)
			fmt.Printf("  created: %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var instanceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an instance and its deployment records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteInstance(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	instanceAddCmd.Flags().String("label", "", "human-readable name")
	instanceAddCmd.Flags().String("url", "", "instance base URL")
	instanceAddCmd.Flags().String("api-key", "", "instance API key")
	instanceAddCmd.Flags().String("service", "radarr", "service kind (radarr or sonarr)")
	instanceAddCmd.MarkFlagRequired("label")
	instanceAddCmd.MarkFlagRequired("url")
	instanceAddCmd.MarkFlagRequired("api-key")

	instanceCmd.AddCommand(instanceAddCmd)
	instanceCmd.AddCommand(instanceListCmd)
	instanceCmd.AddCommand(instanceShowCmd)
	instanceCmd.AddCommand(instanceRemoveCmd)
}
