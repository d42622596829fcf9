package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/formsync/internal/client"
	"github.com/groblegark/formsync/internal/model"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Manage custom formats",
}

var formatCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _ := cmd.Flags().GetString("service")
		rename, _ := cmd.Flags().GetBool("include-when-renaming")
		specsFile, _ := cmd.Flags().GetString("specs-file")

		specs, err := readSpecs(specsFile)
		if err != nil {
			return err
		}

		format, err := api.CreateFormat(context.Background(), &client.CreateFormatRequest{
			Name:                args[0],
			Service:             service,
			IncludeWhenRenaming: rename,
			Specifications:      specs,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(format)
		} else {
			printFormat(format)
		}
		return nil
	},
}

var formatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List formats",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _ := cmd.Flags().GetString("service")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		resp, err := api.ListFormats(context.Background(), &client.ListFormatsRequest{
			Service: service,
			Search:  search,
			Limit:   limit,
			Offset:  offset,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(resp)
		} else {
			printFormatListTable(resp.Formats, resp.Total)
		}
		return nil
	},
}

var formatShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := api.GetFormat(context.Background(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(format)
		} else {
			printFormat(format)
		}
		return nil
	},
}

var formatUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a format (submitting new specs bumps the version)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.UpdateFormatRequest{}

		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			req.Name = &name
		}
		if cmd.Flags().Changed("include-when-renaming") {
			rename, _ := cmd.Flags().GetBool("include-when-renaming")
			req.IncludeWhenRenaming = &rename
		}
		if specsFile, _ := cmd.Flags().GetString("specs-file"); specsFile != "" {
			specs, err := readSpecs(specsFile)
			if err != nil {
				return err
			}
			req.Specifications = specs
		}

		format, err := api.UpdateFormat(context.Background(), args[0], req)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(format)
		} else {
			printFormat(format)
		}
		return nil
	},
}

var formatDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a format (remote copies are left in place)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteFormat(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// readSpecs reads a JSON specification list from a file, or stdin when
// path is "-".
func readSpecs(path string) ([]model.Specification, error) {
	if path == "" {
		return nil, fmt.Errorf("--specs-file is required (use - for stdin)")
	}

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading specifications: %w", err)
	}

	var specs []model.Specification
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing specifications: %w", err)
	}
	return specs, nil
}

func init() {
	formatCreateCmd.Flags().String("service", "radarr", "target service kind (radarr or sonarr)")
	formatCreateCmd.Flags().Bool("include-when-renaming", false, "include the format when renaming files")
	formatCreateCmd.Flags().String("specs-file", "", "JSON file with the specification list (use - for stdin)")

	formatListCmd.Flags().String("service", "", "filter by service kind")
	formatListCmd.Flags().String("search", "", "substring match on name")
	formatListCmd.Flags().Int("limit", 0, "maximum number of results")
	formatListCmd.Flags().Int("offset", 0, "pagination offset")

	formatUpdateCmd.Flags().String("name", "", "new name")
	formatUpdateCmd.Flags().Bool("include-when-renaming", false, "include the format when renaming files")
	formatUpdateCmd.Flags().String("specs-file", "", "JSON file with the new specification list (use - for stdin)")

	formatCmd.AddCommand(formatCreateCmd)
	formatCmd.AddCommand(formatListCmd)
	formatCmd.AddCommand(formatShowCmd)
	formatCmd.AddCommand(formatUpdateCmd)
	formatCmd.AddCommand(formatDeleteCmd)
}
