package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/formsync/internal/client"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool

	api client.Client
)

func defaultServer() string {
	if s := os.Getenv("FORMSYNC_SERVER"); s != "" {
		return s
	}
	if url := activeRemoteURL(); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if t := os.Getenv("FORMSYNC_TOKEN"); t != "" {
		return t
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:   "formsync",
	Short: "Manage versioned custom formats and deploy them to Radarr/Sonarr instances",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		api = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if api != nil {
			api.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "formsync server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token for authentication")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(instanceCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(deploymentsCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(untrackCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
