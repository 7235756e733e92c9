package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(assetsCmd)
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Load the current marketplace catalog and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		client, err := newClient()
		if err != nil {
			return
		}

		snapshot, err := client.catalog.ReloadAll(ctx)
		if err != nil {
			return
		}

		encoded, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return
		}

		fmt.Println(string(encoded))
		return
	},
}
