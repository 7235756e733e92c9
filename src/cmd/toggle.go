package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toggleAssetId uint64

func init() {
	toggleCmd.Flags().Uint64Var(&toggleAssetId, "id", 0, "asset id to toggle")
	toggleCmd.MarkFlagRequired("id")
	RootCmd.AddCommand(toggleCmd)
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Flip the active flag of an owned data asset",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		client, err := newClient()
		if err != nil {
			return
		}

		attempt, err := client.orchestrator.Toggle(ctx, toggleAssetId)
		if err != nil {
			return
		}

		encoded, err := json.MarshalIndent(attempt, "", "  ")
		if err != nil {
			return
		}

		fmt.Println(string(encoded))
		return
	},
}
