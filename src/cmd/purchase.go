package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var purchaseAssetId uint64

func init() {
	purchaseCmd.Flags().Uint64Var(&purchaseAssetId, "id", 0, "asset id to purchase")
	purchaseCmd.MarkFlagRequired("id")
	RootCmd.AddCommand(purchaseCmd)
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Buy a data asset, approving the token transfer first",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		client, err := newClient()
		if err != nil {
			return
		}

		attempt, err := client.orchestrator.Purchase(ctx, purchaseAssetId)
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
