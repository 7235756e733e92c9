package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ocean-market/marketd/src/utils/eth"

	"github.com/spf13/cobra"
)

var (
	publishName        string
	publishDescription string
	publishFile        string
	publishPrice       string
)

func init() {
	publishCmd.Flags().StringVar(&publishName, "name", "", "asset name")
	publishCmd.Flags().StringVar(&publishDescription, "description", "", "asset description")
	publishCmd.Flags().StringVar(&publishFile, "file", "", "path of the data file to publish")
	publishCmd.Flags().StringVar(&publishPrice, "price", "", "price in whole tokens, e.g. 1.5")
	publishCmd.MarkFlagRequired("name")
	publishCmd.MarkFlagRequired("file")
	publishCmd.MarkFlagRequired("price")
	RootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a data file with its metadata and register it for sale",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		price, err := eth.ParseEther(publishPrice)
		if err != nil {
			return
		}

		payload, err := os.ReadFile(publishFile)
		if err != nil {
			return
		}

		client, err := newClient()
		if err != nil {
			return
		}

		attempt, err := client.orchestrator.Publish(ctx, publishName, publishDescription, payload, price)
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
