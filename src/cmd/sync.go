package cmd

import (
	"github.com/ocean-market/marketd/src/sync"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Keep the marketplace catalog synced with the on-chain registry and serve it over REST",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := sync.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		<-ctx.Done()

		controller.StopWait()
		return
	},
}
