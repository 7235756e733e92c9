package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/ipfs"
	"github.com/ocean-market/marketd/src/orchestrator"
	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/common"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/eth"
	"github.com/ocean-market/marketd/src/utils/logger"
	monitor_market "github.com/ocean-market/marketd/src/utils/monitoring/market"

	"github.com/spf13/cobra"
)

var (
	RootCmd = &cobra.Command{
		Use:   "marketd",
		Short: "Data asset marketplace daemon and client",

		// All child commands will use this
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			// Setup a context that gets cancelled upon SIGINT
			ctx, cancel = context.WithCancel(context.Background())

			signalChannel = make(chan os.Signal, 1)
			signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
			go func() {
				select {
				case <-signalChannel:
					cancel()
				case <-ctx.Done():
				}
			}()

			// Load configuration
			conf, err = config.Load(cfgFile)
			if err != nil {
				return
			}
			ctx = common.SetConfig(ctx, conf)

			// Setup logging
			err = logger.Init(conf)
			if err != nil {
				return
			}
			return
		},

		// Run after all commands
		PersistentPostRunE: func(cmd *cobra.Command, args []string) (err error) {
			signal.Stop(signalChannel)
			cancel()
			return
		},
		SilenceErrors: true,
	}

	// Configuration
	conf    *config.Config
	cfgFile string

	// Context setup
	ctx           context.Context
	cancel        context.CancelFunc
	signalChannel chan os.Signal
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path")
}

// Wiring for the one-shot client commands, no background tasks get started
func newClient() (self *client, err error) {
	self = new(client)

	ethClient, err := eth.GetEthClient(logger.NewSublogger("client-cmd"), conf.Contract.RpcUrl)
	if err != nil {
		return
	}

	self.registry, err = registry.NewClient(conf, ethClient)
	if err != nil {
		return
	}

	monitor := monitor_market.NewMonitor().
		WithMaxStaleDuration(conf.Catalog.MaxStaleDuration)

	self.catalog = catalog.NewCatalog(conf).
		WithRegistry(self.registry).
		WithResolver(ipfs.NewResolver(conf)).
		WithMonitor(monitor)

	self.orchestrator = orchestrator.NewOrchestrator(conf).
		WithRegistry(self.registry).
		WithContentStore(ipfs.NewStore(conf)).
		WithRefresher(self.catalog).
		WithHistory(catalog.NewHistory()).
		WithMonitor(monitor)

	return
}

type client struct {
	registry     *registry.Client
	catalog      *catalog.Catalog
	orchestrator *orchestrator.Orchestrator
}
