package sync

import (
	"context"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/ipfs"
	"github.com/ocean-market/marketd/src/orchestrator"
	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/eth"
	monitor_market "github.com/ocean-market/marketd/src/utils/monitoring/market"
	"github.com/ocean-market/marketd/src/utils/task"
)

type Controller struct {
	*task.Task

	Catalog      *catalog.Catalog
	History      *catalog.History
	Orchestrator *orchestrator.Orchestrator
}

// Main class that wires the marketplace daemon together.
// Keeps the catalog synced with the on-chain registry and serves it over REST.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	monitor := monitor_market.NewMonitor().
		WithMaxStaleDuration(config.Catalog.MaxStaleDuration)

	resolver := ipfs.NewResolver(config)
	store := ipfs.NewStore(config)

	self.History = catalog.NewHistory()

	self.Catalog = catalog.NewCatalog(config).
		WithResolver(resolver).
		WithMonitor(monitor)

	self.Orchestrator = orchestrator.NewOrchestrator(config).
		WithContentStore(store).
		WithRefresher(self.Catalog).
		WithHistory(self.History).
		WithMonitor(monitor)

	server := NewServer(config).
		WithCatalog(self.Catalog).
		WithHistory(self.History).
		WithOrchestrator(self.Orchestrator).
		WithMonitor(monitor)

	// The eth connection lives inside the watched subtree, a watchdog restart
	// replaces the websocket connection along with the subscription
	watched := func() *task.Task {
		ethClient, err := eth.GetEthClient(self.Log, config.Contract.RpcUrl)
		if err != nil {
			panic(err)
		}

		client, err := registry.NewClient(config, ethClient)
		if err != nil {
			panic(err)
		}

		self.Catalog.WithRegistry(client)
		self.Orchestrator.WithRegistry(client)

		listener := catalog.NewListener(config).
			WithEventSource(eventSource{client}).
			WithCatalog(self.Catalog).
			WithHistory(self.History).
			WithMonitor(monitor)

		return task.NewTask(config, "watched").
			WithSubtask(listener.Task)
	}

	watchdog := task.NewWatchdog(config).
		WithTask(watched).
		WithIsOK(config.Catalog.WatchdogInterval, func() bool {
			isOK := monitor.IsOK()
			if !isOK {
				monitor.Report.Run.State.NumWatchdogRestarts.Inc()
			}
			return isOK
		})

	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(server.Task).
		WithSubtask(watchdog.Task)

	return
}

// Adapts the registry client to the subscription interface the catalog expects
type eventSource struct {
	client *registry.Client
}

func (self eventSource) Subscribe(ctx context.Context, out chan<- registry.Event) (catalog.Subscription, error) {
	return self.client.Subscribe(ctx, out)
}
