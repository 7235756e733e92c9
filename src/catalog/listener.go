package catalog

import (
	"context"
	"errors"

	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/monitoring"
	"github.com/ocean-market/marketd/src/utils/task"

	"github.com/cenkalti/backoff/v4"
)

// Listener keeps the catalog fresh. It owns the event subscription handle,
// consumes decoded events in a single loop, appends them to the history and
// triggers catalog reloads. A dropped stream marks the catalog stale and is
// resubscribed with backoff, a stop tears down exactly the handle it opened.
type Listener struct {
	*task.Task

	source  EventSource
	catalog *Catalog
	history *History
	monitor monitoring.Monitor

	input chan registry.Event
}

func NewListener(config *config.Config) (self *Listener) {
	self = new(Listener)

	self.input = make(chan registry.Event, config.Catalog.EventChannelSize)

	self.Task = task.NewTask(config, "listener").
		WithSubtaskFunc(self.run)

	return
}

func (self *Listener) WithEventSource(source EventSource) *Listener {
	self.source = source
	return self
}

func (self *Listener) WithCatalog(catalog *Catalog) *Listener {
	self.catalog = catalog
	return self
}

func (self *Listener) WithHistory(history *History) *Listener {
	self.history = history
	return self
}

func (self *Listener) WithMonitor(monitor monitoring.Monitor) *Listener {
	self.monitor = monitor
	return self
}

func (self *Listener) run() (err error) {
	for {
		subscription, err := self.subscribe()
		if err != nil {
			if self.IsStopping.Load() {
				return nil
			}
			return err
		}

		self.catalog.SetStale(false)

		// Cover whatever happened while the stream was down
		_, reloadErr := self.catalog.ReloadAll(self.Ctx)
		if reloadErr != nil {
			self.Log.WithError(reloadErr).Error("Reload after (re)subscribing failed")
		}

		dropped := self.consume(subscription)
		if !dropped {
			// Stopping
			return nil
		}

		self.monitor.GetReport().Catalog.Errors.SubscriptionFailures.Inc()
		self.catalog.SetStale(true)
		self.Log.Error("Event stream dropped, catalog is stale until resubscribed")
	}
}

func (self *Listener) subscribe() (subscription Subscription, err error) {
	err = task.NewRetry().
		WithContext(self.Ctx).
		// Retries infinitely until success or stop
		WithMaxElapsedTime(0).
		WithMaxInterval(self.Config.Catalog.ResubscribeMaxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			if errors.Is(err, context.Canceled) && self.IsStopping.Load() {
				return backoff.Permanent(err)
			}
			self.Log.WithError(err).Warn("Failed to subscribe to registry events, retrying...")
			return err
		}).
		Run(func() (err error) {
			subscription, err = self.source.Subscribe(self.Ctx, self.input)
			return
		})
	return
}

// consume drains the event channel until the stream drops or the task stops.
// Returns true when the stream dropped and a resubscribe is needed.
func (self *Listener) consume(subscription Subscription) (dropped bool) {
	defer subscription.Unsubscribe()

	for {
		select {
		case <-self.StopChannel:
			return false
		case err := <-subscription.Err():
			self.Log.WithError(err).Error("Subscription error")
			return true
		case event := <-self.input:
			self.handle(event)
		}
	}
}

// handle appends the observed event to the history, then re-derives the view.
// The registry exposes no delta reads, so a full reload is the correct refresh.
func (self *Listener) handle(event registry.Event) {
	switch e := event.(type) {
	case *registry.PublishedEvent:
		self.history.Append(TransactionRecord{
			Kind:    TransactionKindPublish,
			AssetID: e.AssetID,
			Owner:   e.Owner.String(),
			Price:   e.Price,
			TxHash:  e.TxHash.String(),
			Status:  TransactionStatusObserved,
		})
	case *registry.PurchasedEvent:
		self.history.Append(TransactionRecord{
			Kind:    TransactionKindPurchase,
			AssetID: e.AssetID,
			Buyer:   e.Buyer.String(),
			Seller:  e.Seller.String(),
			Price:   e.Price,
			TxHash:  e.TxHash.String(),
			Status:  TransactionStatusObserved,
		})
	default:
		self.Log.WithField("kind", event.Kind()).Warn("Unknown event kind, ignoring")
		return
	}

	self.monitor.GetReport().Catalog.State.EventsProcessed.Inc()

	_, err := self.catalog.ReloadAll(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Error("Event-triggered reload failed")
	}
}
