package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/ipfs"
	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/logger"
	"github.com/ocean-market/marketd/src/utils/monitoring"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

type attemptKey struct {
	assetID uint64
	buyer   common.Address
}

// Orchestrator drives writes against the registry through their lifecycle.
// Reads always go to the registry at attempt time, never to the catalog
// snapshot, so decisions are made on current prices and flags.
type Orchestrator struct {
	log     *logrus.Entry
	config  *config.Config
	monitor monitoring.Monitor

	registry  Registry
	store     ContentStore
	refresher Refresher
	history   *catalog.History

	mtx      sync.Mutex
	inflight map[attemptKey]*Attempt
	attempts []*Attempt
}

func NewOrchestrator(config *config.Config) (self *Orchestrator) {
	self = new(Orchestrator)
	self.log = logger.NewSublogger("orchestrator")
	self.config = config
	self.inflight = make(map[attemptKey]*Attempt)
	return
}

func (self *Orchestrator) WithRegistry(registry Registry) *Orchestrator {
	self.registry = registry
	return self
}

func (self *Orchestrator) WithContentStore(store ContentStore) *Orchestrator {
	self.store = store
	return self
}

func (self *Orchestrator) WithRefresher(refresher Refresher) *Orchestrator {
	self.refresher = refresher
	return self
}

func (self *Orchestrator) WithHistory(history *catalog.History) *Orchestrator {
	self.history = history
	return self
}

func (self *Orchestrator) WithMonitor(monitor monitoring.Monitor) *Orchestrator {
	self.monitor = monitor
	return self
}

// Attempt returns the most recent attempt touching the given asset
func (self *Orchestrator) Attempt(assetID uint64) (attempt Attempt, ok bool) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	for i := len(self.attempts) - 1; i >= 0; i-- {
		if self.attempts[i].AssetID == assetID {
			return *self.attempts[i], true
		}
	}
	return
}

// Attempts returns a snapshot of every attempt seen so far, oldest first
func (self *Orchestrator) Attempts() (out []Attempt) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	out = make([]Attempt, 0, len(self.attempts))
	for _, attempt := range self.attempts {
		out = append(out, *attempt)
	}
	return
}

// Purchase buys the asset for the configured account. The price and the
// active flag are re-read from the registry at call time.
func (self *Orchestrator) Purchase(ctx context.Context, id uint64) (result Attempt, err error) {
	account := self.registry.Account()
	if account == (common.Address{}) {
		return Attempt{}, ErrNoSigner
	}

	key := attemptKey{assetID: id, buyer: account}
	attempt, err := self.begin(key, AttemptKindPurchase, id, account)
	if err != nil {
		return Attempt{}, err
	}
	defer self.finish(key, attempt)

	asset, err := self.registry.GetAsset(ctx, id)
	if err != nil {
		self.fail(attempt, err)
		return *attempt, err
	}
	if !asset.IsActive {
		self.monitor.GetReport().Orchestrator.State.AttemptsRejected.Inc()
		self.fail(attempt, ErrAssetInactive)
		return *attempt, ErrAssetInactive
	}
	if asset.Owner == account {
		self.monitor.GetReport().Orchestrator.State.AttemptsRejected.Inc()
		self.fail(attempt, ErrSelfPurchase)
		return *attempt, ErrSelfPurchase
	}

	self.setPrice(attempt, asset.Price)
	recordID := self.history.Append(catalog.TransactionRecord{
		Kind:    catalog.TransactionKindPurchase,
		AssetID: id,
		Buyer:   account.String(),
		Seller:  asset.Owner.String(),
		Price:   asset.Price,
		Status:  catalog.TransactionStatusPending,
	})

	self.setState(attempt, StateAuthorizing)
	_, err = self.registry.Approve(ctx, asset.Price)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.AuthorizationFailures.Inc()
		self.fail(attempt, err)
		self.history.SetStatus(recordID, catalog.TransactionStatusFailed, "")
		return *attempt, err
	}
	self.setState(attempt, StateAuthorized)

	self.setState(attempt, StatePurchasing)
	receipt, err := self.registry.Purchase(ctx, id)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.PurchaseFailures.Inc()
		self.fail(attempt, err)
		self.history.SetStatus(recordID, catalog.TransactionStatusFailed, "")
		return *attempt, err
	}

	self.setState(attempt, StateConfirmed)
	self.monitor.GetReport().Orchestrator.State.PurchasesConfirmed.Inc()
	self.history.SetStatus(recordID, catalog.TransactionStatusConfirmed, receipt.TxHash.String())

	self.refresh()
	return *attempt, nil
}

// Publish uploads the payload and its metadata document, then registers
// the asset on chain. The returned attempt carries the new asset id.
func (self *Orchestrator) Publish(ctx context.Context, name, description string, payload []byte, price *big.Int) (result Attempt, err error) {
	account := self.registry.Account()
	if account == (common.Address{}) {
		return Attempt{}, ErrNoSigner
	}

	attempt := self.track(AttemptKindPublish, 0, account)
	defer self.untrack(attempt)

	self.setState(attempt, StatePublishing)
	self.setPrice(attempt, price)

	dataCID, err := self.store.Put(ctx, payload)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.PublishFailures.Inc()
		self.fail(attempt, err)
		return *attempt, fmt.Errorf("failed to store data payload: %w", err)
	}

	document := ipfs.MetadataDocument{
		Name:        name,
		Description: description,
		DataCID:     dataCID,
		Timestamp:   time.Now().UnixMilli(),
	}
	encoded, err := json.Marshal(&document)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.PublishFailures.Inc()
		self.fail(attempt, err)
		return *attempt, err
	}

	metadataCID, err := self.store.Put(ctx, encoded)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.PublishFailures.Inc()
		self.fail(attempt, err)
		return *attempt, fmt.Errorf("failed to store metadata document: %w", err)
	}

	recordID := self.history.Append(catalog.TransactionRecord{
		Kind:   catalog.TransactionKindPublish,
		Owner:  account.String(),
		Price:  price,
		Status: catalog.TransactionStatusPending,
	})

	id, receipt, err := self.registry.Publish(ctx, metadataCID, dataCID, price)
	if err != nil {
		self.monitor.GetReport().Orchestrator.Errors.PublishFailures.Inc()
		self.fail(attempt, err)
		self.history.SetStatus(recordID, catalog.TransactionStatusFailed, "")
		return *attempt, err
	}

	self.mtx.Lock()
	attempt.AssetID = id
	self.mtx.Unlock()

	self.setState(attempt, StateConfirmed)
	self.monitor.GetReport().Orchestrator.State.PublishesConfirmed.Inc()
	self.history.SetStatus(recordID, catalog.TransactionStatusConfirmed, receipt.TxHash.String())

	self.refresh()
	return *attempt, nil
}

// Toggle flips the active flag of an asset owned by the configured account
func (self *Orchestrator) Toggle(ctx context.Context, id uint64) (result Attempt, err error) {
	account := self.registry.Account()
	if account == (common.Address{}) {
		return Attempt{}, ErrNoSigner
	}

	attempt := self.track(AttemptKindToggle, id, account)
	defer self.untrack(attempt)

	asset, err := self.registry.GetAsset(ctx, id)
	if err != nil {
		self.fail(attempt, err)
		return *attempt, err
	}
	if asset.Owner != account {
		self.monitor.GetReport().Orchestrator.State.AttemptsRejected.Inc()
		self.fail(attempt, ErrNotOwner)
		return *attempt, ErrNotOwner
	}

	recordID := self.history.Append(catalog.TransactionRecord{
		Kind:    catalog.TransactionKindToggle,
		AssetID: id,
		Owner:   account.String(),
		Status:  catalog.TransactionStatusPending,
	})

	receipt, err := self.registry.ToggleActive(ctx, id)
	if err != nil {
		self.fail(attempt, err)
		self.history.SetStatus(recordID, catalog.TransactionStatusFailed, "")
		return *attempt, err
	}

	self.setState(attempt, StateConfirmed)
	self.monitor.GetReport().Orchestrator.State.TogglesConfirmed.Inc()
	self.history.SetStatus(recordID, catalog.TransactionStatusConfirmed, receipt.TxHash.String())

	self.refresh()
	return *attempt, nil
}

// begin reserves the per (asset, buyer) slot or rejects the duplicate
func (self *Orchestrator) begin(key attemptKey, kind AttemptKind, id uint64, buyer common.Address) (attempt *Attempt, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if _, ok := self.inflight[key]; ok {
		self.monitor.GetReport().Orchestrator.State.AttemptsRejected.Inc()
		return nil, ErrAttemptInFlight
	}

	attempt = self.newAttempt(kind, id, buyer)
	self.inflight[key] = attempt
	self.attempts = append(self.attempts, attempt)
	self.monitor.GetReport().Orchestrator.State.AttemptsInFlight.Inc()
	return
}

func (self *Orchestrator) finish(key attemptKey, attempt *Attempt) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	delete(self.inflight, key)
	self.monitor.GetReport().Orchestrator.State.AttemptsInFlight.Dec()
}

// track registers an attempt that needs no duplicate guard
func (self *Orchestrator) track(kind AttemptKind, id uint64, buyer common.Address) (attempt *Attempt) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	attempt = self.newAttempt(kind, id, buyer)
	self.attempts = append(self.attempts, attempt)
	self.monitor.GetReport().Orchestrator.State.AttemptsInFlight.Inc()
	return
}

func (self *Orchestrator) untrack(attempt *Attempt) {
	self.monitor.GetReport().Orchestrator.State.AttemptsInFlight.Dec()
}

func (self *Orchestrator) newAttempt(kind AttemptKind, id uint64, buyer common.Address) *Attempt {
	now := time.Now()
	return &Attempt{
		ID:        xid.New().String(),
		Kind:      kind,
		AssetID:   id,
		Buyer:     buyer.String(),
		State:     StateIdle,
		StartedAt: now,
		UpdatedAt: now,
	}
}

func (self *Orchestrator) setState(attempt *Attempt, state State) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	attempt.State = state
	attempt.UpdatedAt = time.Now()
}

func (self *Orchestrator) setPrice(attempt *Attempt, price *big.Int) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	attempt.Price = price
	attempt.UpdatedAt = time.Now()
}

func (self *Orchestrator) fail(attempt *Attempt, cause error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	attempt.State = StateFailed
	attempt.Error = cause.Error()
	attempt.UpdatedAt = time.Now()

	var rejected *registry.WriteRejectedError
	if errors.As(cause, &rejected) && rejected.Indeterminate {
		attempt.Indeterminate = true
		self.monitor.GetReport().Orchestrator.Errors.IndeterminateOutcomes.Inc()
		self.log.WithField("attempt", attempt.ID).
			Warn("Write outcome is unknown, the next confirmed reload settles it")
	}
}

// refresh re-derives the catalog after a confirmed write, the ledger event
// will usually arrive too but a direct reload makes the result visible
// without waiting for the stream
func (self *Orchestrator) refresh() {
	if self.refresher == nil {
		return
	}
	self.monitor.GetReport().Orchestrator.State.RefreshesTriggered.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), self.config.Orchestrator.RefreshTimeout)
	defer cancel()

	_, err := self.refresher.ReloadAll(ctx)
	if err != nil {
		self.log.WithError(err).Error("Post-write catalog refresh failed")
	}
}
