package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/ipfs"
	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/config"
	monitor_market "github.com/ocean-market/marketd/src/utils/monitoring/market"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

type OrchestratorTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
}

func (s *OrchestratorTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *OrchestratorTestSuite) TearDownSuite() {
	s.cancel()
}

var (
	buyerAccount = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	sellerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type stubRegistry struct {
	mtx     sync.Mutex
	account common.Address
	assets  map[uint64]registry.Asset

	approveErr  error
	purchaseErr error
	publishErr  error
	toggleErr   error

	// Closed by the test to let a blocked approve continue
	approveGate    chan struct{}
	approveStarted chan struct{}

	approvedAmounts []*big.Int
	purchasedIds    []uint64
	toggledIds      []uint64

	publishedMetadataCID string
	publishedDataCID     string
	nextAssetId          uint64
}

func (self *stubRegistry) Account() common.Address {
	return self.account
}

func (self *stubRegistry) GetAsset(ctx context.Context, id uint64) (registry.Asset, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	asset, ok := self.assets[id]
	if !ok {
		return registry.Asset{}, registry.ErrNotFound
	}
	return asset, nil
}

func (self *stubRegistry) Approve(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	self.mtx.Lock()
	gate := self.approveGate
	started := self.approveStarted
	self.mtx.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.approveErr != nil {
		return nil, self.approveErr
	}
	self.approvedAmounts = append(self.approvedAmounts, amount)
	return receipt("0xa1"), nil
}

func (self *stubRegistry) Purchase(ctx context.Context, id uint64) (*types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.purchaseErr != nil {
		return nil, self.purchaseErr
	}
	self.purchasedIds = append(self.purchasedIds, id)
	return receipt("0xb2"), nil
}

func (self *stubRegistry) Publish(ctx context.Context, metadataCID, dataCID string, price *big.Int) (uint64, *types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.publishErr != nil {
		return 0, nil, self.publishErr
	}
	self.publishedMetadataCID = metadataCID
	self.publishedDataCID = dataCID
	id := self.nextAssetId
	self.nextAssetId++
	return id, receipt("0xc3"), nil
}

func (self *stubRegistry) ToggleActive(ctx context.Context, id uint64) (*types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.toggleErr != nil {
		return nil, self.toggleErr
	}
	self.toggledIds = append(self.toggledIds, id)
	return receipt("0xd4"), nil
}

func receipt(txHash string) *types.Receipt {
	return &types.Receipt{TxHash: common.HexToHash(txHash), Status: types.ReceiptStatusSuccessful}
}

type stubStore struct {
	mtx  sync.Mutex
	puts [][]byte
	err  error
}

func (self *stubStore) Put(ctx context.Context, data []byte) (string, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.err != nil {
		return "", self.err
	}
	self.puts = append(self.puts, data)
	return cidFor(len(self.puts) - 1), nil
}

func cidFor(i int) string {
	return []string{"Qm-first", "Qm-second"}[i]
}

type stubRefresher struct {
	mtx   sync.Mutex
	calls int
}

func (self *stubRefresher) ReloadAll(ctx context.Context) (*catalog.Snapshot, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.calls++
	return &catalog.Snapshot{Generation: uint64(self.calls)}, nil
}

func (self *stubRefresher) Calls() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.calls
}

type fixture struct {
	registry     *stubRegistry
	store        *stubStore
	refresher    *stubRefresher
	history      *catalog.History
	monitor      *monitor_market.Monitor
	orchestrator *Orchestrator
}

func (s *OrchestratorTestSuite) newFixture(assets map[uint64]registry.Asset) *fixture {
	f := &fixture{
		registry:  &stubRegistry{account: buyerAccount, assets: assets, nextAssetId: uint64(len(assets))},
		store:     &stubStore{},
		refresher: &stubRefresher{},
		history:   catalog.NewHistory(),
		monitor:   monitor_market.NewMonitor(),
	}
	f.orchestrator = NewOrchestrator(s.config).
		WithRegistry(f.registry).
		WithContentStore(f.store).
		WithRefresher(f.refresher).
		WithHistory(f.history).
		WithMonitor(f.monitor)
	return f
}

func activeAsset(id uint64, owner common.Address, price int64) registry.Asset {
	return registry.Asset{
		ID:          id,
		Owner:       owner,
		MetadataCID: "Qm-meta",
		DataCID:     "Qm-data",
		Price:       big.NewInt(price),
		IsActive:    true,
	}
}

func (s *OrchestratorTestSuite) TestPurchaseHappyPath() {
	f := s.newFixture(map[uint64]registry.Asset{7: activeAsset(7, sellerAddr, 5000)})

	attempt, err := f.orchestrator.Purchase(s.ctx, 7)
	require.NoError(s.T(), err)
	require.Equal(s.T(), StateConfirmed, attempt.State)
	require.False(s.T(), attempt.Indeterminate)

	require.Equal(s.T(), []uint64{7}, f.registry.purchasedIds)
	require.Len(s.T(), f.registry.approvedAmounts, 1)
	require.EqualValues(s.T(), 5000, f.registry.approvedAmounts[0].Int64())
	require.Equal(s.T(), 1, f.refresher.Calls())

	records := f.history.List()
	require.Len(s.T(), records, 1)
	require.Equal(s.T(), catalog.TransactionStatusConfirmed, records[0].Status)
	require.NotEmpty(s.T(), records[0].TxHash)

	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.State.PurchasesConfirmed.Load())
	require.EqualValues(s.T(), 0, f.monitor.Report.Orchestrator.State.AttemptsInFlight.Load())
}

func (s *OrchestratorTestSuite) TestPriceReadAtAttemptTime() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})

	// The seller changed the price after the asset was last listed
	f.registry.mtx.Lock()
	asset := f.registry.assets[0]
	asset.Price = big.NewInt(9000)
	f.registry.assets[0] = asset
	f.registry.mtx.Unlock()

	attempt, err := f.orchestrator.Purchase(s.ctx, 0)
	require.NoError(s.T(), err)
	require.EqualValues(s.T(), 9000, f.registry.approvedAmounts[0].Int64())
	require.EqualValues(s.T(), 9000, attempt.Price.Int64())
}

func (s *OrchestratorTestSuite) TestApproveFailureStopsAttempt() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})
	f.registry.approveErr = &registry.WriteRejectedError{Op: "approve", Cause: errors.New("insufficient funds")}

	attempt, err := f.orchestrator.Purchase(s.ctx, 0)
	require.Error(s.T(), err)
	require.Equal(s.T(), StateFailed, attempt.State)

	// The token transfer was never authorized, no purchase may be submitted
	require.Empty(s.T(), f.registry.purchasedIds)
	require.Equal(s.T(), 0, f.refresher.Calls())
	require.Equal(s.T(), catalog.TransactionStatusFailed, f.history.List()[0].Status)
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.Errors.AuthorizationFailures.Load())
	require.EqualValues(s.T(), 0, f.monitor.Report.Orchestrator.State.PurchasesConfirmed.Load())
}

func (s *OrchestratorTestSuite) TestIndeterminateOutcome() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})
	f.registry.purchaseErr = &registry.WriteRejectedError{
		Op:            "purchaseDataAsset",
		Indeterminate: true,
		Cause:         errors.New("timed out waiting for the receipt"),
	}

	attempt, err := f.orchestrator.Purchase(s.ctx, 0)
	require.Error(s.T(), err)
	require.Equal(s.T(), StateFailed, attempt.State)
	require.True(s.T(), attempt.Indeterminate)
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.Errors.IndeterminateOutcomes.Load())
}

func (s *OrchestratorTestSuite) TestSelfPurchaseRejected() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, buyerAccount, 5000)})

	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.ErrorIs(s.T(), err, ErrSelfPurchase)
	require.Empty(s.T(), f.registry.approvedAmounts)
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.State.AttemptsRejected.Load())
}

func (s *OrchestratorTestSuite) TestInactiveAssetRejected() {
	asset := activeAsset(0, sellerAddr, 5000)
	asset.IsActive = false
	f := s.newFixture(map[uint64]registry.Asset{0: asset})

	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.ErrorIs(s.T(), err, ErrAssetInactive)
	require.Empty(s.T(), f.registry.approvedAmounts)
}

func (s *OrchestratorTestSuite) TestNoSigner() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})
	f.registry.account = common.Address{}

	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.ErrorIs(s.T(), err, ErrNoSigner)
}

func (s *OrchestratorTestSuite) TestDuplicatePurchaseRejectedWhileInFlight() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})
	f.registry.approveGate = make(chan struct{})
	f.registry.approveStarted = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orchestrator.Purchase(s.ctx, 0)
		done <- err
	}()

	<-f.registry.approveStarted

	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.ErrorIs(s.T(), err, ErrAttemptInFlight)
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.State.AttemptsRejected.Load())

	close(f.registry.approveGate)
	require.NoError(s.T(), <-done)

	// The slot is free again once the first attempt settled
	f.registry.mtx.Lock()
	f.registry.approveGate = nil
	f.registry.approveStarted = nil
	f.registry.mtx.Unlock()

	_, err = f.orchestrator.Purchase(s.ctx, 0)
	require.NoError(s.T(), err)
}

func (s *OrchestratorTestSuite) TestPublishStoresDataThenMetadata() {
	f := s.newFixture(map[uint64]registry.Asset{})
	payload := []byte("payload bytes")

	attempt, err := f.orchestrator.Publish(s.ctx, "weather data", "hourly readings", payload, big.NewInt(7000))
	require.NoError(s.T(), err)
	require.Equal(s.T(), StateConfirmed, attempt.State)
	require.EqualValues(s.T(), 0, attempt.AssetID)

	// Data blob first, its cid is embedded in the metadata document
	require.Len(s.T(), f.store.puts, 2)
	require.Equal(s.T(), payload, f.store.puts[0])

	var document ipfs.MetadataDocument
	require.NoError(s.T(), json.Unmarshal(f.store.puts[1], &document))
	require.Equal(s.T(), "weather data", document.Name)
	require.Equal(s.T(), cidFor(0), document.DataCID)
	require.NotZero(s.T(), document.Timestamp)

	require.Equal(s.T(), cidFor(0), f.registry.publishedDataCID)
	require.Equal(s.T(), cidFor(1), f.registry.publishedMetadataCID)
	require.Equal(s.T(), 1, f.refresher.Calls())
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.State.PublishesConfirmed.Load())
}

func (s *OrchestratorTestSuite) TestPublishStoreFailureFailsAttempt() {
	f := s.newFixture(map[uint64]registry.Asset{})
	f.store.err = errors.New("api: 503")

	attempt, err := f.orchestrator.Publish(s.ctx, "name", "", []byte("data"), big.NewInt(1))
	require.Error(s.T(), err)
	require.Equal(s.T(), StateFailed, attempt.State)
	require.Empty(s.T(), f.registry.publishedDataCID)
	require.Equal(s.T(), 0, f.history.Len())
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.Errors.PublishFailures.Load())
}

func (s *OrchestratorTestSuite) TestToggleOwnedAsset() {
	f := s.newFixture(map[uint64]registry.Asset{3: activeAsset(3, buyerAccount, 5000)})

	attempt, err := f.orchestrator.Toggle(s.ctx, 3)
	require.NoError(s.T(), err)
	require.Equal(s.T(), StateConfirmed, attempt.State)
	require.Equal(s.T(), []uint64{3}, f.registry.toggledIds)
	require.Equal(s.T(), 1, f.refresher.Calls())
	require.EqualValues(s.T(), 1, f.monitor.Report.Orchestrator.State.TogglesConfirmed.Load())
}

func (s *OrchestratorTestSuite) TestToggleForeignAssetRejected() {
	f := s.newFixture(map[uint64]registry.Asset{3: activeAsset(3, sellerAddr, 5000)})

	_, err := f.orchestrator.Toggle(s.ctx, 3)
	require.ErrorIs(s.T(), err, ErrNotOwner)
	require.Empty(s.T(), f.registry.toggledIds)
}

func (s *OrchestratorTestSuite) TestAttemptLookupByAsset() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})

	// First attempt fails at authorization, the retry succeeds
	f.registry.approveErr = &registry.WriteRejectedError{Op: "approve", Cause: errors.New("rejected by signer")}
	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.Error(s.T(), err)

	f.registry.mtx.Lock()
	f.registry.approveErr = nil
	f.registry.mtx.Unlock()
	_, err = f.orchestrator.Purchase(s.ctx, 0)
	require.NoError(s.T(), err)

	attempt, ok := f.orchestrator.Attempt(0)
	require.True(s.T(), ok)
	require.Equal(s.T(), StateConfirmed, attempt.State)

	_, ok = f.orchestrator.Attempt(99)
	require.False(s.T(), ok)
}

func (s *OrchestratorTestSuite) TestAttemptsInspection() {
	f := s.newFixture(map[uint64]registry.Asset{0: activeAsset(0, sellerAddr, 5000)})

	_, err := f.orchestrator.Purchase(s.ctx, 0)
	require.NoError(s.T(), err)

	attempts := f.orchestrator.Attempts()
	require.Len(s.T(), attempts, 1)
	require.Equal(s.T(), AttemptKindPurchase, attempts[0].Kind)
	require.Equal(s.T(), StateConfirmed, attempts[0].State)
	require.NotEmpty(s.T(), attempts[0].ID)
}
