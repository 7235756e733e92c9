package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ocean-market/marketd/src/catalog"
	"github.com/ocean-market/marketd/src/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type State string

const (
	StateIdle        State = "idle"
	StateAuthorizing State = "authorizing"
	StateAuthorized  State = "authorized"
	StatePurchasing  State = "purchasing"
	StatePublishing  State = "publishing"
	StateConfirmed   State = "confirmed"
	StateFailed      State = "failed"
)

type AttemptKind string

const (
	AttemptKindPurchase AttemptKind = "purchase"
	AttemptKindPublish  AttemptKind = "publish"
	AttemptKindToggle   AttemptKind = "toggle"
)

// Attempt is the lifecycle of one write against the registry.
// At most one purchase attempt per (asset, buyer) pair may be in flight.
type Attempt struct {
	ID      string      `json:"id"`
	Kind    AttemptKind `json:"kind"`
	AssetID uint64      `json:"asset_id"`
	Buyer   string      `json:"buyer,omitempty"`
	Price   *big.Int    `json:"price,omitempty"`
	State   State       `json:"state"`

	// True when a submitted write timed out waiting for a receipt, so the
	// ledger outcome is unknown
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Error         string `json:"error,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNoSigner        = errors.New("no signing key configured")
	ErrAttemptInFlight = errors.New("an attempt for this asset and buyer is already in flight")
	ErrAssetInactive   = errors.New("asset is not active")
	ErrSelfPurchase    = errors.New("cannot purchase own asset")
	ErrNotOwner        = errors.New("asset is owned by another account")
)

// Write surface of the registry
type Registry interface {
	Account() common.Address
	GetAsset(ctx context.Context, id uint64) (registry.Asset, error)
	Approve(ctx context.Context, amount *big.Int) (*types.Receipt, error)
	Purchase(ctx context.Context, id uint64) (*types.Receipt, error)
	Publish(ctx context.Context, metadataCID, dataCID string, price *big.Int) (uint64, *types.Receipt, error)
	ToggleActive(ctx context.Context, id uint64) (*types.Receipt, error)
}

type ContentStore interface {
	Put(ctx context.Context, data []byte) (cid string, err error)
}

type Refresher interface {
	ReloadAll(ctx context.Context) (*catalog.Snapshot, error)
}
