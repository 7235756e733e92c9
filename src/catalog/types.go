package catalog

import (
	"context"
	"math/big"
	"time"

	"github.com/ocean-market/marketd/src/ipfs"
	"github.com/ocean-market/marketd/src/registry"
)

// Asset visible in the catalog: the on-chain record joined with its resolved metadata
type Asset struct {
	ID          uint64   `json:"id"`
	Owner       string   `json:"owner"`
	MetadataCID string   `json:"metadata_cid"`
	DataCID     string   `json:"data_cid"`
	Price       *big.Int `json:"price"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Timestamp   int64    `json:"timestamp"`
}

// Immutable materialized view of the active assets, ordered by id.
// Replaced wholesale on every reload, never mutated in place.
type Snapshot struct {
	Generation uint64    `json:"generation"`
	Assets     []Asset   `json:"assets"`
	CreatedAt  time.Time `json:"created_at"`
}

type TransactionKind string

const (
	TransactionKindPublish  TransactionKind = "publish"
	TransactionKindPurchase TransactionKind = "purchase"
	TransactionKindToggle   TransactionKind = "toggle"
)

type TransactionStatus string

const (
	// Originated locally
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
	// Derived purely from a ledger event
	TransactionStatusObserved TransactionStatus = "observed"
)

type TransactionRecord struct {
	ID      string            `json:"id"`
	Kind    TransactionKind   `json:"kind"`
	AssetID uint64            `json:"asset_id"`
	Owner   string            `json:"owner,omitempty"`
	Buyer   string            `json:"buyer,omitempty"`
	Seller  string            `json:"seller,omitempty"`
	Price   *big.Int          `json:"price,omitempty"`
	TxHash  string            `json:"tx_hash,omitempty"`
	Status  TransactionStatus `json:"status"`
}

// Read surface of the registry needed to rebuild the catalog
type Registry interface {
	AssetCount(ctx context.Context) (uint64, error)
	GetAsset(ctx context.Context, id uint64) (registry.Asset, error)
}

type Resolver interface {
	Resolve(ctx context.Context, cid string) (*ipfs.MetadataDocument, error)
}

type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

type EventSource interface {
	Subscribe(ctx context.Context, out chan<- registry.Event) (Subscription, error)
}
