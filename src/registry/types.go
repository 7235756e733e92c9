package registry

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// On-chain record of a published data asset
type Asset struct {
	ID          uint64
	Owner       common.Address
	MetadataCID string
	DataCID     string
	Price       *big.Int
	IsActive    bool
}

type EventKind string

const (
	EventKindPublished EventKind = "publish"
	EventKindPurchased EventKind = "purchase"
)

type Event interface {
	Kind() EventKind
	Transaction() common.Hash
}

type PublishedEvent struct {
	AssetID     uint64
	Owner       common.Address
	MetadataCID string
	Price       *big.Int
	TxHash      common.Hash
}

func (self *PublishedEvent) Kind() EventKind          { return EventKindPublished }
func (self *PublishedEvent) Transaction() common.Hash { return self.TxHash }

type PurchasedEvent struct {
	AssetID uint64
	Buyer   common.Address
	Seller  common.Address
	Price   *big.Int
	TxHash  common.Hash
}

func (self *PurchasedEvent) Kind() EventKind          { return EventKindPurchased }
func (self *PurchasedEvent) Transaction() common.Hash { return self.TxHash }
