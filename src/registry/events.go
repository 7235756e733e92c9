package registry

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Live log subscription decoded into typed events.
// Tracked as an explicit handle so teardown can't miss it even when
// the owning client reference gets swapped behind its back.
type Subscription struct {
	logs chan types.Log
	sub  ethereum.Subscription
	err  chan error
	done chan struct{}

	unsubscribeOnce sync.Once
}

// Unsubscribe tears down the subscription, no events are delivered afterwards. Idempotent.
func (self *Subscription) Unsubscribe() {
	self.unsubscribeOnce.Do(func() {
		close(self.done)
		self.sub.Unsubscribe()
	})
}

// Err delivers the reason the stream dropped, once
func (self *Subscription) Err() <-chan error {
	return self.err
}

// Subscribe delivers AssetPublished and AssetPurchased events to out in log order.
// The caller owns the returned handle and must call Unsubscribe when done with it.
func (self *Client) Subscribe(ctx context.Context, out chan<- Event) (subscription *Subscription, err error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{self.address},
		Topics: [][]common.Hash{{
			marketplaceABI.Events["AssetPublished"].ID,
			marketplaceABI.Events["AssetPurchased"].ID,
		}},
	}

	logs := make(chan types.Log, cap(out))
	sub, err := self.eth.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		err = &SubscriptionError{Cause: err}
		return
	}

	subscription = &Subscription{
		logs: logs,
		sub:  sub,
		err:  make(chan error, 1),
		done: make(chan struct{}),
	}

	go self.forward(subscription, out)

	return
}

func (self *Client) forward(subscription *Subscription, out chan<- Event) {
	for {
		select {
		case <-subscription.done:
			return
		case err := <-subscription.sub.Err():
			if err != nil {
				subscription.err <- &SubscriptionError{Cause: err}
			}
			return
		case vLog := <-subscription.logs:
			event, err := DecodeEvent(vLog)
			if err != nil {
				self.log.WithError(err).Error("Failed to decode registry event, skipping")
				continue
			}
			// Teardown wins over a pending delivery
			select {
			case <-subscription.done:
				return
			default:
			}
			select {
			case <-subscription.done:
				return
			case out <- event:
			}
		}
	}
}

// DecodeEvent translates a raw contract log into a typed event
func DecodeEvent(vLog types.Log) (event Event, err error) {
	if len(vLog.Topics) == 0 {
		err = fmt.Errorf("log without topics")
		return
	}

	switch vLog.Topics[0] {
	case marketplaceABI.Events["AssetPublished"].ID:
		if len(vLog.Topics) != 3 {
			err = fmt.Errorf("AssetPublished log has %d topics, want 3", len(vLog.Topics))
			return
		}
		eventMap := make(map[string]interface{})
		err = marketplaceABI.UnpackIntoMap(eventMap, "AssetPublished", vLog.Data)
		if err != nil {
			return
		}
		event = &PublishedEvent{
			AssetID:     new(big.Int).SetBytes(vLog.Topics[1].Bytes()).Uint64(),
			Owner:       common.BytesToAddress(vLog.Topics[2].Bytes()),
			MetadataCID: eventMap["metadataCID"].(string),
			Price:       eventMap["price"].(*big.Int),
			TxHash:      vLog.TxHash,
		}
		return

	case marketplaceABI.Events["AssetPurchased"].ID:
		if len(vLog.Topics) != 4 {
			err = fmt.Errorf("AssetPurchased log has %d topics, want 4", len(vLog.Topics))
			return
		}
		eventMap := make(map[string]interface{})
		err = marketplaceABI.UnpackIntoMap(eventMap, "AssetPurchased", vLog.Data)
		if err != nil {
			return
		}
		event = &PurchasedEvent{
			AssetID: new(big.Int).SetBytes(vLog.Topics[1].Bytes()).Uint64(),
			Buyer:   common.BytesToAddress(vLog.Topics[2].Bytes()),
			Seller:  common.BytesToAddress(vLog.Topics[3].Bytes()),
			Price:   eventMap["price"].(*big.Int),
			TxHash:  vLog.TxHash,
		}
		return
	}

	err = fmt.Errorf("unknown event topic %s", vLog.Topics[0])
	return
}
