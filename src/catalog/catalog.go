package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ocean-market/marketd/src/registry"
	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/logger"
	"github.com/ocean-market/marketd/src/utils/monitoring"

	"github.com/gammazero/workerpool"
	"github.com/ocean-market/marketd/src/ipfs"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Catalog owns the materialized view of active assets.
// The published snapshot pointer is the only cross-component shared value,
// mutation happens by whole-snapshot replacement only.
type Catalog struct {
	log    *logrus.Entry
	config *config.Config

	registry Registry
	resolver Resolver
	monitor  monitoring.Monitor

	snapshot atomic.Pointer[Snapshot]
	stale    atomic.Bool

	// Resolved metadata documents, safe to cache since cids are content-addressed
	metadataCache *gocache.Cache

	// Reload coalescing: one pass in flight, later triggers join its result
	mtx       sync.Mutex
	reloading bool
	waiters   []chan reloadResult
}

type reloadResult struct {
	snapshot *Snapshot
	err      error
}

func NewCatalog(config *config.Config) (self *Catalog) {
	self = new(Catalog)
	self.log = logger.NewSublogger("catalog")
	self.config = config

	self.metadataCache = gocache.New(
		config.Catalog.MetadataCacheTtl,
		config.Catalog.MetadataCacheCleanupInterval,
	)

	self.snapshot.Store(&Snapshot{Generation: 0, Assets: []Asset{}, CreatedAt: time.Now()})

	return
}

func (self *Catalog) WithRegistry(registry Registry) *Catalog {
	self.registry = registry
	return self
}

func (self *Catalog) WithResolver(resolver Resolver) *Catalog {
	self.resolver = resolver
	return self
}

func (self *Catalog) WithMonitor(monitor monitoring.Monitor) *Catalog {
	self.monitor = monitor
	return self
}

// Current returns the last published snapshot without blocking
func (self *Catalog) Current() *Snapshot {
	return self.snapshot.Load()
}

// Stale reports whether the event stream is down and the view may lag the chain
func (self *Catalog) Stale() bool {
	return self.stale.Load()
}

func (self *Catalog) SetStale(stale bool) {
	self.stale.Store(stale)
	if self.monitor == nil {
		return
	}
	if stale {
		self.monitor.GetReport().Catalog.State.StaleSince.CompareAndSwap(0, time.Now().Unix())
	} else {
		self.monitor.GetReport().Catalog.State.StaleSince.Store(0)
	}
}

// ReloadAll re-derives the whole view from the registry and publishes it as a
// new snapshot. Concurrent calls coalesce: while a pass is in flight, callers
// wait for its result instead of starting a redundant pass, which also keeps
// generations strictly increasing.
func (self *Catalog) ReloadAll(ctx context.Context) (snapshot *Snapshot, err error) {
	self.mtx.Lock()
	if self.reloading {
		waiter := make(chan reloadResult, 1)
		self.waiters = append(self.waiters, waiter)
		self.mtx.Unlock()

		if self.monitor != nil {
			self.monitor.GetReport().Catalog.State.ReloadsCoalesced.Inc()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-waiter:
			return result.snapshot, result.err
		}
	}
	self.reloading = true
	self.mtx.Unlock()

	snapshot, err = self.reload(ctx)

	self.mtx.Lock()
	self.reloading = false
	waiters := self.waiters
	self.waiters = nil
	self.mtx.Unlock()

	for _, waiter := range waiters {
		waiter <- reloadResult{snapshot: snapshot, err: err}
	}

	return
}

func (self *Catalog) reload(ctx context.Context) (snapshot *Snapshot, err error) {
	count, err := self.registry.AssetCount(ctx)
	if err != nil {
		// Nothing was read yet, abort this pass only
		if self.monitor != nil {
			self.monitor.GetReport().Catalog.Errors.ReloadFailures.Inc()
		}
		return
	}

	// One slot per id, fetched and resolved in parallel.
	// Distinct workers write distinct slots, the final ordering is by id.
	type slot struct {
		asset    Asset
		include  bool
		excluded bool
	}
	slots := make([]slot, count)

	workers := workerpool.New(self.config.Catalog.ReloadWorkers)
	for id := uint64(0); id < count; id++ {
		id := id // per-iteration copy, required while building with a pre-1.22 toolchain
		workers.Submit(func() {
			if ctx.Err() != nil {
				return
			}

			record, getErr := self.registry.GetAsset(ctx, id)
			if getErr != nil {
				if errors.Is(getErr, registry.ErrNotFound) {
					return
				}
				// Per-asset failures exclude the asset, they never abort the pass
				self.log.WithError(getErr).WithField("id", id).Error("Failed to read asset, excluding from snapshot")
				slots[id].excluded = true
				return
			}

			if !record.IsActive {
				return
			}

			document, resolveErr := self.resolveMetadata(ctx, record.MetadataCID)
			if resolveErr != nil {
				self.log.WithError(resolveErr).WithField("id", id).Error("Failed to resolve metadata, excluding from snapshot")
				if self.monitor != nil {
					self.monitor.GetReport().Catalog.Errors.ResolutionFailures.Inc()
				}
				slots[id].excluded = true
				return
			}

			slots[id] = slot{
				include: true,
				asset: Asset{
					ID:          id,
					Owner:       record.Owner.String(),
					MetadataCID: record.MetadataCID,
					DataCID:     record.DataCID,
					Price:       record.Price,
					Name:        document.Name,
					Description: document.Description,
					Timestamp:   document.Timestamp,
				},
			}
		})
	}
	workers.StopWait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	assets := make([]Asset, 0, count)
	var excluded int64
	for _, filled := range slots {
		if filled.excluded {
			excluded++
		}
		if filled.include {
			assets = append(assets, filled.asset)
		}
	}

	snapshot = self.publish(assets)

	self.log.
		WithField("generation", snapshot.Generation).
		WithField("assets", len(snapshot.Assets)).
		WithField("excluded", excluded).
		Info("Published catalog snapshot")

	if self.monitor != nil {
		state := &self.monitor.GetReport().Catalog.State
		state.SnapshotGeneration.Store(snapshot.Generation)
		state.AssetsInSnapshot.Store(int64(len(snapshot.Assets)))
		state.AssetsExcluded.Store(excluded)
		state.LastReloadTimestamp.Store(time.Now().Unix())
	}

	return
}

// publish swaps in the freshly built snapshot. The generation check makes an
// out-of-order publication impossible: a build that lost the race is discarded
// in favour of the newer snapshot.
func (self *Catalog) publish(assets []Asset) (snapshot *Snapshot) {
	for {
		previous := self.snapshot.Load()
		snapshot = &Snapshot{
			Generation: previous.Generation + 1,
			Assets:     assets,
			CreatedAt:  time.Now(),
		}
		if self.snapshot.CompareAndSwap(previous, snapshot) {
			return
		}

		current := self.snapshot.Load()
		if current.Generation > previous.Generation {
			// Someone already published a newer view, ours would regress
			return current
		}
	}
}

func (self *Catalog) resolveMetadata(ctx context.Context, cid string) (document *ipfs.MetadataDocument, err error) {
	if cached, ok := self.metadataCache.Get(cid); ok {
		return cached.(*ipfs.MetadataDocument), nil
	}

	document, err = self.resolver.Resolve(ctx, cid)
	if err != nil {
		return
	}

	self.metadataCache.Set(cid, document, gocache.DefaultExpiration)
	return
}
