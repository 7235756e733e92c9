package catalog

import (
	"sync"

	"github.com/ocean-market/marketd/src/utils/logger"

	"github.com/gammazero/deque"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

// Append-only, insertion-ordered log of observed and locally originated
// transactions. Listers always see appends without restarting, records are
// never reordered or deduplicated.
type History struct {
	log *logrus.Entry

	mtx     sync.RWMutex
	records deque.Deque[TransactionRecord]
}

func NewHistory() (self *History) {
	self = new(History)
	self.log = logger.NewSublogger("history")
	return
}

// Append stores the record and returns its assigned id,
// used by writers that later settle a pending record
func (self *History) Append(record TransactionRecord) (id string) {
	if record.ID == "" {
		record.ID = xid.New().String()
	}
	id = record.ID

	self.mtx.Lock()
	self.records.PushBack(record)
	self.mtx.Unlock()

	self.log.
		WithField("kind", record.Kind).
		WithField("asset_id", record.AssetID).
		WithField("status", record.Status).
		Debug("Appended transaction record")
	return
}

// SetStatus settles a previously appended record in place.
// Insertion order is untouched.
func (self *History) SetStatus(id string, status TransactionStatus, txHash string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for i := 0; i < self.records.Len(); i++ {
		record := self.records.At(i)
		if record.ID != id {
			continue
		}
		record.Status = status
		if txHash != "" {
			record.TxHash = txHash
		}
		self.records.Set(i, record)
		return
	}
}

func (self *History) List() (records []TransactionRecord) {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	records = make([]TransactionRecord, 0, self.records.Len())
	for i := 0; i < self.records.Len(); i++ {
		records = append(records, self.records.At(i))
	}
	return
}

func (self *History) Len() int {
	self.mtx.RLock()
	defer self.mtx.RUnlock()
	return self.records.Len()
}
