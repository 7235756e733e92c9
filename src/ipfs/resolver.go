package ipfs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Metadata document stored next to the data payload.
// Timestamp is milliseconds since epoch, matching what publishers write.
type MetadataDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataCID     string `json:"dataCID"`
	Timestamp   int64  `json:"timestamp"`
}

// A per-cid metadata fetch failed, the caller decides whether that's fatal
type ResolutionError struct {
	CID   string
	Cause error
}

func (self *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", self.CID, self.Cause)
}

func (self *ResolutionError) Unwrap() error {
	return self.Cause
}

// Fetches and parses metadata documents through a public gateway.
// Stateless, same cid and store state always produce the same document.
type Resolver struct {
	client  *resty.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewResolver(config *config.Config) (self *Resolver) {
	self = new(Resolver)
	self.log = logger.NewSublogger("ipfs-resolver")

	self.limiter = rate.NewLimiter(rate.Limit(config.Ipfs.RateLimit), config.Ipfs.RateBurst)

	self.client = resty.New().
		SetBaseURL(config.Ipfs.GatewayUrl).
		SetTimeout(config.Ipfs.RequestTimeout).
		SetHeader("Accept", "application/json")

	return
}

func (self *Resolver) Resolve(ctx context.Context, cid string) (document *MetadataDocument, err error) {
	err = self.limiter.Wait(ctx)
	if err != nil {
		return nil, &ResolutionError{CID: cid, Cause: err}
	}

	resp, err := self.client.R().
		SetContext(ctx).
		Get("/ipfs/" + cid)
	if err != nil {
		return nil, &ResolutionError{CID: cid, Cause: err}
	}
	if !resp.IsSuccess() {
		return nil, &ResolutionError{CID: cid, Cause: fmt.Errorf("gateway returned %s", resp.Status())}
	}

	document = new(MetadataDocument)
	err = json.Unmarshal(resp.Body(), document)
	if err != nil {
		return nil, &ResolutionError{CID: cid, Cause: err}
	}

	return
}
