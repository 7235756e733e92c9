package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Content-addressed store client backed by an IPFS node API.
// Same bytes always map to the same cid, existing content never changes.
type Store struct {
	client *resty.Client
	log    *logrus.Entry
}

func NewStore(config *config.Config) (self *Store) {
	self = new(Store)
	self.log = logger.NewSublogger("ipfs-store")

	self.client = resty.New().
		SetBaseURL(config.Ipfs.ApiUrl).
		SetTimeout(config.Ipfs.RequestTimeout)

	return
}

func (self *Store) Put(ctx context.Context, data []byte) (cid string, err error) {
	result := new(addResponse)
	resp, err := self.client.R().
		SetContext(ctx).
		SetFileReader("file", "blob", bytes.NewReader(data)).
		SetResult(result).
		Post("/api/v0/add")
	if err != nil {
		return
	}
	if !resp.IsSuccess() {
		err = fmt.Errorf("add returned %s", resp.Status())
		return
	}
	if result.Hash == "" {
		err = errors.New("add returned no cid")
		return
	}

	cid = result.Hash
	self.log.WithField("cid", cid).WithField("len", len(data)).Debug("Added content")
	return
}

func (self *Store) Get(ctx context.Context, cid string) (data []byte, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetQueryParam("arg", cid).
		Post("/api/v0/cat")
	if err != nil {
		return
	}
	if !resp.IsSuccess() {
		err = fmt.Errorf("cat returned %s", resp.Status())
		return
	}

	data = resp.Body()
	return
}
