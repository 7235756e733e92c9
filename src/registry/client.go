package registry

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ocean-market/marketd/src/utils/config"
	"github.com/ocean-market/marketd/src/utils/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Typed facade over the data asset registry contract and its payment token.
// Reads are point-in-time snapshots, writes wait for the confirmation receipt.
type Client struct {
	log    *logrus.Entry
	config *config.Config

	eth      *ethclient.Client
	contract *bind.BoundContract
	token    *bind.BoundContract

	address      common.Address
	tokenAddress common.Address

	signer *bind.TransactOpts

	// Writes are serialized to avoid racing the account nonce
	writeMtx sync.Mutex
}

func NewClient(config *config.Config, eth *ethclient.Client) (self *Client, err error) {
	self = new(Client)
	self.log = logger.NewSublogger("registry")
	self.config = config
	self.eth = eth

	if config.Contract.Address == "" {
		err = errors.New("registry contract address not configured")
		return
	}
	self.address = common.HexToAddress(config.Contract.Address)
	self.contract = bind.NewBoundContract(self.address, marketplaceABI, eth, eth, eth)

	if config.Contract.PrivateKey != "" {
		key, keyErr := crypto.HexToECDSA(strings.TrimPrefix(config.Contract.PrivateKey, "0x"))
		if keyErr != nil {
			err = keyErr
			return
		}
		self.signer, err = bind.NewKeyedTransactorWithChainID(key, big.NewInt(config.Contract.ChainId))
		if err != nil {
			return
		}
		self.signer.GasLimit = config.Contract.GasLimit
	}

	if config.Contract.TokenAddress != "" {
		self.tokenAddress = common.HexToAddress(config.Contract.TokenAddress)
	} else {
		self.tokenAddress, err = self.paymentToken(context.Background())
		if err != nil {
			return
		}
	}
	self.token = bind.NewBoundContract(self.tokenAddress, erc20ABI, eth, eth, eth)

	return
}

// Account submitting writes, zero address when no signing key is configured
func (self *Client) Account() common.Address {
	if self.signer == nil {
		return common.Address{}
	}
	return self.signer.From
}

func (self *Client) Address() common.Address {
	return self.address
}

func (self *Client) TokenAddress() common.Address {
	return self.tokenAddress
}

func (self *Client) AssetCount(ctx context.Context) (count uint64, err error) {
	var out []interface{}
	err = self.contract.Call(&bind.CallOpts{Context: ctx}, &out, "assetCount")
	if err != nil {
		err = &ReadError{Op: "assetCount", Cause: err}
		return
	}

	count = (*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).Uint64()
	return
}

// Reads the raw storage record, which also exposes the dataCID
func (self *Client) GetAsset(ctx context.Context, id uint64) (asset Asset, err error) {
	var out []interface{}
	err = self.contract.Call(&bind.CallOpts{Context: ctx}, &out, "dataAssets", new(big.Int).SetUint64(id))
	if err != nil {
		// The storage array getter reverts past the end, distinguish that from transport errors
		count, countErr := self.AssetCount(ctx)
		if countErr == nil && id >= count {
			err = ErrNotFound
			return
		}
		err = &ReadError{Op: "dataAssets", Cause: err}
		return
	}

	asset = Asset{
		ID:          id,
		Owner:       *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		MetadataCID: *abi.ConvertType(out[1], new(string)).(*string),
		DataCID:     *abi.ConvertType(out[2], new(string)).(*string),
		Price:       *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
		IsActive:    *abi.ConvertType(out[4], new(bool)).(*bool),
	}
	return
}

func (self *Client) paymentToken(ctx context.Context) (address common.Address, err error) {
	var out []interface{}
	err = self.contract.Call(&bind.CallOpts{Context: ctx}, &out, "oceanToken")
	if err != nil {
		err = &ReadError{Op: "oceanToken", Cause: err}
		return
	}

	address = *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return
}

// Publishes an asset and returns the id the registry assigned to it,
// decoded from the AssetPublished event in the receipt
func (self *Client) Publish(ctx context.Context, metadataCID, dataCID string, price *big.Int) (id uint64, receipt *types.Receipt, err error) {
	receipt, err = self.transact(ctx, self.contract, "publishDataAsset", metadataCID, dataCID, price)
	if err != nil {
		return
	}

	event, err := self.publishedFromReceipt(receipt)
	if err != nil {
		return
	}

	id = event.AssetID
	return
}

func (self *Client) Purchase(ctx context.Context, id uint64) (receipt *types.Receipt, err error) {
	return self.transact(ctx, self.contract, "purchaseDataAsset", new(big.Int).SetUint64(id))
}

func (self *Client) ToggleActive(ctx context.Context, id uint64) (receipt *types.Receipt, err error) {
	return self.transact(ctx, self.contract, "toggleDataAsset", new(big.Int).SetUint64(id))
}

// Grants the registry a spending authorization scoped to exactly the given amount
func (self *Client) Approve(ctx context.Context, amount *big.Int) (receipt *types.Receipt, err error) {
	return self.transact(ctx, self.token, "approve", self.address, amount)
}

func (self *Client) transact(ctx context.Context, contract *bind.BoundContract, method string, params ...interface{}) (receipt *types.Receipt, err error) {
	if self.signer == nil {
		err = &WriteRejectedError{Op: method, Cause: errors.New("no signing key configured")}
		return
	}

	self.writeMtx.Lock()
	defer self.writeMtx.Unlock()

	opts := *self.signer
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, params...)
	if err != nil {
		err = &WriteRejectedError{Op: method, Cause: err}
		return
	}

	self.log.
		WithField("method", method).
		WithField("tx", tx.Hash().String()).
		Debug("Submitted transaction, waiting for confirmation")

	waitCtx, cancel := context.WithTimeout(ctx, self.config.Contract.ConfirmationTimeout)
	defer cancel()

	receipt, err = bind.WaitMined(waitCtx, self.eth, tx)
	if err != nil {
		// The transaction was submitted, a timeout doesn't mean it won't land
		err = &WriteRejectedError{Op: method, Indeterminate: true, Cause: err}
		return
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		err = &WriteRejectedError{Op: method, Cause: errors.New("transaction reverted")}
		return
	}

	return
}

func (self *Client) publishedFromReceipt(receipt *types.Receipt) (event *PublishedEvent, err error) {
	for _, vLog := range receipt.Logs {
		if len(vLog.Topics) == 0 || vLog.Topics[0] != marketplaceABI.Events["AssetPublished"].ID {
			continue
		}
		decoded, decodeErr := DecodeEvent(*vLog)
		if decodeErr != nil {
			err = decodeErr
			return
		}
		return decoded.(*PublishedEvent), nil
	}

	err = errors.New("AssetPublished log not found in receipt")
	return
}
