package config

import (
	"time"

	"github.com/spf13/viper"
)

type Contract struct {
	// Address of the deployed data asset registry
	Address string

	// Address of the ERC20 token used for payments.
	// When empty it is read from the registry's oceanToken() getter.
	TokenAddress string

	// Ethereum JSON-RPC endpoint.
	// Event subscriptions require a websocket endpoint.
	RpcUrl string

	// Chain id used when signing writes
	ChainId int64

	// Hex-encoded private key of the account submitting writes.
	// Read operations work without it.
	PrivateKey string

	// Max time to wait for a submitted transaction to be confirmed.
	// A timeout does NOT mean the write didn't happen, only that we stopped waiting.
	ConfirmationTimeout time.Duration

	// Gas limit for writes, 0 lets the node estimate
	GasLimit uint64
}

func setContractDefaults() {
	viper.SetDefault("Contract.Address", "")
	viper.SetDefault("Contract.TokenAddress", "0xDCe07662CA8EbC241316a15B611c89711414Dd1a")
	viper.SetDefault("Contract.RpcUrl", "ws://127.0.0.1:8546")
	viper.SetDefault("Contract.ChainId", "1")
	viper.SetDefault("Contract.PrivateKey", "")
	viper.SetDefault("Contract.ConfirmationTimeout", "3m")
	viper.SetDefault("Contract.GasLimit", "0")
}
