package config

import (
	"time"

	"github.com/spf13/viper"
)

type Ipfs struct {
	// Public gateway used to resolve metadata documents
	GatewayUrl string

	// IPFS node API used to add content
	ApiUrl string

	// Timeout for a single gateway/API request
	RequestTimeout time.Duration

	// Max requests per second sent to the gateway
	RateLimit float64

	// Burst allowed on top of the rate limit
	RateBurst int
}

func setIpfsDefaults() {
	viper.SetDefault("Ipfs.GatewayUrl", "https://ipfs.io")
	viper.SetDefault("Ipfs.ApiUrl", "https://ipfs.infura.io:5001")
	viper.SetDefault("Ipfs.RequestTimeout", "30s")
	viper.SetDefault("Ipfs.RateLimit", "10")
	viper.SetDefault("Ipfs.RateBurst", "5")
}
