package eth

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/sirupsen/logrus"
)

func GetEthClient(log *logrus.Entry, rpcProviderUrl string) (client *ethclient.Client, err error) {
	if rpcProviderUrl == "" {
		err = errors.New("ETH RPC url not configured")
		return
	}

	client, err = ethclient.Dial(rpcProviderUrl)
	if err != nil {
		log.WithError(err).Error("Cannot get ETH client")
		return
	}

	return
}

func WeiToEther(wei *big.Int) float64 {
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return ether
}

const weiDecimals = 18

// Parses a decimal token amount ("1.5") into the smallest unit.
// Exact integer arithmetic, amounts never lose precision to rounding.
func ParseEther(amount string) (wei *big.Int, err error) {
	whole, fraction, _ := strings.Cut(amount, ".")
	if whole == "" && fraction == "" {
		err = errors.New("malformed amount")
		return
	}
	if len(fraction) > weiDecimals {
		err = errors.New("too many decimal places, max 18")
		return
	}

	digits := whole + fraction + strings.Repeat("0", weiDecimals-len(fraction))
	for _, r := range digits {
		if r < '0' || r > '9' {
			err = errors.New("malformed amount")
			return
		}
	}

	wei, _ = new(big.Int).SetString(digits, 10)
	return
}
