package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the deployed data asset registry. Method names, argument order and
// event fields are the wire contract with the chain and must not change.
const marketplaceABIJSON = `[
	{"type":"constructor","inputs":[{"name":"_oceanTokenAddress","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"assetCount","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"dataAssets","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"owner","type":"address"},{"name":"metadataCID","type":"string"},{"name":"dataCID","type":"string"},{"name":"price","type":"uint256"},{"name":"isActive","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"getDataAsset","inputs":[{"name":"_assetId","type":"uint256"}],"outputs":[{"name":"owner","type":"address"},{"name":"metadataCID","type":"string"},{"name":"price","type":"uint256"},{"name":"isActive","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"oceanToken","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"publishDataAsset","inputs":[{"name":"_metadataCID","type":"string"},{"name":"_dataCID","type":"string"},{"name":"_price","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"purchaseDataAsset","inputs":[{"name":"_assetId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"toggleDataAsset","inputs":[{"name":"_assetId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"AssetPublished","inputs":[{"name":"assetId","type":"uint256","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"metadataCID","type":"string","indexed":false},{"name":"price","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"AssetPurchased","inputs":[{"name":"assetId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"price","type":"uint256","indexed":false}],"anonymous":false}
]`

// Payment token surface, only the spending authorization is needed
const erc20ABIJSON = `[
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"}
]`

var (
	marketplaceABI abi.ABI
	erc20ABI       abi.ABI
)

func init() {
	var err error
	marketplaceABI, err = abi.JSON(strings.NewReader(marketplaceABIJSON))
	if err != nil {
		panic(err)
	}
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
}
