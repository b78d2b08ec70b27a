package chainfeed

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const aggregatorJSON = `[
  {"type":"function","name":"latestRoundData","stateMutability":"view","inputs":[],"outputs":[
    {"name":"roundId","type":"uint80"},
    {"name":"answer","type":"int256"},
    {"name":"startedAt","type":"uint256"},
    {"name":"updatedAt","type":"uint256"},
    {"name":"answeredInRound","type":"uint80"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"uint8"}]}
]`

const middlewareJSON = `[
  {"type":"function","name":"getAssetPrice","stateMutability":"view","inputs":[
    {"name":"asset","type":"address"}],"outputs":[
    {"name":"assetPrice","type":"uint256"},
    {"name":"decimals","type":"uint256"}]}
]`

var (
	aggregatorABI = mustParse(aggregatorJSON)
	middlewareABI = mustParse(middlewareJSON)
)

func mustParse(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
