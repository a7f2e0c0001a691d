package dex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TradeEvent is emitted for every successful match.
type TradeEvent struct {
	HashA common.Hash
	HashB common.Hash

	OwnerA     common.Address
	OwnerB     common.Address
	SellAssetA common.Address
	SellAssetB common.Address

	SellFilledA *big.Int
	SellFilledB *big.Int
	// GasFee is orderB's flat fee.
	GasFee *big.Int
	FeeA   *big.Int
	FeeB   *big.Int
}
