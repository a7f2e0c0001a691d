package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Order is a signed trade intent: Owner offers SellAmount of
// SellAsset in exchange for BuyAmount of BuyAsset.
//
// An order is never stored, it is provided on every call. Its identity
// is its hash, see OrderHasher.
type Order struct {
	Owner        common.Address `json:"owner"`
	SellAsset    common.Address `json:"sellAsset"`
	BuyAsset     common.Address `json:"buyAsset"`
	FeeRecipient common.Address `json:"feeRecipient"`
	// Relayer restricts who may submit the order for matching, the
	// zero address means anyone.
	Relayer common.Address `json:"relayer"`

	SellAmount     *big.Int `json:"sellAmount"`
	BuyAmount      *big.Int `json:"buyAmount"`
	MakerVolumeFee *big.Int `json:"makerVolumeFee"`
	TakerVolumeFee *big.Int `json:"takerVolumeFee"`
	// GasFee is a flat fee charged to the taker on every match.
	GasFee *big.Int `json:"gasFee"`
	// Expiration is in unix seconds, the order expires once the
	// current time reaches it.
	Expiration *big.Int `json:"expiration"`
	Salt       *big.Int `json:"salt"`
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// sanitize returns a copy of the order with nil quantities replaced by
// zero. It fails if any quantity is not a uint256.
func (o *Order) sanitize() (*Order, error) {
	r := *o
	fields := []**big.Int{
		&r.SellAmount, &r.BuyAmount, &r.MakerVolumeFee, &r.TakerVolumeFee,
		&r.GasFee, &r.Expiration, &r.Salt,
	}

	for _, f := range fields {
		if *f == nil {
			*f = new(big.Int)
			continue
		}

		if (*f).Sign() < 0 || (*f).Cmp(maxUint256) > 0 {
			return nil, ErrMalformedOrder
		}
	}

	return &r, nil
}

// OrderStatus is the fillability of an order.
type OrderStatus uint8

const (
	InvalidSellAmount OrderStatus = iota
	InvalidBuyAmount
	FullyFilled
	Expired
	Cancelled
	Fillable
)

func (s OrderStatus) String() string {
	switch s {
	case InvalidSellAmount:
		return "INVALID_SELL_AMOUNT"
	case InvalidBuyAmount:
		return "INVALID_BUY_AMOUNT"
	case FullyFilled:
		return "FULLY_FILLED"
	case Expired:
		return "EXPIRED"
	case Cancelled:
		return "CANCELLED"
	case Fillable:
		return "FILLABLE"
	default:
		return fmt.Sprintf("OrderStatus(%d)", uint8(s))
	}
}

// OrderInfo is the current state of an order derived from the ledger.
type OrderInfo struct {
	Hash common.Hash
	// Filled is the cumulative amount of the order's buy asset
	// already received by the owner.
	Filled *big.Int
	Status OrderStatus
}

// Side identifies one of the two orders of a match.
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "orderA"
	}
	return "orderB"
}
