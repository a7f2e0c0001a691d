package dex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Assets is the fungible asset service used to settle matches.
// TransferFrom either moves the full amount or fails without effect.
type Assets interface {
	BalanceOf(asset, account common.Address) *big.Int
	TransferFrom(asset, from, to common.Address, amount *big.Int) error
}

var _ Assets = (*Transition)(nil)

// BalanceOf returns a copy of the balance, the caller may modify it.
func (t *Transition) BalanceOf(asset, account common.Address) *big.Int {
	return decodeBalance(t.get(balancePath(asset, account)))
}

func (t *Transition) TransferFrom(asset, from, to common.Address, amount *big.Int) error {
	switch amount.Sign() {
	case 0:
		return nil
	case -1:
		return ErrInsufficientFunds
	}

	b := t.BalanceOf(asset, from)
	if b.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	t.setBalance(asset, from, b.Sub(b, amount))
	t.credit(asset, to, amount)
	return nil
}
