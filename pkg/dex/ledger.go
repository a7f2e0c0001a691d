package dex

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FillRecord is the ledger entry of an order hash. The zero value is
// the entry of an order never seen before.
type FillRecord struct {
	Filled    *big.Int
	Cancelled bool
}

// FillReader reads ledger entries.
type FillReader interface {
	Fill(h common.Hash) FillRecord
}

// FillStore reads and writes ledger entries.
type FillStore interface {
	FillReader
	UpdateFill(h common.Hash, r FillRecord)
}

type statusRule struct {
	status OrderStatus
	match  func(o *Order, r FillRecord, now *big.Int) bool
}

// statusRules is evaluated top to bottom, the first match wins.
var statusRules = []statusRule{
	{InvalidSellAmount, func(o *Order, _ FillRecord, _ *big.Int) bool {
		return notPositive(o.SellAmount)
	}},
	{InvalidBuyAmount, func(o *Order, _ FillRecord, _ *big.Int) bool {
		return notPositive(o.BuyAmount)
	}},
	{FullyFilled, func(o *Order, r FillRecord, _ *big.Int) bool {
		return r.Filled.Cmp(o.BuyAmount) >= 0
	}},
	{Expired, func(o *Order, _ FillRecord, now *big.Int) bool {
		return o.Expiration == nil || now.Cmp(o.Expiration) >= 0
	}},
	{Cancelled, func(_ *Order, r FillRecord, _ *big.Int) bool {
		return r.Cancelled
	}},
}

func notPositive(v *big.Int) bool {
	return v == nil || v.Sign() <= 0
}

// OrderLedger derives order status from the fill ledger and records
// fills and cancellations. It holds no state of its own, the entries
// live in the FillStore passed to every call.
type OrderLedger struct {
	hasher *OrderHasher
	now    func() time.Time
}

func NewOrderLedger(hasher *OrderHasher, now func() time.Time) *OrderLedger {
	return &OrderLedger{hasher: hasher, now: now}
}

// StatusOf returns the current info of the order.
func (l *OrderLedger) StatusOf(s FillReader, o *Order) OrderInfo {
	h := l.hasher.Hash(o)
	r := s.Fill(h)
	if r.Filled == nil {
		r.Filled = new(big.Int)
	}

	now := big.NewInt(l.now().Unix())
	info := OrderInfo{Hash: h, Filled: r.Filled, Status: Fillable}
	for _, rule := range statusRules {
		if rule.match(o, r, now) {
			info.Status = rule.status
			break
		}
	}
	return info
}

// Cancel marks the order as cancelled. Only the owner may cancel, and
// cancelling twice has no further effect.
func (l *OrderLedger) Cancel(s FillStore, o *Order, caller common.Address) (common.Hash, error) {
	if caller != o.Owner {
		return common.Hash{}, ErrUnauthorized
	}

	h := l.hasher.Hash(o)
	r := s.Fill(h)
	if r.Cancelled {
		return h, nil
	}

	r.Cancelled = true
	s.UpdateFill(h, r)
	return h, nil
}

// RecordFill adds delta to the filled amount of h. The result never
// exceeds limit, the buy amount of the order; the part of delta above
// it is dropped.
func (l *OrderLedger) RecordFill(s FillStore, h common.Hash, delta, limit *big.Int) {
	if notPositive(delta) || notPositive(limit) {
		return
	}

	r := s.Fill(h)
	filled := new(big.Int)
	if r.Filled != nil {
		filled.Set(r.Filled)
	}

	if filled.Cmp(limit) >= 0 {
		return
	}

	filled.Add(filled, delta)
	if filled.Cmp(limit) > 0 {
		filled.Set(limit)
	}

	r.Filled = filled
	s.UpdateFill(h, r)
}
