package dex

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// Exchange matches signed orders and settles the trades.
//
// All mutating operations are serialized and run inside a Transition,
// a failed operation changes nothing.
type Exchange struct {
	mu       sync.Mutex
	state    *State
	hasher   *OrderHasher
	verifier SignatureVerifier
	ledger   *OrderLedger
	metrics  *Metrics

	clockMu sync.RWMutex
	clock   func() time.Time

	tradeFeed event.Feed
}

// NewExchange creates the exchange. metrics may be nil.
func NewExchange(state *State, domain Domain, verifier SignatureVerifier, metrics *Metrics) *Exchange {
	e := &Exchange{
		state:    state,
		hasher:   NewOrderHasher(domain),
		verifier: verifier,
		metrics:  metrics,
		clock:    time.Now,
	}
	e.ledger = NewOrderLedger(e.hasher, e.now)
	return e
}

// SetClock replaces the time source used to expire orders.
func (e *Exchange) SetClock(clock func() time.Time) {
	e.clockMu.Lock()
	e.clock = clock
	e.clockMu.Unlock()
}

func (e *Exchange) now() time.Time {
	e.clockMu.RLock()
	defer e.clockMu.RUnlock()
	return e.clock()
}

// Hasher returns the order hasher of the exchange domain.
func (e *Exchange) Hasher() *OrderHasher {
	return e.hasher
}

// SubscribeTrades delivers a TradeEvent on ch for every settled match.
// Events are sent after the exchange lock is released: a subscriber
// that stops reading only stalls the call that settled the match, the
// exchange keeps serving other calls.
func (e *Exchange) SubscribeTrades(ch chan<- *TradeEvent) event.Subscription {
	return e.tradeFeed.Subscribe(ch)
}

// OrderInfo returns the current info of the order, it does not change
// any state.
func (e *Exchange) OrderInfo(o *Order) (OrderInfo, error) {
	so, err := o.sanitize()
	if err != nil {
		return OrderInfo{}, err
	}
	return e.ledger.StatusOf(e.state, so), nil
}

// BalanceOf returns the committed balance of account in asset.
func (e *Exchange) BalanceOf(asset, account common.Address) *big.Int {
	return e.state.Balance(asset, account)
}

// Nonce returns the next transaction nonce expected from addr.
func (e *Exchange) Nonce(addr common.Address) uint64 {
	return e.state.Nonce(addr)
}

// CancelOrder cancels the order on behalf of caller, who must be the
// order owner.
func (e *Exchange) CancelOrder(o *Order, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	trans := e.state.Transition()
	err := e.cancelOrder(trans, o, caller)
	if err != nil {
		return err
	}

	return e.commit(trans, nil)
}

// MatchOrders matches a against b on behalf of caller. The trade
// executes at a's price.
func (e *Exchange) MatchOrders(a, b *Order, sigA, sigB Sig, caller common.Address) (*MatchedFillResults, error) {
	r, ev, err := e.settleAndCommit(a, b, sigA, sigB, caller)
	if err != nil {
		return nil, err
	}

	e.publish(ev)
	return r, nil
}

func (e *Exchange) settleAndCommit(a, b *Order, sigA, sigB Sig, caller common.Address) (*MatchedFillResults, *TradeEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trans := e.state.Transition()
	r, ev, err := e.matchOrders(trans, a, b, sigA, sigB, caller)
	if err != nil {
		return nil, nil, err
	}

	err = e.commit(trans, ev)
	if err != nil {
		return nil, nil, err
	}

	return r, ev, nil
}

// publish must be called without holding e.mu, Send blocks until every
// subscriber took the event.
func (e *Exchange) publish(ev *TradeEvent) {
	if ev != nil {
		e.tradeFeed.Send(ev)
	}
}

// Receipt is the result of an applied transaction.
type Receipt struct {
	Txn  common.Hash
	Fill *MatchedFillResults
}

// Apply decodes and executes a signed transaction. The transaction
// signer is the caller of the operation.
func (e *Exchange) Apply(b []byte) (*Receipt, error) {
	txn, err := DecodeTxn(b)
	if err != nil {
		return nil, err
	}

	r, ev, err := e.apply(txn)
	e.metrics.txn(txn.T, err)
	if err != nil {
		log.Warn("txn rejected", "type", txn.T, "owner", txn.Owner, "nonce", txn.Nonce, "err", err)
		return nil, err
	}

	e.publish(ev)
	return r, nil
}

func (e *Exchange) apply(txn *Txn) (*Receipt, *TradeEvent, error) {
	caller, err := txn.Sender()
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	trans := e.state.Transition()
	if n := trans.Nonce(caller); txn.Nonce != n {
		return nil, nil, fmt.Errorf("%w: expected %d, got %d", ErrBadNonce, n, txn.Nonce)
	}
	trans.setNonce(caller, txn.Nonce+1)

	receipt := &Receipt{Txn: txn.Hash()}
	var ev *TradeEvent
	switch txn.T {
	case MatchOrders:
		var m MatchOrdersTxn
		err = rlp.DecodeBytes(txn.Data, &m)
		if err != nil {
			return nil, nil, fmt.Errorf("error decoding match orders txn: %w", err)
		}

		receipt.Fill, ev, err = e.matchOrders(trans, &m.OrderA, &m.OrderB, m.SigA, m.SigB, caller)
		if err != nil {
			return nil, nil, err
		}
	case CancelOrder:
		var c CancelOrderTxn
		err = rlp.DecodeBytes(txn.Data, &c)
		if err != nil {
			return nil, nil, fmt.Errorf("error decoding cancel order txn: %w", err)
		}

		err = e.cancelOrder(trans, &c.Order, caller)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, ErrUnknownTxn
	}

	err = e.commit(trans, ev)
	if err != nil {
		return nil, nil, err
	}

	return receipt, ev, nil
}

func (e *Exchange) commit(trans *Transition, ev *TradeEvent) error {
	err := trans.Commit()
	if err != nil {
		log.Error("error committing transition", "err", err)
		return fmt.Errorf("error committing state: %w", err)
	}

	if ev != nil {
		e.metrics.matched()
		log.Info("orders matched", "orderA", ev.HashA, "orderB", ev.HashB,
			"sellFilledA", ev.SellFilledA, "sellFilledB", ev.SellFilledB,
			"feeA", ev.FeeA, "feeB", ev.FeeB, "gasFee", ev.GasFee)
	}
	return nil
}

func (e *Exchange) cancelOrder(trans *Transition, raw *Order, caller common.Address) error {
	var h common.Hash
	o, err := raw.sanitize()
	if err == nil {
		h, err = e.ledger.Cancel(trans, o, caller)
	}

	if err != nil {
		log.Warn("cancel order rejected", "owner", raw.Owner, "caller", caller, "err", err)
		return err
	}

	e.metrics.cancelled()
	log.Info("order cancelled", "hash", h, "owner", o.Owner)
	return nil
}

func (e *Exchange) matchOrders(trans *Transition, a, b *Order, sigA, sigB Sig, caller common.Address) (*MatchedFillResults, *TradeEvent, error) {
	r, ev, err := e.settle(trans, a, b, sigA, sigB, caller)
	if err != nil {
		e.metrics.matchFailed(err)
		log.Warn("match orders rejected", "caller", caller, "err", err)
		return nil, nil, err
	}
	return r, ev, nil
}

func (e *Exchange) settle(trans *Transition, rawA, rawB *Order, sigA, sigB Sig, caller common.Address) (*MatchedFillResults, *TradeEvent, error) {
	a, err := rawA.sanitize()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", SideA, err)
	}

	b, err := rawB.sanitize()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", SideB, err)
	}

	if a.SellAsset != b.BuyAsset || b.SellAsset != a.BuyAsset {
		return nil, nil, ErrTokenMismatch
	}

	if !relayerAllowed(a, caller) || !relayerAllowed(b, caller) {
		return nil, nil, ErrRelayerMismatch
	}

	infoA := e.ledger.StatusOf(trans, a)
	if infoA.Status != Fillable {
		return nil, nil, &NotFillableError{Side: SideA, Status: infoA.Status}
	}

	infoB := e.ledger.StatusOf(trans, b)
	if infoB.Status != Fillable {
		return nil, nil, &NotFillableError{Side: SideB, Status: infoB.Status}
	}

	if !e.authorized(a, infoA.Hash, sigA, caller) {
		return nil, nil, &InvalidSignatureError{Side: SideA}
	}

	if !e.authorized(b, infoB.Hash, sigB, caller) {
		return nil, nil, &InvalidSignatureError{Side: SideB}
	}

	if !ProfitableSpread(a, b) {
		return nil, nil, ErrUnprofitableSpread
	}

	r := CalculateFill(a, b, infoA.Filled, infoB.Filled)

	// each order's fill tracks what it received toward its own buy
	// amount. When a and b are the same order the second record sees
	// the first one and is capped by it.
	e.ledger.RecordFill(trans, infoA.Hash, r.SellFilledB, a.BuyAmount)
	e.ledger.RecordFill(trans, infoB.Hash, r.SellFilledA, b.BuyAmount)

	feeB := new(big.Int).Add(r.FeeB, b.GasFee)
	err = checkBalance(trans, b, r.SellFilledB, feeB, SideB)
	if err != nil {
		return nil, nil, err
	}

	err = checkBalance(trans, a, r.SellFilledA, r.FeeA, SideA)
	if err != nil {
		return nil, nil, err
	}

	transfers := []struct {
		asset, from, to common.Address
		amount          *big.Int
	}{
		{b.SellAsset, b.Owner, a.Owner, r.SellFilledB},
		{a.SellAsset, a.Owner, b.Owner, r.SellFilledA},
		{b.SellAsset, b.Owner, b.FeeRecipient, feeB},
		{a.SellAsset, a.Owner, a.FeeRecipient, r.FeeA},
	}

	for _, t := range transfers {
		err = trans.TransferFrom(t.asset, t.from, t.to, t.amount)
		if err != nil {
			return nil, nil, fmt.Errorf("error transferring %v of asset %x from %x: %w", t.amount, t.asset, t.from, err)
		}
	}

	ev := &TradeEvent{
		HashA:       infoA.Hash,
		HashB:       infoB.Hash,
		OwnerA:      a.Owner,
		OwnerB:      b.Owner,
		SellAssetA:  a.SellAsset,
		SellAssetB:  b.SellAsset,
		SellFilledA: r.SellFilledA,
		SellFilledB: r.SellFilledB,
		GasFee:      b.GasFee,
		FeeA:        r.FeeA,
		FeeB:        r.FeeB,
	}
	return &r, ev, nil
}

func relayerAllowed(o *Order, caller common.Address) bool {
	return o.Relayer == (common.Address{}) || o.Relayer == caller
}

// authorized reports whether caller may fill the order: either the
// owner submits it, or the owner signed its hash.
func (e *Exchange) authorized(o *Order, h common.Hash, sig Sig, caller common.Address) bool {
	if caller == o.Owner {
		return true
	}
	return e.verifier.IsValid(h, sig, o.Owner)
}

func checkBalance(assets Assets, o *Order, trade, fee *big.Int, side Side) error {
	balance := assets.BalanceOf(o.SellAsset, o.Owner)
	if balance.Cmp(trade) < 0 {
		return &InsufficientBalanceError{Side: side, Purpose: PurposeTrade}
	}

	if balance.Sub(balance, trade).Cmp(fee) < 0 {
		return &InsufficientBalanceError{Side: side, Purpose: PurposeFee}
	}
	return nil
}
