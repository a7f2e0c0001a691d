package dex

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/luiz-henrique-gyn/backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newAccount() account {
	key, addr := randKey()
	return account{key: key, addr: addr}
}

func newTestExchange(m *Metrics) *Exchange {
	ex := NewExchange(NewState(storage.NewMemDatabase()), testDomain(), NewECDSAVerifier(0), m)
	ex.SetClock(fixedClock(testNow))
	return ex
}

func fund(t *testing.T, ex *Exchange, asset, owner common.Address, amount *big.Int) {
	trans := ex.state.Transition()
	trans.credit(asset, owner, amount)
	require.NoError(t, trans.Commit())
}

var saltMu sync.Mutex
var nextSalt int64

func newOrder(owner common.Address, sellAsset common.Address, sell *big.Int, buyAsset common.Address, buy *big.Int) *Order {
	saltMu.Lock()
	nextSalt++
	salt := nextSalt
	saltMu.Unlock()

	return &Order{
		Owner:          owner,
		SellAsset:      sellAsset,
		BuyAsset:       buyAsset,
		SellAmount:     sell,
		BuyAmount:      buy,
		MakerVolumeFee: new(big.Int),
		TakerVolumeFee: new(big.Int),
		GasFee:         new(big.Int),
		Expiration:     big.NewInt(testNow.Add(time.Hour).Unix()),
		Salt:           big.NewInt(salt),
	}
}

func signOrder(t *testing.T, ex *Exchange, acc account, o *Order) Sig {
	sig, err := SignHash(acc.key, ex.Hasher().Hash(o), SigTypeEIP712)
	require.NoError(t, err)
	return sig
}

func orderInfo(t *testing.T, ex *Exchange, o *Order) OrderInfo {
	t.Helper()
	info, err := ex.OrderInfo(o)
	require.NoError(t, err)
	return info
}

func assertBalance(t *testing.T, ex *Exchange, asset, owner common.Address, want *big.Int) {
	t.Helper()
	got := ex.BalanceOf(asset, owner)
	assert.Equal(t, want.String(), got.String(), "balance of %x in %x", owner, asset)
}

// pair is a maker and a taker order ready to be matched by a relayer.
type pair struct {
	ex         *Exchange
	makerAcc   account
	takerAcc   account
	relayer    common.Address
	maker      *Order
	taker      *Order
	sigA, sigB Sig
}

func newPair(t *testing.T, ex *Exchange, sellA, buyA, sellB, buyB *big.Int) *pair {
	p := &pair{
		ex:       ex,
		makerAcc: newAccount(),
		takerAcc: newAccount(),
		relayer:  newAccount().addr,
	}
	p.maker = newOrder(p.makerAcc.addr, assetX, sellA, assetY, buyA)
	p.taker = newOrder(p.takerAcc.addr, assetY, sellB, assetX, buyB)
	return p
}

func (p *pair) sign(t *testing.T) {
	p.sigA = signOrder(t, p.ex, p.makerAcc, p.maker)
	p.sigB = signOrder(t, p.ex, p.takerAcc, p.taker)
}

func (p *pair) match() (*MatchedFillResults, error) {
	return p.ex.MatchOrders(p.maker, p.taker, p.sigA, p.sigB, p.relayer)
}

func TestMatchMakerFullyFilled(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(1), big.NewInt(1000), big.NewInt(4000), big.NewInt(2))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(1))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(4000))

	r, err := p.match()
	require.NoError(t, err)
	assert.Equal(t, "1", r.SellFilledA.String())
	assert.Equal(t, "1000", r.SellFilledB.String())

	infoA := orderInfo(t, ex, p.maker)
	assert.Equal(t, FullyFilled, infoA.Status)
	assert.Equal(t, "1000", infoA.Filled.String())
	infoB := orderInfo(t, ex, p.taker)
	assert.Equal(t, Fillable, infoB.Status)
	assert.Equal(t, "1", infoB.Filled.String())

	assertBalance(t, ex, assetX, p.makerAcc.addr, big.NewInt(0))
	assertBalance(t, ex, assetY, p.makerAcc.addr, big.NewInt(1000))
	assertBalance(t, ex, assetX, p.takerAcc.addr, big.NewInt(1))
	assertBalance(t, ex, assetY, p.takerAcc.addr, big.NewInt(3000))

	// replaying the same pair fails on the consumed maker
	_, err = p.match()
	var nf *NotFillableError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, SideA, nf.Side)
	assert.Equal(t, FullyFilled, nf.Status)
	assertBalance(t, ex, assetY, p.takerAcc.addr, big.NewInt(3000))
}

func TestMatchTakerFullyFilled(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, eth(20), eth(20000), eth(15000), eth(10))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, eth(20))
	fund(t, ex, assetY, p.takerAcc.addr, eth(15000))

	r, err := p.match()
	require.NoError(t, err)
	assert.Equal(t, eth(15000).String(), r.SellFilledB.String())
	assert.Equal(t, eth(15).String(), r.SellFilledA.String())

	infoA := orderInfo(t, ex, p.maker)
	assert.Equal(t, Fillable, infoA.Status)
	assert.Equal(t, eth(15000).String(), infoA.Filled.String())

	// the taker receives 1.5 X for a 1 X limit, its fill stops at the
	// limit
	infoB := orderInfo(t, ex, p.taker)
	assert.Equal(t, FullyFilled, infoB.Status)
	assert.Equal(t, eth(10).String(), infoB.Filled.String())

	assertBalance(t, ex, assetX, p.makerAcc.addr, eth(5))
	assertBalance(t, ex, assetX, p.takerAcc.addr, eth(15))
	assertBalance(t, ex, assetY, p.makerAcc.addr, eth(15000))
	assertBalance(t, ex, assetY, p.takerAcc.addr, eth(0))

	_, err = p.match()
	var nf *NotFillableError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, SideB, nf.Side)
}

func TestMatchUnprofitableSpread(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(10000), big.NewInt(10000), big.NewInt(10000), big.NewInt(20000))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(10000))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(10000))

	_, err := p.match()
	assert.ErrorIs(t, err, ErrUnprofitableSpread)
	assert.Equal(t, 0, orderInfo(t, ex, p.maker).Filled.Sign())
}

func TestMatchRelayerRestriction(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	allowed := newAccount().addr
	p.taker.Relayer = allowed
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	_, err := p.match()
	assert.ErrorIs(t, err, ErrRelayerMismatch)

	// not even the owner of the other order may submit it
	_, err = ex.MatchOrders(p.maker, p.taker, nil, p.sigB, p.makerAcc.addr)
	assert.ErrorIs(t, err, ErrRelayerMismatch)

	_, err = ex.MatchOrders(p.maker, p.taker, p.sigA, p.sigB, allowed)
	require.NoError(t, err)
}

func TestMatchTokenMismatch(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.taker.SellAsset = common.HexToAddress("0xcc")
	p.sign(t)

	_, err := p.match()
	assert.ErrorIs(t, err, ErrTokenMismatch)

	p.taker.SellAsset = assetY
	p.taker.BuyAsset = common.HexToAddress("0xcc")
	p.sign(t)
	_, err = p.match()
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestMatchMalformedOrder(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.taker.GasFee = big.NewInt(-1)

	_, err := p.match()
	assert.ErrorIs(t, err, ErrMalformedOrder)
	assert.Contains(t, err.Error(), SideB.String())
}

func TestMatchSignatures(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))
	p.sign(t)
	goodA := p.sigA

	var invalid *InvalidSignatureError

	// signed by someone else
	p.sigA = signOrder(t, ex, newAccount(), p.maker)
	_, err := p.match()
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, SideA, invalid.Side)

	// missing
	p.sigA, p.sigB = goodA, nil
	_, err = p.match()
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, SideB, invalid.Side)

	// signed over another order
	p.sigB = signOrder(t, ex, p.takerAcc, p.maker)
	_, err = p.match()
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, SideB, invalid.Side)

	// eth_sign signatures are accepted
	p.sigB, err = SignHash(p.takerAcc.key, ex.Hasher().Hash(p.taker), SigTypeEthSign)
	require.NoError(t, err)
	_, err = p.match()
	require.NoError(t, err)
}

func TestMatchSelfSubmission(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	// the taker submits its own order without a signature
	_, err := ex.MatchOrders(p.maker, p.taker, p.sigA, nil, p.takerAcc.addr)
	require.NoError(t, err)
	assert.Equal(t, FullyFilled, orderInfo(t, ex, p.taker).Status)
}

func TestMatchCancelledOrder(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	err := ex.CancelOrder(p.maker, p.takerAcc.addr)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, Fillable, orderInfo(t, ex, p.maker).Status)

	require.NoError(t, ex.CancelOrder(p.maker, p.makerAcc.addr))
	require.NoError(t, ex.CancelOrder(p.maker, p.makerAcc.addr))
	assert.Equal(t, Cancelled, orderInfo(t, ex, p.maker).Status)

	_, err = p.match()
	var nf *NotFillableError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, SideA, nf.Side)
	assert.Equal(t, Cancelled, nf.Status)
}

func TestMatchExpiredOrder(t *testing.T) {
	ex := newTestExchange(nil)
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	ex.SetClock(fixedClock(testNow.Add(2 * time.Hour)))
	_, err := p.match()
	var nf *NotFillableError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, SideA, nf.Side)
	assert.Equal(t, Expired, nf.Status)

	ex.SetClock(fixedClock(testNow))
	_, err = p.match()
	require.NoError(t, err)
}

func TestMatchFees(t *testing.T) {
	ex := newTestExchange(nil)
	recipient := newAccount().addr
	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.maker.MakerVolumeFee = big.NewInt(10)
	p.maker.FeeRecipient = recipient
	p.taker.TakerVolumeFee = big.NewInt(4)
	p.taker.GasFee = big.NewInt(1)
	p.taker.FeeRecipient = recipient
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(110))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(105))

	r, err := p.match()
	require.NoError(t, err)
	assert.Equal(t, "10", r.FeeA.String())
	assert.Equal(t, "4", r.FeeB.String())

	assertBalance(t, ex, assetX, recipient, big.NewInt(10))
	assertBalance(t, ex, assetY, recipient, big.NewInt(5))
	assertBalance(t, ex, assetX, p.makerAcc.addr, big.NewInt(0))
	assertBalance(t, ex, assetY, p.takerAcc.addr, big.NewInt(0))
	assertBalance(t, ex, assetX, p.takerAcc.addr, big.NewInt(100))
	assertBalance(t, ex, assetY, p.makerAcc.addr, big.NewInt(100))
}

func TestMatchInsufficientBalance(t *testing.T) {
	cases := []struct {
		name          string
		maker, taker  int64
		side          Side
		purpose       Purpose
		expectSuccess bool
	}{
		{"taker trade", 110, 99, SideB, PurposeTrade, false},
		{"taker fee", 110, 104, SideB, PurposeFee, false},
		{"maker trade", 99, 105, SideA, PurposeTrade, false},
		{"maker fee", 109, 105, SideA, PurposeFee, false},
		{"exact", 110, 105, 0, 0, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ex := newTestExchange(nil)
			p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
			p.maker.MakerVolumeFee = big.NewInt(10)
			p.taker.TakerVolumeFee = big.NewInt(4)
			p.taker.GasFee = big.NewInt(1)
			p.sign(t)
			fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(c.maker))
			fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(c.taker))

			_, err := p.match()
			if c.expectSuccess {
				require.NoError(t, err)
				return
			}

			var ib *InsufficientBalanceError
			require.True(t, errors.As(err, &ib), "%v", err)
			assert.Equal(t, c.side, ib.Side)
			assert.Equal(t, c.purpose, ib.Purpose)

			// nothing moved and nothing was recorded
			assertBalance(t, ex, assetX, p.makerAcc.addr, big.NewInt(c.maker))
			assertBalance(t, ex, assetY, p.takerAcc.addr, big.NewInt(c.taker))
			assertBalance(t, ex, assetY, p.makerAcc.addr, big.NewInt(0))
			assert.Equal(t, 0, orderInfo(t, ex, p.maker).Filled.Sign())
			assert.Equal(t, 0, orderInfo(t, ex, p.taker).Filled.Sign())
		})
	}
}

func TestPartialFillsAccumulate(t *testing.T) {
	ex := newTestExchange(nil)
	maker := newAccount()
	a := newOrder(maker.addr, assetX, big.NewInt(100), assetY, big.NewInt(100))
	sigA := signOrder(t, ex, maker, a)
	fund(t, ex, assetX, maker.addr, big.NewInt(100))

	for i := 1; i <= 3; i++ {
		taker := newAccount()
		b := newOrder(taker.addr, assetY, big.NewInt(30), assetX, big.NewInt(30))
		fund(t, ex, assetY, taker.addr, big.NewInt(30))

		r, err := ex.MatchOrders(a, b, sigA, nil, taker.addr)
		require.NoError(t, err)
		assert.Equal(t, "30", r.SellFilledA.String())
		assert.Equal(t, big.NewInt(int64(30*i)).String(), orderInfo(t, ex, a).Filled.String())
	}

	// the last 10 are left for a bigger order
	taker := newAccount()
	b := newOrder(taker.addr, assetY, big.NewInt(50), assetX, big.NewInt(50))
	fund(t, ex, assetY, taker.addr, big.NewInt(50))
	r, err := ex.MatchOrders(a, b, sigA, nil, taker.addr)
	require.NoError(t, err)
	assert.Equal(t, "10", r.SellFilledA.String())
	assert.Equal(t, "10", r.SellFilledB.String())
	assert.Equal(t, FullyFilled, orderInfo(t, ex, a).Status)
	assert.Equal(t, "10", orderInfo(t, ex, b).Filled.String())
	assertBalance(t, ex, assetY, maker.addr, big.NewInt(100))
}

func TestConcurrentMatchesNeverOverfill(t *testing.T) {
	ex := newTestExchange(nil)
	maker := newAccount()
	a := newOrder(maker.addr, assetX, big.NewInt(100), assetY, big.NewInt(100))
	sigA := signOrder(t, ex, maker, a)
	fund(t, ex, assetX, maker.addr, big.NewInt(100))

	const n = 20
	takers := make([]account, n)
	orders := make([]*Order, n)
	for i := range takers {
		takers[i] = newAccount()
		orders[i] = newOrder(takers[i].addr, assetY, big.NewInt(10), assetX, big.NewInt(10))
		fund(t, ex, assetY, takers[i].addr, big.NewInt(10))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ex.MatchOrders(a, orders[i], sigA, nil, takers[i].addr)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}

			var nf *NotFillableError
			assert.True(t, errors.As(err, &nf), "%v", err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	info := orderInfo(t, ex, a)
	assert.Equal(t, FullyFilled, info.Status)
	assert.Equal(t, "100", info.Filled.String())
	assertBalance(t, ex, assetY, maker.addr, big.NewInt(100))
	assertBalance(t, ex, assetX, maker.addr, big.NewInt(0))
}

func TestTradeEvent(t *testing.T) {
	ex := newTestExchange(nil)
	ch := make(chan *TradeEvent, 1)
	sub := ex.SubscribeTrades(ch)
	defer sub.Unsubscribe()

	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.maker.MakerVolumeFee = big.NewInt(2)
	p.taker.TakerVolumeFee = big.NewInt(3)
	p.taker.GasFee = big.NewInt(1)
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(102))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(104))

	_, err := p.match()
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, ex.Hasher().Hash(p.maker), ev.HashA)
		assert.Equal(t, ex.Hasher().Hash(p.taker), ev.HashB)
		assert.Equal(t, p.makerAcc.addr, ev.OwnerA)
		assert.Equal(t, p.takerAcc.addr, ev.OwnerB)
		assert.Equal(t, assetX, ev.SellAssetA)
		assert.Equal(t, assetY, ev.SellAssetB)
		assert.Equal(t, "100", ev.SellFilledA.String())
		assert.Equal(t, "100", ev.SellFilledB.String())
		assert.Equal(t, "1", ev.GasFee.String())
		assert.Equal(t, "2", ev.FeeA.String())
		assert.Equal(t, "3", ev.FeeB.String())
	case <-time.After(time.Second):
		t.Fatal("no trade event")
	}

	// failed matches emit nothing
	_, err = p.match()
	require.Error(t, err)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected trade event %v", ev)
	default:
	}
}

func TestExchangeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	ex := newTestExchange(m)

	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	_, err := p.match()
	require.NoError(t, err)
	_, err = p.match()
	require.Error(t, err)
	require.NoError(t, ex.CancelOrder(p.maker, p.makerAcc.addr))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Matches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchFailures.WithLabelValues("not_fillable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cancels))
}

func TestSelfMatchNeverOverfills(t *testing.T) {
	ex := newTestExchange(nil)
	owner := newAccount()
	o := newOrder(owner.addr, assetX, big.NewInt(100), assetX, big.NewInt(100))
	fund(t, ex, assetX, owner.addr, big.NewInt(100))

	r, err := ex.MatchOrders(o, o, nil, nil, owner.addr)
	require.NoError(t, err)
	assert.Equal(t, "100", r.SellFilledA.String())
	assert.Equal(t, "100", r.SellFilledB.String())

	info := orderInfo(t, ex, o)
	assert.Equal(t, FullyFilled, info.Status)
	assert.Equal(t, "100", info.Filled.String())
	assertBalance(t, ex, assetX, owner.addr, big.NewInt(100))

	_, err = ex.MatchOrders(o, o, nil, nil, owner.addr)
	var nf *NotFillableError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, SideA, nf.Side)
	assert.Equal(t, "100", orderInfo(t, ex, o).Filled.String())
}

func TestStalledSubscriberDoesNotBlockExchange(t *testing.T) {
	ex := newTestExchange(nil)
	ch := make(chan *TradeEvent)
	sub := ex.SubscribeTrades(ch)

	p := newPair(t, ex, big.NewInt(100), big.NewInt(100), big.NewInt(100), big.NewInt(100))
	p.sign(t)
	fund(t, ex, assetX, p.makerAcc.addr, big.NewInt(100))
	fund(t, ex, assetY, p.takerAcc.addr, big.NewInt(100))

	// nobody reads ch, the match stays in Send
	matched := make(chan error, 1)
	go func() {
		_, err := p.match()
		matched <- err
	}()

	require.Eventually(t, func() bool {
		info, err := ex.OrderInfo(p.maker)
		return err == nil && info.Status == FullyFilled
	}, time.Second, 10*time.Millisecond)

	owner := newAccount()
	o := newOrder(owner.addr, assetX, big.NewInt(1), assetY, big.NewInt(1))
	cancelled := make(chan error, 1)
	go func() {
		cancelled <- ex.CancelOrder(o, owner.addr)
	}()

	select {
	case err := <-cancelled:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancel blocked by a stalled trade subscriber")
	}
	assert.Equal(t, Cancelled, orderInfo(t, ex, o).Status)

	sub.Unsubscribe()
	select {
	case err := <-matched:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("match still blocked after unsubscribe")
	}
}

func TestNegativeQuantityRejected(t *testing.T) {
	ex := newTestExchange(nil)
	owner := newAccount()
	o := newOrder(owner.addr, assetX, big.NewInt(100), assetY, big.NewInt(100))

	neg := *o
	neg.Salt = new(big.Int).Neg(o.Salt)
	_, err := ex.OrderInfo(&neg)
	assert.ErrorIs(t, err, ErrMalformedOrder)

	err = ex.CancelOrder(&neg, owner.addr)
	assert.ErrorIs(t, err, ErrMalformedOrder)

	// the order with the positive salt is untouched
	assert.Equal(t, Fillable, orderInfo(t, ex, o).Status)
}
