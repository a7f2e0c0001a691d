package dex

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/luiz-henrique-gyn/backend/pkg/storage"
)

var (
	orderPrefix   = []byte{0}
	balancePrefix = []byte{1}
	noncePrefix   = []byte{2}
	genesisPath   = []byte{3}
)

func orderPath(h common.Hash) []byte {
	return append(orderPrefix, h[:]...)
}

func balancePath(asset, account common.Address) []byte {
	p := append(balancePrefix, asset[:]...)
	return append(p, account[:]...)
}

func noncePath(addr common.Address) []byte {
	return append(noncePrefix, addr[:]...)
}

func encode(v interface{}) []byte {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		// should never happen
		panic(err)
	}
	return b
}

func decodeFill(b []byte) FillRecord {
	var r FillRecord
	if len(b) == 0 {
		r.Filled = new(big.Int)
		return r
	}

	err := rlp.DecodeBytes(b, &r)
	if err != nil {
		panic(err)
	}

	if r.Filled == nil {
		r.Filled = new(big.Int)
	}
	return r
}

func decodeBalance(b []byte) *big.Int {
	r := new(big.Int)
	if len(b) == 0 {
		return r
	}

	err := rlp.DecodeBytes(b, r)
	if err != nil {
		panic(err)
	}
	return r
}

func decodeNonce(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}

	var n uint64
	err := rlp.DecodeBytes(b, &n)
	if err != nil {
		panic(err)
	}
	return n
}

// State is the committed state of the exchange: the order fill
// ledger, asset balances and account nonces.
//
// State is only changed by committing a Transition.
type State struct {
	mu sync.RWMutex
	db storage.Database
}

func NewState(db storage.Database) *State {
	return &State{db: db}
}

func (s *State) get(path []byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := s.db.Get(path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}

	if err != nil {
		// a failing store cannot serve the ledger reliably
		panic(fmt.Errorf("error reading state: %w", err))
	}

	return b
}

// Fill returns the ledger entry of the order hash.
func (s *State) Fill(h common.Hash) FillRecord {
	return decodeFill(s.get(orderPath(h)))
}

// Balance returns the balance of account in asset.
func (s *State) Balance(asset, account common.Address) *big.Int {
	return decodeBalance(s.get(balancePath(asset, account)))
}

// Nonce returns the next transaction nonce expected from addr.
func (s *State) Nonce(addr common.Address) uint64 {
	return decodeNonce(s.get(noncePath(addr)))
}

// Transition returns a new transition on top of the current state.
func (s *State) Transition() *Transition {
	return newTransition(s)
}

func (s *State) write(dirty map[string][]byte) error {
	keys := make([]string, 0, len(dirty))
	for k := range dirty {
		keys = append(keys, k)
	}

	// make the batch deterministic
	sort.Strings(keys)

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, k := range keys {
		err := batch.Put([]byte(k), dirty[k])
		if err != nil {
			return err
		}
	}

	return batch.Write()
}

// GenesisAlloc credits Amount of Asset to Account.
type GenesisAlloc struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

// ApplyGenesis credits the allocations if no genesis was applied to
// the store before. It returns whether the allocations were applied.
func (s *State) ApplyGenesis(allocs []GenesisAlloc) (bool, error) {
	if s.get(genesisPath) != nil {
		return false, nil
	}

	t := s.Transition()
	for _, a := range allocs {
		if a.Amount == nil || a.Amount.Sign() < 0 {
			return false, fmt.Errorf("invalid genesis amount for account %x", a.Account)
		}

		t.credit(a.Asset, a.Account, a.Amount)
		log.Info("genesis allocation", "account", a.Account, "asset", a.Asset, "amount", a.Amount)
	}

	t.put(genesisPath, []byte{1})
	err := t.Commit()
	if err != nil {
		return false, err
	}

	return true, nil
}
