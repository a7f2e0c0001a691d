package dex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transition is a set of pending changes on top of a State. Reads see
// the pending changes, nothing is visible to the State until Commit.
// A transition that is dropped without Commit leaves no trace.
//
// A Transition is not safe for concurrent use.
type Transition struct {
	state *State
	dirty map[string][]byte
}

func newTransition(s *State) *Transition {
	return &Transition{state: s, dirty: make(map[string][]byte)}
}

func (t *Transition) get(path []byte) []byte {
	if b, ok := t.dirty[string(path)]; ok {
		return b
	}
	return t.state.get(path)
}

func (t *Transition) put(path, b []byte) {
	t.dirty[string(path)] = b
}

func (t *Transition) Fill(h common.Hash) FillRecord {
	return decodeFill(t.get(orderPath(h)))
}

func (t *Transition) UpdateFill(h common.Hash, r FillRecord) {
	t.put(orderPath(h), encode(r))
}

func (t *Transition) Nonce(addr common.Address) uint64 {
	return decodeNonce(t.get(noncePath(addr)))
}

func (t *Transition) setNonce(addr common.Address, n uint64) {
	t.put(noncePath(addr), encode(n))
}

func (t *Transition) setBalance(asset, account common.Address, v *big.Int) {
	t.put(balancePath(asset, account), encode(v))
}

func (t *Transition) credit(asset, account common.Address, amount *big.Int) {
	b := t.BalanceOf(asset, account)
	t.setBalance(asset, account, b.Add(b, amount))
}

// Commit writes all pending changes to the state atomically.
func (t *Transition) Commit() error {
	if len(t.dirty) == 0 {
		return nil
	}

	err := t.state.write(t.dirty)
	if err != nil {
		return err
	}

	t.dirty = make(map[string][]byte)
	return nil
}
