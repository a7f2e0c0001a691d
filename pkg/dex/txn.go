package dex

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

type TxnType uint8

const (
	MatchOrders TxnType = iota
	CancelOrder
)

func (t TxnType) String() string {
	switch t {
	case MatchOrders:
		return "match_orders"
	case CancelOrder:
		return "cancel_order"
	default:
		return fmt.Sprintf("txn_type_%d", uint8(t))
	}
}

// Txn is a signed request submitted to the exchange. Its signer is the
// caller of the requested operation, Nonce protects the request itself
// from being replayed.
type Txn struct {
	T     TxnType
	Data  []byte
	Nonce uint64
	Owner common.Address
	Sig   Sig
}

func (b *Txn) Encode(withSig bool) []byte {
	en := *b
	if !withSig {
		en.Sig = nil
	}

	return encode(en)
}

func (b *Txn) Bytes() []byte {
	return b.Encode(true)
}

func (b *Txn) Hash() common.Hash {
	return keccak(b.Encode(true))
}

// Sender returns the owner of the transaction after checking that the
// owner signed it.
func (b *Txn) Sender() (common.Address, error) {
	if len(b.Sig) != 65 {
		return common.Address{}, ErrInvalidTxnSig
	}

	h := keccak(b.Encode(false))
	pk, err := crypto.SigToPub(h[:], b.Sig)
	if err != nil {
		return common.Address{}, ErrInvalidTxnSig
	}

	if crypto.PubkeyToAddress(*pk) != b.Owner {
		return common.Address{}, ErrInvalidTxnSig
	}

	return b.Owner, nil
}

func DecodeTxn(b []byte) (*Txn, error) {
	var txn Txn
	err := rlp.DecodeBytes(b, &txn)
	if err != nil {
		return nil, fmt.Errorf("error decoding txn: %w", err)
	}

	return &txn, nil
}

type MatchOrdersTxn struct {
	OrderA Order
	OrderB Order
	SigA   Sig
	SigB   Sig
}

type CancelOrderTxn struct {
	Order Order
}

func makeTxn(key *ecdsa.PrivateKey, t TxnType, data []byte, nonce uint64) []byte {
	txn := &Txn{
		T:     t,
		Data:  data,
		Nonce: nonce,
		Owner: crypto.PubkeyToAddress(key.PublicKey),
	}

	h := keccak(txn.Encode(false))
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		panic(err)
	}

	txn.Sig = sig
	return txn.Encode(true)
}

func MakeMatchOrdersTxn(key *ecdsa.PrivateKey, t MatchOrdersTxn, nonce uint64) []byte {
	return makeTxn(key, MatchOrders, encode(t), nonce)
}

func MakeCancelOrderTxn(key *ecdsa.PrivateKey, o Order, nonce uint64) []byte {
	return makeTxn(key, CancelOrder, encode(CancelOrderTxn{Order: o}), nonce)
}
