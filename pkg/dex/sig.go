package dex

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru"
)

// Sig is a secp256k1 signature: R || S || V, optionally followed by a
// SigType byte. Without the type byte the signature is treated as
// SigTypeEIP712.
type Sig []byte

// SigType tells which digest of the order hash was signed.
type SigType uint8

const (
	// SigTypeEIP712 signs the order hash directly.
	SigTypeEIP712 SigType = 2
	// SigTypeEthSign signs the order hash wrapped in the
	// "\x19Ethereum Signed Message:\n32" prefix, as produced by
	// eth_sign.
	SigTypeEthSign SigType = 3
)

var errMalformedSig = errors.New("malformed signature")

func ethSignDigest(h common.Hash) common.Hash {
	return keccak([]byte("\x19Ethereum Signed Message:\n32"), h[:])
}

// SignHash signs h with key.
func SignHash(key *ecdsa.PrivateKey, h common.Hash, t SigType) (Sig, error) {
	digest := h
	switch t {
	case SigTypeEIP712:
	case SigTypeEthSign:
		digest = ethSignDigest(h)
	default:
		return nil, fmt.Errorf("unsupported signature type %d", t)
	}

	sig, err := crypto.Sign(digest[:], key)
	if err != nil {
		return nil, err
	}

	sig[64] += 27
	return append(sig, byte(t)), nil
}

// Recover returns the address that signed h.
func Recover(h common.Hash, sig Sig) (common.Address, error) {
	t := SigTypeEIP712
	switch len(sig) {
	case 65:
	case 66:
		t = SigType(sig[65])
	default:
		return common.Address{}, errMalformedSig
	}

	digest := h
	switch t {
	case SigTypeEIP712:
	case SigTypeEthSign:
		digest = ethSignDigest(h)
	default:
		return common.Address{}, errMalformedSig
	}

	rsv := make([]byte, 65)
	copy(rsv, sig[:65])
	if rsv[64] >= 27 {
		rsv[64] -= 27
	}

	if rsv[64] > 1 {
		return common.Address{}, errMalformedSig
	}

	pk, err := crypto.SigToPub(digest[:], rsv)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pk), nil
}

// SignatureVerifier checks that a hash was signed by an account.
type SignatureVerifier interface {
	// IsValid returns false for malformed signatures, it never
	// fails.
	IsValid(h common.Hash, sig Sig, signer common.Address) bool
}

// ECDSAVerifier verifies secp256k1 signatures. Recovered signers are
// kept in an LRU cache since the same order is usually matched many
// times.
type ECDSAVerifier struct {
	cache *lru.Cache
}

const defaultSigCacheSize = 4096

func NewECDSAVerifier(cacheSize int) *ECDSAVerifier {
	if cacheSize <= 0 {
		cacheSize = defaultSigCacheSize
	}

	c, err := lru.New(cacheSize)
	if err != nil {
		panic(err)
	}

	return &ECDSAVerifier{cache: c}
}

func (v *ECDSAVerifier) IsValid(h common.Hash, sig Sig, signer common.Address) bool {
	if signer == (common.Address{}) {
		return false
	}

	key := string(h[:]) + string(sig)
	if addr, ok := v.cache.Get(key); ok {
		return addr.(common.Address) == signer
	}

	addr, err := Recover(h, sig)
	if err != nil {
		return false
	}

	v.cache.Add(key, addr)
	return addr == signer
}
