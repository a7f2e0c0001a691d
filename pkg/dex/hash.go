package dex

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/crypto/sha3"
)

const (
	domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	orderType  = "Order(address owner,address sellAsset,address buyAsset,address feeRecipient,address relayer,uint256 sellAmount,uint256 buyAmount,uint256 makerVolumeFee,uint256 takerVolumeFee,uint256 gasFee,uint256 expiration,uint256 salt)"
)

var (
	domainTypeHash = keccak([]byte(domainType))
	orderTypeHash  = keccak([]byte(orderType))
)

func keccak(b ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, e := range b {
		_, err := d.Write(e)
		if err != nil {
			// should not happen
			panic(err)
		}
	}
	h := d.Sum(nil)
	var hash common.Hash
	copy(hash[:], h)
	return hash
}

func addrWord(a common.Address) []byte {
	return common.LeftPadBytes(a[:], 32)
}

func uintWord(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return math.PaddedBigBytes(v, 32)
}

// Domain separates order hashes of one exchange deployment from any
// other signed data.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// OrderHasher computes the EIP-712 typed data hash of orders. The hash
// is the permanent identity of an order and the message its owner
// signs.
type OrderHasher struct {
	separator common.Hash
}

func NewOrderHasher(d Domain) *OrderHasher {
	sep := keccak(
		domainTypeHash[:],
		keccak([]byte(d.Name)).Bytes(),
		keccak([]byte(d.Version)).Bytes(),
		uintWord(d.ChainID),
		addrWord(d.VerifyingContract),
	)
	return &OrderHasher{separator: sep}
}

// DomainSeparator returns the EIP-712 domain separator.
func (h *OrderHasher) DomainSeparator() common.Hash {
	return h.separator
}

// Hash returns the fingerprint of the order.
func (h *OrderHasher) Hash(o *Order) common.Hash {
	s := structHash(o)
	return keccak([]byte{0x19, 0x01}, h.separator[:], s[:])
}

func structHash(o *Order) common.Hash {
	return keccak(
		orderTypeHash[:],
		addrWord(o.Owner),
		addrWord(o.SellAsset),
		addrWord(o.BuyAsset),
		addrWord(o.FeeRecipient),
		addrWord(o.Relayer),
		uintWord(o.SellAmount),
		uintWord(o.BuyAmount),
		uintWord(o.MakerVolumeFee),
		uintWord(o.TakerVolumeFee),
		uintWord(o.GasFee),
		uintWord(o.Expiration),
		uintWord(o.Salt),
	)
}
