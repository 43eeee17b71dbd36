package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

const BloomByteLength = 256

// Bloom is the 2048-bit log bloom carried in each header.
type Bloom [BloomByteLength]byte

func BytesToBloom(b []byte) Bloom {
	var bloom Bloom
	copy(bloom[BloomByteLength-len(b):], b)
	return bloom
}

// BlockNonce is the proof-of-work nonce, kept as raw bytes since it is
// opaque to everything in this layer.
type BlockNonce [8]byte

// Header mirrors the consensus header layout. BaseFee appears only in
// post-London headers; the optional tag makes both forms decode from the
// same struct.
type Header struct {
	ParentHash  common.Hash
	UncleHash   common.Hash
	Coinbase    common.Address
	Root        common.Hash
	TxHash      common.Hash
	ReceiptHash common.Hash
	Bloom       Bloom
	Difficulty  *uint256.Int
	Number      uint64
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   common.Hash
	Nonce       BlockNonce
	BaseFee     *uint256.Int `rlp:"optional"`
}

// Hash returns the keccak256 of the header's RLP encoding, which is the
// block hash.
func (h *Header) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic("header rlp encoding failed: " + err.Error())
	}
	return keccak256(enc)
}

// BodyForStorage is the block body as stored on disk. BaseTxId and TxAmount
// include the two surrounding system transactions; readers are expected to
// trim them.
type BodyForStorage struct {
	BaseTxId uint64
	TxAmount uint32
	Uncles   []*Header
}

func keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}
