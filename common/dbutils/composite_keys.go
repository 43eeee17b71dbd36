package dbutils

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	NumberLength      = 8
	IncarnationLength = 8
)

// EncodeBlockNumber encodes a block number as big endian uint64
func EncodeBlockNumber(number uint64) []byte {
	enc := make([]byte, NumberLength)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

var ErrInvalidSize = errors.New("big endian number has an invalid size")

func DecodeBlockNumber(number []byte) (uint64, error) {
	if len(number) != NumberLength {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, len(number))
	}
	return binary.BigEndian.Uint64(number), nil
}

// HeaderKey = num (uint64 big endian) + hash
func HeaderKey(number uint64, hash common.Hash) []byte {
	k := make([]byte, NumberLength+common.HashLength)
	binary.BigEndian.PutUint64(k, number)
	copy(k[NumberLength:], hash[:])
	return k
}

// LogKey = blockN (uint64 big endian) + txId (uint32 big endian)
func LogKey(blockNumber uint64, txId uint32) []byte {
	k := make([]byte, NumberLength+4)
	binary.BigEndian.PutUint64(k, blockNumber)
	binary.BigEndian.PutUint32(k[NumberLength:], txId)
	return k
}

// address + incarnation + slot hash, the plain-state storage key
func PlainGenerateCompositeStorageKey(address []byte, incarnation uint64, key []byte) []byte {
	compositeKey := make([]byte, common.AddressLength+IncarnationLength+common.HashLength)
	copy(compositeKey, address)
	binary.BigEndian.PutUint64(compositeKey[common.AddressLength:], incarnation)
	copy(compositeKey[common.AddressLength+IncarnationLength:], key)
	return compositeKey
}

func PlainParseCompositeStorageKey(compositeKey []byte) (common.Address, uint64, common.Hash) {
	prefixLen := common.AddressLength + IncarnationLength
	addr, inc := PlainParseStoragePrefix(compositeKey[:prefixLen])
	var key common.Hash
	copy(key[:], compositeKey[prefixLen:prefixLen+common.HashLength])
	return addr, inc, key
}

// address + incarnation prefix
func PlainGenerateStoragePrefix(address []byte, incarnation uint64) []byte {
	prefix := make([]byte, common.AddressLength+IncarnationLength)
	copy(prefix, address)
	binary.BigEndian.PutUint64(prefix[common.AddressLength:], incarnation)
	return prefix
}

func PlainParseStoragePrefix(prefix []byte) (common.Address, uint64) {
	var addr common.Address
	copy(addr[:], prefix[:common.AddressLength])
	inc := binary.BigEndian.Uint64(prefix[common.AddressLength : common.AddressLength+IncarnationLength])
	return addr, inc
}

// addrHash + incarnation + slotHash, the hashed-state storage key
func GenerateCompositeStorageKey(addressHash common.Hash, incarnation uint64, seckey common.Hash) []byte {
	compositeKey := make([]byte, common.HashLength+IncarnationLength+common.HashLength)
	copy(compositeKey, addressHash[:])
	binary.BigEndian.PutUint64(compositeKey[common.HashLength:], incarnation)
	copy(compositeKey[common.HashLength+IncarnationLength:], seckey[:])
	return compositeKey
}

// addrHash + incarnation prefix (hashed state)
func GenerateStoragePrefix(addressHash []byte, incarnation uint64) []byte {
	prefix := make([]byte, common.HashLength+IncarnationLength)
	copy(prefix, addressHash)
	binary.BigEndian.PutUint64(prefix[common.HashLength:], incarnation)
	return prefix
}

// AccountIndexChunkKey is a history-index chunk key for an account:
// address + shard id (the highest block number in the shard, big endian).
func AccountIndexChunkKey(key []byte, blockNumber uint64) []byte {
	blockNumBytes := make([]byte, common.AddressLength+NumberLength)
	copy(blockNumBytes, key)
	binary.BigEndian.PutUint64(blockNumBytes[common.AddressLength:], blockNumber)
	return blockNumBytes
}

// StorageIndexChunkKey is the storage counterpart: address + slot hash +
// shard id. The incarnation deliberately does not participate.
func StorageIndexChunkKey(key []byte, blockNumber uint64) []byte {
	// remove incarnation from the plain composite key first
	blockNumBytes := make([]byte, common.AddressLength+common.HashLength+NumberLength)
	copy(blockNumBytes, key[:common.AddressLength])
	copy(blockNumBytes[common.AddressLength:], key[common.AddressLength+IncarnationLength:common.AddressLength+IncarnationLength+common.HashLength])
	binary.BigEndian.PutUint64(blockNumBytes[common.AddressLength+common.HashLength:], blockNumber)
	return blockNumBytes
}
