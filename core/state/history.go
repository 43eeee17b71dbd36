// Package state answers "what was this key's value as of block B" from the
// change-set history: the history index names the first block at or after B
// that changed the key, and that block's change-set holds the pre-change
// value, which is exactly the value as of B.
package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/erigondata/erigondb/common/changeset"
	"github.com/erigondata/erigondb/common/dbutils"
	"github.com/erigondata/erigondb/core/rawdb"
	"github.com/erigondata/erigondb/core/types/accounts"
	"github.com/erigondata/erigondb/kv"
	"github.com/erigondata/erigondb/kv/bitmapdb"
)

// GetAsOf returns the value of a plain-state key as seen at the start of
// block timestamp. Keys changed at or after timestamp resolve through the
// history; everything else falls through to the current plain state. The
// returned bytes use the plain-state encoding of the key's family; an empty
// result with ok=true means the key existed with the empty encoding.
func GetAsOf(tx kv.Getter, storage bool, key []byte, timestamp uint64) ([]byte, bool, error) {
	v, ok, err := FindByHistory(tx, storage, key, timestamp)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return v, true, nil
	}
	return readPlain(tx, storage, key)
}

// FindByHistory resolves key through the history index alone. ok=false
// means the key has not changed since timestamp and the caller should
// consult the plain state.
func FindByHistory(tx kv.Getter, storage bool, key []byte, timestamp uint64) ([]byte, bool, error) {
	var mapper changeset.Mapper
	if storage {
		mapper = changeset.Mappers[kv.StorageChangeSetName]
	} else {
		mapper = changeset.Mappers[kv.AccountChangeSetName]
	}

	indexC, err := kv.NewCursor(tx, mapper.IndexTable)
	if err != nil {
		return nil, false, err
	}
	defer indexC.Close()

	k, v, ok, err := indexC.Seek(mapper.IndexChunkKey(key, timestamp))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	// The seek may overshoot into the next key's chunks: the chunk must
	// belong to the key we asked about. Storage chunk keys drop the
	// incarnation, so the comparison is field-wise there.
	if storage {
		if !bytes.Equal(k[:common.AddressLength], key[:common.AddressLength]) ||
			!bytes.Equal(k[common.AddressLength:common.AddressLength+common.HashLength], key[common.AddressLength+dbutils.IncarnationLength:]) {
			return nil, false, nil
		}
	} else {
		if !bytes.HasPrefix(k, key) {
			return nil, false, nil
		}
	}

	index, err := bitmapdb.ReadBitmap64(v)
	if err != nil {
		return nil, false, err
	}
	changeSetBlock, ok := bitmapdb.SeekInBitmap64(index, timestamp)
	if !ok {
		return nil, false, nil
	}

	data, ok, err := mapper.Find(tx, changeSetBlock, key)
	if err != nil {
		return nil, false, fmt.Errorf("finding %x in the changeset %d: %w", key, changeSetBlock, err)
	}
	if !ok {
		return nil, false, nil
	}

	if !storage {
		data, err = restoreCodeHash(tx, key, data)
		if err != nil {
			return nil, false, err
		}
	}
	return data, true, nil
}

// Change-sets store accounts with the code hash blanked when it can be
// recovered from the contract-code side table. Put it back so historical
// accounts are whole.
func restoreCodeHash(tx kv.Getter, key, data []byte) ([]byte, error) {
	var acc accounts.Account
	if err := acc.DecodeForStorage(data); err != nil {
		return nil, err
	}
	if acc.Incarnation == 0 || !accounts.IsEmptyCodeHash(acc.CodeHash) {
		return data, nil
	}
	codeHash, ok, err := rawdb.ReadPlainCodeHash(tx, common.BytesToAddress(key), acc.Incarnation)
	if err != nil {
		return nil, err
	}
	if ok && codeHash != (common.Hash{}) {
		acc.CodeHash = codeHash
	}
	return acc.EncodeForStorage(), nil
}

func readPlain(tx kv.Getter, storage bool, key []byte) ([]byte, bool, error) {
	if storage {
		addr, inc, loc := dbutils.PlainParseCompositeStorageKey(key)
		value, ok, err := rawdb.ReadStorage(tx, addr, inc, loc)
		if err != nil || !ok {
			return nil, false, err
		}
		return value.Bytes(), true, nil
	}
	acc, ok, err := rawdb.ReadAccount(tx, common.BytesToAddress(key))
	if err != nil || !ok {
		return nil, false, err
	}
	return acc.EncodeForStorage(), true, nil
}

// ReadAccountAsOf is the typed account view of GetAsOf. An account whose
// historical encoding is empty did not exist at that block.
func ReadAccountAsOf(tx kv.Getter, address common.Address, timestamp uint64) (*accounts.Account, bool, error) {
	data, ok, err := GetAsOf(tx, false, address[:], timestamp)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	acc := new(accounts.Account)
	if err := acc.DecodeForStorage(data); err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// ReadStorageAsOf is the typed storage view of GetAsOf. Empty historical
// bytes mean the slot was unset at that block.
func ReadStorageAsOf(tx kv.Getter, address common.Address, incarnation uint64, location common.Hash, timestamp uint64) (*uint256.Int, bool, error) {
	key := dbutils.PlainGenerateCompositeStorageKey(address[:], incarnation, location[:])
	data, ok, err := GetAsOf(tx, true, key, timestamp)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	if len(data) > common.HashLength {
		return nil, false, kv.TooLongError{Max: common.HashLength, Got: len(data)}
	}
	return new(uint256.Int).SetBytes(data), true, nil
}
