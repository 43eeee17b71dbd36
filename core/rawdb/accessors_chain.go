package rawdb

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/erigondata/erigondb/core/types"
	"github.com/erigondata/erigondb/kv"
)

// ErrBodyTooFewTxs means a stored body claims fewer transactions than the
// two system transactions every body carries. Such a row is corrupt, not
// merely absent.
var ErrBodyTooFewTxs = errors.New("body has too few transactions")

// ReadHeadHeaderHash returns the hash of the latest known header.
func ReadHeadHeaderHash(tx kv.Getter) (common.Hash, bool, error) {
	return kv.Get(tx, kv.HeadHeaderHash, kv.Sentinel{})
}

func WriteHeadHeaderHash(tx kv.Putter, hash common.Hash) error {
	return kv.Put(tx, kv.HeadHeaderHash, kv.Sentinel{}, hash)
}

// ReadHeadBlockHash returns the hash of the latest fully processed block.
func ReadHeadBlockHash(tx kv.Getter) (common.Hash, bool, error) {
	return kv.Get(tx, kv.HeadBlockHash, kv.Sentinel{})
}

func WriteHeadBlockHash(tx kv.Putter, hash common.Hash) error {
	return kv.Put(tx, kv.HeadBlockHash, kv.Sentinel{}, hash)
}

func ReadHeaderNumber(tx kv.Getter, hash common.Hash) (uint64, bool, error) {
	return kv.Get(tx, kv.HeaderNumbers, hash)
}

func WriteHeaderNumber(tx kv.Putter, hash common.Hash, number uint64) error {
	return kv.Put(tx, kv.HeaderNumbers, hash, number)
}

func ReadCanonicalHash(tx kv.Getter, number uint64) (common.Hash, bool, error) {
	return kv.Get(tx, kv.CanonicalHashes, number)
}

func WriteCanonicalHash(tx kv.Putter, hash common.Hash, number uint64) error {
	return kv.Put(tx, kv.CanonicalHashes, number, hash)
}

// IsCanonicalHash checks whether hash is the canonical block at its own
// height. The zero hash is never canonical.
func IsCanonicalHash(tx kv.Getter, hash common.Hash) (bool, error) {
	number, ok, err := ReadHeaderNumber(tx, hash)
	if err != nil || !ok {
		return false, err
	}
	canonical, ok, err := ReadCanonicalHash(tx, number)
	if err != nil || !ok {
		return false, err
	}
	return canonical != (common.Hash{}) && canonical == hash, nil
}

func ReadHeader(tx kv.Getter, number uint64, hash common.Hash) (*types.Header, bool, error) {
	return kv.Get(tx, kv.Headers, kv.HeaderKey{Number: number, Hash: hash})
}

// ReadHeaderByNumber follows the canonical chain.
func ReadHeaderByNumber(tx kv.Getter, number uint64) (*types.Header, bool, error) {
	hash, ok, err := ReadCanonicalHash(tx, number)
	if err != nil || !ok {
		return nil, false, err
	}
	return ReadHeader(tx, number, hash)
}

// ReadCurrentHeader resolves the head-header mark to the header itself.
func ReadCurrentHeader(tx kv.Getter) (*types.Header, bool, error) {
	hash, ok, err := ReadHeadHeaderHash(tx)
	if err != nil || !ok {
		return nil, false, err
	}
	number, ok, err := ReadHeaderNumber(tx, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	return ReadHeader(tx, number, hash)
}

// WriteHeader stores the header and its hash-to-number entry.
func WriteHeader(tx kv.Putter, header *types.Header) error {
	hash := header.Hash()
	if err := WriteHeaderNumber(tx, hash, header.Number); err != nil {
		return err
	}
	return kv.Put(tx, kv.Headers, kv.HeaderKey{Number: header.Number, Hash: hash}, header)
}

func ReadTd(tx kv.Getter, number uint64, hash common.Hash) (*uint256.Int, bool, error) {
	return kv.Get(tx, kv.HeaderTDs, kv.HeaderKey{Number: number, Hash: hash})
}

func WriteTd(tx kv.Putter, number uint64, hash common.Hash, td *uint256.Int) error {
	return kv.Put(tx, kv.HeaderTDs, kv.HeaderKey{Number: number, Hash: hash}, td)
}

// ReadBodyForStorage returns the stored body row untouched, system
// transactions included.
func ReadBodyForStorage(tx kv.Getter, number uint64, hash common.Hash) (*types.BodyForStorage, bool, error) {
	return kv.Get(tx, kv.BlockBodies, kv.HeaderKey{Number: number, Hash: hash})
}

// ReadBody trims the two system transactions off the stored row: callers
// get the id of the first real transaction and the real count.
func ReadBody(tx kv.Getter, number uint64, hash common.Hash) (*types.BodyForStorage, bool, error) {
	stored, ok, err := ReadBodyForStorage(tx, number, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	if stored.TxAmount < 2 {
		return nil, false, fmt.Errorf("%w: block %d has %d", ErrBodyTooFewTxs, number, stored.TxAmount)
	}
	return &types.BodyForStorage{
		BaseTxId: stored.BaseTxId + 1,
		TxAmount: stored.TxAmount - 2,
		Uncles:   stored.Uncles,
	}, true, nil
}

func WriteBodyForStorage(tx kv.Putter, number uint64, hash common.Hash, body *types.BodyForStorage) error {
	return kv.Put(tx, kv.BlockBodies, kv.HeaderKey{Number: number, Hash: hash}, body)
}

// ReadTransactions reads amount transactions starting at baseTxId.
func ReadTransactions(tx kv.Getter, baseTxId uint64, amount uint32) ([]types.Transaction, error) {
	if amount == 0 {
		return []types.Transaction{}, nil
	}
	c, err := kv.NewCursor(tx, kv.EthTx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	txs := make([]types.Transaction, 0, amount)
	w := c.Walk(baseTxId)
	for {
		id, txn, ok, err := w.Next()
		if err != nil {
			return nil, err
		}
		if !ok || id >= baseTxId+uint64(amount) {
			break
		}
		txs = append(txs, txn)
	}
	return txs, nil
}

func WriteTransactions(tx kv.Putter, txs []types.Transaction, baseTxId uint64) error {
	for i, txn := range txs {
		if err := kv.Put(tx, kv.EthTx, baseTxId+uint64(i), txn); err != nil {
			return err
		}
	}
	return nil
}

// ReadBlockTransactions returns the block's real transactions, system
// transactions excluded.
func ReadBlockTransactions(tx kv.Getter, number uint64, hash common.Hash) ([]types.Transaction, bool, error) {
	body, ok, err := ReadBody(tx, number, hash)
	if err != nil || !ok {
		return nil, false, err
	}
	txs, err := ReadTransactions(tx, body.BaseTxId, body.TxAmount)
	if err != nil {
		return nil, false, err
	}
	return txs, true, nil
}

func ReadSenders(tx kv.Getter, number uint64, hash common.Hash) ([]common.Address, bool, error) {
	return kv.Get(tx, kv.Senders, kv.HeaderKey{Number: number, Hash: hash})
}

func WriteSenders(tx kv.Putter, number uint64, hash common.Hash, senders []common.Address) error {
	return kv.Put(tx, kv.Senders, kv.HeaderKey{Number: number, Hash: hash}, senders)
}

// ReadTxLookupEntry maps a transaction hash to the number of the block that
// included it.
func ReadTxLookupEntry(tx kv.Getter, txnHash common.Hash) (uint64, bool, error) {
	return kv.Get(tx, kv.TxLookup, txnHash)
}

func WriteTxLookupEntry(tx kv.Putter, txnHash common.Hash, blockNumber uint64) error {
	return kv.Put(tx, kv.TxLookup, txnHash, blockNumber)
}

func ReadReceipts(tx kv.Getter, number uint64) (types.Receipts, bool, error) {
	return kv.Get(tx, kv.Receipts, number)
}

func WriteReceipts(tx kv.Putter, number uint64, receipts types.Receipts) error {
	return kv.Put(tx, kv.Receipts, number, receipts)
}

func ReadLogs(tx kv.Getter, number uint64, txIndex uint32) (types.Logs, bool, error) {
	return kv.Get(tx, kv.Logs, kv.LogKey{Number: number, TxIndex: txIndex})
}

func WriteLogs(tx kv.Putter, number uint64, txIndex uint32, logs types.Logs) error {
	return kv.Put(tx, kv.Logs, kv.LogKey{Number: number, TxIndex: txIndex}, logs)
}

// ReadIssuance returns the minted (or, with burnt, the burnt) wei of a
// block.
func ReadIssuance(tx kv.Getter, number uint64, burnt bool) (*uint256.Int, bool, error) {
	return kv.Get(tx, kv.Issuance, kv.IssuanceKey{Burnt: burnt, Number: number})
}

func WriteIssuance(tx kv.Putter, number uint64, burnt bool, amount *uint256.Int) error {
	return kv.Put(tx, kv.Issuance, kv.IssuanceKey{Burnt: burnt, Number: number}, amount)
}

// ReadSequence returns the next-to-allocate id of a table's sequence
// without advancing it.
func ReadSequence(tx kv.Getter, table string) (uint64, error) {
	v, _, err := kv.Get(tx, kv.Sequence, table)
	return v, err
}

// IncrementSequence reserves amount ids and returns the first of them.
func IncrementSequence(tx kv.Putter, table string, amount uint64) (uint64, error) {
	current, err := ReadSequence(tx, table)
	if err != nil {
		return 0, err
	}
	if err := kv.Put(tx, kv.Sequence, table, current+amount); err != nil {
		return 0, err
	}
	return current, nil
}
