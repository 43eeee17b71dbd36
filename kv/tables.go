package kv

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/erigondata/erigondb/core/types"
	"github.com/erigondata/erigondb/core/types/accounts"
)

// On-disk table names. These strings are the upstream chaindata schema and
// must never drift: the whole point of this layer is opening a database some
// other process wrote.
const (
	HeadersName          = "Header"                 // (block number, block hash) -> header
	HeaderNumbersName    = "HeaderNumber"           // block hash -> block number
	CanonicalHashesName  = "CanonicalHeader"        // block number -> canonical hash
	HeaderTDsName        = "HeadersTotalDifficulty" // (block number, block hash) -> total difficulty
	BlockBodiesName      = "BlockBody"              // (block number, block hash) -> body for storage
	EthTxName            = "BlockTransaction"       // tx id -> transaction
	TxLookupName         = "BlockTransactionLookup" // tx hash -> block number
	SendersName          = "TxSender"               // (block number, block hash) -> 20-byte addresses
	HeadBlockName        = "LastBlock"
	HeadHeaderName       = "LastHeader"
	PlainStateName       = "PlainState"       // address -> account | (address, incarnation) -> {slot, value} dups
	PlainCodeHashName    = "PlainCodeHash"    // (address, incarnation) -> code hash
	CodeName             = "Code"             // code hash -> bytecode
	HashedAccountsName   = "HashedAccount"    // keccak(address) -> account
	HashedStorageName    = "HashedStorage"    // (keccak(address), incarnation) -> {keccak(slot), value} dups
	HashedCodeHashName   = "HashedCodeHash"   // (keccak(address), incarnation) -> code hash
	IncarnationMapName   = "IncarnationMap"   // address -> last self-destructed incarnation
	AccountChangeSetName = "AccountChangeSet" // block number -> {address, pre-change account} dups
	StorageChangeSetName = "StorageChangeSet" // (block number, address, incarnation) -> {slot, pre-change value} dups
	AccountsHistoryName  = "AccountHistory"   // address + shard id -> roaring bitmap of change blocks
	StorageHistoryName   = "StorageHistory"   // address + slot + shard id -> roaring bitmap of change blocks
	ReceiptsName         = "Receipt"          // block number -> cbor receipts
	LogsName             = "TransactionLog"   // (block number, tx index) -> cbor logs
	SequenceName         = "Sequence"         // table name -> last allocated id
	IssuanceName         = "Issuance"         // "burnt"? + block number -> wei
)

// ChaindataTablesCfg enumerates every table of the schema with its flags.
// It exists so tooling can walk the catalog without knowing the typed
// declarations below.
var ChaindataTablesCfg = map[string]TableFlags{
	HeadersName:          Default,
	HeaderNumbersName:    Default,
	CanonicalHashesName:  Default,
	HeaderTDsName:        Default,
	BlockBodiesName:      Default,
	EthTxName:            Default,
	TxLookupName:         Default,
	SendersName:          Default,
	HeadBlockName:        Default,
	HeadHeaderName:       Default,
	PlainStateName:       DupSort,
	PlainCodeHashName:    Default,
	CodeName:             Default,
	HashedAccountsName:   Default,
	HashedStorageName:    DupSort,
	HashedCodeHashName:   Default,
	IncarnationMapName:   Default,
	AccountChangeSetName: DupSort,
	StorageChangeSetName: DupSort,
	AccountsHistoryName:  Default,
	StorageHistoryName:   Default,
	ReceiptsName:         Default,
	LogsName:             Default,
	SequenceName:         Default,
	IssuanceName:         Default,
}

// rlpCodec builds a codec for any rlp-encodable struct.
func rlpCodec[T any]() Codec[*T] {
	return Codec[*T]{
		Encode: func(v *T) ([]byte, error) { return rlp.EncodeToBytes(v) },
		Decode: func(b []byte) (*T, error) {
			v := new(T)
			if err := rlp.DecodeBytes(b, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// RlpU256 is an rlp-encoded 256-bit integer (total difficulty).
var RlpU256 = Codec[*uint256.Int]{
	Encode: func(i *uint256.Int) ([]byte, error) { return rlp.EncodeToBytes(i) },
	Decode: func(b []byte) (*uint256.Int, error) {
		i := new(uint256.Int)
		if err := rlp.DecodeBytes(b, i); err != nil {
			return nil, err
		}
		return i, nil
	},
}

// CompactU64 is a uint64 stored as its minimal big-endian bytes (tx lookup
// entries), unlike the fixed 8-byte keys.
var CompactU64 = Codec[uint64]{
	Encode: func(n uint64) ([]byte, error) {
		i := uint256.NewInt(n)
		return i.Bytes(), nil
	},
	Decode: func(b []byte) (uint64, error) {
		if len(b) > NumberLength {
			return 0, TooLongError{Max: NumberLength, Got: len(b)}
		}
		var n uint64
		for _, c := range b {
			n = n<<8 | uint64(c)
		}
		return n, nil
	},
}

var String = Codec[string]{
	Encode: func(s string) ([]byte, error) { return []byte(s), nil },
	Decode: func(b []byte) (string, error) { return string(b), nil },
}

// HeaderKey addresses header-shaped tables: block number then block hash,
// so keys sort by height.
type HeaderKey struct {
	Number uint64
	Hash   common.Hash
}

var HeaderKeyCodec = Codec[HeaderKey]{
	Encode: func(k HeaderKey) ([]byte, error) {
		b := make([]byte, NumberLength+HashLength)
		binary.BigEndian.PutUint64(b, k.Number)
		copy(b[NumberLength:], k.Hash[:])
		return b, nil
	},
	Decode: func(b []byte) (HeaderKey, error) {
		if len(b) != NumberLength+HashLength {
			return HeaderKey{}, InvalidLengthError{Expected: NumberLength + HashLength, Got: len(b)}
		}
		return HeaderKey{
			Number: binary.BigEndian.Uint64(b),
			Hash:   common.BytesToHash(b[NumberLength:]),
		}, nil
	},
}

// StorageKey is the plain-state storage prefix: address plus incarnation.
type StorageKey struct {
	Address     common.Address
	Incarnation uint64
}

var StorageKeyCodec = Codec[StorageKey]{
	Encode: func(k StorageKey) ([]byte, error) {
		b := make([]byte, AddrLength+IncarnationLength)
		copy(b, k.Address[:])
		binary.BigEndian.PutUint64(b[AddrLength:], k.Incarnation)
		return b, nil
	},
	Decode: func(b []byte) (StorageKey, error) {
		if len(b) != AddrLength+IncarnationLength {
			return StorageKey{}, InvalidLengthError{Expected: AddrLength + IncarnationLength, Got: len(b)}
		}
		return StorageKey{
			Address:     common.BytesToAddress(b[:AddrLength]),
			Incarnation: binary.BigEndian.Uint64(b[AddrLength:]),
		}, nil
	},
}

// HashedStorageKey is the hashed-state counterpart of StorageKey, also used
// to address code hashes by hashed address.
type HashedStorageKey struct {
	AddressHash common.Hash
	Incarnation uint64
}

var HashedStorageKeyCodec = Codec[HashedStorageKey]{
	Encode: func(k HashedStorageKey) ([]byte, error) {
		b := make([]byte, HashLength+IncarnationLength)
		copy(b, k.AddressHash[:])
		binary.BigEndian.PutUint64(b[HashLength:], k.Incarnation)
		return b, nil
	},
	Decode: func(b []byte) (HashedStorageKey, error) {
		if len(b) != HashLength+IncarnationLength {
			return HashedStorageKey{}, InvalidLengthError{Expected: HashLength + IncarnationLength, Got: len(b)}
		}
		return HashedStorageKey{
			AddressHash: common.BytesToHash(b[:HashLength]),
			Incarnation: binary.BigEndian.Uint64(b[HashLength:]),
		}, nil
	},
}

// StorageCSKey addresses the storage change-set: block number then the
// storage prefix of the changed contract.
type StorageCSKey struct {
	Number uint64
	K      StorageKey
}

var StorageCSKeyCodec = Codec[StorageCSKey]{
	Encode: func(k StorageCSKey) ([]byte, error) {
		prefix, err := StorageKeyCodec.Encode(k.K)
		if err != nil {
			return nil, err
		}
		b := make([]byte, NumberLength, NumberLength+len(prefix))
		binary.BigEndian.PutUint64(b, k.Number)
		return append(b, prefix...), nil
	},
	Decode: func(b []byte) (StorageCSKey, error) {
		if len(b) != NumberLength+AddrLength+IncarnationLength {
			return StorageCSKey{}, InvalidLengthError{Expected: NumberLength + AddrLength + IncarnationLength, Got: len(b)}
		}
		sk, err := StorageKeyCodec.Decode(b[NumberLength:])
		if err != nil {
			return StorageCSKey{}, err
		}
		return StorageCSKey{Number: binary.BigEndian.Uint64(b), K: sk}, nil
	},
}

// LogKey addresses stored logs: block number then transaction index.
type LogKey struct {
	Number  uint64
	TxIndex uint32
}

var LogKeyCodec = Codec[LogKey]{
	Encode: func(k LogKey) ([]byte, error) {
		b := make([]byte, NumberLength+4)
		binary.BigEndian.PutUint64(b, k.Number)
		binary.BigEndian.PutUint32(b[NumberLength:], k.TxIndex)
		return b, nil
	},
	Decode: func(b []byte) (LogKey, error) {
		if len(b) != NumberLength+4 {
			return LogKey{}, InvalidLengthError{Expected: NumberLength + 4, Got: len(b)}
		}
		return LogKey{
			Number:  binary.BigEndian.Uint64(b),
			TxIndex: binary.BigEndian.Uint32(b[NumberLength:]),
		}, nil
	},
}

// IssuanceKey selects between the minted and the burnt row of a block.
type IssuanceKey struct {
	Burnt  bool
	Number uint64
}

var issuanceBurntPrefix = []byte("burnt")

var IssuanceKeyCodec = Codec[IssuanceKey]{
	Encode: func(k IssuanceKey) ([]byte, error) {
		var b []byte
		if k.Burnt {
			b = append(b, issuanceBurntPrefix...)
		}
		return binary.BigEndian.AppendUint64(b, k.Number), nil
	},
	Decode: func(b []byte) (IssuanceKey, error) {
		burnt := false
		if len(b) == len(issuanceBurntPrefix)+NumberLength {
			burnt = true
			b = b[len(issuanceBurntPrefix):]
		}
		if len(b) != NumberLength {
			return IssuanceKey{}, InvalidLengthError{Expected: NumberLength, Got: len(b)}
		}
		return IssuanceKey{Burnt: burnt, Number: binary.BigEndian.Uint64(b)}, nil
	},
}

// StorageEntry is one duplicate of a storage table: slot hash followed by
// the value's minimal big-endian bytes.
type StorageEntry struct {
	Location common.Hash
	Value    uint256.Int
}

var StorageEntryCodec = Codec[StorageEntry]{
	Encode: func(e StorageEntry) ([]byte, error) {
		b := make([]byte, 0, HashLength+e.Value.ByteLen())
		b = append(b, e.Location[:]...)
		return append(b, e.Value.Bytes()...), nil
	},
	Decode: func(b []byte) (StorageEntry, error) {
		if len(b) < HashLength {
			return StorageEntry{}, TooShortError{Min: HashLength, Got: len(b)}
		}
		if len(b) > 2*HashLength {
			return StorageEntry{}, TooLongError{Max: 2 * HashLength, Got: len(b)}
		}
		var e StorageEntry
		copy(e.Location[:], b[:HashLength])
		e.Value.SetBytes(b[HashLength:])
		return e, nil
	},
}

// AccountChange is one duplicate of the account change-set: the changed
// address followed by the account's pre-change storage encoding (empty for
// accounts that did not exist before the block).
type AccountChange struct {
	Address common.Address
	Account []byte
}

var AccountChangeCodec = Codec[AccountChange]{
	Encode: func(c AccountChange) ([]byte, error) {
		b := make([]byte, 0, AddrLength+len(c.Account))
		b = append(b, c.Address[:]...)
		return append(b, c.Account...), nil
	},
	Decode: func(b []byte) (AccountChange, error) {
		if len(b) < AddrLength {
			return AccountChange{}, TooShortError{Min: AddrLength, Got: len(b)}
		}
		var c AccountChange
		copy(c.Address[:], b[:AddrLength])
		c.Account = make([]byte, len(b)-AddrLength)
		copy(c.Account, b[AddrLength:])
		return c, nil
	},
}

// StorageChange is one duplicate of the storage change-set: slot hash
// followed by the pre-change value (empty when the slot was unset).
type StorageChange struct {
	Location common.Hash
	Value    []byte
}

var StorageChangeCodec = Codec[StorageChange]{
	Encode: func(c StorageChange) ([]byte, error) {
		b := make([]byte, 0, HashLength+len(c.Value))
		b = append(b, c.Location[:]...)
		return append(b, c.Value...), nil
	},
	Decode: func(b []byte) (StorageChange, error) {
		if len(b) < HashLength {
			return StorageChange{}, TooShortError{Min: HashLength, Got: len(b)}
		}
		var c StorageChange
		copy(c.Location[:], b[:HashLength])
		c.Value = make([]byte, len(b)-HashLength)
		copy(c.Value, b[HashLength:])
		return c, nil
	},
}

var AccountCodec = Codec[*accounts.Account]{
	Encode: func(a *accounts.Account) ([]byte, error) { return a.EncodeForStorage(), nil },
	Decode: func(b []byte) (*accounts.Account, error) {
		a := new(accounts.Account)
		if err := a.DecodeForStorage(b); err != nil {
			return nil, err
		}
		return a, nil
	},
}

var TransactionCodec = Codec[types.Transaction]{
	Encode: types.EncodeTransaction,
	Decode: types.DecodeTransaction,
}

// The typed catalog. Two declarations share the PlainState physical table:
// PlainState reads 20-byte account rows, PlainStorage reads 28-byte
// storage-prefix rows with dup-sorted {slot, value} entries. Keys of the two
// families never collide because their lengths differ.
var (
	Headers         = Table[HeaderKey, *types.Header]{Name: HeadersName, Key: HeaderKeyCodec, Value: rlpCodec[types.Header]()}
	HeaderNumbers   = Table[common.Hash, uint64]{Name: HeaderNumbersName, Key: Hash, Value: U64}
	CanonicalHashes = Table[uint64, common.Hash]{Name: CanonicalHashesName, Key: U64, Value: Hash}
	HeaderTDs       = Table[HeaderKey, *uint256.Int]{Name: HeaderTDsName, Key: HeaderKeyCodec, Value: RlpU256}
	BlockBodies     = Table[HeaderKey, *types.BodyForStorage]{Name: BlockBodiesName, Key: HeaderKeyCodec, Value: rlpCodec[types.BodyForStorage]()}
	EthTx           = Table[uint64, types.Transaction]{Name: EthTxName, Key: U64, Value: TransactionCodec}
	TxLookup        = Table[common.Hash, uint64]{Name: TxLookupName, Key: Hash, Value: CompactU64}
	Senders         = Table[HeaderKey, []common.Address]{Name: SendersName, Key: HeaderKeyCodec, Value: SendersCodec}
	HeadBlockHash   = Table[Sentinel, common.Hash]{Name: HeadBlockName, Key: ConstKey(HeadBlockName), Value: Hash}
	HeadHeaderHash  = Table[Sentinel, common.Hash]{Name: HeadHeaderName, Key: ConstKey(HeadHeaderName), Value: Hash}

	PlainState = Table[common.Address, *accounts.Account]{Name: PlainStateName, Flags: DupSort, Key: Address, Value: AccountCodec}

	PlainStorage = DupTable[StorageKey, common.Hash, StorageEntry]{
		Table:  Table[StorageKey, StorageEntry]{Name: PlainStateName, Flags: DupSort, Key: StorageKeyCodec, Value: StorageEntryCodec},
		Subkey: Hash,
	}

	PlainCodeHash  = Table[StorageKey, common.Hash]{Name: PlainCodeHashName, Key: StorageKeyCodec, Value: Hash}
	Code           = Table[common.Hash, []byte]{Name: CodeName, Key: Hash, Value: Bytes}
	HashedAccounts = Table[common.Hash, *accounts.Account]{Name: HashedAccountsName, Key: Hash, Value: AccountCodec}

	HashedStorage = DupTable[HashedStorageKey, common.Hash, StorageEntry]{
		Table:  Table[HashedStorageKey, StorageEntry]{Name: HashedStorageName, Flags: DupSort, Key: HashedStorageKeyCodec, Value: StorageEntryCodec},
		Subkey: Hash,
	}

	HashedCodeHash = Table[HashedStorageKey, common.Hash]{Name: HashedCodeHashName, Key: HashedStorageKeyCodec, Value: Hash}
	IncarnationMap = Table[common.Address, uint64]{Name: IncarnationMapName, Key: Address, Value: U64}

	AccountChangeSet = DupTable[uint64, common.Address, AccountChange]{
		Table:  Table[uint64, AccountChange]{Name: AccountChangeSetName, Flags: DupSort, Key: U64, Value: AccountChangeCodec},
		Subkey: Address,
	}

	StorageChangeSet = DupTable[StorageCSKey, common.Hash, StorageChange]{
		Table:  Table[StorageCSKey, StorageChange]{Name: StorageChangeSetName, Flags: DupSort, Key: StorageCSKeyCodec, Value: StorageChangeCodec},
		Subkey: Hash,
	}

	// History index chunk keys are variable length (key material + shard
	// id), so they stay raw here; bitmapdb and the chunk-key builders own
	// their structure.
	AccountsHistory = Table[[]byte, []byte]{Name: AccountsHistoryName, Key: Bytes, Value: Bytes}
	StorageHistory  = Table[[]byte, []byte]{Name: StorageHistoryName, Key: Bytes, Value: Bytes}

	Receipts = Table[uint64, types.Receipts]{Name: ReceiptsName, Key: U64, Value: Codec[types.Receipts]{Encode: types.EncodeReceipts, Decode: types.DecodeReceipts}}
	Logs     = Table[LogKey, types.Logs]{Name: LogsName, Key: LogKeyCodec, Value: Codec[types.Logs]{Encode: types.EncodeLogs, Decode: types.DecodeLogs}}

	Sequence = Table[string, uint64]{Name: SequenceName, Key: String, Value: U64}
	Issuance = Table[IssuanceKey, *uint256.Int]{Name: IssuanceName, Key: IssuanceKeyCodec, Value: U256}
)
