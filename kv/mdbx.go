package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/c2h5oh/datasize"
	"github.com/torquem-ch/mdbx-go/mdbx"
	"github.com/ledgerwatch/log/v3"
)

// Label distinguishes db instances when one process opens several.
type Label string

const (
	ChainDB Label = "chaindata"
	TestDB  Label = "test"
)

const ReadersLimit = 32000

// MdbxOpts is a builder for env options. Zero value is not usable, start
// from NewMDBX.
type MdbxOpts struct {
	path    string
	inMem   bool
	label   Label
	mapSize datasize.ByteSize
	flags   uint
	log     log.Logger
}

func NewMDBX(logger log.Logger) MdbxOpts {
	return MdbxOpts{
		label: ChainDB,
		flags: mdbx.NoReadahead | mdbx.Coalesce | mdbx.Durable,
		log:   logger,
	}
}

func (opts MdbxOpts) Path(path string) MdbxOpts {
	opts.path = path
	return opts
}

// InMem backs the env with a throwaway temp directory, removed on Close.
func (opts MdbxOpts) InMem() MdbxOpts {
	opts.inMem = true
	opts.label = TestDB
	return opts
}

func (opts MdbxOpts) Label(label Label) MdbxOpts {
	opts.label = label
	return opts
}

func (opts MdbxOpts) MapSize(sz datasize.ByteSize) MdbxOpts {
	opts.mapSize = sz
	return opts
}

func (opts MdbxOpts) Readonly() MdbxOpts {
	opts.flags = opts.flags | mdbx.Readonly
	return opts
}

func (opts MdbxOpts) Exclusive() MdbxOpts {
	opts.flags = opts.flags | mdbx.Exclusive
	return opts
}

// Accede opens an already-existing env with whatever flags it was created
// with. This is the right mode for attaching to a live node's chaindata.
func (opts MdbxOpts) Accede() MdbxOpts {
	opts.flags = opts.flags | mdbx.Accede
	return opts
}

func (opts MdbxOpts) Flags(f func(uint) uint) MdbxOpts {
	opts.flags = f(opts.flags)
	return opts
}

// MdbxKV is an open environment. One process-wide writer, many readers.
type MdbxKV struct {
	opts MdbxOpts
	env  *mdbx.Env
	log  log.Logger
}

func (opts MdbxOpts) Open() (*MdbxKV, error) {
	if opts.inMem {
		tmp, err := os.MkdirTemp("", "erigondb-memdb-")
		if err != nil {
			return nil, err
		}
		opts.path = tmp
		if opts.mapSize == 0 {
			opts.mapSize = 512 * datasize.MB
		}
	}
	if opts.mapSize == 0 {
		opts.mapSize = 2 * datasize.TB
	}
	logger := opts.log.New("db", opts.label, "path", filepath.Base(opts.path))

	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, err
	}
	if err = env.SetOption(mdbx.OptMaxDB, 100); err != nil {
		return nil, err
	}
	if err = env.SetOption(mdbx.OptMaxReaders, ReadersLimit); err != nil {
		return nil, err
	}

	if opts.flags&mdbx.Accede == 0 {
		if err = os.MkdirAll(opts.path, 0744); err != nil {
			return nil, fmt.Errorf("could not create dir: %s, %w", opts.path, err)
		}
		if err = env.SetGeometry(-1, -1, int(opts.mapSize), int(2*datasize.GB), -1, 4*1024); err != nil {
			return nil, err
		}
	}

	if err = env.Open(opts.path, opts.flags, 0664); err != nil {
		return nil, fmt.Errorf("%w, path: %s", err, opts.path)
	}
	logger.Trace("mdbx env open", "flags", opts.flags)
	return &MdbxKV{opts: opts, env: env, log: logger}, nil
}

// MustOpen is Open for test setup and main() wiring.
func (opts MdbxOpts) MustOpen() *MdbxKV {
	db, err := opts.Open()
	if err != nil {
		panic(fmt.Errorf("fail to open mdbx: %w", err))
	}
	return db
}

func (db *MdbxKV) ReadOnly() bool { return db.opts.flags&mdbx.Readonly != 0 }

func (db *MdbxKV) Close() {
	if db.env == nil {
		return
	}
	db.env.Close()
	db.env = nil
	if db.opts.inMem {
		if err := os.RemoveAll(db.opts.path); err != nil {
			db.log.Warn("failed to remove in-mem db dir", "err", err)
		}
	}
}

// BeginRo starts a read-only transaction. The caller must Rollback it, even
// on the success path.
func (db *MdbxKV) BeginRo(ctx context.Context) (*Tx, error) {
	if db.env == nil {
		return nil, fmt.Errorf("db closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	tx, err := db.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, err
	}
	tx.RawRead = true
	return &Tx{db: db, tx: tx, readOnly: true}, nil
}

// BeginRw starts the write transaction. mdbx write txns are bound to their
// OS thread until commit or rollback.
func (db *MdbxKV) BeginRw(ctx context.Context) (*RwTx, error) {
	if db.env == nil {
		return nil, fmt.Errorf("db closed")
	}
	if db.ReadOnly() {
		return nil, fmt.Errorf("db opened read-only")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	runtime.LockOSThread()
	tx, err := db.env.BeginTxn(nil, 0)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	tx.RawRead = true
	return &RwTx{Tx{db: db, tx: tx, readOnly: false}}, nil
}

// View runs f inside a read-only transaction.
func (db *MdbxKV) View(ctx context.Context, f func(tx *Tx) error) error {
	tx, err := db.BeginRo(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

// Update runs f inside a write transaction and commits on success.
func (db *MdbxKV) Update(ctx context.Context, f func(tx *RwTx) error) error {
	tx, err := db.BeginRw(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx is a read-only transaction. It satisfies Getter only; the write methods
// live on RwTx.
type Tx struct {
	db       *MdbxKV
	tx       *mdbx.Txn
	dbis     map[string]mdbx.DBI
	readOnly bool
}

// RwTx is the (single) write transaction. Embedding keeps every read method
// available on it.
type RwTx struct {
	Tx
}

var (
	_ Getter = (*Tx)(nil)
	_ Putter = (*RwTx)(nil)
)

// dbiAbsent marks a table that does not exist yet in a read-only txn: every
// read against it is an ordinary miss.
const dbiAbsent = mdbx.DBI(999_999_999)

func nativeFlags(flags TableFlags) uint {
	nf := uint(0)
	if flags&DupSort != 0 {
		nf |= mdbx.DupSort
	}
	return nf
}

func (tx *Tx) dbi(table string, flags TableFlags) (mdbx.DBI, error) {
	if dbi, ok := tx.dbis[table]; ok {
		return dbi, nil
	}
	var dbi mdbx.DBI
	var err error
	if tx.readOnly {
		dbi, err = tx.tx.OpenDBI(table, mdbx.DBAccede, nil, nil)
		if err != nil {
			if mdbx.IsNotFound(err) {
				dbi = dbiAbsent
			} else {
				return 0, fmt.Errorf("open dbi %s: %w", table, err)
			}
		}
	} else {
		dbi, err = tx.tx.OpenDBI(table, nativeFlags(flags)|mdbx.Create, nil, nil)
		if err != nil {
			return 0, fmt.Errorf("create dbi %s: %w", table, err)
		}
	}
	if tx.dbis == nil {
		tx.dbis = make(map[string]mdbx.DBI)
	}
	tx.dbis[table] = dbi
	return dbi, nil
}

func (tx *Tx) getOne(table string, flags TableFlags, k []byte) ([]byte, error) {
	dbi, err := tx.dbi(table, flags)
	if err != nil {
		return nil, err
	}
	if dbi == dbiAbsent {
		return nil, nil
	}
	v, err := tx.tx.Get(dbi, k)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (tx *Tx) rawCursor(table string, flags TableFlags) (*rawCursor, error) {
	dbi, err := tx.dbi(table, flags)
	if err != nil {
		return nil, err
	}
	if dbi == dbiAbsent {
		return &rawCursor{}, nil
	}
	c, err := tx.tx.OpenCursor(dbi)
	if err != nil {
		return nil, fmt.Errorf("open cursor on %s: %w", table, err)
	}
	return &rawCursor{c: c}, nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (tx *Tx) Rollback() {
	if tx.tx == nil {
		return
	}
	tx.tx.Abort()
	tx.tx = nil
	if !tx.readOnly {
		runtime.UnlockOSThread()
	}
}

func (tx *RwTx) put(table string, flags TableFlags, k, v []byte) error {
	dbi, err := tx.dbi(table, flags)
	if err != nil {
		return err
	}
	return tx.tx.Put(dbi, k, v, 0)
}

func (tx *RwTx) del(table string, flags TableFlags, k []byte) error {
	dbi, err := tx.dbi(table, flags)
	if err != nil {
		return err
	}
	err = tx.tx.Del(dbi, k, nil)
	if err != nil && !mdbx.IsNotFound(err) {
		return err
	}
	return nil
}

func (tx *RwTx) Commit() error {
	if tx.tx == nil {
		return fmt.Errorf("tx already finished")
	}
	latency, err := tx.tx.Commit()
	tx.tx = nil
	runtime.UnlockOSThread()
	if err != nil {
		return err
	}
	tx.db.log.Trace("commit", "write", latency.Write, "sync", latency.Sync)
	return nil
}

// rawCursor wraps an mdbx cursor, mapping not-found to nil results so the
// typed layer above never sees the engine's sentinel error. A zero rawCursor
// stands in for a cursor over an absent table.
type rawCursor struct {
	c *mdbx.Cursor
}

func (c *rawCursor) Close() {
	if c.c != nil {
		c.c.Close()
		c.c = nil
	}
}

func (c *rawCursor) get(k, v []byte, op uint) ([]byte, []byte, error) {
	if c.c == nil {
		return nil, nil, nil
	}
	rk, rv, err := c.c.Get(k, v, op)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return rk, rv, nil
}

func (c *rawCursor) first() ([]byte, []byte, error) { return c.get(nil, nil, mdbx.First) }
func (c *rawCursor) next() ([]byte, []byte, error)  { return c.get(nil, nil, mdbx.Next) }
func (c *rawCursor) seek(k []byte) ([]byte, []byte, error) {
	return c.get(k, nil, mdbx.SetRange)
}

// set positions at an exact key and returns its (first) value.
func (c *rawCursor) set(k []byte) ([]byte, error) {
	_, v, err := c.get(k, nil, mdbx.Set)
	return v, err
}

// getBothRange returns the first duplicate at k whose value >= v, or nil.
func (c *rawCursor) getBothRange(k, v []byte) ([]byte, error) {
	if c.c == nil {
		return nil, nil
	}
	_, rv, err := c.c.Get(k, v, mdbx.GetBothRange)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return rv, nil
}

func (c *rawCursor) nextDup() ([]byte, []byte, error) { return c.get(nil, nil, mdbx.NextDup) }
