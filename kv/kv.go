package kv

import "fmt"

type TableFlags uint

const (
	Default TableFlags = 0x00
	DupSort TableFlags = 0x04
)

// Table is a compile-time binding of a table name, its key type, its value
// type and its duplicate-key policy. Every read and write goes through
// exactly one Table, so bytes written under one table's schema can never be
// decoded under another's.
type Table[K, V any] struct {
	Name  string
	Flags TableFlags
	Key   Codec[K]
	Value Codec[V]
}

// DupTable is a Table whose logical key maps to several values, ordered by a
// subkey stored as a fixed-width prefix of the value. The catalog records the
// subkey codec so cursor operations can split stored bytes without every
// caller repeating the convention.
type DupTable[K, SK, V any] struct {
	Table[K, V]
	Subkey Codec[SK]
}

// Getter is the read-only capability of a transaction. Write methods are not
// part of it, so writing through a read-only transaction is a compile-time
// type error, not a runtime surprise.
type Getter interface {
	getOne(table string, flags TableFlags, k []byte) ([]byte, error)
	rawCursor(table string, flags TableFlags) (*rawCursor, error)
}

// Putter is the read-write capability. Only *RwTx implements it.
type Putter interface {
	Getter
	put(table string, flags TableFlags, k, v []byte) error
	del(table string, flags TableFlags, k []byte) error
}

// Get performs an exact-match lookup. Absent keys are an ordinary negative
// result; a value that exists but fails to decode is an error.
func Get[K, V any](tx Getter, t Table[K, V], k K) (V, bool, error) {
	var zero V
	ek, err := t.Key.Encode(k)
	if err != nil {
		return zero, false, err
	}
	data, err := tx.getOne(t.Name, t.Flags, ek)
	if err != nil {
		return zero, false, err
	}
	if data == nil {
		return zero, false, nil
	}
	v, err := t.Value.Decode(data)
	if err != nil {
		return zero, false, fmt.Errorf("decode %s value: %w", t.Name, err)
	}
	return v, true, nil
}

// Put upserts, overwriting an existing value under the same key.
func Put[K, V any](tx Putter, t Table[K, V], k K, v V) error {
	ek, err := t.Key.Encode(k)
	if err != nil {
		return err
	}
	ev, err := t.Value.Encode(v)
	if err != nil {
		return err
	}
	return tx.put(t.Name, t.Flags, ek, ev)
}

// Delete removes the entry at k. Deleting an absent key is a no-op.
func Delete[K, V any](tx Putter, t Table[K, V], k K) error {
	ek, err := t.Key.Encode(k)
	if err != nil {
		return err
	}
	return tx.del(t.Name, t.Flags, ek)
}

// Cursor is a positionable iterator over one table. It must not outlive its
// parent transaction.
type Cursor[K, V any] struct {
	t Table[K, V]
	c *rawCursor
}

func NewCursor[K, V any](tx Getter, t Table[K, V]) (*Cursor[K, V], error) {
	c, err := tx.rawCursor(t.Name, t.Flags)
	if err != nil {
		return nil, err
	}
	return &Cursor[K, V]{t: t, c: c}, nil
}

func (c *Cursor[K, V]) Close() { c.c.Close() }

func (c *Cursor[K, V]) decodePair(k, v []byte) (K, V, bool, error) {
	var zk K
	var zv V
	if k == nil {
		return zk, zv, false, nil
	}
	dk, err := c.t.Key.Decode(k)
	if err != nil {
		return zk, zv, false, fmt.Errorf("decode %s key: %w", c.t.Name, err)
	}
	dv, err := c.t.Value.Decode(v)
	if err != nil {
		return zk, zv, false, fmt.Errorf("decode %s value: %w", c.t.Name, err)
	}
	return dk, dv, true, nil
}

// Seek positions the cursor at the first entry with key >= seek in
// lexicographic byte order.
func (c *Cursor[K, V]) Seek(seek K) (K, V, bool, error) {
	var zk K
	var zv V
	ek, err := c.t.Key.Encode(seek)
	if err != nil {
		return zk, zv, false, err
	}
	k, v, err := c.c.seek(ek)
	if err != nil {
		return zk, zv, false, err
	}
	return c.decodePair(k, v)
}

func (c *Cursor[K, V]) First() (K, V, bool, error) {
	k, v, err := c.c.first()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	return c.decodePair(k, v)
}

func (c *Cursor[K, V]) Next() (K, V, bool, error) {
	k, v, err := c.c.next()
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	return c.decodePair(k, v)
}

// Walk returns a forward walker positioned before the first entry with
// key >= start. Iteration is consumer-driven and can be abandoned at any
// point; restarting requires a new cursor.
func (c *Cursor[K, V]) Walk(start K) *Walker[K, V] {
	return &Walker[K, V]{c: c, start: start}
}

type walkState uint8

const (
	walkBeforeFirst walkState = iota
	walkPositioned
	walkExhausted
)

// Walker is an explicit cursor state machine: before-first, positioned,
// exhausted.
type Walker[K, V any] struct {
	c     *Cursor[K, V]
	start K
	state walkState
}

func (w *Walker[K, V]) Next() (K, V, bool, error) {
	var zk K
	var zv V
	var k K
	var v V
	var ok bool
	var err error
	switch w.state {
	case walkBeforeFirst:
		k, v, ok, err = w.c.Seek(w.start)
	case walkPositioned:
		k, v, ok, err = w.c.Next()
	case walkExhausted:
		return zk, zv, false, nil
	}
	if err != nil {
		w.state = walkExhausted
		return zk, zv, false, err
	}
	if !ok {
		w.state = walkExhausted
		return zk, zv, false, nil
	}
	w.state = walkPositioned
	return k, v, true, nil
}

// DupCursor adds duplicate-aware positioning on a dup-sorted table.
type DupCursor[K, SK, V any] struct {
	t DupTable[K, SK, V]
	c *rawCursor
}

func NewDupCursor[K, SK, V any](tx Getter, t DupTable[K, SK, V]) (*DupCursor[K, SK, V], error) {
	c, err := tx.rawCursor(t.Name, t.Flags)
	if err != nil {
		return nil, err
	}
	return &DupCursor[K, SK, V]{t: t, c: c}, nil
}

func (c *DupCursor[K, SK, V]) Close() { c.c.Close() }

// SeekBothRange finds key, then the first duplicate at that key whose
// value-prefix >= subkey. The returned value still includes the subkey
// prefix: callers must verify the prefix equals the requested subkey, since
// a range overshoot means the exact entry is absent.
func (c *DupCursor[K, SK, V]) SeekBothRange(k K, subkey SK) (V, bool, error) {
	var zv V
	ek, err := c.t.Key.Encode(k)
	if err != nil {
		return zv, false, err
	}
	esub, err := c.t.Subkey.Encode(subkey)
	if err != nil {
		return zv, false, err
	}
	v, err := c.c.getBothRange(ek, esub)
	if err != nil {
		return zv, false, err
	}
	if v == nil {
		return zv, false, nil
	}
	dv, err := c.t.Value.Decode(v)
	if err != nil {
		return zv, false, fmt.Errorf("decode %s value: %w", c.t.Name, err)
	}
	return dv, true, nil
}

// NextDup advances within the current key's duplicate run only.
func (c *DupCursor[K, SK, V]) NextDup() (K, V, bool, error) {
	var zk K
	var zv V
	k, v, err := c.c.nextDup()
	if err != nil {
		return zk, zv, false, err
	}
	if k == nil {
		return zk, zv, false, nil
	}
	dk, err := c.t.Key.Decode(k)
	if err != nil {
		return zk, zv, false, fmt.Errorf("decode %s key: %w", c.t.Name, err)
	}
	dv, err := c.t.Value.Decode(v)
	if err != nil {
		return zk, zv, false, fmt.Errorf("decode %s value: %w", c.t.Name, err)
	}
	return dk, dv, true, nil
}

// WalkDup returns a walker over all duplicates stored at start. It stops at
// the key boundary and never spills into the next key.
func (c *DupCursor[K, SK, V]) WalkDup(start K) *DupWalker[K, SK, V] {
	return &DupWalker[K, SK, V]{c: c, start: start}
}

type DupWalker[K, SK, V any] struct {
	c     *DupCursor[K, SK, V]
	start K
	state walkState
}

func (w *DupWalker[K, SK, V]) Next() (V, bool, error) {
	var zv V
	switch w.state {
	case walkBeforeFirst:
		ek, err := w.c.t.Key.Encode(w.start)
		if err != nil {
			w.state = walkExhausted
			return zv, false, err
		}
		v, err := w.c.c.set(ek)
		if err != nil {
			w.state = walkExhausted
			return zv, false, err
		}
		if v == nil {
			w.state = walkExhausted
			return zv, false, nil
		}
		w.state = walkPositioned
		dv, err := w.c.t.Value.Decode(v)
		if err != nil {
			w.state = walkExhausted
			return zv, false, fmt.Errorf("decode %s value: %w", w.c.t.Name, err)
		}
		return dv, true, nil
	case walkPositioned:
		_, v, ok, err := w.c.NextDup()
		if err != nil || !ok {
			w.state = walkExhausted
			return zv, false, err
		}
		return v, true, nil
	default:
		return zv, false, nil
	}
}
