// Package memtx is a small in-memory transactional store used by the memory
// repositories (dev mode and tests).
//
// A DB serialises every transaction behind one mutex and snapshots all of its
// registered tables when a transaction (or a nested savepoint) starts; an error
// returned from the transaction function restores the snapshot.
package memtx

import (
	"context"
	"maps"
	"sync"
)

type snapshotter interface {
	snapshot() (restore func())
}

type DB struct {
	mu     sync.Mutex
	tables []snapshotter
}

type txKey struct{ db *DB }

func New() *DB {
	return &DB{}
}

func (db *DB) register(t snapshotter) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = append(db.tables, t)
}

func (db *DB) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{db}) != nil
}

func (db *DB) snapshot() func() {
	restores := make([]func(), 0, len(db.tables))
	for _, t := range db.tables {
		restores = append(restores, t.snapshot())
	}
	return func() {
		for _, r := range restores {
			r()
		}
	}
}

// WithinTx runs fn atomically. Called from inside another WithinTx on the same
// DB it behaves like a savepoint: only fn's own writes are undone on error.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		restore := db.snapshot()
		if err := fn(ctx); err != nil {
			restore()
			return err
		}
		return nil
	}

	db.mu.Lock()
	restore := db.snapshot()
	committed := false
	defer func() {
		if !committed {
			restore()
		}
		db.mu.Unlock()
	}()

	if err := fn(context.WithValue(ctx, txKey{db}, struct{}{})); err != nil {
		return err
	}
	committed = true
	return nil
}

// View runs fn under the DB lock, or directly when ctx already holds it.
func (db *DB) View(ctx context.Context, fn func()) {
	if db.inTx(ctx) {
		fn()
		return
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

// Table is a keyed collection. Values are copied in and out with clone so
// callers never alias stored rows.
type Table[K comparable, V any] struct {
	rows  map[K]V
	clone func(V) V
}

func NewTable[K comparable, V any](db *DB, clone func(V) V) *Table[K, V] {
	t := &Table[K, V]{rows: make(map[K]V), clone: clone}
	db.register(t)
	return t
}

func (t *Table[K, V]) copy(v V) V {
	if t.clone == nil {
		return v
	}
	return t.clone(v)
}

func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.rows[k]
	if !ok {
		var zero V
		return zero, false
	}
	return t.copy(v), true
}

func (t *Table[K, V]) Put(k K, v V) {
	t.rows[k] = t.copy(v)
}

func (t *Table[K, V]) Delete(k K) {
	delete(t.rows, k)
}

func (t *Table[K, V]) Len() int {
	return len(t.rows)
}

// Scan visits every row in unspecified order until fn returns false.
func (t *Table[K, V]) Scan(fn func(K, V) bool) {
	for k, v := range t.rows {
		if !fn(k, t.copy(v)) {
			return
		}
	}
}

func (t *Table[K, V]) snapshot() func() {
	saved := maps.Clone(t.rows)
	return func() { t.rows = saved }
}

// Log is an append-only sequence.
type Log[V any] struct {
	rows []V
}

func NewLog[V any](db *DB) *Log[V] {
	l := &Log[V]{}
	db.register(l)
	return l
}

// Append stores v and returns its 1-based position.
func (l *Log[V]) Append(v V) int64 {
	l.rows = append(l.rows, v)
	return int64(len(l.rows))
}

func (l *Log[V]) Len() int {
	return len(l.rows)
}

func (l *Log[V]) Scan(fn func(V) bool) {
	for _, v := range l.rows {
		if !fn(v) {
			return
		}
	}
}

func (l *Log[V]) snapshot() func() {
	n := len(l.rows)
	return func() { l.rows = l.rows[:n] }
}

// Sequence hands out increasing ids; rolled back with the transaction.
type Sequence struct {
	n int64
}

func NewSequence(db *DB) *Sequence {
	s := &Sequence{}
	db.register(s)
	return s
}

func (s *Sequence) Next() int64 {
	s.n++
	return s.n
}

func (s *Sequence) snapshot() func() {
	saved := s.n
	return func() { s.n = saved }
}
