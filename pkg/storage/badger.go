package storage

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// BadgerOptions configures the BadgerDB-backed Engine.
type BadgerOptions struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode. Useful for tests; data
	// is not persisted.
	InMemory bool

	// SyncWrites forces fsync after every write. Durability is deferred
	// to engine policy by default (spec.md §4.2): leave this false unless
	// the deployment needs crash-safety on every mutation.
	SyncWrites bool

	// BlockCacheMB sizes Badger's block cache, backing the process-wide
	// LRU the storage adapter shares across all reads (spec.md §4.2 calls
	// this tunable; the reference C implementation fixes it at 512 MiB).
	// 0 selects a small default suitable for an embedded deployment.
	BlockCacheMB int

	// IndexCacheMB sizes Badger's table-index cache.
	IndexCacheMB int

	// Logger receives BadgerDB's internal log output. Defaults to a
	// logger that discards everything.
	Logger badger.Logger
}

func (o BadgerOptions) blockCacheBytes() int64 {
	if o.BlockCacheMB <= 0 {
		return 64 << 20
	}
	return int64(o.BlockCacheMB) << 20
}

func (o BadgerOptions) indexCacheBytes() int64 {
	if o.IndexCacheMB <= 0 {
		return 16 << 20
	}
	return int64(o.IndexCacheMB) << 20
}

// BadgerEngine is the persistent Engine implementation backing production
// gqlite databases. It is safe for concurrent use by multiple readers; the
// single-writer assumption spec.md §5 describes is enforced by callers, not
// by this type.
type BadgerEngine struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// NewBadgerEngine opens (or creates) a persistent database at dataDir with
// default tuning.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerEngineInMemory opens an in-memory BadgerDB, for tests that want
// persistence semantics (transactions, LSM compaction) without touching
// disk.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	return NewBadgerEngineWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerEngineWithOptions opens a database with explicit tuning.
func NewBadgerEngineWithOptions(opts BadgerOptions) (*BadgerEngine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithSyncWrites(opts.SyncWrites)

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// The key families in pkg/graph share a fixed one-byte tag prefix
	// (N/L/O/I); Badger's bloom filters and block prefetch already
	// operate per SSTable, and the tag byte keeps each family's blocks
	// from interleaving on disk, mirroring the reference implementation's
	// rocksdb_slicetransform_create_fixed_prefix(1).
	badgerOpts = badgerOpts.
		WithBlockCacheSize(opts.blockCacheBytes()).
		WithIndexCacheSize(opts.indexCacheBytes()).
		WithCompression(options.ZSTD)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("storage: opening badger database at %q: %w", opts.DataDir, err)
	}

	return &BadgerEngine{db: db}, nil
}

func (b *BadgerEngine) Put(key, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append([]byte(nil), key...), append([]byte(nil), value...))
	})
	if err != nil {
		logger.Printf("storage: put failed: %v", err)
		return fmt.Errorf("storage: put: %w", err)
	}
	return nil
}

func (b *BadgerEngine) Get(key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Printf("storage: get failed: %v", err)
		return nil, fmt.Errorf("storage: get: %w", err)
	}
	return value, nil
}

func (b *BadgerEngine) Delete(key []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		logger.Printf("storage: delete failed: %v", err)
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

// Iterator returns a snapshotted prefix scan. The snapshot is the Badger
// read transaction opened when Iterator is called; entries written after
// that point are not observed, matching spec.md §4.2's "snapshotted reads."
func (b *BadgerEngine) Iterator(prefix []byte) Iterator {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return &badgerIterator{err: ErrClosed}
	}

	txn := b.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	prefixCopy := append([]byte(nil), prefix...)
	it.Seek(prefixCopy)

	return &badgerIterator{txn: txn, it: it, prefix: prefixCopy, first: true}
}

func (b *BadgerEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// Sync forces a sync of all pending writes to disk.
func (b *BadgerEngine) Sync() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return b.db.Sync()
}

// RunGC reclaims space in the value log. Safe to call periodically from a
// long-running process.
func (b *BadgerEngine) RunGC() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		return err
	}
	return nil
}

type badgerIterator struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte
	first  bool
	key    []byte
	value  []byte
	err    error
}

func (i *badgerIterator) Next() bool {
	if i.err != nil || i.it == nil {
		return false
	}
	if !i.first {
		i.it.Next()
	}
	i.first = false
	if !i.it.ValidForPrefix(i.prefix) {
		return false
	}
	item := i.it.Item()
	i.key = append(i.key[:0], item.Key()...)
	val, err := item.ValueCopy(nil)
	if err != nil {
		i.err = err
		return false
	}
	i.value = val
	return true
}

func (i *badgerIterator) Key() []byte   { return i.key }
func (i *badgerIterator) Value() []byte { return i.value }
func (i *badgerIterator) Err() error    { return i.err }

func (i *badgerIterator) Close() {
	if i.it != nil {
		i.it.Close()
	}
	if i.txn != nil {
		i.txn.Discard()
	}
}
