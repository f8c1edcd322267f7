package storage

import (
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/triedb"
)

// Database is a generic interface for a key-value store that also exposes a
// go-ethereum trie database, so the same backing store can serve both direct
// KV reads (nonce counters, config blobs) and the RLP trie used by
// core/state.Manager.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	TrieDB() *triedb.Database
	Close()
}

// MemDB is an in-memory database.
type MemDB struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

// NewMemDB constructs an in-memory database backed by go-ethereum's memorydb.
func NewMemDB() *MemDB {
	disk := rawdb.NewMemoryDatabase()
	return &MemDB{disk: disk, trieDB: triedb.NewDatabase(disk, nil)}
}

func (db *MemDB) Put(key []byte, value []byte) error { return db.disk.Put(key, value) }

func (db *MemDB) Get(key []byte) ([]byte, error) { return db.disk.Get(key) }

func (db *MemDB) TrieDB() *triedb.Database { return db.trieDB }

func (db *MemDB) Close() {
	db.trieDB.Close()
	db.disk.Close()
}

// LevelDB is a persistent key-value store using LevelDB, used by the
// demonstration binary to persist pool/market/reserve/obligation state across
// restarts.
type LevelDB struct {
	disk   ethdb.Database
	trieDB *triedb.Database
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	disk, err := rawdb.NewLevelDBDatabase(path, 0, 0, "corevm/", false)
	if err != nil {
		return nil, err
	}
	return &LevelDB{disk: disk, trieDB: triedb.NewDatabase(disk, nil)}, nil
}

func (ldb *LevelDB) Put(key []byte, value []byte) error { return ldb.disk.Put(key, value) }

func (ldb *LevelDB) Get(key []byte) ([]byte, error) { return ldb.disk.Get(key) }

func (ldb *LevelDB) TrieDB() *triedb.Database { return ldb.trieDB }

func (ldb *LevelDB) Close() {
	ldb.trieDB.Close()
	ldb.disk.Close()
}
