package badgerstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

var (
	blockPrefix = []byte("b:")
	hashPrefix  = []byte("h:")
	lastKey     = []byte("meta:last")
	highestKey  = []byte("meta:highest")
)

// BlockStore is the BadgerDB-backed implementation of interfaces.BlockStorage.
// Blocks may arrive out of sequence order while the pool synchronizer is
// filling a gap; last tracks the contiguous tip, highest the furthest
// sequence ever written, and the gap between the two is what
// RequiredRanges/CachedBlocksSize report on.
type BlockStore struct {
	db      *DB
	hashMgr interfaces.HashManager
}

// NewBlockStore builds a BlockStore over an already-open database.
func NewBlockStore(db *DB, hashMgr interfaces.HashManager) *BlockStore {
	return &BlockStore{db: db, hashMgr: hashMgr}
}

func seqKey(prefix []byte, seq types.Sequence) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uint64(seq))
	return key
}

// Append stores pool at its own sequence, records its linkage hash, and
// advances the contiguous tip through any previously cached blocks that
// pool's arrival now connects.
func (s *BlockStore) Append(pool types.Pool) error {
	rec, err := json.Marshal(toPoolRecord(pool))
	if err != nil {
		return fmt.Errorf("badgerstore: marshal block %d: %w", pool.Sequence, err)
	}
	hash := s.hashMgr.Blake2(pool.HashingPrefix())

	return s.db.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(seqKey(blockPrefix, pool.Sequence), rec); err != nil {
			return err
		}
		if err := txn.Set(seqKey(hashPrefix, pool.Sequence), hash[:]); err != nil {
			return err
		}
		if err := bumpHighest(txn, pool.Sequence); err != nil {
			return err
		}
		return advanceTip(txn, pool.Sequence)
	})
}

func bumpHighest(txn *badgerdb.Txn, seq types.Sequence) error {
	cur, err := readSeq(txn, highestKey)
	if err != nil {
		return err
	}
	if seq > cur {
		return txn.Set(highestKey, encodeSeq(seq))
	}
	return nil
}

// advanceTip walks meta:last forward while the next sequence is present,
// linking newly-arrived blocks into the contiguous chain. Before genesis
// (sequence 0) has ever been written there is no tip at all, which is
// distinct from a tip parked at sequence 0.
func advanceTip(txn *badgerdb.Txn, arrived types.Sequence) error {
	hasTip, last, err := readTip(txn)
	if err != nil {
		return err
	}
	if !hasTip {
		if arrived != 0 {
			return nil
		}
		last = 0
		hasTip = true
	} else if arrived != last && arrived != last+1 {
		return nil
	}

	next := last
	for {
		candidate := next + 1
		if _, err := txn.Get(seqKey(blockPrefix, candidate)); err != nil {
			if err == badgerdb.ErrKeyNotFound {
				break
			}
			return err
		}
		next = candidate
	}
	return txn.Set(lastKey, encodeSeq(next))
}

// readTip reports whether a contiguous tip has been established yet, and its
// value if so.
func readTip(txn *badgerdb.Txn) (bool, types.Sequence, error) {
	item, err := txn.Get(lastKey)
	if err == badgerdb.ErrKeyNotFound {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	var seq types.Sequence
	err = item.Value(func(val []byte) error {
		seq = types.Sequence(binary.BigEndian.Uint64(val))
		return nil
	})
	return true, seq, err
}

func readSeq(txn *badgerdb.Txn, key []byte) (types.Sequence, error) {
	item, err := txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq types.Sequence
	err = item.Value(func(val []byte) error {
		seq = types.Sequence(binary.BigEndian.Uint64(val))
		return nil
	})
	return seq, err
}

func encodeSeq(seq types.Sequence) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seq))
	return buf
}

// Load returns the block stored at seq.
func (s *BlockStore) Load(seq types.Sequence) (types.Pool, error) {
	var pool types.Pool
	err := s.db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(seqKey(blockPrefix, seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var rec poolRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			pool = rec.toPool()
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return types.Pool{}, fmt.Errorf("badgerstore: block %d not found", seq)
	}
	if err != nil {
		return types.Pool{}, fmt.Errorf("badgerstore: load block %d: %w", seq, err)
	}
	return pool, nil
}

// LastSequence returns the highest sequence with no gap below it.
func (s *BlockStore) LastSequence() types.Sequence {
	var last types.Sequence
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		var err error
		last, err = readSeq(txn, lastKey)
		return err
	})
	return last
}

// GlobalSequence mirrors LastSequence: this store has no separate notion of
// a network-wide agreed tip distinct from its own contiguous one.
func (s *BlockStore) GlobalSequence() types.Sequence { return s.LastSequence() }

// CachedBlocksSize counts blocks stored beyond the contiguous tip, still
// waiting for the gap below them to close.
func (s *BlockStore) CachedBlocksSize() int {
	last := s.LastSequence()
	count := 0
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		start := seqKey(blockPrefix, last+1)
		for it.Seek(start); it.ValidForPrefix(blockPrefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// BlockRequestNeed reports whether a gap exists between the contiguous tip
// and the furthest block this node has ever cached.
func (s *BlockStore) BlockRequestNeed() bool {
	var last, highest types.Sequence
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		var err error
		if last, err = readSeq(txn, lastKey); err != nil {
			return err
		}
		highest, err = readSeq(txn, highestKey)
		return err
	})
	return highest > last
}

// RequiredRanges reports the sequence ranges still missing between the
// contiguous tip and the furthest cached block.
func (s *BlockStore) RequiredRanges() []interfaces.SequenceRange {
	last := s.LastSequence()
	var highest types.Sequence
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		var err error
		highest, err = readSeq(txn, highestKey)
		return err
	})
	if highest <= last {
		return nil
	}

	var ranges []interfaces.SequenceRange
	var gapStart types.Sequence
	inGap := false

	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		for seq := last + 1; seq <= highest; seq++ {
			_, err := txn.Get(seqKey(blockPrefix, seq))
			present := err == nil
			if err != nil && err != badgerdb.ErrKeyNotFound {
				return err
			}
			if !present && !inGap {
				inGap = true
				gapStart = seq
			}
			if present && inGap {
				ranges = append(ranges, interfaces.SequenceRange{Lo: gapStart, Hi: seq - 1})
				inGap = false
			}
		}
		if inGap {
			ranges = append(ranges, interfaces.SequenceRange{Lo: gapStart, Hi: highest})
		}
		return nil
	})
	return ranges
}

// HashBySequence returns the linkage hash recorded for seq.
func (s *BlockStore) HashBySequence(seq types.Sequence) (types.Hash, error) {
	var hash types.Hash
	err := s.db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(seqKey(hashPrefix, seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			copy(hash[:], val)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return types.Hash{}, fmt.Errorf("badgerstore: hash for block %d not found", seq)
	}
	if err != nil {
		return types.Hash{}, fmt.Errorf("badgerstore: read hash %d: %w", seq, err)
	}
	return hash, nil
}

var _ interfaces.BlockStorage = (*BlockStore)(nil)
