package badgerstore

import (
	"encoding/binary"
	"encoding/json"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

var (
	walletPrefix = []byte("w:")
	pk2widPrefix = []byte("pk2wid:")
	wid2pkPrefix = []byte("wid2pk:")
	nextWidKey   = []byte("meta:next_wallet_id")
)

// WalletStore is the BadgerDB-backed implementation of interfaces.WalletStore.
// Wallets are keyed by their canonical PublicKey; the compact WalletId alias
// is allocated the first time a wallet is written and is bijective for the
// lifetime of this node's database.
type WalletStore struct {
	db *DB
}

// NewWalletStore builds a WalletStore over an already-open database.
func NewWalletStore(db *DB) *WalletStore { return &WalletStore{db: db} }

func walletKey(pk types.PublicKey) []byte { return append(append([]byte{}, walletPrefix...), pk[:]...) }
func pk2widKey(pk types.PublicKey) []byte { return append(append([]byte{}, pk2widPrefix...), pk[:]...) }
func wid2pkKey(id types.WalletId) []byte {
	buf := make([]byte, len(wid2pkPrefix)+4)
	copy(buf, wid2pkPrefix)
	binary.BigEndian.PutUint32(buf[len(wid2pkPrefix):], uint32(id))
	return buf
}

// Get returns the wallet data for addr, resolving a WalletId-form address to
// its PublicKey first.
func (s *WalletStore) Get(addr types.Address) (types.WalletData, bool) {
	pk, ok := s.canonicalKey(addr)
	if !ok {
		return types.WalletData{}, false
	}

	var data types.WalletData
	found := false
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(walletKey(pk))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var rec walletRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			data = rec.toWalletData()
			found = true
			return nil
		})
	})
	return data, found
}

// Put stores data under addr's canonical PublicKey, allocating a WalletId
// alias for it if this is the first time the wallet has been written.
func (s *WalletStore) Put(addr types.Address, data types.WalletData) {
	pk, ok := s.canonicalKey(addr)
	if !ok {
		return
	}

	rec, err := json.Marshal(toWalletRecord(data))
	if err != nil {
		return
	}

	_ = s.db.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(walletKey(pk), rec); err != nil {
			return err
		}
		return allocateWalletIdLocked(txn, pk)
	})
}

// Invalidate drops addr's cached wallet record without touching its WalletId
// mapping, which stays bijective for the database's lifetime.
func (s *WalletStore) Invalidate(addr types.Address) {
	pk, ok := s.canonicalKey(addr)
	if !ok {
		return
	}
	_ = s.db.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(walletKey(pk))
	})
}

// ResolveWalletId returns pk's compact alias, if one has been allocated.
func (s *WalletStore) ResolveWalletId(pk types.PublicKey) (types.WalletId, bool) {
	var id types.WalletId
	found := false
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(pk2widKey(pk))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = types.WalletId(binary.BigEndian.Uint32(val))
			found = true
			return nil
		})
	})
	return id, found
}

// ResolvePublicKey inverts ResolveWalletId.
func (s *WalletStore) ResolvePublicKey(id types.WalletId) (types.PublicKey, bool) {
	var pk types.PublicKey
	found := false
	_ = s.db.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(wid2pkKey(id))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			copy(pk[:], val)
			found = true
			return nil
		})
	})
	return pk, found
}

// canonicalKey resolves addr to a PublicKey, using the existing WalletId
// mapping when addr arrived in compact form.
func (s *WalletStore) canonicalKey(addr types.Address) (types.PublicKey, bool) {
	if addr.Kind == types.AddressPublicKey {
		return addr.Key, true
	}
	return s.ResolvePublicKey(addr.ID)
}

// allocateWalletIdLocked assigns pk the next sequential WalletId if it does
// not already have one. Must run inside the caller's transaction.
func allocateWalletIdLocked(txn *badgerdb.Txn, pk types.PublicKey) error {
	if _, err := txn.Get(pk2widKey(pk)); err == nil {
		return nil
	} else if err != badgerdb.ErrKeyNotFound {
		return err
	}

	var next uint32
	if item, err := txn.Get(nextWidKey); err == nil {
		if verr := item.Value(func(val []byte) error {
			next = binary.BigEndian.Uint32(val)
			return nil
		}); verr != nil {
			return verr
		}
	} else if err != badgerdb.ErrKeyNotFound {
		return err
	}

	id := types.WalletId(next)
	idBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(idBuf, next)
	if err := txn.Set(pk2widKey(pk), idBuf); err != nil {
		return err
	}
	if err := txn.Set(wid2pkKey(id), pk[:]); err != nil {
		return err
	}
	nextBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(nextBuf, next+1)
	return txn.Set(nextWidKey, nextBuf)
}

var _ interfaces.WalletStore = (*WalletStore)(nil)
