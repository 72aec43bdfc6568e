package wallet

import (
	"testing"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

type memStore struct {
	data map[types.Address]types.WalletData
}

func newMemStore() *memStore { return &memStore{data: make(map[types.Address]types.WalletData)} }

func (s *memStore) Get(addr types.Address) (types.WalletData, bool) {
	d, ok := s.data[addr]
	return d, ok
}
func (s *memStore) Put(addr types.Address, data types.WalletData)          { s.data[addr] = data }
func (s *memStore) Invalidate(addr types.Address)                          { delete(s.data, addr) }
func (s *memStore) ResolveWalletId(types.PublicKey) (types.WalletId, bool) { return 0, false }
func (s *memStore) ResolvePublicKey(types.WalletId) (types.PublicKey, bool) {
	return types.PublicKey{}, false
}

type memStorage struct {
	blocks []types.Pool
}

func (s *memStorage) Append(p types.Pool) error { s.blocks = append(s.blocks, p); return nil }
func (s *memStorage) Load(seq types.Sequence) (types.Pool, error) {
	for _, b := range s.blocks {
		if b.Sequence == seq {
			return b, nil
		}
	}
	return types.Pool{}, nil
}
func (s *memStorage) LastSequence() types.Sequence                      { return types.Sequence(len(s.blocks)) }
func (s *memStorage) CachedBlocksSize() int                             { return 0 }
func (s *memStorage) RequiredRanges() []interfaces.SequenceRange        { return nil }
func (s *memStorage) HashBySequence(types.Sequence) (types.Hash, error) { return types.Hash{}, nil }
func (s *memStorage) GlobalSequence() types.Sequence                    { return s.LastSequence() }
func (s *memStorage) BlockRequestNeed() bool                            { return false }

type fakeHashMgr struct{}

func (fakeHashMgr) Blake2(data []byte) types.Hash {
	var h types.Hash
	copy(h[:], data)
	return h
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                 {}
func (nopLogger) Info(string, ...any)                  {}
func (nopLogger) Warn(string, ...any)                  {}
func (nopLogger) Error(string, ...any)                 {}
func (nopLogger) Fatal(string, ...any)                 {}
func (l nopLogger) With(string, any) interfaces.Logger { return l }

func TestApplyDebitsAndCredits(t *testing.T) {
	store := newMemStore()
	source := types.AddressFromPublicKey(types.PublicKey{1})
	target := types.AddressFromPublicKey(types.PublicKey{2})
	store.Put(source, types.WalletData{Address: source, Balance: types.NewAmount(100, 0, false)})

	p := New(store, NewInMemoryRecentHashes(), &memStorage{}, fakeHashMgr{}, nopLogger{})

	tx := types.Transaction{
		InnerID: 1,
		Source:  source,
		Target:  target,
		Amount:  types.NewAmount(10, 0, false),
		Fee:     types.NewAmount(1, 0, false),
	}
	pool := types.Pool{Sequence: 1, Transactions: []types.Transaction{tx}}

	if err := p.Apply(pool); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	got, _ := store.Get(source)
	if got.Balance.Cmp(types.NewAmount(89, 0, false)) != 0 {
		t.Fatalf("expected source balance 89, got %s", got.Balance)
	}
	gotTarget, _ := store.Get(target)
	if gotTarget.Balance.Cmp(types.NewAmount(10, 0, false)) != 0 {
		t.Fatalf("expected target balance 10, got %s", gotTarget.Balance)
	}
}

func TestApplyRejectsReplayedInnerID(t *testing.T) {
	store := newMemStore()
	source := types.AddressFromPublicKey(types.PublicKey{1})
	target := types.AddressFromPublicKey(types.PublicKey{2})

	var tail types.TransactionsTail
	tail.Push(5)
	tail.Push(6)
	tail.Push(7)
	tail.Push(8)
	store.Put(source, types.WalletData{Address: source, Balance: types.NewAmount(1000, 0, false), Tail: tail})

	p := New(store, NewInMemoryRecentHashes(), &memStorage{}, fakeHashMgr{}, nopLogger{})

	// id=7 is within [min,max] and already present: must be rejected.
	tx := types.Transaction{InnerID: 7, Source: source, Target: target, Amount: types.NewAmount(1, 0, false)}
	pool := types.Pool{Sequence: 1, Transactions: []types.Transaction{tx}}

	if err := p.Apply(pool); err == nil {
		t.Fatal("expected replayed inner id to be rejected")
	}
}

func TestApplyRejectsIntraBlockReplay(t *testing.T) {
	store := newMemStore()
	source := types.AddressFromPublicKey(types.PublicKey{1})
	target := types.AddressFromPublicKey(types.PublicKey{2})
	storage := &memStorage{}
	startBalance := types.NewAmount(1000, 0, false)
	store.Put(source, types.WalletData{Address: source, Balance: startBalance})

	p := New(store, NewInMemoryRecentHashes(), storage, fakeHashMgr{}, nopLogger{})

	// Both transactions share (source, inner_id): the second must be
	// rejected once the first has pushed 1 onto the tail, even though
	// neither was present in the wallet's tail before this block started.
	tx1 := types.Transaction{InnerID: 1, Source: source, Target: target, Amount: types.NewAmount(1, 0, false)}
	tx2 := types.Transaction{InnerID: 1, Source: source, Target: target, Amount: types.NewAmount(1, 0, false)}
	pool := types.Pool{Sequence: 1, Transactions: []types.Transaction{tx1, tx2}}

	if err := p.Apply(pool); err == nil {
		t.Fatal("expected the second transaction sharing (source, inner_id) with the first to be rejected")
	}

	// The whole block must reject atomically: the first transaction's debit
	// must not have reached the wallet store, and the block must not have
	// been appended to storage.
	got, _ := store.Get(source)
	if got.Balance.Cmp(startBalance) != 0 {
		t.Fatalf("source balance mutated by a block that was ultimately rejected: got %s, want unchanged %s", got.Balance, startBalance)
	}
	if _, ok := store.Get(target); ok {
		t.Fatal("target wallet must not have been created by a block that was ultimately rejected")
	}
	if len(storage.blocks) != 0 {
		t.Fatal("a rejected block must not be appended to storage")
	}
}

func TestApplyAcceptsIDBeyondMax(t *testing.T) {
	store := newMemStore()
	source := types.AddressFromPublicKey(types.PublicKey{1})
	target := types.AddressFromPublicKey(types.PublicKey{2})

	var tail types.TransactionsTail
	tail.Push(5)
	tail.Push(8)
	store.Put(source, types.WalletData{Address: source, Balance: types.NewAmount(1000, 0, false), Tail: tail})

	p := New(store, NewInMemoryRecentHashes(), &memStorage{}, fakeHashMgr{}, nopLogger{})

	tx := types.Transaction{InnerID: 10000, Source: source, Target: target, Amount: types.NewAmount(1, 0, false)}
	pool := types.Pool{Sequence: 1, Transactions: []types.Transaction{tx}}

	if err := p.Apply(pool); err != nil {
		t.Fatalf("expected an id far beyond max to be accepted, got %v", err)
	}
}
