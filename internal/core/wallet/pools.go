// Package wallet applies accepted blocks to per-wallet balances and replay
// windows, in source-then-target order per transaction, per §4.7.
package wallet

import (
	"fmt"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// RecentHashesStore tracks each wallet's most recent block-appearance hashes,
// separately from the balance/tail table so it can be swapped or dropped
// without touching the accounting-critical path.
type RecentHashesStore interface {
	Push(addr types.Address, hash types.Hash)
}

// Pools owns the wallet ledger the chain applier drives block acceptance
// through. It is the concrete opaque value that replaces the source's
// pimpl-style WalletsPools, per §9.
type Pools struct {
	store   interfaces.WalletStore
	recent  RecentHashesStore
	storage interfaces.BlockStorage
	hashMgr interfaces.HashManager
	logger  interfaces.Logger
}

// New builds a Pools applier over store, recording each accepted block's own
// hash against every wallet it touches.
func New(store interfaces.WalletStore, recent RecentHashesStore, storage interfaces.BlockStorage, hashMgr interfaces.HashManager, logger interfaces.Logger) *Pools {
	return &Pools{store: store, recent: recent, storage: storage, hashMgr: hashMgr, logger: logger.With("module", "wallet")}
}

// Apply commits pool to storage and updates every wallet it touches. It
// satisfies consensus.BlockApplier.
//
// All transactions are validated against an in-memory scratch copy of the
// wallets they touch before any of it reaches store.Put: a block is
// accept-whole or reject-whole, so a later transaction failing (e.g. an
// intra-block replayed inner id) must leave every wallet exactly as it was
// before Apply was called, not partially debited.
func (p *Pools) Apply(pool types.Pool) error {
	scratch := make(map[types.Address]types.WalletData)
	for _, tx := range pool.Transactions {
		if err := p.applyTransaction(scratch, tx); err != nil {
			return fmt.Errorf("wallet: apply tx %d: %w", tx.InnerID, err)
		}
	}

	for addr, w := range scratch {
		p.store.Put(addr, w)
	}

	if err := p.storage.Append(pool); err != nil {
		return fmt.Errorf("wallet: append block %d: %w", pool.Sequence, err)
	}

	blockHash := p.hashMgr.Blake2(pool.HashingPrefix())
	for _, tx := range pool.Transactions {
		p.recent.Push(tx.Source, blockHash)
		p.recent.Push(tx.Target, blockHash)
	}
	return nil
}

// get reads addr's wallet, preferring a pending scratch mutation from an
// earlier transaction in the same block over the committed store value.
func (p *Pools) get(scratch map[types.Address]types.WalletData, addr types.Address) types.WalletData {
	if w, ok := scratch[addr]; ok {
		return w
	}
	w, _ := p.store.Get(addr)
	return w
}

func (p *Pools) applyTransaction(scratch map[types.Address]types.WalletData, tx types.Transaction) error {
	source := p.get(scratch, tx.Source)

	debit, err := tx.Amount.Add(tx.Fee)
	if err != nil {
		return err
	}
	newSourceBalance, err := source.Balance.Sub(debit)
	if err != nil {
		return err
	}

	target := p.get(scratch, tx.Target)
	newTargetBalance, err := target.Balance.Add(tx.Amount)
	if err != nil {
		return err
	}

	// Checked here, immediately before the push, rather than in a batched
	// pre-pass over the whole block: two transactions sharing (source,
	// inner_id) within the same block must not both pass an identical
	// pre-block check.
	if !source.Tail.IsAllowed(tx.InnerID) {
		return ErrReplayed{Source: tx.Source, InnerID: tx.InnerID}
	}

	source.Balance = newSourceBalance
	source.Tail.Push(tx.InnerID)
	source.Address = tx.Source
	scratch[tx.Source] = source

	target.Balance = newTargetBalance
	target.Address = tx.Target
	scratch[tx.Target] = target

	return nil
}

var _ consensus.BlockApplier = (*Pools)(nil)

// ErrReplayed reports a transaction whose inner id fell outside its source's
// allowed replay window.
type ErrReplayed struct {
	Source  types.Address
	InnerID int64
}

func (e ErrReplayed) Error() string {
	return fmt.Sprintf("wallet: inner id %d replayed or out of window for source", e.InnerID)
}
