// Package badgerstore is the BadgerDB-backed implementation of
// interfaces.BlockStorage and interfaces.WalletStore.
package badgerstore

// Options mirrors the deployment-tunable subset of BadgerDB's own options
// this node actually cares about.
type Options struct {
	Path         string
	SyncWrites   bool
	MemTableSize int64
}

// DefaultOptions matches the values a fresh deployment starts from: strong
// write durability at the cost of some throughput, a memtable sized for the
// block/wallet access pattern rather than BadgerDB's own generic default.
func DefaultOptions() Options {
	return Options{
		Path:         "./data/badger",
		SyncWrites:   true,
		MemTableSize: 64 << 20,
	}
}
