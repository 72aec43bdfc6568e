// Package packetcache holds content-addressed TransactionsPacket values
// exchanged between peers ahead of consensus, with per-bucket locking for
// concurrent insert. Reads take the same bucket lock briefly to find a
// hash's slot and then load the packet through an atomic pointer; they are
// not lock-free.
package packetcache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/allegro/bigcache/v3"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

const bucketCount = 32

type bucket struct {
	mu      sync.Mutex
	entries map[types.Hash]*atomic.Pointer[types.TransactionsPacket]
}

// Cache maps packet hash to TransactionsPacket, deduplicating inserts and
// tracking at-most-one in-flight fetch per hash. Lookups that find nothing in
// the buckets fall back to a bigcache-backed serialized mirror, matching
// the "content-addressed cache" role bigcache fills elsewhere in the stack.
type Cache struct {
	buckets   [bucketCount]bucket
	hashMgr   interfaces.HashManager
	transport interfaces.Transport
	inFlight  sync.Map // types.Hash -> struct{}
	mirror    *bigcache.BigCache
}

// New builds an empty Cache. transport is used by Request to ask a peer for
// a packet by hash.
func New(hashMgr interfaces.HashManager, transport interfaces.Transport) *Cache {
	c := &Cache{hashMgr: hashMgr, transport: transport}
	for i := range c.buckets {
		c.buckets[i].entries = make(map[types.Hash]*atomic.Pointer[types.TransactionsPacket])
	}
	mirror, err := bigcache.New(context.Background(), bigcache.DefaultConfig(0))
	if err == nil {
		c.mirror = mirror
	}
	return c
}

func (c *Cache) bucketFor(h types.Hash) *bucket {
	return &c.buckets[h[0]%bucketCount]
}

// Serialize concatenates the serialized transactions in a packet for
// hashing; a real transaction codec would replace this stub encoding, but
// the concatenation contract itself is what §3 requires.
func Serialize(txs []types.Transaction) []byte {
	var out []byte
	for _, tx := range txs {
		out = append(out, byte(tx.InnerID))
		out = append(out, tx.Signature[:]...)
	}
	return out
}

// Insert recomputes and verifies packet.Hash before storing it; a packet
// whose declared hash does not match its contents is rejected as a protocol
// error and never enters the cache.
func (c *Cache) Insert(packet types.TransactionsPacket) error {
	want := c.hashMgr.Blake2(Serialize(packet.Transactions))
	if want != packet.Hash {
		return ErrHashMismatch
	}

	b := c.bucketFor(packet.Hash)
	b.mu.Lock()
	ptr, exists := b.entries[packet.Hash]
	if !exists {
		ptr = &atomic.Pointer[types.TransactionsPacket]{}
		b.entries[packet.Hash] = ptr
	}
	b.mu.Unlock()

	// Deduplication: an already-present packet is not replaced.
	if ptr.Load() == nil {
		cp := packet
		ptr.Store(&cp)
		if c.mirror != nil {
			if raw, err := json.Marshal(cp); err == nil {
				_ = c.mirror.Set(packet.Hash.String(), raw)
			}
		}
	}
	c.inFlight.Delete(packet.Hash)
	return nil
}

// Get returns the packet for hash, if present. It holds the bucket lock only
// while finding the hash's slot, then loads the packet through the slot's
// atomic pointer. On a bucket miss it falls back to the bigcache mirror;
// bucket entries are never evicted, so the mirror is consulted only for
// hashes the buckets do not hold.
func (c *Cache) Get(hash types.Hash) (types.TransactionsPacket, bool) {
	b := c.bucketFor(hash)
	b.mu.Lock()
	ptr, ok := b.entries[hash]
	b.mu.Unlock()
	if ok {
		if p := ptr.Load(); p != nil {
			return *p, true
		}
	}
	if c.mirror == nil {
		return types.TransactionsPacket{}, false
	}
	raw, err := c.mirror.Get(hash.String())
	if err != nil {
		return types.TransactionsPacket{}, false
	}
	var packet types.TransactionsPacket
	if err := json.Unmarshal(raw, &packet); err != nil {
		return types.TransactionsPacket{}, false
	}
	return packet, true
}

// Request issues a TransactionsPacketRequest to peer for hash, unless a
// request for that hash is already in flight.
func (c *Cache) Request(hash types.Hash, peer types.PublicKey) error {
	if _, loaded := c.inFlight.LoadOrStore(hash, struct{}{}); loaded {
		return nil
	}
	frame := interfaces.Frame{
		Kind:    interfaces.KindTransactionsPacketRequest,
		Payload: hash[:],
	}
	return c.transport.Send(frame, peer)
}

// Reply services a hash-request directly by sending packet to peer.
func (c *Cache) Reply(packet types.TransactionsPacket, peer types.PublicKey) error {
	frame := interfaces.Frame{
		Kind:    interfaces.KindTransactionsPacketReply,
		Payload: Serialize(packet.Transactions),
	}
	return c.transport.Send(frame, peer)
}

// ErrHashMismatch is returned by Insert when a packet's declared hash does
// not match its recomputed digest.
var ErrHashMismatch = errPacketHashMismatch{}

type errPacketHashMismatch struct{}

func (errPacketHashMismatch) Error() string { return "packetcache: hash mismatch" }
