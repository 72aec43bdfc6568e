package badgerstore

import "github.com/ledgercore/node/pkg/types"

// poolRecord is the JSON-serializable mirror of types.Pool. Persistence uses
// encoding/json rather than the wire codec's compact framing: on-disk records
// are read far less often than they are written, and JSON keeps the schema
// legible across BadgerDB backups and manual inspection.
type poolRecord struct {
	Sequence        types.Sequence
	PreviousHash    types.Hash
	Confidants      []types.PublicKey
	RealTrustedMask uint64
	Signatures      []types.Signature
	SmartSignatures []types.SmartSignature
	Transactions    []types.Transaction
	UserFields      map[uint32]any
	HashingLength   uint32
	Bytes           []byte
}

func toPoolRecord(p types.Pool) poolRecord {
	return poolRecord{
		Sequence:        p.Sequence,
		PreviousHash:    p.PreviousHash,
		Confidants:      p.Confidants,
		RealTrustedMask: p.RealTrustedMask,
		Signatures:      p.Signatures,
		SmartSignatures: p.SmartSignatures,
		Transactions:    p.Transactions,
		UserFields:      p.UserFields,
		HashingLength:   p.HashingLength,
		Bytes:           p.Bytes,
	}
}

func (r poolRecord) toPool() types.Pool {
	return types.Pool{
		Sequence:        r.Sequence,
		PreviousHash:    r.PreviousHash,
		Confidants:      r.Confidants,
		RealTrustedMask: r.RealTrustedMask,
		Signatures:      r.Signatures,
		SmartSignatures: r.SmartSignatures,
		Transactions:    r.Transactions,
		UserFields:      r.UserFields,
		HashingLength:   r.HashingLength,
		Bytes:           r.Bytes,
	}
}

// walletRecord is the JSON-serializable mirror of types.WalletData. Amount
// and TransactionsTail are broken into their exported components since both
// types keep their fields private outside the package.
type walletRecord struct {
	Address        types.Address
	BalanceInt     int64
	BalanceMicro   int64
	BalanceNeg     bool
	TailWindow     uint32
	TailMax        int64
	TailHasMax     bool
}

func toWalletRecord(d types.WalletData) walletRecord {
	max, hasMax := d.Tail.Max()
	return walletRecord{
		Address:      d.Address,
		BalanceInt:   d.Balance.Integral(),
		BalanceMicro: d.Balance.FractionMicros(),
		BalanceNeg:   d.Balance.Negative(),
		TailWindow:   d.Tail.Window(),
		TailMax:      max,
		TailHasMax:   hasMax,
	}
}

func (r walletRecord) toWalletData() types.WalletData {
	return types.WalletData{
		Address: r.Address,
		Balance: types.NewAmount(r.BalanceInt, r.BalanceMicro, r.BalanceNeg),
		Tail:    types.RestoreTail(r.TailWindow, r.TailMax, r.TailHasMax),
	}
}
