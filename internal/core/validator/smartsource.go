package validator

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/packetcache"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// SmartSourceSignaturesValidator checks that every distinct source of a
// new-state transaction is backed by a smart_signatures group: a valid
// smart consensus pool reference, in-range confidant indices, and a
// signature per index over the group's packet hash.
type SmartSourceSignaturesValidator struct {
	hashMgr  interfaces.HashManager
	verifier interfaces.SignatureVerifier
	pools    consensus.BlockSource
}

// NewSmartSourceSignaturesValidator builds a SmartSourceSignaturesValidator.
// pools resolves a SmartConsensusPool sequence to the Pool whose confidant
// set the group signatures are indexed against.
func NewSmartSourceSignaturesValidator(hashMgr interfaces.HashManager, verifier interfaces.SignatureVerifier, pools consensus.BlockSource) *SmartSourceSignaturesValidator {
	return &SmartSourceSignaturesValidator{hashMgr: hashMgr, verifier: verifier, pools: pools}
}

func (v *SmartSourceSignaturesValidator) Name() string { return "SmartSourceSignaturesValidator" }

func (v *SmartSourceSignaturesValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	groups := groupNewStateBySource(candidate.Transactions)
	if len(groups) == 0 {
		return consensus.VerdictNoError
	}

	bySource := make(map[types.PublicKey]types.SmartSignature, len(candidate.SmartSignatures))
	for _, ss := range candidate.SmartSignatures {
		bySource[ss.SmartKey] = ss
	}

	for source, txs := range groups {
		ss, ok := bySource[source]
		if !ok {
			return consensus.VerdictError
		}

		pool, err := v.pools.Load(ss.SmartConsensusPool)
		if err != nil {
			return consensus.VerdictError
		}
		if len(ss.Signatures) == 0 {
			return consensus.VerdictError
		}

		packetHash := v.hashMgr.Blake2(packetcache.Serialize(txs))
		for _, idx := range ss.Signatures {
			if int(idx.ConfidantIndex) >= len(pool.Confidants) {
				return consensus.VerdictError
			}
			signer := pool.Confidants[idx.ConfidantIndex]
			if !v.verifier.Verify(signer, packetHash[:], idx.Signature) {
				return consensus.VerdictError
			}
		}
	}
	return consensus.VerdictNoError
}

// groupNewStateBySource groups new-state transactions by their source
// public key. Sources given in compact WalletId form are skipped: a smart
// consensus pool's confidants sign against a PublicKey source, so only that
// form can be matched against SmartSignature.SmartKey here.
func groupNewStateBySource(txs []types.Transaction) map[types.PublicKey][]types.Transaction {
	groups := make(map[types.PublicKey][]types.Transaction)
	for _, tx := range txs {
		if !tx.IsNewState() || tx.Source.Kind != types.AddressPublicKey {
			continue
		}
		groups[tx.Source.Key] = append(groups[tx.Source.Key], tx)
	}
	return groups
}
