package consensus

import "github.com/ledgercore/node/pkg/types"

// ValidationVerdict is the block validator pipeline's outcome, mirrored here
// to avoid a dependency on the validator package's error taxonomy.
type ValidationVerdict uint8

const (
	VerdictNoError ValidationVerdict = iota
	VerdictWarning
	VerdictError
	VerdictFatal
)

// BlockValidator is the subset of the validator pipeline consensus drives.
type BlockValidator interface {
	Validate(prev, candidate types.Pool) ValidationVerdict
}

// BlockApplier commits an accepted block: storage append plus wallet
// application. It returns an error when the block could not be committed.
type BlockApplier interface {
	Apply(pool types.Pool) error
}

// BlockSource yields the block at seq if the applier already has it, used to
// fetch the predecessor a candidate links against.
type BlockSource interface {
	Load(seq types.Sequence) (types.Pool, error)
	LastSequence() types.Sequence
}
