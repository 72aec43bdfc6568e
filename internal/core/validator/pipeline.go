// Package validator implements the ordered block validation pipeline of
// §4.5: a fold over independent plugins, each returning the same verdict
// enum, with warnings recorded but not short-circuiting.
package validator

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// Plugin validates a candidate block against its accepted predecessor.
type Plugin interface {
	Name() string
	Validate(prev, candidate types.Pool) consensus.ValidationVerdict
}

// Pipeline runs its plugins in declared order. The first non-noError,
// non-warning verdict short-circuits the fold; warnings are logged and the
// fold continues.
type Pipeline struct {
	plugins []Plugin
	logger  interfaces.Logger
}

// New builds a Pipeline over plugins, run in the given order.
func New(logger interfaces.Logger, plugins ...Plugin) *Pipeline {
	return &Pipeline{plugins: plugins, logger: logger.With("module", "validator")}
}

// Validate folds every plugin's verdict, satisfying consensus.BlockValidator.
func (p *Pipeline) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	worst := consensus.VerdictNoError
	for _, plugin := range p.plugins {
		verdict := plugin.Validate(prev, candidate)
		switch verdict {
		case consensus.VerdictNoError:
			continue
		case consensus.VerdictWarning:
			p.logger.Warn("validator warning", "plugin", plugin.Name(), "sequence", candidate.Sequence)
			worst = consensus.VerdictWarning
		case consensus.VerdictError:
			p.logger.Warn("validator rejected block", "plugin", plugin.Name(), "sequence", candidate.Sequence)
			return consensus.VerdictError
		case consensus.VerdictFatal:
			p.logger.Error("csfatal: validator rejected block", "plugin", plugin.Name(), "sequence", candidate.Sequence)
			return consensus.VerdictFatal
		}
	}
	return worst
}
