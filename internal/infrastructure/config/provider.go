// Package config is a minimal config.Provider implementation. File/flag
// parsing itself is out of the core's scope; this package only fills in the
// deployment defaults and exposes them through interfaces.ConfigProvider.
package config

import (
	"time"

	"github.com/ledgercore/node/pkg/interfaces"
)

// Options mirrors the fields a deployment operator would set via file/flags.
type Options struct {
	MaxConfidants            int
	PostConsensusTimeout     time.Duration
	DefaultStateTimeout      time.Duration
	BlockPoolsCount          int
	RequestRepeatRoundCount  int
	NeighbourPacketsCount    int
	OneReplyBlock            bool
	SequencesVerifyFrequency int
	RoundDifferenceForSync   uint64
	NodePublicKeyPath        string
	NodePrivateKeyPath       string
}

// defaultOptions matches the bounds §6 declares: MaxConfidants <= 64.
func defaultOptions() *Options {
	return &Options{
		MaxConfidants:            32,
		PostConsensusTimeout:     2 * time.Second,
		DefaultStateTimeout:      6 * time.Second,
		BlockPoolsCount:          10,
		RequestRepeatRoundCount:  3,
		NeighbourPacketsCount:    3,
		OneReplyBlock:            false,
		SequencesVerifyFrequency: 1,
		RoundDifferenceForSync:   2,
		NodePublicKeyPath:        "NodePublic.txt",
		NodePrivateKeyPath:       "NodePrivate.txt",
	}
}

// Provider implements interfaces.ConfigProvider over an Options value.
type Provider struct {
	opts *Options
}

// New builds a Provider, applying userOpts (if non-nil) over the defaults.
func New(userOpts *Options) *Provider {
	opts := defaultOptions()
	if userOpts != nil {
		applyOverrides(opts, userOpts)
	}
	return &Provider{opts: opts}
}

func applyOverrides(base, override *Options) {
	if override.MaxConfidants != 0 {
		base.MaxConfidants = override.MaxConfidants
	}
	if override.PostConsensusTimeout != 0 {
		base.PostConsensusTimeout = override.PostConsensusTimeout
	}
	if override.DefaultStateTimeout != 0 {
		base.DefaultStateTimeout = override.DefaultStateTimeout
	}
	if override.BlockPoolsCount != 0 {
		base.BlockPoolsCount = override.BlockPoolsCount
	}
	if override.RequestRepeatRoundCount != 0 {
		base.RequestRepeatRoundCount = override.RequestRepeatRoundCount
	}
	if override.NeighbourPacketsCount != 0 {
		base.NeighbourPacketsCount = override.NeighbourPacketsCount
	}
	base.OneReplyBlock = override.OneReplyBlock
	if override.SequencesVerifyFrequency != 0 {
		base.SequencesVerifyFrequency = override.SequencesVerifyFrequency
	}
	if override.RoundDifferenceForSync != 0 {
		base.RoundDifferenceForSync = override.RoundDifferenceForSync
	}
	if override.NodePublicKeyPath != "" {
		base.NodePublicKeyPath = override.NodePublicKeyPath
	}
	if override.NodePrivateKeyPath != "" {
		base.NodePrivateKeyPath = override.NodePrivateKeyPath
	}
}

var _ interfaces.ConfigProvider = (*Provider)(nil)

// Consensus returns the current consensus/sync deployment parameters.
func (p *Provider) Consensus() interfaces.ConsensusConfig {
	return interfaces.ConsensusConfig{
		MaxConfidants:            p.opts.MaxConfidants,
		PostConsensusTimeout:     p.opts.PostConsensusTimeout,
		DefaultStateTimeout:      p.opts.DefaultStateTimeout,
		BlockPoolsCount:          p.opts.BlockPoolsCount,
		RequestRepeatRoundCount:  p.opts.RequestRepeatRoundCount,
		NeighbourPacketsCount:    p.opts.NeighbourPacketsCount,
		OneReplyBlock:            p.opts.OneReplyBlock,
		SequencesVerifyFrequency: p.opts.SequencesVerifyFrequency,
		RoundDifferenceForSync:   p.opts.RoundDifferenceForSync,
	}
}

func (p *Provider) NodePublicKeyPath() string  { return p.opts.NodePublicKeyPath }
func (p *Provider) NodePrivateKeyPath() string { return p.opts.NodePrivateKeyPath }
