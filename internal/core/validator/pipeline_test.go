package validator

import (
	"testing"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

type stubPlugin struct {
	name    string
	verdict consensus.ValidationVerdict
	called  *[]string
}

func (p stubPlugin) Name() string { return p.name }

func (p stubPlugin) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	*p.called = append(*p.called, p.name)
	return p.verdict
}

// recordingLogger satisfies interfaces.Logger without pulling in zap for
// unit tests that only care that log calls don't panic.
type recordingLogger struct{}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Fatal(string, ...any) {}
func (l *recordingLogger) With(string, any) interfaces.Logger { return l }

func TestPipelineShortCircuitsOnError(t *testing.T) {
	var called []string
	logger := &recordingLogger{}
	p := New(logger,
		stubPlugin{name: "a", verdict: consensus.VerdictNoError, called: &called},
		stubPlugin{name: "b", verdict: consensus.VerdictError, called: &called},
		stubPlugin{name: "c", verdict: consensus.VerdictNoError, called: &called},
	)

	got := p.Validate(types.Pool{Sequence: 1}, types.Pool{Sequence: 2})
	if got != consensus.VerdictError {
		t.Fatalf("expected VerdictError, got %v", got)
	}
	if len(called) != 2 || called[0] != "a" || called[1] != "b" {
		t.Fatalf("expected plugin c to be skipped, called=%v", called)
	}
}

func TestPipelineContinuesOnWarning(t *testing.T) {
	var called []string
	logger := &recordingLogger{}
	p := New(logger,
		stubPlugin{name: "a", verdict: consensus.VerdictWarning, called: &called},
		stubPlugin{name: "b", verdict: consensus.VerdictNoError, called: &called},
	)

	got := p.Validate(types.Pool{}, types.Pool{})
	if got != consensus.VerdictWarning {
		t.Fatalf("expected VerdictWarning, got %v", got)
	}
	if len(called) != 2 {
		t.Fatalf("expected both plugins to run, called=%v", called)
	}
}
