package testkit

import (
	"io"
	"sync"

	"goreg/internal/errors"
)

// ScriptedEntropy replays a fixed byte script, so bit extraction and trial
// values are exactly predictable in tests.
type ScriptedEntropy struct {
	mu     sync.Mutex
	script []byte
	pos    int
	loop   bool
}

// NewScriptedEntropy creates a source that serves the script once and then
// fails with io.EOF.
func NewScriptedEntropy(script []byte) *ScriptedEntropy {
	return &ScriptedEntropy{script: script}
}

// NewLoopingEntropy creates a source that serves the script cyclically,
// never failing.
func NewLoopingEntropy(script []byte) *ScriptedEntropy {
	return &ScriptedEntropy{script: script, loop: true}
}

// Fill serves the next len(buf) script bytes
func (s *ScriptedEntropy) Fill(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range buf {
		if s.pos >= len(s.script) {
			if !s.loop {
				return errors.Wrap(io.EOF, "entropy script exhausted")
			}
			s.pos = 0
		}
		buf[i] = s.script[s.pos]
		s.pos++
	}
	return nil
}

// FailingEntropy always fails, for exercising the generation error path
type FailingEntropy struct {
	Err error
}

// Fill returns the configured error
func (f FailingEntropy) Fill([]byte) error {
	if f.Err != nil {
		return f.Err
	}
	return errors.EntropyFailure("entropy source unavailable")
}
