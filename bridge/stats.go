package bridge

import (
	"sync"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
)

// OpcodeStats counts the commands of one opcode a session has answered.
type OpcodeStats struct {
	Count    uint64 `json:"count"`
	Failures uint64 `json:"failures"`
}

// Stats is safe to read from other goroutines while a session runs.
type Stats struct {
	mu       sync.Mutex
	commands map[protocol.Opcode]*OpcodeStats
	ignored  uint64
}

func NewStats() *Stats {
	return &Stats{
		commands: make(map[protocol.Opcode]*OpcodeStats),
	}
}

func (s *Stats) record(op protocol.Opcode, st registry.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commands[op]
	if !ok {
		c = &OpcodeStats{}
		s.commands[op] = c
	}

	c.Count++
	if !st.OK() {
		c.Failures++
	}
}

func (s *Stats) ignore() {
	s.mu.Lock()
	s.ignored++
	s.mu.Unlock()
}

// Snapshot copies the counters, keyed by opcode name.
func (s *Stats) Snapshot() map[string]OpcodeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]OpcodeStats, len(s.commands))
	for op, c := range s.commands {
		out[op.String()] = *c
	}

	return out
}

// Ignored is the number of opcodes skipped without a reply.
func (s *Stats) Ignored() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ignored
}
