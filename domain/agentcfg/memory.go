package agentcfg

// MemoryEntry is one recorded (observation, choices, action, reasoning)
// tuple, owned by the Agent and never persisted.
type MemoryEntry struct {
	Observation string
	Choices     []string
	Action      int
	Reasoning   string
}

// MemoryState holds a run's recent history plus an optional rolling
// summary of older entries.
type MemoryState struct {
	MaxHistory int
	entries    []MemoryEntry
	Summary    string
}

// NewMemoryState creates an empty memory bounded to maxHistory entries.
func NewMemoryState(maxHistory int) *MemoryState {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &MemoryState{MaxHistory: maxHistory}
}

// Record appends an entry, evicting the oldest once MaxHistory is
// exceeded. Eviction does not touch Summary; summarization is driven
// explicitly by the caller every K steps.
func (m *MemoryState) Record(e MemoryEntry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > m.MaxHistory {
		m.entries = m.entries[len(m.entries)-m.MaxHistory:]
	}
}

// Recent returns the bounded history, oldest first.
func (m *MemoryState) Recent() []MemoryEntry {
	out := make([]MemoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries held.
func (m *MemoryState) Len() int {
	return len(m.entries)
}
