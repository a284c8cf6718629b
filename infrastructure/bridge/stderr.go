package bridge

import (
	"strings"
	"sync"
)

// limitedBuffer accumulates stderr lines for startup-error diagnostics,
// capped so a chatty interpreter cannot exhaust memory.
type limitedBuffer struct {
	mu    sync.Mutex
	limit int
	b     strings.Builder
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (l *limitedBuffer) WriteLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.b.Len() >= l.limit {
		return
	}
	l.b.WriteString(line)
	l.b.WriteByte('\n')
}

func (l *limitedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.TrimRight(l.b.String(), "\n")
}
