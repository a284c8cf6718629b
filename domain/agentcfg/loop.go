package agentcfg

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Fingerprint identifies a semantically-equivalent state for loop
// detection: a hash of (location_id, params_state, sorted(choice_jump_ids)).
type Fingerprint string

// ComputeFingerprint hashes (location_id, params_state, sorted jump
// IDs). params_state is opaque display text; it is normalized by
// joining with newlines, never parsed.
func ComputeFingerprint(locationID string, paramsState []string, choiceJumpIDs []int) Fingerprint {
	sorted := append([]int(nil), choiceJumpIDs...)
	sort.Ints(sorted)

	var b strings.Builder
	b.WriteString(locationID)
	b.WriteByte('\n')
	b.WriteString(strings.Join(paramsState, "\n"))
	b.WriteByte('\n')
	for i, j := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(j))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// LoopState tracks visit counts and action streaks per run, feeding the
// loop-escape heuristic.
type LoopState struct {
	visits     map[Fingerprint]int
	streaks    map[streakKey]int
	lastAction map[Fingerprint]int
}

type streakKey struct {
	fp     Fingerprint
	action int
}

// NewLoopState creates an empty loop tracker.
func NewLoopState() *LoopState {
	return &LoopState{
		visits:     make(map[Fingerprint]int),
		streaks:    make(map[streakKey]int),
		lastAction: make(map[Fingerprint]int),
	}
}

// Visit increments the visit count for a fingerprint and returns the new
// total.
func (l *LoopState) Visit(fp Fingerprint) int {
	l.visits[fp]++
	return l.visits[fp]
}

// Visits returns the current visit count without mutating it.
func (l *LoopState) Visits(fp Fingerprint) int {
	return l.visits[fp]
}

// RecordAction updates the (fingerprint, action) streak and returns its
// new length: incremented if the same action repeats this fingerprint,
// reset to 1 otherwise.
func (l *LoopState) RecordAction(fp Fingerprint, action int) int {
	key := streakKey{fp: fp, action: action}
	if l.lastAction[fp] == action {
		l.streaks[key]++
	} else {
		l.streaks[key] = 1
	}
	l.lastAction[fp] = action
	return l.streaks[key]
}

// Streak returns the current streak for (fingerprint, action) without
// mutating it.
func (l *LoopState) Streak(fp Fingerprint, action int) int {
	return l.streaks[streakKey{fp: fp, action: action}]
}

// ShouldEscape reports whether the loop-escape hint should fire:
// visits[fingerprint] >= visitThreshold and
// streak(fingerprint, lastAction) >= streakThreshold.
func (l *LoopState) ShouldEscape(fp Fingerprint, visitThreshold, streakThreshold int) bool {
	last, ok := l.lastAction[fp]
	if !ok {
		return false
	}
	return l.visits[fp] >= visitThreshold && l.Streak(fp, last) >= streakThreshold
}

// LastAction returns the last action taken at a fingerprint, if any.
func (l *LoopState) LastAction(fp Fingerprint) (int, bool) {
	a, ok := l.lastAction[fp]
	return a, ok
}
