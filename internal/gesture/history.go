package gesture

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// History defaults.
const (
	DefaultHistoryCapacity = 10
	CompoundWindow         = 3
	patternSeparator       = "->"
)

// RecordPolicy decides which results enter the history buffer.
type RecordPolicy string

const (
	// RecordAll appends every result, including low-confidence ones.
	RecordAll RecordPolicy = "all"
	// RecordValidOnly appends only results that passed the confidence threshold.
	RecordValidOnly RecordPolicy = "valid_only"
)

// ParseRecordPolicy converts a configuration string into a RecordPolicy.
func ParseRecordPolicy(s string) (RecordPolicy, error) {
	switch p := RecordPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RecordAll, nil
	case RecordAll, RecordValidOnly:
		return p, nil
	default:
		return "", configErr("record_policy", s, `must be "all" or "valid_only"`)
	}
}

// CompoundMatch selects how recent history is looked up in the compound table.
type CompoundMatch string

const (
	// MatchStrict looks up exactly the last CompoundWindow entries. Table keys
	// of any other length never match in this mode.
	MatchStrict CompoundMatch = "strict"
	// MatchSuffix tries every history suffix from the longest table key down to
	// two entries and returns the first hit.
	MatchSuffix CompoundMatch = "suffix"
)

// ParseCompoundMatch converts a configuration string into a CompoundMatch.
func ParseCompoundMatch(s string) (CompoundMatch, error) {
	switch m := CompoundMatch(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MatchStrict, nil
	case MatchStrict, MatchSuffix:
		return m, nil
	default:
		return "", configErr("compound_match", s, `must be "strict" or "suffix"`)
	}
}

// PatternKey joins gesture types into a compound table key, e.g. "circle->tap".
func PatternKey(seq []Type) string {
	parts := make([]string, len(seq))
	for i, t := range seq {
		parts[i] = string(t)
	}
	return strings.Join(parts, patternSeparator)
}

// CompoundTable maps exact gesture sequences to action names. It is immutable.
type CompoundTable struct {
	actions map[string]string
	longest int
}

// NewCompoundTable builds a table from pattern keys ("a->b->c") to action names.
func NewCompoundTable(patterns map[string]string) (*CompoundTable, error) {
	t := &CompoundTable{actions: make(map[string]string, len(patterns))}
	for key, action := range patterns {
		parts := strings.Split(key, patternSeparator)
		if len(parts) < 2 {
			return nil, configErr("compound pattern", key, "needs at least two gestures")
		}
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, configErr("compound pattern", key, "contains an empty gesture")
			}
			parts[i] = p
		}
		if strings.TrimSpace(action) == "" {
			return nil, configErr("compound action", key, "must not be empty")
		}
		t.actions[strings.Join(parts, patternSeparator)] = action
		t.longest = max(t.longest, len(parts))
	}
	return t, nil
}

// DefaultCompoundTable returns the built-in compound gestures.
func DefaultCompoundTable() *CompoundTable {
	t, _ := NewCompoundTable(map[string]string{
		"swipe_right->tap->swipe_right": "quick_pay",
		"circle->tap":                   "confirm_trade",
		"palm_open->fist":               "cancel",
		"swipe_up->swipe_down":          "refresh",
	})
	return t
}

// Lookup returns the action for the exact sequence seq.
func (t *CompoundTable) Lookup(seq []Type) (string, bool) {
	action, ok := t.actions[PatternKey(seq)]
	return action, ok
}

// Patterns returns a copy of the table.
func (t *CompoundTable) Patterns() map[string]string {
	out := make(map[string]string, len(t.actions))
	for k, v := range t.actions {
		out[k] = v
	}
	return out
}

// Actions returns the distinct action names in the table, sorted.
func (t *CompoundTable) Actions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range t.actions {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

// HistoryEntry is a recorded result with its insertion order.
type HistoryEntry struct {
	Seq        uint64    `json:"seq"`
	Result     Result    `json:"result"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryConfig configures a History.
type HistoryConfig struct {
	Capacity int
	Policy   RecordPolicy
	Match    CompoundMatch
	Table    *CompoundTable
}

// DefaultHistoryConfig returns a ten-entry history recording every result with
// strict matching against the default table.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Capacity: DefaultHistoryCapacity,
		Policy:   RecordAll,
		Match:    MatchStrict,
		Table:    DefaultCompoundTable(),
	}
}

// History is a fixed-capacity ring of recent results. When full, recording
// evicts the oldest entry. It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	head    int // index of the oldest entry
	size    int
	seq     uint64
	policy  RecordPolicy
	match   CompoundMatch
	table   *CompoundTable
	now     func() time.Time
}

// NewHistory creates a History. Capacity is fixed for the lifetime of the buffer.
func NewHistory(cfg HistoryConfig) (*History, error) {
	if cfg.Capacity <= 0 {
		return nil, configErr("history capacity", cfg.Capacity, "must be positive")
	}
	policy, err := ParseRecordPolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}
	match, err := ParseCompoundMatch(string(cfg.Match))
	if err != nil {
		return nil, err
	}
	table := cfg.Table
	if table == nil {
		table = DefaultCompoundTable()
	}
	return &History{
		entries: make([]HistoryEntry, cfg.Capacity),
		policy:  policy,
		match:   match,
		table:   table,
		now:     time.Now,
	}, nil
}

// Capacity returns the maximum number of entries.
func (h *History) Capacity() int {
	return len(h.entries)
}

// Policy returns the record policy.
func (h *History) Policy() RecordPolicy {
	return h.policy
}

// Table returns the compound table.
func (h *History) Table() *CompoundTable {
	return h.table
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Record appends r, evicting the oldest entry when full. It returns false when
// the record policy rejected r.
func (h *History) Record(r Result) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record(r)
}

// RecordAndMatch records r and checks the compound table in one critical
// section, so concurrent writers cannot interleave between the two steps.
// A result rejected by the record policy leaves the buffer unchanged and
// completes no compound.
func (h *History) RecordAndMatch(r Result) (recorded bool, action string, matched bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.record(r) {
		return false, "", false
	}
	action, matched = h.matchCompound()
	return true, action, matched
}

func (h *History) record(r Result) bool {
	if h.policy == RecordValidOnly && !r.IsValid {
		return false
	}
	h.seq++
	entry := HistoryEntry{Seq: h.seq, Result: r, RecordedAt: h.now()}
	capacity := len(h.entries)
	if h.size < capacity {
		h.entries[(h.head+h.size)%capacity] = entry
		h.size++
		return true
	}
	h.entries[h.head] = entry
	h.head = (h.head + 1) % capacity
	return true
}

// RecentPattern returns the gesture types of the last n entries, oldest first.
// It reports false when fewer than n entries exist.
func (h *History) RecentPattern(n int) ([]Type, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentPattern(n)
}

func (h *History) recentPattern(n int) ([]Type, bool) {
	if n <= 0 || h.size < n {
		return nil, false
	}
	out := make([]Type, n)
	start := h.size - n
	for i := range out {
		out[i] = h.at(start + i).Result.GestureType
	}
	return out, true
}

// MatchCompound looks up recent history in the compound table.
func (h *History) MatchCompound() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.matchCompound()
}

func (h *History) matchCompound() (string, bool) {
	if h.match == MatchStrict {
		seq, ok := h.recentPattern(CompoundWindow)
		if !ok {
			return "", false
		}
		return h.table.Lookup(seq)
	}
	for n := min(h.table.longest, h.size); n >= 2; n-- {
		seq, _ := h.recentPattern(n)
		if action, ok := h.table.Lookup(seq); ok {
			return action, true
		}
	}
	return "", false
}

// Entries returns up to limit of the most recent entries, oldest first. A
// non-positive limit returns all entries.
func (h *History) Entries(limit int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]HistoryEntry, n)
	start := h.size - n
	for i := range out {
		out[i] = h.at(start + i)
	}
	return out
}

// Reset clears every entry. Sequence numbers keep increasing across resets.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.entries)
	h.head = 0
	h.size = 0
}

// at returns the i-th entry counting from the oldest.
func (h *History) at(i int) HistoryEntry {
	return h.entries[(h.head+i)%len(h.entries)]
}
