// Package dtable implements the three dispatch-table flavors named in
// spec.md §4.9: plain (exact match), ternary (masked, position-ordered),
// and longest-prefix. spec.md §1 keeps the dynamic (lock-free,
// runtime-mutable) table facility out of scope, "specified only by the
// interface it exposes" — these implementations satisfy that interface with
// a build-once, frozen table, which is the only mode the parse graph and
// the accelerator pipeline ever need (spec.md §5: "Parse graph: read-only
// after construction").
package dtable

// Keyer is the callable contract for the keyed pseudo-random function a
// Plain table hashes its keys with (spec.md §4.9: "hashed by a keyed
// pseudo-random function"). spec.md §1 keeps SipHash itself out of scope;
// Keyer is the seam a caller plugs a concrete PRF into.
type Keyer interface {
	// Hash64 returns a keyed hash of key. Implementations must be
	// deterministic for a fixed key and fixed Keyer state.
	Hash64(key []byte) uint64
}

// Plain is an exact-match dispatch table keyed by K, mapping to a value of
// type V. The zero value is not usable; construct with [NewPlain].
type Plain[K comparable, V any] struct {
	entries map[K]V
	def     V
	hasDef  bool
}

// NewPlain builds a frozen exact-match table from entries. Plain does not
// use the Keyer contract (Go's builtin map already hashes comparable keys);
// Keyer is a separate keyed PRF for callers that need one for their own
// purposes.
func NewPlain[K comparable, V any](entries map[K]V) *Plain[K, V] {
	cp := make(map[K]V, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Plain[K, V]{entries: cp}
}

// WithDefault sets the value returned by Lookup on a miss.
func (p *Plain[K, V]) WithDefault(def V) *Plain[K, V] {
	p.def = def
	p.hasDef = true
	return p
}

// Lookup returns the value for key, or the table's default (zero value if
// none was set) and false on a miss.
func (p *Plain[K, V]) Lookup(key K) (V, bool) {
	if v, ok := p.entries[key]; ok {
		return v, true
	}
	if p.hasDef {
		return p.def, true
	}
	var zero V
	return zero, false
}

// Len reports the number of entries, excluding the default.
func (p *Plain[K, V]) Len() int { return len(p.entries) }

// Range calls f for every entry until f returns false. Iteration order is
// unspecified, matching Go's map iteration.
func (p *Plain[K, V]) Range(f func(key K, value V) bool) {
	for k, v := range p.entries {
		if !f(k, v) {
			return
		}
	}
}

// TernaryEntry is one row of a [Ternary] table: an entry matches key2 when
// `(key2 ^ Key) & Mask == 0`, i.e. every masked bit of key2 equals the
// corresponding bit of Key (spec.md §4.9, §4.10 "ternary equality").
type TernaryEntry[V any] struct {
	Key, Mask uint64
	// Position orders entries; lower Position is tried first. Ties are
	// broken by insertion order.
	Position int
	Value    V
}

// Ternary is a masked dispatch table: the first entry (in ascending
// Position order) whose mask matches wins (spec.md §4.9).
type Ternary[V any] struct {
	entries []TernaryEntry[V]
	def     V
	hasDef  bool
}

// NewTernary builds a frozen ternary table, sorted by Position.
func NewTernary[V any](entries []TernaryEntry[V]) *Ternary[V] {
	cp := make([]TernaryEntry[V], len(entries))
	copy(cp, entries)
	stableSortByPosition(cp)
	return &Ternary[V]{entries: cp}
}

// WithDefault sets the value returned by Lookup on a miss.
func (t *Ternary[V]) WithDefault(def V) *Ternary[V] {
	t.def = def
	t.hasDef = true
	return t
}

// Lookup returns the first matching entry's value in Position order.
func (t *Ternary[V]) Lookup(key uint64) (V, bool) {
	for _, e := range t.entries {
		if (key^e.Key)&e.Mask == 0 {
			return e.Value, true
		}
	}
	if t.hasDef {
		return t.def, true
	}
	var zero V
	return zero, false
}

func stableSortByPosition[V any](entries []TernaryEntry[V]) {
	// Insertion sort: ternary tables are built once, from small,
	// human-authored rule sets, so O(n^2) is fine and keeps this dependency
	// free of an import for sort.Slice's reflection-based comparator path.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Position < entries[j-1].Position; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// LPMEntry is one row of an [LPM] table: a key/prefix-length pair.
type LPMEntry[V any] struct {
	Key      uint64
	PrefixLen int
	Value    V
}

// LPM is a longest-prefix-match dispatch table: entries are tried from
// longest PrefixLen to shortest, first match wins (spec.md §4.9).
type LPM[V any] struct {
	entries []LPMEntry[V]
	def     V
	hasDef  bool
}

// NewLPM builds a frozen LPM table, sorted by descending prefix length.
func NewLPM[V any](entries []LPMEntry[V]) *LPM[V] {
	cp := make([]LPMEntry[V], len(entries))
	copy(cp, entries)
	for i := 1; i < len(cp); i++ {
		for j := i; j > 0 && cp[j].PrefixLen > cp[j-1].PrefixLen; j-- {
			cp[j], cp[j-1] = cp[j-1], cp[j]
		}
	}
	return &LPM[V]{entries: cp}
}

// WithDefault sets the value returned by Lookup on a miss.
func (l *LPM[V]) WithDefault(def V) *LPM[V] {
	l.def = def
	l.hasDef = true
	return l
}

// Lookup returns the value of the longest-prefix entry matching key.
func (l *LPM[V]) Lookup(key uint64) (V, bool) {
	for _, e := range l.entries {
		mask := prefixMask(e.PrefixLen)
		if key&mask == e.Key&mask {
			return e.Value, true
		}
	}
	if l.hasDef {
		return l.def, true
	}
	var zero V
	return zero, false
}

func prefixMask(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return ^uint64(0)
	}
	return ^uint64(0) << (64 - n)
}
