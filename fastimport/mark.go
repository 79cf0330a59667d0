package fastimport

// Skipped is the sentinel target a mark is rewired to when the element
// that owned it is dropped without a designated successor (a skipped
// blob, per spec.md §4.3). translate() returning Skipped tells callers
// the reference must be omitted rather than emitted.
const Skipped Mark = 0

// Mark identifies an object within one fast-export/fast-import stream.
// Marks are positive integers and are never reused.
type Mark int

// MarkSpace is the mark namespace described in spec.md §4.2: it
// allocates fresh marks, records renames caused by skip/merge/splice,
// and translates inbound references to their current target. It has no
// process-wide state — callers own an instance, normally one per
// chain of rewrite.Filters (held in their shared state), matching the Design Notes' instruction to encapsulate
// global state as driver fields rather than singletons.
type MarkSpace struct {
	count       Mark
	translation map[Mark]Mark
	reverse     map[Mark][]Mark
}

// NewMarkSpace returns an empty mark namespace.
func NewMarkSpace() *MarkSpace {
	return &MarkSpace{
		translation: make(map[Mark]Mark),
		reverse:     make(map[Mark][]Mark),
	}
}

// Fresh returns the next unused mark. Monotonic.
func (m *MarkSpace) Fresh() Mark {
	m.count++
	return m.count
}

// Count returns the number of marks allocated so far, usable by a
// multi-stream driver as the next stream's id_offset (spec.md §4.7).
func (m *MarkSpace) Count() Mark { return m.count }

// RaiseFloor ensures Fresh returns a value strictly greater than min,
// used when an --import-marks file has already consumed a range of ids.
func (m *MarkSpace) RaiseFloor(min Mark) {
	if m.count < min {
		m.count = min
	}
}

// RecordRename records that old now resolves to new. If old == new this
// is a no-op. When transitive is set, every mark that previously
// resolved to old is updated to resolve to new as well, collapsing
// rename chains to a single hop (spec.md's Open Questions adopt this,
// the collapsing implementation, over the non-collapsing one the
// original has two copies of).
func (m *MarkSpace) RecordRename(old, new Mark, transitive bool) {
	if old == new {
		return
	}
	m.translation[old] = new

	if transitive {
		if chain, ok := m.reverse[old]; ok {
			for _, id := range chain {
				m.translation[id] = new
			}
			m.reverse[new] = append(m.reverse[new], chain...)
		}
	}
	m.reverse[new] = append(m.reverse[new], old)
}

// Translate returns the current target of m, or m itself if it was
// never renamed.
func (m *MarkSpace) Translate(old Mark) Mark {
	if new, ok := m.translation[old]; ok {
		return new
	}
	return old
}
