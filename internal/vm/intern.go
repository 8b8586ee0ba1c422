package vm

// internEntry is a slot in the open-addressed intern table. A nil key with
// tombstone=false is an empty slot available for reuse by set(); a nil key
// with tombstone=true is itself a usable "empty" slot for insertion but must
// be skipped (not stopped on) when probing for an existing key.
type internEntry struct {
	key       *ObjString
	tombstone bool
}

// InternTable is the weak set of canonical strings: grow-rehash open
// addressing, load factor 0.75, power-of-two capacity, linear probing,
// tombstone deletion. A hand-rolled table is used instead of a Go map
// because the probing strategy, tombstones, and weak-sweep semantics are
// a testable invariant here, not merely a lookup structure - no library in
// the retrieval pack offers an open addressing table with weak-set
// semantics to ground an import on instead.
type InternTable struct {
	entries []internEntry
	count   int // live entries + tombstones, drives the load-factor check
}

const internTableMaxLoad = 0.75

// NewInternTable returns an empty table (capacity grows lazily on first insert).
func NewInternTable() *InternTable {
	return &InternTable{}
}

func (t *InternTable) capacity() int { return len(t.entries) }

// findString returns the canonical *ObjString equal to chars/hash, or nil.
func (t *InternTable) findString(chars []byte, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && bytesEqual(e.key.Chars, chars) {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// set inserts key, growing the table first if the load factor would exceed
// 0.75. Returns true if key landed in an empty or tombstone slot, false if
// it replaced an entry already holding the same string.
func (t *InternTable) set(key *ObjString) bool {
	if float64(t.count+1) > float64(t.capacity())*internTableMaxLoad {
		t.adjustCapacity(nextPow2(t.capacity()*2, 8))
	}
	entry := t.findSlot(key.Chars, key.Hash)
	isNew := entry.key == nil
	if isNew && !entry.tombstone {
		t.count++
	}
	entry.key = key
	entry.tombstone = false
	return isNew
}

// findSlot locates the insertion slot for chars/hash: the first tombstone
// seen, or the first truly empty slot if no tombstone is found first.
func (t *InternTable) findSlot(chars []byte, hash uint32) *internEntry {
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	var tombstone *internEntry
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key.Hash == hash && bytesEqual(e.key.Chars, chars) {
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *InternTable) adjustCapacity(newCap int) {
	old := t.entries
	t.entries = make([]internEntry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := t.findSlot(e.key.Chars, e.key.Hash)
		dst.key = e.key
		t.count++
	}
}

// delete tombstones key (used by removeWhiteStrings during GC).
func (t *InternTable) delete(key *ObjString) {
	if len(t.entries) == 0 {
		return
	}
	mask := uint32(len(t.entries) - 1)
	idx := key.Hash & mask
	for {
		e := &t.entries[idx]
		if e.key == nil && !e.tombstone {
			return
		}
		if e.key == key {
			e.key = nil
			e.tombstone = true
			return
		}
		idx = (idx + 1) & mask
	}
}

// removeWhiteStrings implements the weak-set sweep: any entry whose string
// was not marked during the last trace is removed before objects are freed.
func (t *InternTable) removeWhiteStrings() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.marked {
			e.key = nil
			e.tombstone = true
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nextPow2(n, min int) int {
	if n < min {
		n = min
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
