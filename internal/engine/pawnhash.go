package engine

// pawnEntry caches the pawn-structure contribution to Evaluate for one
// pawn layout, split by game phase since evalPassedPawns and
// evalIsolatedPawns both scale their bonuses off Progress.
type pawnEntry struct {
	key      uint64
	midgame  int32
	endgame  int32
	occupied bool
}

// PawnTable caches the combined doubled/passed/isolated-pawn score for a
// pawn layout, keyed on Position.PawnKey. Pawn structure changes far less
// often than the full position (most moves don't touch a pawn), so a
// shared table keyed on just the pawn bitboards turns repeated
// middlegame shuffling into a cache hit instead of re-walking every pawn
// on every Evaluate call.
type PawnTable struct {
	entries []pawnEntry
	mask    uint64
}

// NewPawnTable allocates a pawn hash table sized in megabytes, rounded
// down to a power of two number of entries so probing can mask instead
// of mod.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 24 // key(8) + midgame(4) + endgame(4) + occupied(1), rounded up
	numEntries := (sizeMB * 1024 * 1024) / entrySize
	size := 1
	for size*2 <= numEntries {
		size *= 2
	}
	if size < 1 {
		size = 1
	}
	return &PawnTable{
		entries: make([]pawnEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe looks up the cached midgame/endgame pawn-structure score for key.
func (pt *PawnTable) Probe(key uint64) (midgame, endgame int, found bool) {
	e := &pt.entries[key&pt.mask]
	if e.occupied && e.key == key {
		return int(e.midgame), int(e.endgame), true
	}
	return 0, 0, false
}

// Store records the midgame/endgame pawn-structure score for key,
// overwriting whatever previously occupied the slot (always-replace,
// like the teacher's transposition table, since a pawn-key collision at
// a low-entry-count table is rare enough that a smarter policy isn't
// worth the complexity).
func (pt *PawnTable) Store(key uint64, midgame, endgame int) {
	e := &pt.entries[key&pt.mask]
	e.key = key
	e.midgame = int32(midgame)
	e.endgame = int32(endgame)
	e.occupied = true
}

// Clear empties the table, used on ucinewgame so stale entries from a
// finished game never leak into the next one.
func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = pawnEntry{}
	}
}
