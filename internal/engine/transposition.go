package engine

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/brackenfield/deepsquare/internal/board"
	"github.com/cespare/xxhash/v2"
)

// TTFlag records which kind of bound a transposition table entry holds.
type TTFlag uint8

const (
	TTNone TTFlag = iota
	TTExact
	TTLower
	TTUpper
)

// TTEntry is the logical content of one transposition table slot.
type TTEntry struct {
	Score int32
	Depth int16
	Move  board.Move
	Flag  TTFlag
}

// ttSlot is the physical, lockless representation of one table slot,
// self-validated by the stored Zobrist hash. tag holds the
// full Zobrist hash XORed with an xxhash checksum of data, so a read that
// observes a torn combination of tag/data will, with overwhelming
// probability, fail the check in Probe and be treated as a miss rather
// than trusted. Writers use plain atomic stores (no CAS, no mutex) —
// concurrent Store calls on the same slot may interleave, but the
// checksum guarantees a reader never acts on a mixed-up entry.
type ttSlot struct {
	tag  atomic.Uint64
	data atomic.Uint64
}

const (
	ttScoreBits = 32
	ttMoveBits  = 16
	ttFlagBits  = 2
	ttDepthBits = 14

	ttScoreShift = 0
	ttMoveShift  = ttScoreBits
	ttFlagShift  = ttMoveShift + ttMoveBits
	ttDepthShift = ttFlagShift + ttFlagBits

	ttDepthMask = uint64(1)<<ttDepthBits - 1
)

func packEntry(e TTEntry) uint64 {
	return uint64(uint32(e.Score))<<ttScoreShift |
		uint64(uint16(e.Move))<<ttMoveShift |
		uint64(e.Flag&0x3)<<ttFlagShift |
		(uint64(e.Depth)&ttDepthMask)<<ttDepthShift
}

func unpackEntry(data uint64) TTEntry {
	return TTEntry{
		Score: int32(uint32(data >> ttScoreShift)),
		Move:  board.Move(uint16(data >> ttMoveShift)),
		Flag:  TTFlag((data >> ttFlagShift) & 0x3),
		Depth: int16((data >> ttDepthShift) & ttDepthMask),
	}
}

func checksumOf(data uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], data)
	return xxhash.Sum64(b[:])
}

// TranspositionTable is a fixed-capacity, hash-indexed cache with
// depth-preferred replacement and no chaining — collisions silently evict.
type TranspositionTable struct {
	slots []ttSlot
	mask  uint64
}

// NewTranspositionTable allocates a table sized (in MB), rounding down
// to a power of two so indexing is `hash & mask`.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	entrySize := uint64(16) // two uint64 words per slot
	numSlots := (uint64(sizeMB) * 1024 * 1024) / entrySize
	numSlots = roundDownPow2(numSlots)
	if numSlots == 0 {
		numSlots = 1
	}
	return &TranspositionTable{
		slots: make([]ttSlot, numSlots),
		mask:  numSlots - 1,
	}
}

func roundDownPow2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Resize reallocates the table for a new size in MB, used when the
// Hash UCI option changes.
func (tt *TranspositionTable) Resize(sizeMB int) {
	*tt = *NewTranspositionTable(sizeMB)
}

// Clear empties the table, used on ucinewgame.
func (tt *TranspositionTable) Clear() {
	for i := range tt.slots {
		tt.slots[i].tag.Store(0)
		tt.slots[i].data.Store(0)
	}
}

// Probe looks up hash. A entry with Flag==TTNone is indistinguishable
// from "not found"; callers should check the bool.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	idx := hash & tt.mask
	data := tt.slots[idx].data.Load()
	tag := tt.slots[idx].tag.Load()
	if tag^checksumOf(data) != hash {
		return TTEntry{}, false
	}
	entry := unpackEntry(data)
	if entry.Flag == TTNone {
		return TTEntry{}, false
	}
	return entry, true
}

// Store writes an entry using depth-preferred replacement: a write is
// accepted iff the incoming depth is at least the depth of whatever is
// currently in the slot.
func (tt *TranspositionTable) Store(hash uint64, e TTEntry) {
	idx := hash & tt.mask
	existingData := tt.slots[idx].data.Load()
	existingTag := tt.slots[idx].tag.Load()
	if existingTag^checksumOf(existingData) == hash {
		existing := unpackEntry(existingData)
		if existing.Flag != TTNone && int16(existing.Depth) > e.Depth {
			return
		}
	}
	data := packEntry(e)
	tag := hash ^ checksumOf(data)
	tt.slots[idx].data.Store(data)
	tt.slots[idx].tag.Store(tag)
}

// HashFull samples the first 1000 slots and reports permille occupancy,
// for the UCI `info hashfull` field.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if uint64(sample) > uint64(len(tt.slots)) {
		sample = len(tt.slots)
	}
	used := 0
	for i := 0; i < sample; i++ {
		if tt.slots[i].data.Load() != 0 || tt.slots[i].tag.Load() != 0 {
			used++
		}
	}
	if sample == 0 {
		return 0
	}
	return used * 1000 / sample
}

// AdjustScoreToTT offsets a mate score by the current ply before storing
// it, so the table entry is independent of where along a PV the mate was
// found.
func AdjustScoreToTT(score, ply int) int {
	if score > MateValue-MaxPly {
		return score + ply
	}
	if score < -MateValue+MaxPly {
		return score - ply
	}
	return score
}

// AdjustScoreFromTT is the inverse of AdjustScoreToTT, applied on retrieval.
func AdjustScoreFromTT(score, ply int) int {
	if score > MateValue-MaxPly {
		return score - ply
	}
	if score < -MateValue+MaxPly {
		return score + ply
	}
	return score
}
