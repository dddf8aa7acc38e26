package model

import "math"

// NegativeTableSize bounds the shared negative-sampling table (spec
// §4.D.ii).
const NegativeTableSize = 10_000_000

// NegativeTable holds token ids repeated proportionally to
// count_i^0.5, plus a per-worker shuffle and cursor. The base slice is
// built once and shared read-only; each worker clones it via Shuffled
// before training starts (spec §3: "Negative-sampling tables are
// per-worker, distinct shuffles using the worker's RNG seed").
type NegativeTable struct {
	base []int32
}

// BuildNegativeTable lays out counts^0.5-proportional repeats of ids
// [0,len(counts)) into a table capped at NegativeTableSize.
func BuildNegativeTable(counts []int64) *NegativeTable {
	var z float64
	for _, c := range counts {
		z += math.Pow(float64(c), 0.5)
	}
	if z == 0 {
		z = 1
	}
	nt := &NegativeTable{}
	for id, c := range counts {
		share := math.Pow(float64(c), 0.5) / z
		n := int(share * NegativeTableSize)
		for i := 0; i < n && len(nt.base) < NegativeTableSize; i++ {
			nt.base = append(nt.base, int32(id))
		}
	}
	if len(nt.base) == 0 && len(counts) > 0 {
		nt.base = append(nt.base, 0)
	}
	return nt
}

// WorkerTable is a per-worker shuffled clone of the shared base table
// plus its own draw cursor, so concurrent workers never share mutable
// sampling state.
type WorkerTable struct {
	table  []int32
	cursor int
}

// Shuffled returns a new per-worker table: a fresh copy of base,
// shuffled in place with the worker's own RNG (Fisher-Yates).
func (nt *NegativeTable) Shuffled(rng interface{ Intn(int) int }) *WorkerTable {
	cp := make([]int32, len(nt.base))
	copy(cp, nt.base)
	for i := len(cp) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return &WorkerTable{table: cp}
}

// Next draws the next negative sample not equal to target, advancing
// the cursor and rejecting-and-reskipping a draw equal to target
// (spec §4.D.ii: "draws equal to the current target are rejected and
// the cursor is advanced again").
func (wt *WorkerTable) Next(target int32) int32 {
	for {
		if len(wt.table) == 0 {
			return target
		}
		wt.cursor = (wt.cursor + 1) % len(wt.table)
		neg := wt.table[wt.cursor]
		if neg != target {
			return neg
		}
	}
}
