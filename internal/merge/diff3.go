package merge

// Three-way line merge. Pure functions over line slices, no I/O, so the
// region alignment is unit-testable in isolation.

type RegionKind int

const (
	// RegionStable content is carried through unmodified: either all sides
	// agree, or only one side edited relative to base.
	RegionStable RegionKind = iota
	// RegionConflict holds divergent edits; both sides must be preserved.
	RegionConflict
)

// Region is one aligned span from the three-way diff.
type Region struct {
	Kind   RegionKind
	Lines  []string // stable content
	Ours   []string // conflict content, local side
	Theirs []string // conflict content, incoming side
}

// chunk describes one edit against the base: base[Start:End) is replaced by
// Lines. Chunks from a single diff are disjoint and ordered.
type chunk struct {
	Start, End int
	Lines      []string
}

// Merge3 aligns base (common ancestor), ours (current document) and theirs
// (freshly generated content) and returns the merged region sequence.
func Merge3(base, ours, theirs []string) []Region {
	co := diffChunks(base, ours)
	ct := diffChunks(base, theirs)

	var regions []Region
	emitStable := func(lines []string) {
		if len(lines) == 0 {
			return
		}
		if n := len(regions); n > 0 && regions[n-1].Kind == RegionStable {
			regions[n-1].Lines = append(regions[n-1].Lines, lines...)
			return
		}
		regions = append(regions, Region{Kind: RegionStable, Lines: lines})
	}

	pos := 0 // cursor into base
	io, it := 0, 0
	for io < len(co) || it < len(ct) {
		// Next edit from either side.
		next := len(base)
		if io < len(co) && co[io].Start < next {
			next = co[io].Start
		}
		if it < len(ct) && ct[it].Start < next {
			next = ct[it].Start
		}
		emitStable(base[pos:next])

		// Grow the affected base range while chunks from either side keep
		// overlapping it.
		lo, hi := next, next
		var oursChunks, theirsChunks []chunk
		for {
			grew := false
			if io < len(co) && co[io].Start <= hi {
				if co[io].End > hi {
					hi = co[io].End
				}
				oursChunks = append(oursChunks, co[io])
				io++
				grew = true
			}
			if it < len(ct) && ct[it].Start <= hi {
				if ct[it].End > hi {
					hi = ct[it].End
				}
				theirsChunks = append(theirsChunks, ct[it])
				it++
				grew = true
			}
			if !grew {
				break
			}
		}

		baseSlice := base[lo:hi]
		oursSlice := applyChunks(base, lo, hi, oursChunks)
		theirsSlice := applyChunks(base, lo, hi, theirsChunks)

		switch {
		case linesEqual(oursSlice, theirsSlice):
			emitStable(oursSlice)
		case linesEqual(baseSlice, oursSlice):
			emitStable(theirsSlice)
		case linesEqual(baseSlice, theirsSlice):
			emitStable(oursSlice)
		default:
			regions = append(regions, Region{Kind: RegionConflict, Ours: oursSlice, Theirs: theirsSlice})
		}
		pos = hi
	}
	emitStable(base[pos:])

	return regions
}

// applyChunks materializes one side's version of base[lo:hi).
func applyChunks(base []string, lo, hi int, chunks []chunk) []string {
	out := make([]string, 0, hi-lo)
	pos := lo
	for _, c := range chunks {
		if c.Start > pos {
			out = append(out, base[pos:c.Start]...)
		}
		out = append(out, c.Lines...)
		pos = c.End
	}
	if pos < hi {
		out = append(out, base[pos:hi]...)
	}
	return out
}

// diffChunks computes the edit chunks turning base into side, aligned on the
// longest common subsequence of lines.
func diffChunks(base, side []string) []chunk {
	matches := lcsMatches(base, side)
	var chunks []chunk
	bi, si := 0, 0
	for _, m := range matches {
		if m.b > bi || m.s > si {
			chunks = append(chunks, chunk{Start: bi, End: m.b, Lines: append([]string(nil), side[si:m.s]...)})
		}
		bi, si = m.b+1, m.s+1
	}
	if bi < len(base) || si < len(side) {
		chunks = append(chunks, chunk{Start: bi, End: len(base), Lines: append([]string(nil), side[si:]...)})
	}
	return chunks
}

type matchPair struct{ b, s int }

// lcsMatches returns the index pairs of a longest common subsequence.
func lcsMatches(a, b []string) []matchPair {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	table := make([][]int32, n+1)
	for i := range table {
		table[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}
	var pairs []matchPair
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, matchPair{b: i, s: j})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

func linesEqual(a, b []string) bool {
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

// HasConflicts reports whether any region in the sequence is conflicting.
func HasConflicts(regions []Region) bool {
	for _, r := range regions {
		if r.Kind == RegionConflict {
			return true
		}
	}
	return false
}
