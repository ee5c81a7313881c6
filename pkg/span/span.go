// Package span provides byte-offset source spans shared across the syntax
// tree, diagnostics, and evaluator packages.
package span

import "fmt"

// Span is a half-open byte range [Start, End) into a document's source text.
// Both bounds are 0-based byte offsets, never line/column pairs: the syntax
// tree's invariant (every character covered by exactly one token) is defined
// in these terms, and spans must stay stable under node cloning.
type Span struct {
	Start uint32
	End   uint32
}

// Zero is the empty span at offset 0, used for synthetic nodes that have no
// source location (e.g. stdlib-injected declarations).
var Zero = Span{}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}

	return s.End - s.Start
}

// Contains reports whether offset lies within [Start, End).
func (s Span) Contains(offset uint32) bool {
	return offset >= s.Start && offset < s.End
}

// Covers reports whether s fully covers other.
func (s Span) Covers(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Union returns the smallest span covering both s and other. Either side
// may be Zero, in which case the non-zero side wins; Union of two Zero
// spans is Zero.
func (s Span) Union(other Span) Span {
	if s == Zero {
		return other
	}

	if other == Zero {
		return s
	}

	u := Span{Start: s.Start, End: s.End}
	if other.Start < u.Start {
		u.Start = other.Start
	}

	if other.End > u.End {
		u.End = other.End
	}

	return u
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Position is a 1-based line/column location, derived from a Span and a
// document's LineIndex for human-facing diagnostics.
type Position struct {
	Line   uint32
	Column uint32
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LineIndex maps byte offsets to 1-based line/column positions for a single
// document's source text. Built once per source and reused by every
// diagnostic and hover-style lookup against that document.
type LineIndex struct {
	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []uint32
	length     uint32
}

// NewLineIndex scans source once and records the offset of each line start.
func NewLineIndex(source []byte) *LineIndex {
	idx := &LineIndex{lineStarts: []uint32{0}, length: uint32(len(source))}

	for i, b := range source {
		if b == '\n' {
			idx.lineStarts = append(idx.lineStarts, uint32(i+1))
		}
	}

	return idx
}

// Position converts a byte offset to a 1-based line/column.
func (idx *LineIndex) Position(offset uint32) Position {
	if offset > idx.length {
		offset = idx.length
	}

	lo, hi := 0, len(idx.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if idx.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return Position{Line: uint32(lo + 1), Column: offset - idx.lineStarts[lo] + 1}
}

// LineCount returns the number of lines recorded.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}
