package sheet

import "testing"

func pushInline(s *Sheet, row, col int) {
	s.Push(Cell{Row: row, Col: col, Kind: InlineString, Value: ""})
}

func intPtr(v int) *int { return &v }

func TestSheetInitial(t *testing.T) {
	s := NewSheet("", "", nil, nil, false)
	if s.RowLowerBound != nil || s.RowUpperBound != nil || s.ColLowerBound != nil || s.ColUpperBound != nil {
		t.Fatalf("expected all bounds nil on an empty sheet")
	}
}

func TestSheetUpdate(t *testing.T) {
	s := NewSheet("", "", nil, nil, false)
	pushInline(s, 1, 1)
	pushInline(s, 1, 3)
	pushInline(s, 3, 1)
	pushInline(s, 3, 3)
	s.Finish(false)

	if len(s.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(s.Cells))
	}
	assertBounds(t, s, 1, 3, 1, 3)

	if got := s.ChunkCount(); got != 1 {
		t.Fatalf("expected 1 chunk, got %d", got)
	}
	c := s.chunks[0]
	if c.rowLower != 1 || c.rowUpper != 3 || c.cellIndexLower != 0 || c.cellIndexUpper != 4 {
		t.Fatalf("unexpected chunk: %+v", c)
	}
}

func TestSheetUpdateSkipEmptyRows(t *testing.T) {
	s := NewSheet("", "", nil, nil, true)
	pushInline(s, 1, 1)
	pushInline(s, 1, 3)
	pushInline(s, 3, 1)
	pushInline(s, 3, 3)
	s.Finish(false)

	if len(s.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(s.Cells))
	}
	assertBounds(t, s, 1, 3, 1, 3)

	if got := s.ChunkCount(); got != 2 {
		t.Fatalf("expected 2 chunks, got %d", got)
	}
	first, second := s.chunks[0], s.chunks[1]
	if first.rowLower != 1 || first.rowUpper != 1 || first.cellIndexLower != 0 || first.cellIndexUpper != 2 {
		t.Fatalf("unexpected first chunk: %+v", first)
	}
	if second.rowLower != 3 || second.rowUpper != 3 || second.cellIndexLower != 2 || second.cellIndexUpper != 4 {
		t.Fatalf("unexpected second chunk: %+v", second)
	}
}

func TestSheetUpdateWithRange(t *testing.T) {
	rng := Range{
		RowLowerBound: intPtr(0), RowUpperBound: intPtr(5),
		ColLowerBound: intPtr(0), ColUpperBound: intPtr(5),
	}
	s := NewSheet("", "", &rng, nil, false)
	pushInline(s, 1, 1)
	pushInline(s, 1, 3)
	pushInline(s, 3, 1)
	pushInline(s, 3, 3)
	s.Finish(false)

	if len(s.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(s.Cells))
	}
	assertBounds(t, s, 1, 3, 1, 3)

	if got := s.ChunkCount(); got != 1 {
		t.Fatalf("expected 1 chunk, got %d", got)
	}
	c := s.chunks[0]
	if c.rowLower != 0 || c.rowUpper != 5 || c.cellIndexLower != 0 || c.cellIndexUpper != 4 {
		t.Fatalf("unexpected chunk: %+v", c)
	}
}

func TestSheetUpdateWithTrimRange(t *testing.T) {
	rng := Range{
		RowLowerBound: intPtr(0), RowUpperBound: intPtr(5),
		ColLowerBound: intPtr(0), ColUpperBound: intPtr(5),
	}
	s := NewSheet("", "", &rng, nil, true)
	pushInline(s, 1, 1)
	pushInline(s, 1, 3)
	pushInline(s, 3, 1)
	pushInline(s, 3, 3)
	s.Finish(false)

	if len(s.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(s.Cells))
	}
	assertBounds(t, s, 1, 3, 1, 3)

	if got := s.ChunkCount(); got != 2 {
		t.Fatalf("expected 2 chunks, got %d", got)
	}
	first, second := s.chunks[0], s.chunks[1]
	if first.rowLower != 1 || first.rowUpper != 1 || first.cellIndexLower != 0 || first.cellIndexUpper != 2 {
		t.Fatalf("unexpected first chunk: %+v", first)
	}
	if second.rowLower != 3 || second.rowUpper != 3 || second.cellIndexLower != 2 || second.cellIndexUpper != 4 {
		t.Fatalf("unexpected second chunk: %+v", second)
	}
}

func TestSheetUpdateEndAtEmptyRow(t *testing.T) {
	rng := Range{RowUpperBound: intPtr(5)}
	s := NewSheet("", "", &rng, nil, true)
	pushInline(s, 1, 1)
	pushInline(s, 1, 3)
	pushInline(s, 2, 2)
	pushInline(s, 3, 1)
	pushInline(s, 3, 3)
	s.Finish(true)

	if len(s.Cells) != 5 {
		t.Fatalf("expected 5 cells, got %d", len(s.Cells))
	}
	assertBounds(t, s, 1, 3, 1, 3)

	if got := s.ChunkCount(); got != 1 {
		t.Fatalf("expected 1 chunk, got %d", got)
	}
	c := s.chunks[0]
	if c.rowLower != 1 || c.rowUpper != 3 || c.cellIndexLower != 0 || c.cellIndexUpper != 5 {
		t.Fatalf("unexpected chunk: %+v", c)
	}
}

func assertBounds(t *testing.T, s *Sheet, rowLower, rowUpper, colLower, colUpper int) {
	t.Helper()
	if s.RowLowerBound == nil || *s.RowLowerBound != rowLower {
		t.Fatalf("row lower bound: want %d, got %v", rowLower, s.RowLowerBound)
	}
	if s.RowUpperBound == nil || *s.RowUpperBound != rowUpper {
		t.Fatalf("row upper bound: want %d, got %v", rowUpper, s.RowUpperBound)
	}
	if s.ColLowerBound == nil || *s.ColLowerBound != colLower {
		t.Fatalf("col lower bound: want %d, got %v", colLower, s.ColLowerBound)
	}
	if s.ColUpperBound == nil || *s.ColUpperBound != colUpper {
		t.Fatalf("col upper bound: want %d, got %v", colUpper, s.ColUpperBound)
	}
}
