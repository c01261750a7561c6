package sheet

// chunkSize bounds how many rows a single chunk covers, keeping each chunk
// handed to the caller a bounded, predictable size regardless of sheet
// height.
const chunkSize = 2048

// sheetChunk is one contiguous row range of a Sheet's data, and the slice
// of sheetCells covering it: [rowLower, rowUpper] x [cellIndexLower,
// cellIndexUpper).
type sheetChunk struct {
	rowLower, rowUpper             int
	cellIndexLower, cellIndexUpper int
}

// Sheet accumulates cells pushed in row-major order and partitions them
// into fixed-size row chunks as it goes, so a caller can stream a huge
// sheet without ever materializing the whole thing as one table.
type Sheet struct {
	FileName string
	Name     string
	Cells    []Cell
	chunks   []sheetChunk

	chunkIndexLower int
	chunkRowLower   *int

	criteriaRange Range
	rowsLimit     *int
	skipEmptyRows bool

	RowLowerBound *int
	RowUpperBound *int
	ColLowerBound *int
	ColUpperBound *int
}

// NewSheet creates an empty Sheet ready to accept pushed cells.
func NewSheet(fileName, name string, rng *Range, rowsLimit *int, skipEmptyRows bool) *Sheet {
	s := &Sheet{
		FileName:      fileName,
		Name:          name,
		rowsLimit:     rowsLimit,
		skipEmptyRows: skipEmptyRows,
	}
	if rng != nil {
		s.criteriaRange = *rng
	}
	if !skipEmptyRows {
		s.chunkRowLower = s.criteriaRange.RowLowerBound
	}
	return s
}

// IsEmpty reports whether the sheet has had no cells pushed to it.
func (s *Sheet) IsEmpty() bool {
	return len(s.Cells) == 0
}

func (s *Sheet) beforeRowLowerBound(row int) bool {
	return s.criteriaRange.RowLowerBound != nil && row < *s.criteriaRange.RowLowerBound
}

func (s *Sheet) afterRowUpperBound(row int) bool {
	outOfRange := s.criteriaRange.RowUpperBound != nil && *s.criteriaRange.RowUpperBound < row
	overLimit := s.RowLowerBound != nil && s.rowsLimit != nil && *s.RowLowerBound+*s.rowsLimit <= row
	return outOfRange || overLimit
}

func (s *Sheet) beforeColLowerBound(col int) bool {
	return s.criteriaRange.ColLowerBound != nil && col < *s.criteriaRange.ColLowerBound
}

func (s *Sheet) afterColUpperBound(col int) bool {
	return s.criteriaRange.ColUpperBound != nil && *s.criteriaRange.ColUpperBound < col
}

// Contains reports whether a (row, col) position falls within the sheet's
// configured range and row-limit bounds.
func (s *Sheet) Contains(row, col int) bool {
	return !s.beforeRowLowerBound(row) &&
		!s.afterRowUpperBound(row) &&
		!s.beforeColLowerBound(col) &&
		!s.afterColUpperBound(col)
}

// Push appends a cell (expected in row-major order), extending the current
// chunk or closing it out and starting a new one as the row advances.
func (s *Sheet) Push(cell Cell) {
	s.updateChunk(cell.Row)
	s.updateBound(cell.Row, cell.Col)
	s.Cells = append(s.Cells, cell)
}

func (s *Sheet) updateChunk(row int) {
	if s.chunkRowLower == nil {
		r := row
		s.chunkRowLower = &r
	}
	if s.RowUpperBound != nil && *s.RowUpperBound != row {
		chunkRowLower := *s.chunkRowLower
		chunkRowUpper := *s.RowUpperBound
		if s.skipEmptyRows && chunkRowUpper+1 < row {
			chunkIndexUpper := len(s.Cells)
			s.chunks = append(s.chunks, sheetChunk{
				rowLower: chunkRowLower, rowUpper: chunkRowUpper,
				cellIndexLower: s.chunkIndexLower, cellIndexUpper: chunkIndexUpper,
			})
			s.chunkIndexLower = chunkIndexUpper
			r := row
			s.chunkRowLower = &r
		} else {
			for chunkRowLower+chunkSize < row {
				s.chunks = append(s.chunks, sheetChunk{
					rowLower: chunkRowLower, rowUpper: chunkRowLower + chunkSize - 1,
					cellIndexLower: s.chunkIndexLower, cellIndexUpper: len(s.Cells),
				})
				s.chunkIndexLower = len(s.Cells)
				chunkRowLower += chunkSize
			}
			s.chunkRowLower = &chunkRowLower
		}
	}
}

func (s *Sheet) updateBound(row, col int) {
	if s.RowLowerBound == nil {
		r := row
		s.RowLowerBound = &r
	}
	if s.ColLowerBound == nil || col < *s.ColLowerBound {
		c := col
		s.ColLowerBound = &c
	}
	if s.ColUpperBound == nil || *s.ColUpperBound < col {
		c := col
		s.ColUpperBound = &c
	}
	r := row
	s.RowUpperBound = &r
}

// Finish closes out any chunks still open after the last pushed cell,
// extending through the declared range's upper row bound unless
// skip-empty-rows or endAtEmptyRow already trimmed the sheet to its actual
// data extent.
func (s *Sheet) Finish(endAtEmptyRow bool) {
	var rowUpperBound *int
	if !s.skipEmptyRows && !endAtEmptyRow {
		rowUpperBound = s.criteriaRange.RowUpperBound
	}
	if rowUpperBound == nil {
		rowUpperBound = s.RowUpperBound
	}
	if rowUpperBound == nil {
		return
	}
	chunkRowLower := *s.chunkRowLower
	if s.chunkIndexLower < len(s.Cells) {
		chunkRowUpper := min(*rowUpperBound, chunkRowLower+chunkSize-1)
		s.chunks = append(s.chunks, sheetChunk{
			rowLower: chunkRowLower, rowUpper: chunkRowUpper,
			cellIndexLower: s.chunkIndexLower, cellIndexUpper: len(s.Cells),
		})
		chunkRowLower = chunkRowUpper + 1
		s.chunkIndexLower = len(s.Cells)
	}
	for chunkRowLower <= *rowUpperBound {
		chunkRowUpper := min(*rowUpperBound, chunkRowLower+chunkSize-1)
		s.chunks = append(s.chunks, sheetChunk{
			rowLower: chunkRowLower, rowUpper: chunkRowUpper,
			cellIndexLower: s.chunkIndexLower, cellIndexUpper: s.chunkIndexLower,
		})
		chunkRowLower = chunkRowUpper + 1
	}
}

// ChunkCount returns how many row chunks Finish produced.
func (s *Sheet) ChunkCount() int {
	return len(s.chunks)
}

// ChunkRowRange returns the index'th chunk's inclusive row bounds, the same
// span Chunk materializes -- lets a caller identify which emitted record
// came from which source row without re-deriving it from cell positions.
func (s *Sheet) ChunkRowRange(index int) (lower, upper int) {
	if index < 0 || index >= len(s.chunks) {
		return 0, -1
	}
	c := s.chunks[index]
	return c.rowLower, c.rowUpper
}

// Chunk materializes the index'th chunk as a dense row-major table of
// *Cell (nil where no cell occupies that position), spanning the sheet's
// full column range.
func (s *Sheet) Chunk(index int) [][]*Cell {
	if index < 0 || index >= len(s.chunks) {
		return nil
	}
	c := s.chunks[index]

	colLower := 0
	if s.criteriaRange.ColLowerBound != nil {
		colLower = *s.criteriaRange.ColLowerBound
	} else if s.ColLowerBound != nil {
		colLower = *s.ColLowerBound
	}
	colUpper := 0
	if s.criteriaRange.ColUpperBound != nil {
		colUpper = *s.criteriaRange.ColUpperBound
	} else if s.ColUpperBound != nil {
		colUpper = *s.ColUpperBound
	}

	idx := c.cellIndexLower
	table := make([][]*Cell, 0, c.rowUpper-c.rowLower+1)
	for row := c.rowLower; row <= c.rowUpper; row++ {
		record := make([]*Cell, 0, colUpper-colLower+1)
		for col := colLower; col <= colUpper; col++ {
			if idx == c.cellIndexUpper {
				record = append(record, nil)
				continue
			}
			cell := &s.Cells[idx]
			if row == cell.Row && col == cell.Col {
				record = append(record, cell)
				idx++
			} else {
				record = append(record, nil)
			}
		}
		table = append(table, record)
	}
	return table
}
