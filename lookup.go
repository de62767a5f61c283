package main

import (
	"fmt"
	"strings"
)

// valuesEqual reports whether two primitives are equal for lookup
// purposes: numbers compare numerically, strings compare
// case-insensitively (matching Excel's lookup functions, which are not
// case sensitive), and everything else falls back to Go equality.
func valuesEqual(a, b Primitive) bool {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			if _, aIsStr := a.(string); !aIsStr {
				if _, bIsStr := b.(string); !bIsStr {
					return an == bn
				}
			}
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.EqualFold(as, bs)
	}
	return a == b
}

// compareValues orders two primitives the way Excel orders mixed
// spreadsheet values for approximate-match lookups: numbers before
// strings before booleans, numbers compared numerically, strings compared
// case-insensitively.
func compareValues(a, b Primitive) int {
	rank := func(v Primitive) int {
		switch v.(type) {
		case float64, int, int64:
			return 0
		case string:
			return 1
		case bool:
			return 2
		default:
			return 3
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case 0:
		an, _ := toNumber(a)
		bn, _ := toNumber(b)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	case 1:
		as, _ := a.(string)
		bs, _ := b.(string)
		return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
	case 2:
		ab, _ := a.(bool)
		bb, _ := b.(bool)
		if ab == bb {
			return 0
		}
		if !ab {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// rangeGrid reads a *CellRange into a row-major grid of values, flattening
// it the way VLOOKUP/HLOOKUP/INDEX/MATCH/XLOOKUP treat their array
// arguments: a simple 2D snapshot at call time, not a lazy view, since each
// of these functions must scan the array more than once.
func rangeGrid(r *CellRange) [][]Primitive {
	rows := int(r.endRow-r.startRow) + 1
	cols := int(r.endCol-r.startCol) + 1
	grid := make([][]Primitive, rows)
	for i := range grid {
		grid[i] = make([]Primitive, cols)
	}

	if r.worksheet == nil {
		return grid
	}
	for row := r.startRow; row <= r.endRow; row++ {
		for col := r.startCol; col <= r.endCol; col++ {
			cell := r.worksheet.GetCell(row, col)
			var value Primitive
			if cell != nil {
				value = cell.Value
			}
			grid[row-r.startRow][col-r.startCol] = value
		}
	}
	return grid
}

// asCellRange extracts a *CellRange from a builtin argument, returning a
// #VALUE! error describing which function required it when the argument isn't
// a range.
func asCellRange(arg any, fn string) (*CellRange, error) {
	r, ok := arg.(*CellRange)
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s requires a range argument", fn))
	}
	return r, nil
}

// VLOOKUP searches the first column of table_array for lookup_value and
// returns the value col_index columns to the right.
func (bf *BuiltInFunctions) VLOOKUP(args ...any) (Primitive, error) {
	for _, a := range args[:3] {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}

	lookupValue := args[0]
	table, err := asCellRange(args[1], "VLOOKUP")
	if err != nil {
		return nil, err
	}
	colIndexF, ok := toNumber(args[2])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "VLOOKUP requires a numeric column index")
	}
	colIndex := int(colIndexF)

	exactMatch := false
	if len(args) == 4 {
		if err := checkForError(args[3]); err != nil {
			return nil, err
		}
		exactMatch = !isTruthy(args[3])
	}

	grid := rangeGrid(table)
	if len(grid) == 0 || colIndex < 1 || colIndex > len(grid[0]) {
		return nil, NewSpreadsheetError(ErrorCodeRef, "VLOOKUP column index out of range")
	}

	rowIdx, found := lookupRow(grid, lookupValue, exactMatch)
	if !found {
		return nil, NewSpreadsheetError(ErrorCodeNA, "VLOOKUP could not find value")
	}
	return grid[rowIdx][colIndex-1], nil
}

// HLOOKUP is VLOOKUP transposed: it searches the first row of table_array
// and returns a value row_index rows down.
func (bf *BuiltInFunctions) HLOOKUP(args ...any) (Primitive, error) {
	for _, a := range args[:3] {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}

	lookupValue := args[0]
	table, err := asCellRange(args[1], "HLOOKUP")
	if err != nil {
		return nil, err
	}
	rowIndexF, ok := toNumber(args[2])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "HLOOKUP requires a numeric row index")
	}
	rowIndex := int(rowIndexF)

	exactMatch := false
	if len(args) == 4 {
		if err := checkForError(args[3]); err != nil {
			return nil, err
		}
		exactMatch = !isTruthy(args[3])
	}

	grid := transposeGrid(rangeGrid(table))
	if len(grid) == 0 || rowIndex < 1 || rowIndex > len(grid[0]) {
		return nil, NewSpreadsheetError(ErrorCodeRef, "HLOOKUP row index out of range")
	}

	colIdx, found := lookupRow(grid, lookupValue, exactMatch)
	if !found {
		return nil, NewSpreadsheetError(ErrorCodeNA, "HLOOKUP could not find value")
	}
	return grid[colIdx][rowIndex-1], nil
}

func transposeGrid(grid [][]Primitive) [][]Primitive {
	if len(grid) == 0 {
		return grid
	}
	rows, cols := len(grid), len(grid[0])
	out := make([][]Primitive, cols)
	for c := 0; c < cols; c++ {
		out[c] = make([]Primitive, rows)
		for r := 0; r < rows; r++ {
			out[c][r] = grid[r][c]
		}
	}
	return out
}

// lookupRow scans the first column of grid for lookupValue. Exact match
// returns the first row where the value is equal. Approximate match
// performs a single forward scan keeping the last row whose value is <=
// lookupValue, stopping as soon as a value compares greater -- matching
// Excel's (and the reference implementation's) behavior of trusting the
// data to be sorted ascending rather than binary-searching it, which
// produces the same "wrong but expected" answer on unsorted input that
// real spreadsheets produce.
func lookupRow(grid [][]Primitive, lookupValue Primitive, exactMatch bool) (int, bool) {
	if exactMatch {
		for i, row := range grid {
			if len(row) > 0 && valuesEqual(row[0], lookupValue) {
				return i, true
			}
		}
		return 0, false
	}

	bestIdx := -1
	for i, row := range grid {
		if len(row) == 0 {
			continue
		}
		cmp := compareValues(row[0], lookupValue)
		if cmp > 0 {
			break
		}
		bestIdx = i
	}
	if bestIdx == -1 {
		return 0, false
	}
	return bestIdx, true
}

// INDEX returns the value at (row_num, column_num) within array, 1-based.
// When column_num is omitted and array is a single column or single row,
// row_num addresses the lone axis directly.
func (bf *BuiltInFunctions) INDEX(args ...any) (Primitive, error) {
	array, err := asCellRange(args[0], "INDEX")
	if err != nil {
		return nil, err
	}
	if err := checkForError(args[1]); err != nil {
		return nil, err
	}
	rowNumF, ok := toNumber(args[1])
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "INDEX requires a numeric row number")
	}
	rowNum := int(rowNumF)

	grid := rangeGrid(array)
	rows := len(grid)
	cols := 0
	if rows > 0 {
		cols = len(grid[0])
	}

	colNum := 0
	if len(args) == 3 {
		if err := checkForError(args[2]); err != nil {
			return nil, err
		}
		colNumF, ok := toNumber(args[2])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "INDEX requires a numeric column number")
		}
		colNum = int(colNumF)
	}

	switch {
	case colNum == 0 && cols == 1:
		if rowNum < 1 || rowNum > rows {
			return nil, NewSpreadsheetError(ErrorCodeRef, "INDEX row number out of range")
		}
		return grid[rowNum-1][0], nil
	case colNum == 0 && rows == 1:
		if rowNum < 1 || rowNum > cols {
			return nil, NewSpreadsheetError(ErrorCodeRef, "INDEX row number out of range")
		}
		return grid[0][rowNum-1], nil
	case colNum == 0:
		return nil, NewSpreadsheetError(ErrorCodeRef, "INDEX requires a column number for multi-column arrays")
	default:
		if rowNum < 1 || rowNum > rows || colNum < 1 || colNum > cols {
			return nil, NewSpreadsheetError(ErrorCodeRef, "INDEX reference out of range")
		}
		return grid[rowNum-1][colNum-1], nil
	}
}

// MATCH returns the 1-based position of lookup_value within lookup_array.
// match_type: 1 (default) finds the largest value <= lookup_value assuming
// ascending order, 0 finds an exact match, -1 finds the smallest value >=
// lookup_value assuming descending order.
func (bf *BuiltInFunctions) MATCH(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	lookupValue := args[0]
	array, err := asCellRange(args[1], "MATCH")
	if err != nil {
		return nil, err
	}

	matchType := 1
	if len(args) == 3 {
		if err := checkForError(args[2]); err != nil {
			return nil, err
		}
		matchTypeF, ok := toNumber(args[2])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "MATCH requires a numeric match type")
		}
		matchType = int(matchTypeF)
	}

	flat := flattenGrid(rangeGrid(array))

	switch matchType {
	case 0:
		for i, v := range flat {
			if valuesEqual(v, lookupValue) {
				return float64(i + 1), nil
			}
		}
		return nil, NewSpreadsheetError(ErrorCodeNA, "MATCH could not find value")
	case 1:
		best := -1
		for i, v := range flat {
			if compareValues(v, lookupValue) > 0 {
				break
			}
			best = i
		}
		if best == -1 {
			return nil, NewSpreadsheetError(ErrorCodeNA, "MATCH could not find value")
		}
		return float64(best + 1), nil
	case -1:
		best := -1
		for i, v := range flat {
			if compareValues(v, lookupValue) < 0 {
				break
			}
			best = i
		}
		if best == -1 {
			return nil, NewSpreadsheetError(ErrorCodeNA, "MATCH could not find value")
		}
		return float64(best + 1), nil
	default:
		return nil, NewSpreadsheetError(ErrorCodeValue, "MATCH match type must be -1, 0, or 1")
	}
}

func flattenGrid(grid [][]Primitive) []Primitive {
	var out []Primitive
	for _, row := range grid {
		out = append(out, row...)
	}
	return out
}

// XLOOKUP is VLOOKUP's modern replacement: lookup_array and return_array
// are independent equal-length ranges, search can run in either direction,
// and the match mode supports exact, approximate, and wildcard matching.
func (bf *BuiltInFunctions) XLOOKUP(args ...any) (Primitive, error) {
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}
	lookupValue := args[0]

	lookupRange, err := asCellRange(args[1], "XLOOKUP")
	if err != nil {
		return nil, err
	}
	returnRange, err := asCellRange(args[2], "XLOOKUP")
	if err != nil {
		return nil, err
	}

	var ifNotFound Primitive
	hasIfNotFound := false
	if len(args) >= 4 && args[3] != nil {
		ifNotFound = args[3]
		hasIfNotFound = true
	}

	matchMode := 0
	if len(args) >= 5 {
		if err := checkForError(args[4]); err != nil {
			return nil, err
		}
		m, ok := toNumber(args[4])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "XLOOKUP requires a numeric match mode")
		}
		matchMode = int(m)
	}

	searchMode := 1
	if len(args) == 6 {
		if err := checkForError(args[5]); err != nil {
			return nil, err
		}
		s, ok := toNumber(args[5])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "XLOOKUP requires a numeric search mode")
		}
		searchMode = int(s)
	}

	lookupFlat := flattenGrid(rangeGrid(lookupRange))
	returnFlat := flattenGrid(rangeGrid(returnRange))
	if len(lookupFlat) != len(returnFlat) {
		return nil, NewSpreadsheetError(ErrorCodeValue, "XLOOKUP lookup_array and return_array must be the same size")
	}

	idx, found := xlookupSearch(lookupFlat, lookupValue, matchMode, searchMode)
	if !found {
		if hasIfNotFound {
			return ifNotFound, nil
		}
		return nil, NewSpreadsheetError(ErrorCodeNA, "XLOOKUP could not find value")
	}
	return returnFlat[idx], nil
}

// xlookupSearch applies match_mode (0 exact, -1 next-smaller, 1
// next-larger, 2 wildcard) and search_mode (1 or 2 first-to-last, -1 or -2
// last-to-first; the binary-search modes ±2 use the same linear scan as
// ±1) over flat. Approximate modes -1/1 fall back to a
// direction-honoring linear scan rather than a true binary search, since
// binary search requires the array to actually be sorted and nothing here
// asserts that.
func xlookupSearch(flat []Primitive, lookupValue Primitive, matchMode, searchMode int) (int, bool) {
	indices := make([]int, len(flat))
	for i := range indices {
		indices[i] = i
	}
	if searchMode < 0 {
		for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
			indices[i], indices[j] = indices[j], indices[i]
		}
	}

	switch matchMode {
	case 0:
		for _, i := range indices {
			if valuesEqual(flat[i], lookupValue) {
				return i, true
			}
		}
		return 0, false
	case 2:
		pattern, ok := lookupValue.(string)
		if !ok {
			return 0, false
		}
		for _, i := range indices {
			text, ok := flat[i].(string)
			if !ok {
				continue
			}
			if wildcardMatch(pattern, text) {
				return i, true
			}
		}
		return 0, false
	case -1:
		best := -1
		for _, i := range indices {
			if valuesEqual(flat[i], lookupValue) {
				return i, true
			}
			if compareValues(flat[i], lookupValue) < 0 {
				if best == -1 || compareValues(flat[i], flat[best]) > 0 {
					best = i
				}
			}
		}
		if best == -1 {
			return 0, false
		}
		return best, true
	case 1:
		best := -1
		for _, i := range indices {
			if valuesEqual(flat[i], lookupValue) {
				return i, true
			}
			if compareValues(flat[i], lookupValue) > 0 {
				if best == -1 || compareValues(flat[i], flat[best]) < 0 {
					best = i
				}
			}
		}
		if best == -1 {
			return 0, false
		}
		return best, true
	default:
		return 0, false
	}
}

// OFFSET returns a reference rows/cols away from reference, optionally
// resized to height/width. Because the engine resolves references at
// parse time into fixed row/column offsets, OFFSET is evaluated eagerly
// here against the already-resolved range/cell rather than producing a
// new lazily-positioned AST node.
func (bf *BuiltInFunctions) OFFSET(args ...any) (Primitive, error) {
	for _, a := range args[:3] {
		if err := checkForError(a); err != nil {
			return nil, err
		}
	}

	base, ok := args[0].(*CellRange)
	if !ok {
		return nil, NewSpreadsheetError(ErrorCodeValue, "OFFSET requires a range or cell reference")
	}

	rowsF, ok1 := toNumber(args[1])
	colsF, ok2 := toNumber(args[2])
	if !ok1 || !ok2 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "OFFSET requires numeric row/column offsets")
	}
	rows, cols := int32(rowsF), int32(colsF)

	height := int32(base.endRow-base.startRow) + 1
	width := int32(base.endCol-base.startCol) + 1
	if len(args) >= 4 && args[3] != nil {
		if err := checkForError(args[3]); err != nil {
			return nil, err
		}
		h, ok := toNumber(args[3])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "OFFSET requires a numeric height")
		}
		height = int32(h)
	}
	if len(args) == 5 && args[4] != nil {
		if err := checkForError(args[4]); err != nil {
			return nil, err
		}
		w, ok := toNumber(args[4])
		if !ok {
			return nil, NewSpreadsheetError(ErrorCodeValue, "OFFSET requires a numeric width")
		}
		width = int32(w)
	}

	if height < 1 || width < 1 {
		return nil, NewSpreadsheetError(ErrorCodeValue, "OFFSET height and width must be positive")
	}

	newStartRow := int32(base.startRow) + rows
	newStartCol := int32(base.startCol) + cols
	if newStartRow < 0 || newStartCol < 0 {
		return nil, NewSpreadsheetError(ErrorCodeRef, "OFFSET reference is out of range")
	}

	return &CellRange{
		worksheetID: base.worksheetID,
		startRow:    uint32(newStartRow),
		startCol:    uint32(newStartCol),
		endRow:      uint32(newStartRow + height - 1),
		endCol:      uint32(newStartCol + width - 1),
		worksheet:   base.worksheet,
		storage:     base.storage,
	}, nil
}
