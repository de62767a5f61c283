package main

import (
	"regexp"
	"strconv"
)

// r1c1CellPattern matches a single R1C1-style reference. Each axis is
// either bare (R or C alone, meaning "this row"/"this column"), a bare
// number (R5, C3, meaning an absolute row/column), or a bracketed
// possibly-negative number (R[-2], C[3], meaning an offset from the
// current cell). Both the R and the C letter must be present; only the
// number after each is optional. The caller uses this to tell a reference
// apart from a named range.
var r1c1CellPattern = regexp.MustCompile(`(?i)^R(\[(-?[0-9]+)\]|([0-9]+))?C(\[(-?[0-9]+)\]|([0-9]+))?$`)

// r1c1RangePattern matches an R1C1 range, e.g. "R1C1:R5C5" or
// "R[-1]C[0]:R[1]C[0]".
var r1c1RangePattern = regexp.MustCompile(`(?i)^(R(?:\[-?[0-9]+\]|[0-9]+)?C(?:\[-?[0-9]+\]|[0-9]+)?):(R(?:\[-?[0-9]+\]|[0-9]+)?C(?:\[-?[0-9]+\]|[0-9]+)?)$`)

// isR1C1Reference reports whether value looks like an R1C1 cell or range
// reference rather than a named range identifier.
func isR1C1Reference(value string) bool {
	return r1c1CellPattern.MatchString(value) || r1c1RangePattern.MatchString(value)
}

// r1c1Offset resolves a single R1C1 reference string to the row/column
// offset from (currentRow, currentCol) that a CellRefNode/RangeNode
// expects, since both node types already store relative offsets
// regardless of whether the original notation was A1 or R1C1.
func r1c1Offset(value string, currentRow, currentCol int32) (rowOffset, colOffset int32, err error) {
	m := r1c1CellPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, NewSpreadsheetError(ErrorCodeRef, "invalid R1C1 reference: "+value)
	}

	// group indices: 1=whole row spec, 2=bracketed row, 3=bare row,
	// 4=whole col spec, 5=bracketed col, 6=bare col
	rowOffset, err = r1c1AxisOffset(m[2], m[3], currentRow)
	if err != nil {
		return 0, 0, err
	}
	colOffset, err = r1c1AxisOffset(m[5], m[6], currentCol)
	if err != nil {
		return 0, 0, err
	}
	return rowOffset, colOffset, nil
}

// r1c1AxisOffset converts one axis of an R1C1 reference into an offset
// from the current position. An empty bracketed and bare capture means the
// bare "R" or "C" form, which refers to the current row/column (offset 0).
func r1c1AxisOffset(bracketed, bare string, current int32) (int32, error) {
	switch {
	case bracketed != "":
		n, err := strconv.Atoi(bracketed)
		if err != nil {
			return 0, NewSpreadsheetError(ErrorCodeRef, "invalid R1C1 offset: "+bracketed)
		}
		return int32(n), nil
	case bare != "":
		n, err := strconv.Atoi(bare)
		if err != nil {
			return 0, NewSpreadsheetError(ErrorCodeRef, "invalid R1C1 index: "+bare)
		}
		// R1C1 absolute indices are 1-based; offsets are 0-based deltas
		// from the current cell, matching how parseCellAddress converts
		// A1 notation's 1-based row into a 0-based offset.
		return int32(n-1) - current, nil
	default:
		return 0, nil
	}
}

// parseR1C1Reference parses an R1C1 token recognized by the primary
// expression parser into a CellRefNode or RangeNode, mirroring
// parseCellReference/parseRange for A1 notation.
func (p *Parser) parseR1C1Reference(tok Token) (ASTNode, error) {
	value := tok.Value
	worksheetID := p.context.CurrentWorksheetID

	if rangeMatch := r1c1RangePattern.FindStringSubmatch(value); rangeMatch != nil {
		startRowOffset, startColOffset, err := r1c1Offset(rangeMatch[1], p.context.CurrentRow, p.context.CurrentColumn)
		if err != nil {
			return nil, err
		}
		endRowOffset, endColOffset, err := r1c1Offset(rangeMatch[2], p.context.CurrentRow, p.context.CurrentColumn)
		if err != nil {
			return nil, err
		}
		return &RangeNode{
			WorksheetID:    worksheetID,
			StartRowOffset: startRowOffset,
			StartColOffset: startColOffset,
			EndRowOffset:   endRowOffset,
			EndColOffset:   endColOffset,
			Position:       NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
		}, nil
	}

	rowOffset, colOffset, err := r1c1Offset(value, p.context.CurrentRow, p.context.CurrentColumn)
	if err != nil {
		return nil, err
	}
	return &CellRefNode{
		WorksheetID: worksheetID,
		RowOffset:   rowOffset,
		ColOffset:   colOffset,
		Position:    NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)},
	}, nil
}
