package main

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Resolver is the read-only view of workbook state that a bulk recompute
// pass prefetches ranges through, letting a caller warm its own (possibly
// cached, possibly remote) notion of cell and range values ahead of
// evaluation. Formula evaluation itself still reads this engine's worksheet
// storage. The default storageResolver implements GetSheetCell/GetSheetRange
// by resolving the sheet name and delegating to GetCell/GetRange.
type Resolver interface {
	GetCell(addr CellAddress) Primitive
	GetRange(r RangeAddress) []Primitive
	CurrentCell() (CellAddress, bool)
	GetSheetCell(sheetName string, addr CellAddress) Primitive
	GetSheetRange(sheetName string, r RangeAddress) []Primitive
}

// storageResolver is the default Resolver, reading straight out of the
// spreadsheet's own worksheet storage. Recompute falls back to this when
// the caller passes a nil resolver, so it behaves like Calculate() read-wise
// while still going through the bulk topological path.
type storageResolver struct {
	s *Spreadsheet
}

func (r *storageResolver) GetCell(addr CellAddress) Primitive {
	worksheet, exists := r.s.storage.worksheets.GetWorksheet(addr.WorksheetID)
	if !exists {
		return nil
	}
	cell := worksheet.GetCell(addr.Row, addr.Column)
	if cell == nil {
		return nil
	}
	return cell.Value
}

func (r *storageResolver) GetRange(rng RangeAddress) []Primitive {
	worksheet, exists := r.s.storage.worksheets.GetWorksheet(rng.WorksheetID)
	if !exists {
		return nil
	}
	cellRange := &CellRange{
		worksheetID: rng.WorksheetID,
		startRow:    rng.StartRow,
		startCol:    rng.StartColumn,
		endRow:      rng.EndRow,
		endCol:      rng.EndColumn,
		worksheet:   worksheet,
		storage:     r.s.storage,
	}
	var values []Primitive
	for v := range cellRange.IterateValues() {
		values = append(values, v)
	}
	return values
}

func (r *storageResolver) CurrentCell() (CellAddress, bool) {
	addr := r.s.GetCurrentAddress()
	return addr, addr != (CellAddress{})
}

func (r *storageResolver) GetSheetCell(sheetName string, addr CellAddress) Primitive {
	worksheetID := r.s.resolveWorksheetByName(sheetName)
	addr.WorksheetID = worksheetID
	return r.GetCell(addr)
}

func (r *storageResolver) GetSheetRange(sheetName string, rng RangeAddress) []Primitive {
	rng.WorksheetID = r.s.resolveWorksheetByName(sheetName)
	return r.GetRange(rng)
}

// recomputeBatchSize bounds how many topologically-adjacent dirty nodes are
// prefetched together by a single errgroup wave. It has no effect on
// correctness (every node is still evaluated in full topological order
// afterward) - it only bounds how much read-side range materialization runs
// concurrently at once.
const recomputeBatchSize = 32

// Recompute drains the dependency graph's dirty set and evaluates every
// node in topological order against worksheet storage, writing results back into
// workbook storage and propagating dirtiness to each node's direct
// dependents as it completes. It is the bulk-facade counterpart to
// Calculate(): where Calculate recurses cell-by-cell through a calculation
// stack that detects cycles lazily, Recompute takes the dirty set's
// precomputed topological order as given and walks it in batches, using a
// resolver-driven parallel-prefetch stage ahead of each batch to warm every
// RangeRef precedent it will need. The prefetch is read-only - it never
// writes back a result - so it can run concurrently without breaking the
// single-writer rule the synchronous evaluation phase depends on.
func (s *Spreadsheet) Recompute(ctx context.Context, resolver Resolver) error {
	if resolver == nil {
		resolver = &storageResolver{s: s}
	}

	s.storage.dependencyGraph.MarkAllVolatileDirty()
	order := s.storage.dependencyGraph.GetDirtyNodes()

	s.calculationStack.reset()

	for start := 0; start < len(order); start += recomputeBatchSize {
		end := start + recomputeBatchSize
		if end > len(order) {
			end = len(order)
		}
		batch := order[start:end]

		g, gctx := errgroup.WithContext(ctx)
		for _, addr := range batch {
			addr := addr
			g.Go(func() error {
				return s.prefetchRangePrecedents(gctx, addr, resolver)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, addr := range batch {
			s.recomputeNode(addr)
		}
	}

	return nil
}

// prefetchRangePrecedents resolves every RangeRef precedent addr's formula
// depends on, ahead of the synchronous evaluation phase. It discards the
// values - its only job is to warm the resolver (and, for a remote or
// cached resolver, surface any lookup failure) before the batch commits to
// evaluating in order.
func (s *Spreadsheet) prefetchRangePrecedents(ctx context.Context, addr CellAddress, resolver Resolver) error {
	for _, rangeAddr := range s.storage.dependencyGraph.GetRangePrecedents(addr) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		resolver.GetRange(rangeAddr)
	}
	return nil
}

// recomputeNode evaluates the formula at addr (if any) and writes its
// result back into worksheet storage, mirroring calculateCell's write-back
// and dirty-propagation behavior but without calculateCell's recursive
// precedent walk - Recompute's caller already handed it precedents in
// order via GetDirtyNodes.
func (s *Spreadsheet) recomputeNode(addr CellAddress) {
	worksheet, exists := s.storage.worksheets.GetWorksheet(addr.WorksheetID)
	if !exists {
		s.storage.dependencyGraph.ClearDirty(addr)
		return
	}

	cell := worksheet.GetCell(addr.Row, addr.Column)
	if cell == nil || cell.FormulaID == 0 {
		s.storage.dependencyGraph.ClearDirty(addr)
		return
	}

	ast, exists := s.storage.formulas.GetAST(cell.FormulaID)
	if !exists {
		s.storage.dependencyGraph.ClearDirty(addr)
		return
	}

	s.currentAddress = addr
	result, err := s.evalWithRecover(ast, addr)
	if err != nil {
		if spreadsheetErr, ok := err.(*SpreadsheetError); ok {
			worksheet.SetFormulaResult(addr.Row, addr.Column, spreadsheetErr)
		} else {
			worksheet.SetFormulaResult(addr.Row, addr.Column, NewSpreadsheetError(ErrorCodeValue, err.Error()))
		}
		s.storage.dependencyGraph.ClearDirty(addr)
		return
	}

	if spreadsheetErr, ok := result.(*SpreadsheetError); ok {
		worksheet.SetFormulaResult(addr.Row, addr.Column, spreadsheetErr)
		s.storage.dependencyGraph.ClearDirty(addr)
		return
	}

	if result == nil {
		result = 0.0
	}
	worksheet.SetFormulaResult(addr.Row, addr.Column, result)
	s.storage.dependencyGraph.ClearDirty(addr)

	for _, dep := range s.storage.dependencyGraph.GetDirectDependents(addr) {
		s.storage.dependencyGraph.MarkDirty(dep)
	}
}
