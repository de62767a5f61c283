package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(ws, row, col uint32) CellAddress {
	return CellAddress{WorksheetID: ws, Row: row, Column: col}
}

func TestAddInputRejectsSelfLoop(t *testing.T) {
	dg := NewDependencyGraph()
	a := addr(1, 0, 0)

	err := dg.AddInput(a, a)
	require.Error(t, err)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestAddInputRejectsTransitiveCycle(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0) // A1
	a2 := addr(1, 1, 0) // A2
	a3 := addr(1, 2, 0) // A3

	// A2 depends on A1, A3 depends on A2.
	require.NoError(t, dg.AddInput(a2, a1))
	require.NoError(t, dg.AddInput(a3, a2))

	// A1 depending on A3 would close the cycle A1 -> A3 -> A2 -> A1.
	err := dg.AddInput(a1, a3)
	require.Error(t, err)
	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
}

func TestAddInputAcceptsAcyclicEdge(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)

	require.NoError(t, dg.AddInput(a2, a1))
	assert.ElementsMatch(t, []CellAddress{a1}, dg.GetPrecedents(a2))
	assert.ElementsMatch(t, []CellAddress{a2}, dg.GetDependents(a1))
}

func TestRemoveInput(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)

	require.NoError(t, dg.AddInput(a2, a1))
	assert.True(t, dg.RemoveInput(a2, a1))
	assert.Empty(t, dg.GetPrecedents(a2))
}

func TestPeekDirtyNodesDoesNotDrain(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)

	dg.MarkDirty(a1)
	first := dg.PeekDirtyNodes()
	second := dg.PeekDirtyNodes()
	assert.Equal(t, first, second)
	assert.Contains(t, first, a1)
}

func TestGetDirtyNodesDrainsAndOrdersTopologically(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0) // A1
	a2 := addr(1, 1, 0) // A2, depends on A1
	a3 := addr(1, 2, 0) // A3, depends on A2

	require.NoError(t, dg.AddInput(a2, a1))
	require.NoError(t, dg.AddInput(a3, a2))

	dg.MarkDirty(a3)
	dg.MarkDirty(a1)
	dg.MarkDirty(a2)

	order := dg.GetDirtyNodes()
	require.Len(t, order, 3)

	index := make(map[CellAddress]int, len(order))
	for i, a := range order {
		index[a] = i
	}
	assert.Less(t, index[a1], index[a2])
	assert.Less(t, index[a2], index[a3])

	// draining means a second call sees nothing left.
	assert.Empty(t, dg.GetDirtyNodes())
}

func TestGetDirtyNodesExpandsRangeObservers(t *testing.T) {
	dg := NewDependencyGraph()
	cellInRange := addr(1, 0, 0) // A1
	observer := addr(1, 5, 0)    // A6, watches A1:A3

	rangeAddr := RangeAddress{WorksheetID: 1, StartRow: 0, StartColumn: 0, EndRow: 2, EndColumn: 0}
	dg.AddRangeDependency(observer, rangeAddr)

	dg.MarkDirty(cellInRange)
	order := dg.GetDirtyNodes()
	assert.Contains(t, order, observer)
}

func TestGetAllPrecedentsTransitiveClosure(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)
	a3 := addr(1, 2, 0)

	require.NoError(t, dg.AddInput(a2, a1))
	require.NoError(t, dg.AddInput(a3, a2))

	assert.ElementsMatch(t, []CellAddress{a1, a2}, dg.GetAllPrecedents(a3))
}

func TestDeleteSheetRemovesOnlyThatSheet(t *testing.T) {
	dg := NewDependencyGraph()
	sheet1Dependent := addr(1, 1, 0)
	sheet1Precedent := addr(1, 0, 0)
	sheet2Cell := addr(2, 0, 0)

	require.NoError(t, dg.AddInput(sheet1Dependent, sheet1Precedent))
	dg.MarkDirty(sheet2Cell)

	dg.DeleteSheet(1)
	assert.Empty(t, dg.GetDirectDependents(sheet1Precedent))
	assert.Contains(t, dg.PeekDirtyNodes(), sheet2Cell)
}

func TestDependencyGraphJSONRoundTrip(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)
	observer := addr(1, 5, 0)
	rangeAddr := RangeAddress{WorksheetID: 1, StartRow: 0, StartColumn: 0, EndRow: 2, EndColumn: 0}

	require.NoError(t, dg.AddInput(a2, a1))
	dg.AddRangeDependency(observer, rangeAddr)

	data, err := dg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "snapshot_id")

	restored, err := FromJSON(data)
	require.NoError(t, err)
	assert.ElementsMatch(t, []CellAddress{a1}, restored.GetPrecedents(a2))
	assert.ElementsMatch(t, []CellAddress{a2, observer}, restored.GetDependents(a1))
}

func TestDependencyGraphJSONSnapshotIDsDiffer(t *testing.T) {
	dg := NewDependencyGraph()
	dg.AddCellDependency(addr(1, 1, 0), addr(1, 0, 0))

	first, err := dg.ToJSON()
	require.NoError(t, err)
	second, err := dg.ToJSON()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
