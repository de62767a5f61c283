package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsR1C1Reference(t *testing.T) {
	assert.True(t, isR1C1Reference("R5C3"))
	assert.True(t, isR1C1Reference("R[-1]C[2]"))
	assert.True(t, isR1C1Reference("RC"))
	assert.True(t, isR1C1Reference("R1C1:R5C5"))
	assert.False(t, isR1C1Reference("TotalRevenue"))
	assert.False(t, isR1C1Reference("A1"))
}

func TestR1C1OffsetBareIsAbsolute(t *testing.T) {
	rowOffset, colOffset, err := r1c1Offset("R5C3", 2, 2)
	require.NoError(t, err)
	// absolute row 5 (1-based) is index 4; current row is 2, so offset is 2.
	assert.Equal(t, int32(2), rowOffset)
	assert.Equal(t, int32(0), colOffset)
}

func TestR1C1OffsetBracketedIsRelative(t *testing.T) {
	rowOffset, colOffset, err := r1c1Offset("R[-1]C[2]", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), rowOffset)
	assert.Equal(t, int32(2), colOffset)
}

func TestR1C1OffsetBareAxisMeansCurrent(t *testing.T) {
	rowOffset, colOffset, err := r1c1Offset("RC", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(0), rowOffset)
	assert.Equal(t, int32(0), colOffset)
}

func TestParseR1C1ReferenceBuildsCellRefNode(t *testing.T) {
	parser := createTestParser()
	tok := Token{Type: TokenIdentifier, Value: "R[-1]C[1]", Pos: 0}
	node, err := parser.parseR1C1Reference(tok)
	require.NoError(t, err)

	cellRef, ok := node.(*CellRefNode)
	require.True(t, ok)
	assert.Equal(t, int32(-1), cellRef.RowOffset)
	assert.Equal(t, int32(1), cellRef.ColOffset)
}

func TestParseR1C1ReferenceBuildsRangeNode(t *testing.T) {
	parser := createTestParser()
	tok := Token{Type: TokenIdentifier, Value: "R1C1:R2C2", Pos: 0}
	node, err := parser.parseR1C1Reference(tok)
	require.NoError(t, err)

	rangeNode, ok := node.(*RangeNode)
	require.True(t, ok)
	assert.Equal(t, int32(0), rangeNode.StartRowOffset)
	assert.Equal(t, int32(0), rangeNode.StartColOffset)
}

func TestParserAcceptsR1C1Formula(t *testing.T) {
	assert.True(t, parseFormula("=R[-1]C[0]+1"))
	assert.True(t, parseFormula("=SUM(R1C1:R5C1)"))
}
