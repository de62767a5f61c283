package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDependencyLifecycle(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	key := NamedRangeStaticKey("DataRange")

	dg.AddStaticDependency(a1, key)
	node, exists := dg.GetNode(a1)
	require.True(t, exists)
	_, tracked := node.StaticPrecedents[key]
	assert.True(t, tracked)

	static, exists := dg.staticNodes[key]
	require.True(t, exists)
	_, isDependent := static.Dependents[a1]
	assert.True(t, isDependent)

	dg.RemoveStaticDependency(a1, key)
	_, tracked = dg.nodes[a1].StaticPrecedents[key]
	assert.False(t, tracked)
	_, exists = dg.staticNodes[key]
	assert.False(t, exists, "static node should be dropped once it has no dependents left")
}

func TestMarkStaticDirtyMarksAllDependents(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)
	key := NamedRangeStaticKey("DataRange")

	dg.AddStaticDependency(a1, key)
	dg.AddStaticDependency(a2, key)
	dg.ClearDirty(a1)
	dg.ClearDirty(a2)

	dg.MarkStaticDirty(key)

	assert.True(t, dg.nodes[a1].IsDirty)
	assert.True(t, dg.nodes[a2].IsDirty)

	dg.MarkStaticDirty(NamedRangeStaticKey("NoSuchRange")) // must not panic
}

func TestRemoveNodeDropsStaticEdges(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	key := NamedRangeStaticKey("DataRange")

	dg.AddStaticDependency(a1, key)
	dg.RemoveNode(a1)

	_, exists := dg.staticNodes[key]
	assert.False(t, exists)
}

func TestCanonicalKeyFormat(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(3, 0, 0) // A1 on worksheet 3

	assert.Equal(t, "3!A1", dg.CanonicalKey(a1))

	node := dg.GetOrCreateNode(a1)
	node.DataValidationID = "dv7"
	assert.Equal(t, "dv73!A1", dg.CanonicalKey(a1))
}

func TestCanonicalRangeKeyFormat(t *testing.T) {
	r := RangeAddress{WorksheetID: 2, StartRow: 0, StartColumn: 0, EndRow: 2, EndColumn: 0}
	assert.Equal(t, "2!A1:A3", CanonicalRangeKey(r))
}

func TestSnapshotEntryMarshalsAsPair(t *testing.T) {
	entry := SnapshotEntry{
		Key: "1!A1",
		Node: SnapshotNode{
			InputKeys:     []SnapshotNodeIdentifier{},
			DependentKeys: []SnapshotNodeIdentifier{},
		},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	var key string
	require.NoError(t, json.Unmarshal(decoded[0], &key))
	assert.Equal(t, "1!A1", key)
}

func TestSnapshotCoversCellRangeAndStaticNodes(t *testing.T) {
	dg := NewDependencyGraph()
	a1 := addr(1, 0, 0)
	a2 := addr(1, 1, 0)
	rng := RangeAddress{WorksheetID: 1, StartRow: 0, StartColumn: 0, EndRow: 2, EndColumn: 0}
	staticKey := NamedRangeStaticKey("DataRange")

	dg.AddCellDependency(a2, a1)
	dg.AddRangeDependency(a2, rng)
	dg.AddStaticDependency(a2, staticKey)

	entries := dg.Snapshot()

	keys := make(map[string]bool)
	for _, e := range entries {
		keys[e.Key] = true
	}

	assert.True(t, keys[dg.CanonicalKey(a1)])
	assert.True(t, keys[dg.CanonicalKey(a2)])
	assert.True(t, keys[CanonicalRangeKey(rng)])
	assert.True(t, keys[staticKey])

	data, err := json.Marshal(entries)
	require.NoError(t, err)

	var decoded []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, len(entries))
}
