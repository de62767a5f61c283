package main

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// CircularDependencyError reports a cycle discovered while wiring a new
// input edge into the dependency graph. Unlike the #REF! value errors that
// formula evaluation produces for cycles found during calculation, this is
// a structural error surfaced at edit time, before any formula is stored.
type CircularDependencyError struct {
	From  CellAddress
	To    CellAddress
	Cycle []CellAddress
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected while adding input"
}

// AddInput wires a precedent edge (from depends on to) into the graph and
// rejects it if doing so would introduce a cycle, leaving the graph
// unchanged on rejection. This is the insert-time cousin of the #REF!
// cycle detection calculateCell performs lazily during evaluation: callers
// that want to refuse a bad edit outright (rather than store it and let a
// later Calculate() surface a #REF!) should route through AddInput.
func (dg *DependencyGraph) AddInput(from, to CellAddress) error {
	if from == to {
		return &CircularDependencyError{From: from, To: to, Cycle: []CellAddress{from}}
	}

	if path, found := dg.findPath(from, to); found {
		return &CircularDependencyError{From: from, To: to, Cycle: append(path, from)}
	}

	dg.AddCellDependency(from, to)
	return nil
}

// findPath performs a DFS from start over dependents looking for target,
// returning the path (start..target) if reachable. AddInput calls it with
// start=from and target=to: if from already reaches to over dependents, to
// already depends on from, so wiring from->to would close a cycle.
func (dg *DependencyGraph) findPath(start, target CellAddress) ([]CellAddress, bool) {
	visited := make(map[CellAddress]struct{})
	var path []CellAddress

	var dfs func(addr CellAddress) bool
	dfs = func(addr CellAddress) bool {
		if addr == target {
			path = append(path, addr)
			return true
		}
		if _, seen := visited[addr]; seen {
			return false
		}
		visited[addr] = struct{}{}

		node, exists := dg.nodes[addr]
		if !exists {
			return false
		}
		for dependentAddr := range node.CellDependents {
			if dfs(dependentAddr) {
				path = append(path, addr)
				return true
			}
		}
		return false
	}

	if dfs(start) {
		// reverse into start->...->target order
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
		return path, true
	}
	return nil, false
}

// RemoveInput removes a precedent edge. Mirror of AddInput for symmetry
// with the spec's add/remove input contract; delegates to the existing
// RemoveCellDependency machinery.
func (dg *DependencyGraph) RemoveInput(from, to CellAddress) bool {
	return dg.RemoveCellDependency(from, to)
}

// PeekDirtyNodes returns the current dirty set without draining it and
// without range expansion, sorted for deterministic output. Used by
// diagnostics that want to inspect pending work without disturbing it.
func (dg *DependencyGraph) PeekDirtyNodes() []CellAddress {
	result := make([]CellAddress, 0, len(dg.dirtySet))
	for addr := range dg.dirtySet {
		result = append(result, addr)
	}
	sortCellAddresses(result)
	return result
}

// GetDirtyNodes drains the dirty set and returns every dirty cell, plus
// everything that transitively depends on one, in dependency order: direct
// dependents and range-observers of any dirty cell are folded in (a cell
// is dirty if it watches a range that overlaps a dirty cell, same as
// MarkCellIfInRangeDirty does lazily), then the whole set is returned as a
// postorder walk over precedents, so that by the time
// a cell appears in the result every one of its precedents has already
// appeared. The dirty set is cleared as part of this call; callers that
// only want to look are expected to use PeekDirtyNodes instead.
func (dg *DependencyGraph) GetDirtyNodes() []CellAddress {
	expanded := make(map[CellAddress]struct{}, len(dg.dirtySet))
	for addr := range dg.dirtySet {
		expanded[addr] = struct{}{}
	}

	// expand: any direct dependent of a dirty cell, and any cell observing a
	// range that contains a dirty cell, is itself dirty, transitively, until
	// a fixed point is reached.
	for changed := true; changed; {
		changed = false
		for addr := range expanded {
			node, exists := dg.nodes[addr]
			if !exists {
				continue
			}
			for depAddr := range node.CellDependents {
				if _, already := expanded[depAddr]; !already {
					expanded[depAddr] = struct{}{}
					changed = true
				}
			}
		}
		for rangeAddr, observers := range dg.rangeObservers {
			coversDirty := false
			for addr := range expanded {
				if dg.IsInRange(addr, rangeAddr) {
					coversDirty = true
					break
				}
			}
			if !coversDirty {
				continue
			}
			for observerAddr := range observers {
				if _, already := expanded[observerAddr]; !already {
					expanded[observerAddr] = struct{}{}
					changed = true
				}
			}
		}
	}

	visited := make(map[CellAddress]struct{}, len(expanded))
	var order []CellAddress

	var visit func(addr CellAddress)
	visit = func(addr CellAddress) {
		if _, seen := visited[addr]; seen {
			return
		}
		visited[addr] = struct{}{}
		if node, exists := dg.nodes[addr]; exists {
			precedents := make([]CellAddress, 0, len(node.CellPrecedents))
			for p := range node.CellPrecedents {
				precedents = append(precedents, p)
			}
			sortCellAddresses(precedents)
			for _, p := range precedents {
				if _, isDirty := expanded[p]; isDirty {
					visit(p)
				}
			}
		}
		order = append(order, addr)
	}

	roots := make([]CellAddress, 0, len(expanded))
	for addr := range expanded {
		roots = append(roots, addr)
	}
	sortCellAddresses(roots)
	for _, addr := range roots {
		visit(addr)
	}

	dg.dirtySet = make(map[CellAddress]struct{})
	return order
}

// GetPrecedents is an alias of GetDirectPrecedents under the spec's
// naming, kept distinct from GetAllPrecedents for symmetry with
// GetDirectDependents/GetAllDependents.
func (dg *DependencyGraph) GetPrecedents(addr CellAddress) []CellAddress {
	return dg.GetDirectPrecedents(addr)
}

// GetAllPrecedents returns the transitive closure of cells that addr
// depends on, mirroring GetAllDependents.
func (dg *DependencyGraph) GetAllPrecedents(addr CellAddress) []CellAddress {
	visited := make(map[CellAddress]struct{})
	var result []CellAddress
	dg.collectPrecedents(addr, visited, &result)
	return result
}

func (dg *DependencyGraph) collectPrecedents(addr CellAddress, visited map[CellAddress]struct{}, result *[]CellAddress) {
	if _, seen := visited[addr]; seen {
		return
	}
	visited[addr] = struct{}{}

	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	for precedentAddr := range node.CellPrecedents {
		if _, seen := visited[precedentAddr]; !seen {
			*result = append(*result, precedentAddr)
			dg.collectPrecedents(precedentAddr, visited, result)
		}
	}
}

// GetDependents returns the non-transitive set of cells directly affected
// by addr changing, including cells that observe a range covering addr.
// This is the range-expanded counterpart to GetDirectDependents.
func (dg *DependencyGraph) GetDependents(addr CellAddress) []CellAddress {
	affected := make(map[CellAddress]struct{})
	for _, dep := range dg.GetDirectDependents(addr) {
		affected[dep] = struct{}{}
	}
	for rangeAddr, observers := range dg.rangeObservers {
		if dg.IsInRange(addr, rangeAddr) {
			for observerAddr := range observers {
				affected[observerAddr] = struct{}{}
			}
		}
	}
	result := make([]CellAddress, 0, len(affected))
	for a := range affected {
		result = append(result, a)
	}
	sortCellAddresses(result)
	return result
}

// DeleteSheet removes every node belonging to a worksheet, along with any
// range observer entries scoped to it. Used when a worksheet is dropped
// from the workbook so the graph doesn't accumulate orphaned nodes.
func (dg *DependencyGraph) DeleteSheet(worksheetID uint32) {
	for addr := range dg.nodes {
		if addr.WorksheetID == worksheetID {
			dg.RemoveNode(addr)
		}
	}
	for rangeAddr := range dg.rangeObservers {
		if rangeAddr.WorksheetID == worksheetID {
			delete(dg.rangeObservers, rangeAddr)
		}
	}
}

func sortCellAddresses(addrs []CellAddress) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].WorksheetID != addrs[j].WorksheetID {
			return addrs[i].WorksheetID < addrs[j].WorksheetID
		}
		if addrs[i].Row != addrs[j].Row {
			return addrs[i].Row < addrs[j].Row
		}
		return addrs[i].Column < addrs[j].Column
	})
}

// dagSnapshotEdge is the JSON-serializable form of a single precedent edge.
type dagSnapshotEdge struct {
	From CellAddress `json:"from"`
	To   CellAddress `json:"to"`
}

// dagSnapshotRange is the JSON-serializable form of a range observer entry.
type dagSnapshotRange struct {
	Range     RangeAddress  `json:"range"`
	Observers []CellAddress `json:"observers"`
}

// DependencyGraphSnapshot is the on-disk representation of a dependency
// graph, stamped with a fresh snapshot identifier so two exports of the
// same logical graph can still be told apart, e.g. in an audit log.
type DependencyGraphSnapshot struct {
	SnapshotID string             `json:"snapshot_id"`
	Edges      []dagSnapshotEdge  `json:"edges"`
	Ranges     []dagSnapshotRange `json:"ranges"`
}

// ToJSON serializes the graph's edges and range observers into a portable
// snapshot. Formulas, values, and dirty/volatile state are intentionally
// left out: callers reconstructing a graph from a snapshot must re-run
// compilation over the stored formula text in the formula table, since the
// graph by itself is just the dependency topology.
func (dg *DependencyGraph) ToJSON() ([]byte, error) {
	snapshot := DependencyGraphSnapshot{
		SnapshotID: uuid.NewString(),
	}

	for addr, node := range dg.nodes {
		for precedentAddr := range node.CellPrecedents {
			snapshot.Edges = append(snapshot.Edges, dagSnapshotEdge{From: addr, To: precedentAddr})
		}
	}
	sort.Slice(snapshot.Edges, func(i, j int) bool {
		if snapshot.Edges[i].From != snapshot.Edges[j].From {
			return addrLess(snapshot.Edges[i].From, snapshot.Edges[j].From)
		}
		return addrLess(snapshot.Edges[i].To, snapshot.Edges[j].To)
	})

	for rangeAddr, observers := range dg.rangeObservers {
		entry := dagSnapshotRange{Range: rangeAddr}
		for addr := range observers {
			entry.Observers = append(entry.Observers, addr)
		}
		sortCellAddresses(entry.Observers)
		snapshot.Ranges = append(snapshot.Ranges, entry)
	}

	return json.Marshal(snapshot)
}

// FromJSON rebuilds a dependency graph's edges and range observers from a
// snapshot produced by ToJSON. The snapshot_id itself is not restored into
// graph state; it exists purely for external bookkeeping.
func FromJSON(data []byte) (*DependencyGraph, error) {
	var snapshot DependencyGraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}

	dg := NewDependencyGraph()
	for _, edge := range snapshot.Edges {
		dg.AddCellDependency(edge.From, edge.To)
	}
	for _, entry := range snapshot.Ranges {
		for _, observer := range entry.Observers {
			dg.AddRangeDependency(observer, entry.Range)
		}
	}
	return dg, nil
}

func addrLess(a, b CellAddress) bool {
	if a.WorksheetID != b.WorksheetID {
		return a.WorksheetID < b.WorksheetID
	}
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Column < b.Column
}
