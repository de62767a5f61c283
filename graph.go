package main

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NodeKind distinguishes the three kinds of node the dependency graph can
// hold, following the Cell/Range/Static split used by the canonical-key and
// JSON-snapshot scheme: a Cell has a worksheet position, a Range is a
// rectangle of cells observed in bulk (e.g. by SUM), and a Static is a
// position-less source a formula can depend on by name, such as a named
// range's binding rather than its current target cells.
type NodeKind int

const (
	NodeKindCell NodeKind = iota
	NodeKindRange
	NodeKindStatic
)

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	// address of *THIS* node
	WorksheetID uint32
	Row         uint32
	Col         uint32

	// cell-to-cell dependencies
	CellPrecedents map[CellAddress]*DependencyNode // cells this cell depends on
	CellDependents map[CellAddress]*DependencyNode // cells that depend on this cell

	// range dependencies (only for formula cells that depend on ranges)
	RangePrecedents map[RangeAddress]struct{} // ranges this cell depends on (lazy)

	// static dependencies: formulas that reference a position-less source
	// (currently: named ranges) by key rather than by cell/range.
	StaticPrecedents map[string]struct{}

	// formula and value. Nodes are also created for plain value cells that
	// only appear as precedents, so Formula can be empty.
	Formula string    // formula if it's a formula cell
	Value   Primitive // cached calculated value

	// dirty tracking
	IsDirty bool // whether this cell needs recalculation

	// DataValidationID and ConditionalFormatID, when set, prefix this node's
	// canonical key ("{prefix}{sheet_id}!{A1}"), letting a single cell carry
	// more than one independently-keyed dependency-graph identity (its plain
	// value, plus one per attached validation/format rule).
	DataValidationID    string
	ConditionalFormatID string
}

// StaticNode is a position-less dependency-graph entry keyed by an
// arbitrary string id rather than a cell or range address. The only
// producer in this engine is a named range: a formula referencing a name
// depends on "whatever the name currently points to", which changes
// independently of any single cell's value.
type StaticNode struct {
	Key        string
	Dependents map[CellAddress]struct{}
}

// DependencyGraph manages cell dependencies and calculation order
type DependencyGraph struct {
	nodes          map[CellAddress]*DependencyNode           // all nodes in the graph
	rangeObservers map[RangeAddress]map[CellAddress]struct{} // range -> cells that depend on it
	dirtySet       map[CellAddress]struct{}                  // cells needing recalculation
	volatileCells  map[CellAddress]struct{}                  // cells with volatile functions (always recalculate)
	staticNodes    map[string]*StaticNode                    // static key -> formulas depending on it
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:          make(map[CellAddress]*DependencyNode),
		rangeObservers: make(map[RangeAddress]map[CellAddress]struct{}),
		dirtySet:       make(map[CellAddress]struct{}),
		volatileCells:  make(map[CellAddress]struct{}),
		staticNodes:    make(map[string]*StaticNode),
	}
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(addr CellAddress) *DependencyNode {
	if node, exists := dg.nodes[addr]; exists {
		return node
	}

	node := &DependencyNode{
		WorksheetID:      addr.WorksheetID,
		Row:              addr.Row,
		Col:              addr.Column,
		CellPrecedents:   make(map[CellAddress]*DependencyNode),
		CellDependents:   make(map[CellAddress]*DependencyNode),
		RangePrecedents:  make(map[RangeAddress]struct{}),
		StaticPrecedents: make(map[string]struct{}),
	}
	dg.nodes[addr] = node
	return node
}

// GetNode retrieves a node if it exists
func (dg *DependencyGraph) GetNode(addr CellAddress) (*DependencyNode, bool) {
	node, exists := dg.nodes[addr]
	return node, exists
}

// RemoveNode removes a node and all its dependencies
func (dg *DependencyGraph) RemoveNode(addr CellAddress) bool {
	node, exists := dg.nodes[addr]
	if !exists {
		return false
	}

	// remove this node from all its precedents' dependent lists
	for precedentAddr, precedentNode := range node.CellPrecedents {
		delete(precedentNode.CellDependents, addr)
		// clean up precedent node if it has no dependencies
		dg.cleanupNodeIfEmpty(precedentAddr)
	}

	// remove this node from all its dependents' precedent lists
	for _, dependentNode := range node.CellDependents {
		delete(dependentNode.CellPrecedents, addr)
		// do no cleanup dependent nodes - they might have formulas
		// node will be cleaned up later if it's straight up empty
	}

	// remove from range observers
	for rangeAddr := range node.RangePrecedents {
		if observers, exists := dg.rangeObservers[rangeAddr]; exists {
			delete(observers, addr)
			if len(observers) == 0 {
				delete(dg.rangeObservers, rangeAddr)
			}
		}
	}

	// remove from static observers
	for staticKey := range node.StaticPrecedents {
		dg.RemoveStaticDependency(addr, staticKey)
	}

	// remove from dirty set
	delete(dg.dirtySet, addr)

	// remove from volatile cells
	delete(dg.volatileCells, addr)

	// remove the node itself
	delete(dg.nodes, addr)

	return true
}

// cleanupNodeIfEmpty removes a node if it has no dependencies or formula
func (dg *DependencyGraph) cleanupNodeIfEmpty(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}

	// keep node if it has a formula or any dependencies
	if node.Formula != "" ||
		len(node.CellPrecedents) > 0 ||
		len(node.CellDependents) > 0 ||
		len(node.RangePrecedents) > 0 ||
		len(node.StaticPrecedents) > 0 {
		return
	}

	// remove empty node and its dirty flag
	delete(dg.nodes, addr)
	delete(dg.dirtySet, addr)
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to CellAddress) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	// mark dep
	fromNode.CellPrecedents[to] = toNode
	toNode.CellDependents[from] = fromNode
}

// RemoveCellDependency removes a cell-to-cell dependency
func (dg *DependencyGraph) RemoveCellDependency(from, to CellAddress) bool {
	fromNode, fromExists := dg.nodes[from]
	toNode, toExists := dg.nodes[to]

	if !fromExists || !toExists {
		return false
	}

	// remove the dependency
	delete(fromNode.CellPrecedents, to)
	delete(toNode.CellDependents, from)

	// clean up empty nodes
	dg.cleanupNodeIfEmpty(from)
	dg.cleanupNodeIfEmpty(to)

	return true
}

// AddRangeDependency adds a cell-to-range dependency (from depends on range)
func (dg *DependencyGraph) AddRangeDependency(from CellAddress, rangeAddr RangeAddress) {
	node := dg.GetOrCreateNode(from)

	// add range to node's precedents
	node.RangePrecedents[rangeAddr] = struct{}{}

	// add node to range observers
	if dg.rangeObservers[rangeAddr] == nil {
		dg.rangeObservers[rangeAddr] = make(map[CellAddress]struct{})
	}
	dg.rangeObservers[rangeAddr][from] = struct{}{}
}

// RemoveRangeDependency removes a cell-to-range dependency
func (dg *DependencyGraph) RemoveRangeDependency(from CellAddress, rangeAddr RangeAddress) bool {
	node, exists := dg.nodes[from]
	if !exists {
		return false
	}

	// remove range from node's precedents
	delete(node.RangePrecedents, rangeAddr)

	// remove node from range observers
	if observers, exists := dg.rangeObservers[rangeAddr]; exists {
		delete(observers, from)
		if len(observers) == 0 {
			delete(dg.rangeObservers, rangeAddr)
		}
	}

	// clean up node if empty
	dg.cleanupNodeIfEmpty(from)

	return true
}

// ClearDependencies clears all dependencies for a cell
func (dg *DependencyGraph) ClearDependencies(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}

	// remove cell dependencies
	for precedentAddr := range node.CellPrecedents {
		dg.RemoveCellDependency(addr, precedentAddr)
	}

	// remove range dependencies
	for rangeAddr := range node.RangePrecedents {
		dg.RemoveRangeDependency(addr, rangeAddr)
	}

	// remove static dependencies
	for staticKey := range node.StaticPrecedents {
		dg.RemoveStaticDependency(addr, staticKey)
	}
}

// AddStaticDependency records that the formula at addr depends on the
// static source identified by staticKey (currently only named ranges use
// this). Unlike cell/range edges, the static side has no worksheet
// position of its own.
func (dg *DependencyGraph) AddStaticDependency(addr CellAddress, staticKey string) {
	node := dg.GetOrCreateNode(addr)
	node.StaticPrecedents[staticKey] = struct{}{}

	static, exists := dg.staticNodes[staticKey]
	if !exists {
		static = &StaticNode{Key: staticKey, Dependents: make(map[CellAddress]struct{})}
		dg.staticNodes[staticKey] = static
	}
	static.Dependents[addr] = struct{}{}
}

// RemoveStaticDependency detaches addr from the static source staticKey,
// dropping the static node entirely once it has no remaining dependents.
func (dg *DependencyGraph) RemoveStaticDependency(addr CellAddress, staticKey string) {
	if node, exists := dg.nodes[addr]; exists {
		delete(node.StaticPrecedents, staticKey)
	}
	if static, exists := dg.staticNodes[staticKey]; exists {
		delete(static.Dependents, addr)
		if len(static.Dependents) == 0 {
			delete(dg.staticNodes, staticKey)
		}
	}
}

// MarkStaticDirty marks every formula depending on the static source
// staticKey as dirty. Called when the binding itself changes (a named
// range is redefined, renamed, or removed) rather than any cell it
// currently covers.
func (dg *DependencyGraph) MarkStaticDirty(staticKey string) {
	static, exists := dg.staticNodes[staticKey]
	if !exists {
		return
	}
	for addr := range static.Dependents {
		dg.MarkDirty(addr)
	}
}

// NamedRangeStaticKey builds the canonical static key for a named range,
// the literal id a Static node is keyed by in the DAG JSON snapshot.
func NamedRangeStaticKey(name string) string {
	return "namedrange:" + name
}

// MarkDirty marks a cell as needing recalculation
func (dg *DependencyGraph) MarkDirty(addr CellAddress) {
	dg.dirtySet[addr] = struct{}{}

	if node, exists := dg.nodes[addr]; exists {
		node.IsDirty = true
	}
}

// MarkRangeDirty marks all cells depending on a range as dirty
func (dg *DependencyGraph) MarkRangeDirty(rangeAddr RangeAddress) {
	// find all cells observing this range
	if observers, exists := dg.rangeObservers[rangeAddr]; exists {
		for cellAddr := range observers {
			dg.MarkDirty(cellAddr)
		}
	}
}

// MarkCellIfInRangeDirty marks cells dirty if the given cell is within any observed range
func (dg *DependencyGraph) MarkCellIfInRangeDirty(addr CellAddress) {
	// check all observed ranges to see if this cell is within them
	for rangeAddr, observers := range dg.rangeObservers {
		if dg.IsInRange(addr, rangeAddr) {
			// mark all observers of this range as dirty
			for observerAddr := range observers {
				dg.MarkDirty(observerAddr)
			}
		}
	}
}

// IsInRange checks if a cell is within a range
func (dg *DependencyGraph) IsInRange(cell CellAddress, r RangeAddress) bool {
	return cell.WorksheetID == r.WorksheetID &&
		cell.Row >= r.StartRow && cell.Row <= r.EndRow &&
		cell.Column >= r.StartColumn && cell.Column <= r.EndColumn
}

// ClearDirty clears the dirty flag for a cell
func (dg *DependencyGraph) ClearDirty(addr CellAddress) {
	delete(dg.dirtySet, addr)

	if node, exists := dg.nodes[addr]; exists {
		node.IsDirty = false
	}
}

// ClearAllDirty clears all dirty flags
func (dg *DependencyGraph) ClearAllDirty() {
	dg.dirtySet = make(map[CellAddress]struct{})

	for _, node := range dg.nodes {
		node.IsDirty = false
	}
}

// GetDirectDependents returns cells directly depending on this cell
func (dg *DependencyGraph) GetDirectDependents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]CellAddress, 0, len(node.CellDependents))
	for dependentAddr := range node.CellDependents {
		result = append(result, dependentAddr)
	}
	return result
}

// GetAllDependents returns all cells affected by this cell (transitive closure)
func (dg *DependencyGraph) GetAllDependents(addr CellAddress) []CellAddress {
	visited := make(map[CellAddress]struct{})
	var result []CellAddress

	dg.collectDependents(addr, visited, &result)
	return result
}

// collectDependents recursively collects all dependents
func (dg *DependencyGraph) collectDependents(addr CellAddress, visited map[CellAddress]struct{}, result *[]CellAddress) {
	if _, alreadyVisited := visited[addr]; alreadyVisited {
		return
	}
	visited[addr] = struct{}{}

	node, exists := dg.nodes[addr]
	if !exists {
		return
	}

	for dependentAddr := range node.CellDependents {
		if _, alreadyVisited := visited[dependentAddr]; !alreadyVisited {
			*result = append(*result, dependentAddr)
			dg.collectDependents(dependentAddr, visited, result)
		}
	}
}

// GetDirectPrecedents returns cells this cell directly depends on
func (dg *DependencyGraph) GetDirectPrecedents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]CellAddress, 0, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		result = append(result, precedentAddr)
	}
	return result
}

// GetRangePrecedents returns ranges this cell depends on
func (dg *DependencyGraph) GetRangePrecedents(addr CellAddress) []RangeAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}

	result := make([]RangeAddress, 0, len(node.RangePrecedents))
	for rangeAddr := range node.RangePrecedents {
		result = append(result, rangeAddr)
	}
	return result
}

func (dg *DependencyGraph) GetCalculationOrder() ([]CellAddress, bool) {
	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[CellAddress]bool)
	var order []CellAddress
	hasCycle := false

	var visit func(addr CellAddress) bool
	visit = func(addr CellAddress) bool {
		if completed, exists := state[addr]; exists {
			if !completed {
				// currently visiting - cycle detected
				return true
			}
			// already visited
			return false
		}

		// mark as visiting
		state[addr] = false

		node, exists := dg.nodes[addr]
		if exists {
			// visit all precedents first
			for precedentAddr := range node.CellPrecedents {
				if visit(precedentAddr) {
					hasCycle = true
				}
			}
		}

		// mark as visited
		state[addr] = true
		order = append(order, addr)

		return false
	}

	// visit all nodes
	for addr := range dg.nodes {
		if _, visited := state[addr]; !visited {
			if visit(addr) {
				hasCycle = true
			}
		}
	}

	return order, hasCycle
}

// HasCycle checks if there are circular dependencies
func (dg *DependencyGraph) HasCycle() bool {
	_, hasCycle := dg.GetCalculationOrder()
	return hasCycle
}

// GetAffectedCells returns all cells that need recalculation when a
// cell changes. this includes direct and transitive dependents, plus cells
// observing ranges
func (dg *DependencyGraph) GetAffectedCells(addr CellAddress) []CellAddress {
	affected := make(map[CellAddress]struct{})

	// get all transitive dependents
	dependents := dg.GetAllDependents(addr)
	for _, dep := range dependents {
		affected[dep] = struct{}{}
	}

	// check if this cell is in any observed ranges
	for rangeAddr, observers := range dg.rangeObservers {
		if dg.IsInRange(addr, rangeAddr) {
			for observerAddr := range observers {
				affected[observerAddr] = struct{}{}
				// also get transitive dependents of the observer
				observerDeps := dg.GetAllDependents(observerAddr)
				for _, dep := range observerDeps {
					affected[dep] = struct{}{}
				}
			}
		}
	}

	result := make([]CellAddress, 0, len(affected))
	for affectedAddr := range affected {
		result = append(result, affectedAddr)
	}
	return result
}

// SetFormula sets the formula for a node (creates node if needed)
func (dg *DependencyGraph) SetFormula(addr CellAddress, formula string) {
	node := dg.GetOrCreateNode(addr)
	node.Formula = formula
}

// SetValue sets the cached value for a node
func (dg *DependencyGraph) SetValue(addr CellAddress, value Primitive) {
	if node, exists := dg.nodes[addr]; exists {
		node.Value = value
	}
}

// GetFormula retrieves the formula for a cell
func (dg *DependencyGraph) GetFormula(addr CellAddress) (string, bool) {
	if node, exists := dg.nodes[addr]; exists {
		return node.Formula, true
	}
	return "", false
}

// GetValue retrieves the cached value for a cell
func (dg *DependencyGraph) GetValue(addr CellAddress) (Primitive, bool) {
	if node, exists := dg.nodes[addr]; exists {
		return node.Value, true
	}
	return nil, false
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[CellAddress]*DependencyNode)
	dg.rangeObservers = make(map[RangeAddress]map[CellAddress]struct{})
	dg.dirtySet = make(map[CellAddress]struct{})
	dg.volatileCells = make(map[CellAddress]struct{})
	dg.staticNodes = make(map[string]*StaticNode)
}

// MarkVolatile marks a cell as containing volatile functions
func (dg *DependencyGraph) MarkVolatile(addr CellAddress) {
	dg.volatileCells[addr] = struct{}{}
}

// UnmarkVolatile removes volatile marking from a cell
func (dg *DependencyGraph) UnmarkVolatile(addr CellAddress) {
	delete(dg.volatileCells, addr)
}

// IsVolatile checks if a cell contains volatile functions
func (dg *DependencyGraph) IsVolatile(addr CellAddress) bool {
	_, isVolatile := dg.volatileCells[addr]
	return isVolatile
}

// GetVolatileCells returns all cells marked as volatile
func (dg *DependencyGraph) GetVolatileCells() []CellAddress {
	result := make([]CellAddress, 0, len(dg.volatileCells))
	for addr := range dg.volatileCells {
		result = append(result, addr)
	}
	return result
}

// MarkAllVolatileDirty marks all volatile cells as dirty for recalculation
func (dg *DependencyGraph) MarkAllVolatileDirty() {
	for addr := range dg.volatileCells {
		dg.MarkDirty(addr)
	}
}

// cellAddressToA1 renders the row/column portion of addr as an uppercase
// A1 address with no dollar signs, the form the canonical dependency-graph
// key always uses regardless of how the originating reference was typed.
func cellAddressToA1(addr CellAddress) string {
	return fmt.Sprintf("%s%d", columnNumberToLetters(int(addr.Column)), addr.Row+1)
}

// CanonicalKey returns the canonical dependency-graph key for a cell:
// "{prefix}{sheet_id}!{A1}", where prefix is the concatenation of the
// node's data-validation and conditional-format ids (in that order), when
// either is set. A cell with no such attachment has an empty prefix, so
// its key is just "{sheet_id}!{A1}".
func (dg *DependencyGraph) CanonicalKey(addr CellAddress) string {
	var prefix string
	if node, exists := dg.nodes[addr]; exists {
		prefix = node.DataValidationID + node.ConditionalFormatID
	}
	return fmt.Sprintf("%s%d!%s", prefix, addr.WorksheetID, cellAddressToA1(addr))
}

// CanonicalRangeKey returns the canonical dependency-graph key for a range:
// "{sheet_id}!{A1}:{A1}".
func CanonicalRangeKey(r RangeAddress) string {
	start := CellAddress{WorksheetID: r.WorksheetID, Row: r.StartRow, Column: r.StartColumn}
	end := CellAddress{WorksheetID: r.WorksheetID, Row: r.EndRow, Column: r.EndColumn}
	return fmt.Sprintf("%d!%s:%s", r.WorksheetID, cellAddressToA1(start), cellAddressToA1(end))
}

// SnapshotNodePosition is the tagged position half of a snapshot entry: at
// most one of Cell/Range is set, and both are absent for a Static node.
type SnapshotNodePosition struct {
	Cell  *SnapshotCellPosition  `json:"Cell,omitempty"`
	Range *SnapshotRangePosition `json:"Range,omitempty"`
}

// SnapshotCellPosition is the JSON shape of a cell node's position.
type SnapshotCellPosition struct {
	SheetID     uint32 `json:"sheet_id"`
	RowIndex    uint32 `json:"row_index"`
	ColumnIndex uint32 `json:"column_index"`
}

// SnapshotRangePosition is the JSON shape of a range node's position.
type SnapshotRangePosition struct {
	SheetID          uint32 `json:"sheet_id"`
	StartRowIndex    uint32 `json:"start_row_index"`
	StartColumnIndex uint32 `json:"start_column_index"`
	EndRowIndex      uint32 `json:"end_row_index"`
	EndColumnIndex   uint32 `json:"end_column_index"`
}

// SnapshotNodeIdentifier is the {key, position?} pair used for both
// input_keys and dependent_keys entries in a snapshot node.
type SnapshotNodeIdentifier struct {
	Key      string                `json:"key"`
	Position *SnapshotNodePosition `json:"position,omitempty"`
}

// SnapshotNode is the JSON body paired with a key in Snapshot()'s output:
// [key, {position?, input_keys, dependent_keys}].
type SnapshotNode struct {
	Position      *SnapshotNodePosition    `json:"position,omitempty"`
	InputKeys     []SnapshotNodeIdentifier `json:"input_keys"`
	DependentKeys []SnapshotNodeIdentifier `json:"dependent_keys"`
}

// SnapshotEntry is a single [key, node] pair, the element type of the
// external DAG JSON snapshot (a list of pairs rather than an object, so
// key order is preserved and keys need not be valid JSON object members).
type SnapshotEntry struct {
	Key  string
	Node SnapshotNode
}

// MarshalJSON renders a SnapshotEntry as the two-element array the spec's
// snapshot format expects rather than as a {Key,Node} object.
func (e SnapshotEntry) MarshalJSON() ([]byte, error) {
	pair := [2]interface{}{e.Key, e.Node}
	return json.Marshal(pair)
}

func cellSnapshotIdentifier(dg *DependencyGraph, addr CellAddress) SnapshotNodeIdentifier {
	return SnapshotNodeIdentifier{
		Key: dg.CanonicalKey(addr),
		Position: &SnapshotNodePosition{Cell: &SnapshotCellPosition{
			SheetID: addr.WorksheetID, RowIndex: addr.Row, ColumnIndex: addr.Column,
		}},
	}
}

func rangeSnapshotIdentifier(r RangeAddress) SnapshotNodeIdentifier {
	return SnapshotNodeIdentifier{
		Key: CanonicalRangeKey(r),
		Position: &SnapshotNodePosition{Range: &SnapshotRangePosition{
			SheetID: r.WorksheetID, StartRowIndex: r.StartRow, StartColumnIndex: r.StartColumn,
			EndRowIndex: r.EndRow, EndColumnIndex: r.EndColumn,
		}},
	}
}

// Snapshot serializes the full dependency graph (cell nodes, range
// observer nodes, and static nodes) into the external JSON shape: a list
// of [key, {position?, input_keys, dependent_keys}] pairs, canonically
// keyed per CanonicalKey/CanonicalRangeKey/NamedRangeStaticKey. Unlike
// dag.go's ToJSON (an internal edge-list snapshot used for cheap
// compile-time round-tripping of this package's own CellAddress-keyed
// edges), this is the cross-process handoff format external callers
// expect, matching the DAG JSON snapshot described for the engine facade.
func (dg *DependencyGraph) Snapshot() []SnapshotEntry {
	entries := make([]SnapshotEntry, 0, len(dg.nodes)+len(dg.rangeObservers)+len(dg.staticNodes))

	cellAddrs := make([]CellAddress, 0, len(dg.nodes))
	for addr := range dg.nodes {
		cellAddrs = append(cellAddrs, addr)
	}
	sortCellAddresses(cellAddrs)

	for _, addr := range cellAddrs {
		node := dg.nodes[addr]
		snap := SnapshotNode{
			Position: &SnapshotNodePosition{Cell: &SnapshotCellPosition{
				SheetID: addr.WorksheetID, RowIndex: addr.Row, ColumnIndex: addr.Column,
			}},
			InputKeys:     make([]SnapshotNodeIdentifier, 0, len(node.CellPrecedents)+len(node.RangePrecedents)+len(node.StaticPrecedents)),
			DependentKeys: make([]SnapshotNodeIdentifier, 0, len(node.CellDependents)),
		}

		precedentAddrs := make([]CellAddress, 0, len(node.CellPrecedents))
		for p := range node.CellPrecedents {
			precedentAddrs = append(precedentAddrs, p)
		}
		sortCellAddresses(precedentAddrs)
		for _, p := range precedentAddrs {
			snap.InputKeys = append(snap.InputKeys, cellSnapshotIdentifier(dg, p))
		}

		rangeKeys := make([]RangeAddress, 0, len(node.RangePrecedents))
		for r := range node.RangePrecedents {
			rangeKeys = append(rangeKeys, r)
		}
		sort.Slice(rangeKeys, func(i, j int) bool { return CanonicalRangeKey(rangeKeys[i]) < CanonicalRangeKey(rangeKeys[j]) })
		for _, r := range rangeKeys {
			snap.InputKeys = append(snap.InputKeys, rangeSnapshotIdentifier(r))
		}

		staticKeys := make([]string, 0, len(node.StaticPrecedents))
		for k := range node.StaticPrecedents {
			staticKeys = append(staticKeys, k)
		}
		sort.Strings(staticKeys)
		for _, k := range staticKeys {
			snap.InputKeys = append(snap.InputKeys, SnapshotNodeIdentifier{Key: k})
		}

		dependentAddrs := make([]CellAddress, 0, len(node.CellDependents))
		for d := range node.CellDependents {
			dependentAddrs = append(dependentAddrs, d)
		}
		sortCellAddresses(dependentAddrs)
		for _, d := range dependentAddrs {
			snap.DependentKeys = append(snap.DependentKeys, cellSnapshotIdentifier(dg, d))
		}

		entries = append(entries, SnapshotEntry{Key: dg.CanonicalKey(addr), Node: snap})
	}

	rangeKeys := make([]RangeAddress, 0, len(dg.rangeObservers))
	for r := range dg.rangeObservers {
		rangeKeys = append(rangeKeys, r)
	}
	sort.Slice(rangeKeys, func(i, j int) bool { return CanonicalRangeKey(rangeKeys[i]) < CanonicalRangeKey(rangeKeys[j]) })
	for _, r := range rangeKeys {
		observers := dg.rangeObservers[r]
		dependentAddrs := make([]CellAddress, 0, len(observers))
		for addr := range observers {
			dependentAddrs = append(dependentAddrs, addr)
		}
		sortCellAddresses(dependentAddrs)

		snap := SnapshotNode{
			Position:      &SnapshotNodePosition{Range: &SnapshotRangePosition{SheetID: r.WorksheetID, StartRowIndex: r.StartRow, StartColumnIndex: r.StartColumn, EndRowIndex: r.EndRow, EndColumnIndex: r.EndColumn}},
			InputKeys:     []SnapshotNodeIdentifier{},
			DependentKeys: make([]SnapshotNodeIdentifier, 0, len(dependentAddrs)),
		}
		for _, addr := range dependentAddrs {
			snap.DependentKeys = append(snap.DependentKeys, cellSnapshotIdentifier(dg, addr))
		}
		entries = append(entries, SnapshotEntry{Key: CanonicalRangeKey(r), Node: snap})
	}

	staticKeys := make([]string, 0, len(dg.staticNodes))
	for k := range dg.staticNodes {
		staticKeys = append(staticKeys, k)
	}
	sort.Strings(staticKeys)
	for _, k := range staticKeys {
		static := dg.staticNodes[k]
		dependentAddrs := make([]CellAddress, 0, len(static.Dependents))
		for addr := range static.Dependents {
			dependentAddrs = append(dependentAddrs, addr)
		}
		sortCellAddresses(dependentAddrs)

		snap := SnapshotNode{
			InputKeys:     []SnapshotNodeIdentifier{},
			DependentKeys: make([]SnapshotNodeIdentifier, 0, len(dependentAddrs)),
		}
		for _, addr := range dependentAddrs {
			snap.DependentKeys = append(snap.DependentKeys, cellSnapshotIdentifier(dg, addr))
		}
		entries = append(entries, SnapshotEntry{Key: k, Node: snap})
	}

	return entries
}
