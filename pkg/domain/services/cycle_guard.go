package services

import (
	"sort"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// CycleGuard answers reachability questions over the active edges of a graph snapshot
type CycleGuard struct {
	graph *CompositionGraph
}

// NewCycleGuard creates a guard over a graph snapshot
func NewCycleGuard(graph *CompositionGraph) *CycleGuard {
	return &CycleGuard{graph: graph}
}

// WouldCreateCycle reports whether adding parent -> component closes a loop, i.e. whether
// component already reaches parent. The returned path starts and ends at parent.
func (g *CycleGuard) WouldCreateCycle(parentID, componentID entities.ItemID) (bool, []entities.ItemID) {
	return g.wouldCreateCycleExcluding(parentID, componentID, "")
}

// wouldCreateCycleExcluding ignores one edge, used when that edge is being rewired
func (g *CycleGuard) wouldCreateCycleExcluding(parentID, componentID entities.ItemID, excluded entities.EdgeID) (bool, []entities.ItemID) {
	if parentID == componentID {
		return true, []entities.ItemID{parentID, parentID}
	}

	start, ok := g.graph.nodeIndex[componentID]
	if !ok {
		return false, nil
	}
	target, ok := g.graph.nodeIndex[parentID]
	if !ok {
		return false, nil
	}

	// Breadth-first search from the component; prev records the node we came from
	prev := make([]int, len(g.graph.nodes))
	for i := range prev {
		prev[i] = -1
	}
	visited := make([]bool, len(g.graph.nodes))
	visited[start] = true
	queue := []int{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edgeIdx := range g.graph.adjacency[current] {
			edge := g.graph.edges[edgeIdx]
			if !edge.Active || edge.ID == excluded {
				continue
			}
			next := g.graph.nodeIndex[edge.ComponentItemID]
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = current

			if next == target {
				return true, g.buildCyclePath(parentID, prev, start, target)
			}
			queue = append(queue, next)
		}
	}

	return false, nil
}

func (g *CycleGuard) buildCyclePath(parentID entities.ItemID, prev []int, start, target int) []entities.ItemID {
	var reversed []entities.ItemID
	for node := target; node != -1; node = prev[node] {
		reversed = append(reversed, g.graph.nodes[node])
		if node == start {
			break
		}
	}

	path := make([]entities.ItemID, 0, len(reversed)+1)
	path = append(path, parentID)
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// DetectCycles uses DFS to find every cycle in the active edges of the snapshot.
// Each path is closed, ending with the node it starts from.
func (g *CycleGuard) DetectCycles() [][]entities.ItemID {
	visited := make([]bool, len(g.graph.nodes))
	recursionStack := make([]bool, len(g.graph.nodes))
	cycles := make([][]entities.ItemID, 0)

	// Visit nodes in a stable order so results are reproducible
	order := make([]int, len(g.graph.nodes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return g.graph.nodes[order[i]] < g.graph.nodes[order[j]]
	})

	for _, node := range order {
		if !visited[node] {
			g.dfsDetectCycle(node, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

func (g *CycleGuard) dfsDetectCycle(current int, visited, recursionStack []bool, path []int, cycles *[][]entities.ItemID) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, edgeIdx := range g.graph.adjacency[current] {
		edge := g.graph.edges[edgeIdx]
		if !edge.Active {
			continue
		}
		child := g.graph.nodeIndex[edge.ComponentItemID]
		if !visited[child] {
			g.dfsDetectCycle(child, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			// Found a cycle - extract the cycle path
			cycleStart := -1
			for i, node := range path {
				if node == child {
					cycleStart = i
					break
				}
			}

			if cycleStart != -1 {
				cycle := make([]entities.ItemID, 0, len(path)-cycleStart+1)
				for _, node := range path[cycleStart:] {
					cycle = append(cycle, g.graph.nodes[node])
				}
				cycle = append(cycle, g.graph.nodes[child]) // Close the cycle
				*cycles = append(*cycles, cycle)
			}
		}
	}

	recursionStack[current] = false
}
