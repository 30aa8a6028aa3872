package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/foodplan/pkg/domain/entities"
)

// BOMValidator checks the integrity of a loaded composition snapshot.
// The composition graph refuses bad edits one at a time; this covers data that
// arrived by bulk load (CSV import, database) and never went through those checks.
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles         bool
	CyclePaths        [][]entities.ItemID
	DuplicateEdges    []entities.CompositionEdge
	SelfReferences    []entities.CompositionEdge
	UnknownItems      []entities.ItemID
	InvalidQuantities []entities.CompositionEdge
	Errors            []string
}

// IsValid reports whether no problem was found
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM performs comprehensive validation on the active edges of a snapshot.
// Items may be nil, in which case unknown item references are not checked.
func (v *BOMValidator) ValidateBOM(edges []entities.CompositionEdge, items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:        make([][]entities.ItemID, 0),
		DuplicateEdges:    make([]entities.CompositionEdge, 0),
		SelfReferences:    make([]entities.CompositionEdge, 0),
		UnknownItems:      make([]entities.ItemID, 0),
		InvalidQuantities: make([]entities.CompositionEdge, 0),
		Errors:            make([]string, 0),
	}

	active := make([]entities.CompositionEdge, 0, len(edges))
	for _, edge := range edges {
		if !edge.Active {
			continue
		}
		if edge.ParentItemID == edge.ComponentItemID {
			result.SelfReferences = append(result.SelfReferences, edge)
			continue
		}
		if !edge.QuantityPerParentUnit.IsPositive() {
			result.InvalidQuantities = append(result.InvalidQuantities, edge)
		}
		active = append(active, edge)
	}

	result.DuplicateEdges = v.detectDuplicateEdges(active)

	// Cycle detection runs on a graph built from the remaining edges; duplicate ids
	// would make that impossible, so only the first occurrence is kept.
	graph, err := NewCompositionGraph(v.uniqueByID(active))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to build composition graph: %v", err))
	} else {
		result.CyclePaths = graph.DetectCycles()
		result.HasCycles = len(result.CyclePaths) > 0
	}

	if items != nil {
		result.UnknownItems = v.detectUnknownItems(active, items)
	}

	// Add validation errors
	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	for _, edge := range result.SelfReferences {
		result.Errors = append(result.Errors, fmt.Sprintf("Edge %s references its own parent %s", edge.ID, edge.ParentItemID))
	}
	if len(result.DuplicateEdges) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate composition edges", len(result.DuplicateEdges)))
	}
	for _, edge := range result.InvalidQuantities {
		result.Errors = append(result.Errors, fmt.Sprintf("Edge %s has non-positive quantity %s", edge.ID, edge.QuantityPerParentUnit))
	}
	if len(result.UnknownItems) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Edges reference unknown items: %v", result.UnknownItems))
	}

	return result
}

// detectDuplicateEdges finds active edges sharing a (parent, component) pair
func (v *BOMValidator) detectDuplicateEdges(edges []entities.CompositionEdge) []entities.CompositionEdge {
	seen := make(map[string]entities.CompositionEdge)
	duplicates := make([]entities.CompositionEdge, 0)

	for _, edge := range edges {
		key := fmt.Sprintf("%s|%s", edge.ParentItemID, edge.ComponentItemID)

		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, edge)
			duplicates = append(duplicates, existing)
		} else {
			seen[key] = edge
		}
	}

	return duplicates
}

func (v *BOMValidator) uniqueByID(edges []entities.CompositionEdge) []entities.CompositionEdge {
	seen := make(map[entities.EdgeID]bool, len(edges))
	unique := make([]entities.CompositionEdge, 0, len(edges))
	for _, edge := range edges {
		if seen[edge.ID] {
			continue
		}
		seen[edge.ID] = true
		unique = append(unique, edge)
	}
	return unique
}

func (v *BOMValidator) detectUnknownItems(edges []entities.CompositionEdge, items []*entities.Item) []entities.ItemID {
	known := make(map[entities.ItemID]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	missing := make(map[entities.ItemID]bool)
	for _, edge := range edges {
		if !known[edge.ParentItemID] {
			missing[edge.ParentItemID] = true
		}
		if !known[edge.ComponentItemID] {
			missing[edge.ComponentItemID] = true
		}
	}

	unknown := make([]entities.ItemID, 0, len(missing))
	for id := range missing {
		unknown = append(unknown, id)
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return unknown
}

// ValidateItemUniqueness validates that item ids and codes are unique across the catalog
func (v *BOMValidator) ValidateItemUniqueness(items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]string, 0),
	}

	seenIDs := make(map[entities.ItemID]bool)
	seenCodes := make(map[string]bool)
	duplicateIDs := make([]entities.ItemID, 0)
	duplicateCodes := make([]string, 0)

	for _, item := range items {
		if seenIDs[item.ID] {
			duplicateIDs = append(duplicateIDs, item.ID)
		} else {
			seenIDs[item.ID] = true
		}
		if item.Code == "" {
			continue
		}
		if seenCodes[item.Code] {
			duplicateCodes = append(duplicateCodes, item.Code)
		} else {
			seenCodes[item.Code] = true
		}
	}

	if len(duplicateIDs) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Duplicate item ids found: %v", duplicateIDs))
	}
	if len(duplicateCodes) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Duplicate item codes found: %v", duplicateCodes))
	}

	return result
}
