// Package ordering maintains the position of items inside an ordered list:
// sections of a department, SOPs of a section bucket and steps of an SOP.
package ordering

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Positions start at ListBase for sections and SOPs and at StepBase for steps.
const (
	ListBase = 0
	StepBase = 1
)

var (
	ErrInvalidOrder = errors.New("ordering: invalid order")
	ErrUnknownItem  = errors.New("ordering: unknown item")
	ErrAtEdge       = errors.New("ordering: item is already at the edge")
)

// Item is one entry of a reorder request.
type Item struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Direction is a single-step move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" and "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("%w: direction must be up or down", ErrInvalidOrder)
	}
}

// Validate checks a reorder request against the ids of the list it targets.
// The request must name every known id exactly once; orders must be
// non-negative and unique.
func Validate(items []Item, known []string) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	seenIDs := make(map[string]struct{}, len(items))
	seenOrders := make(map[int]struct{}, len(items))
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("%w: item id is required", ErrInvalidOrder)
		}
		if !slices.Contains(known, it.ID) {
			return fmt.Errorf("%w: %s", ErrUnknownItem, it.ID)
		}
		if _, dup := seenIDs[it.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidOrder, it.ID)
		}
		if it.Order < 0 {
			return fmt.Errorf("%w: negative order for %s", ErrInvalidOrder, it.ID)
		}
		if _, dup := seenOrders[it.Order]; dup {
			return fmt.Errorf("%w: duplicate order %d", ErrInvalidOrder, it.Order)
		}
		seenIDs[it.ID] = struct{}{}
		seenOrders[it.Order] = struct{}{}
	}
	for _, id := range known {
		if _, ok := seenIDs[id]; !ok {
			return fmt.Errorf("%w: missing id %s", ErrInvalidOrder, id)
		}
	}
	return nil
}

// Move swaps id with its neighbour in direction and returns the whole list
// renumbered from base. ids must be in their current order.
func Move(ids []string, id string, dir Direction, base int) ([]Item, error) {
	idx := slices.Index(ids, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	target := idx
	switch dir {
	case Up:
		target--
	case Down:
		target++
	default:
		return nil, fmt.Errorf("%w: direction must be up or down", ErrInvalidOrder)
	}
	if target < 0 || target >= len(ids) {
		return nil, ErrAtEdge
	}
	next := slices.Clone(ids)
	next[idx], next[target] = next[target], next[idx]
	return Renumber(next, base), nil
}

// Renumber assigns consecutive positions starting at base.
func Renumber(ids []string, base int) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, Order: base + i}
	}
	return out
}

// Next returns the append position for a list whose current positions are
// orders. Empty lists start at ListBase.
func Next(orders []int) int { return NextFrom(orders, ListBase) }

// NextFrom is Next for lists that start at base.
func NextFrom(orders []int, base int) int {
	if len(orders) == 0 {
		return base
	}
	return max(slices.Max(orders)+1, base)
}
