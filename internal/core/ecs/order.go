package ecs

import (
	"fmt"
	"slices"
	"strings"
)

// OrderConflictError describes a handler whose before/after constraints
// cannot be satisfied against the handlers already registered. It wraps
// ErrOrderConflict.
type OrderConflictError struct {
	Handler  string
	Handlers []string // current order, for diagnostics
	Before   string   // first handler that must follow Handler
	After    string   // last handler that must precede Handler
}

func (e *OrderConflictError) Error() string {
	return fmt.Sprintf("%v: %q must run after %q and before %q; current order [%s]",
		ErrOrderConflict, e.Handler, e.After, e.Before, strings.Join(e.Handlers, ", "))
}

func (e *OrderConflictError) Unwrap() error { return ErrOrderConflict }

// mustPrecede reports whether a is required to run before b, as declared
// by either side.
func mustPrecede(a, b *Handler) bool {
	if _, ok := a.before[b.name]; ok {
		return true
	}
	_, ok := b.after[a.name]
	return ok
}

// findPosition returns the index of the first handler that must follow h
// (len(list) if none) and of the last handler that must precede h (-1 if none).
func findPosition(list []*Handler, h *Handler) (beforeIndex, afterIndex int) {
	beforeIndex, afterIndex = len(list), -1
	for i, s := range list {
		if beforeIndex == len(list) && mustPrecede(h, s) {
			beforeIndex = i
		}
		if mustPrecede(s, h) {
			afterIndex = i
		}
	}
	return beforeIndex, afterIndex
}

// addHandler returns a copy of list with h inserted at the least disruptive
// position that satisfies every constraint. list itself is never modified,
// so a dispatch loop ranging over it stays valid.
func addHandler(list []*Handler, h *Handler) ([]*Handler, error) {
	for _, s := range list {
		if s.name == h.name {
			return nil, fmt.Errorf("%w: %q for %s", ErrDuplicateHandler, h.name, h.eventType)
		}
	}
	return insertHandler(list, h, true)
}

func insertHandler(list []*Handler, h *Handler, rearrangeAvailable bool) ([]*Handler, error) {
	beforeIndex, afterIndex := findPosition(list, h)
	// With no successor, beforeIndex is len(list) and always exceeds
	// afterIndex, so h is appended.
	if afterIndex == -1 || afterIndex < beforeIndex {
		return slices.Insert(slices.Clone(list), beforeIndex, h), nil
	}
	if rearrangeAvailable {
		return insertHandler(rearrange(list, h, beforeIndex, afterIndex), h, false)
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.name
	}
	return nil, &OrderConflictError{
		Handler:  h.name,
		Handlers: names,
		Before:   list[beforeIndex].name,
		After:    list[afterIndex].name,
	}
}

// rearrange reorders the window list[lo..hi] so that h fits. Handlers that
// must run after h, directly or through a chain inside the window, move to
// the tail slots; handlers that must run before it move to the head slots.
// Both groups keep their relative order and every other handler keeps its
// slot. A handler in both groups means the constraints form a cycle, and
// list is returned unchanged so the retry reports the conflict.
func rearrange(list []*Handler, h *Handler, lo, hi int) []*Handler {
	n := hi - lo + 1
	succ := make([]bool, n)
	for i := lo; i <= hi; i++ {
		if mustPrecede(h, list[i]) {
			succ[i-lo] = true
			continue
		}
		for j := lo; j < i; j++ {
			if succ[j-lo] && mustPrecede(list[j], list[i]) {
				succ[i-lo] = true
				break
			}
		}
	}
	pred := make([]bool, n)
	for i := hi; i >= lo; i-- {
		if mustPrecede(list[i], h) {
			pred[i-lo] = true
			continue
		}
		for j := i + 1; j <= hi; j++ {
			if pred[j-lo] && mustPrecede(list[i], list[j]) {
				pred[i-lo] = true
				break
			}
		}
	}

	var slots []int
	var moveBefore, moveAfter []*Handler
	for k := 0; k < n; k++ {
		switch {
		case succ[k] && pred[k]:
			return list
		case pred[k]:
			slots = append(slots, lo+k)
			moveBefore = append(moveBefore, list[lo+k])
		case succ[k]:
			slots = append(slots, lo+k)
			moveAfter = append(moveAfter, list[lo+k])
		}
	}

	out := slices.Clone(list)
	moved := append(moveBefore, moveAfter...)
	for i, slot := range slots {
		out[slot] = moved[i]
	}
	return out
}

// removeHandler returns a copy of list without h.
func removeHandler(list []*Handler, h *Handler) ([]*Handler, bool) {
	i := slices.Index(list, h)
	if i < 0 {
		return list, false
	}
	return slices.Delete(slices.Clone(list), i, i+1), true
}
