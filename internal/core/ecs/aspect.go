package ecs

import (
	"slices"
	"strconv"
	"strings"
)

// AspectKind selects how an Aspect's component ids are matched.
type AspectKind uint8

const (
	AspectHaveAll AspectKind = iota
	AspectHaveAny
	AspectExcludeAll
)

func (k AspectKind) String() string {
	switch k {
	case AspectHaveAll:
		return "HaveAll"
	case AspectHaveAny:
		return "HaveAny"
	case AspectExcludeAll:
		return "ExcludeAll"
	default:
		return "AspectKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Aspect is an immutable predicate over an entity's component ids. The mask
// holds 1<<(id%64) for every id and serves as a cheap pre-filter before the
// exact membership scan.
type Aspect struct {
	kind AspectKind
	ids  []ComponentID
	mask uint64
}

func newAspect(kind AspectKind, ids []ComponentID) Aspect {
	a := Aspect{kind: kind, ids: slices.Clone(ids)}
	for _, id := range a.ids {
		a.mask |= componentBit(id)
	}
	return a
}

// HaveAll matches entities that carry every listed component.
func HaveAll(ids ...ComponentID) Aspect { return newAspect(AspectHaveAll, ids) }

// HaveAny matches entities that carry at least one listed component.
func HaveAny(ids ...ComponentID) Aspect { return newAspect(AspectHaveAny, ids) }

// ExcludeAll matches entities that are missing at least one of the listed
// components. This is exclude-all-of, not exclude-any-of: an entity carrying
// only some of the ids still matches.
func ExcludeAll(ids ...ComponentID) Aspect { return newAspect(AspectExcludeAll, ids) }

// AllOf returns HaveAll over component types, in argument order.
func AllOf[A any]() Aspect { return HaveAll(ComponentIDOf[A]()) }

func AllOf2[A, B any]() Aspect {
	return HaveAll(ComponentIDOf[A](), ComponentIDOf[B]())
}

func AllOf3[A, B, C any]() Aspect {
	return HaveAll(ComponentIDOf[A](), ComponentIDOf[B](), ComponentIDOf[C]())
}

func AnyOf2[A, B any]() Aspect {
	return HaveAny(ComponentIDOf[A](), ComponentIDOf[B]())
}

func (a Aspect) Kind() AspectKind            { return a.kind }
func (a Aspect) Mask() uint64                { return a.mask }
func (a Aspect) ComponentIDs() []ComponentID { return slices.Clone(a.ids) }

// HasIntersection reports whether e satisfies the aspect.
func (a Aspect) HasIntersection(e *Entity) bool {
	mask := e.componentMask()
	switch a.kind {
	case AspectHaveAll:
		if mask&a.mask != a.mask {
			return false
		}
		return a.containsAll(e)
	case AspectHaveAny:
		if mask&a.mask == 0 {
			return false
		}
		for _, id := range a.ids {
			if e.HasComponentID(id) {
				return true
			}
		}
		return false
	case AspectExcludeAll:
		return !a.containsAll(e)
	}
	return false
}

func (a Aspect) containsAll(e *Entity) bool {
	for _, id := range a.ids {
		if !e.HasComponentID(id) {
			return false
		}
	}
	return true
}

// Equal compares kind and the exact id sequence; order matters.
func (a Aspect) Equal(b Aspect) bool {
	return a.kind == b.kind && slices.Equal(a.ids, b.ids)
}

// Key is a string form of the aspect, equal for Equal aspects.
func (a Aspect) Key() string {
	var sb strings.Builder
	sb.WriteString(a.kind.String())
	sb.WriteByte('(')
	for i, id := range a.ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	sb.WriteByte(')')
	return sb.String()
}

func (a Aspect) String() string { return a.Key() }
