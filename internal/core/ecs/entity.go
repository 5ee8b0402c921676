package ecs

import "slices"

// EntityFlags is the 8-bit state carried by every entity.
type EntityFlags uint8

const (
	FlagActiveSelf EntityFlags = 1 << iota
	FlagDisabledByHierarchy
	FlagComponentsMaskDirty
)

type entityStatus uint8

const (
	statusDetached   entityStatus = iota
	statusPendingAdd              // id issued, waiting in a queue buffer
	statusLive                    // materialized in the world's entity table
)

// Entity owns its components, one per type. It refers to its world only by
// WorldID and to its scene without owning it; the world owns the entity.
// Not safe for concurrent use.
type Entity struct {
	id     EntityID
	world  WorldID
	scene  *Scene
	flags  EntityFlags
	status entityStatus

	removalQueued bool

	components map[ComponentID]any
	ids        []ComponentID // sorted cache, rebuilt while FlagComponentsMaskDirty is set
	mask       uint64

	parent   *Entity
	children []*Entity
}

// NewEntity creates a detached, active entity with no components.
func NewEntity() *Entity {
	return &Entity{
		flags:      FlagActiveSelf,
		components: make(map[ComponentID]any, 4),
	}
}

// ID is zero until the entity has been added to a world.
func (e *Entity) ID() EntityID       { return e.id }
func (e *Entity) WorldID() WorldID   { return e.world }
func (e *Entity) Scene() *Scene      { return e.scene }
func (e *Entity) Flags() EntityFlags { return e.flags }
func (e *Entity) Parent() *Entity    { return e.parent }

// World resolves the owning world, or nil if the entity is detached.
func (e *Entity) World() *World {
	if e.world.IsZero() {
		return nil
	}
	return LookupWorld(e.world)
}

// InWorld reports whether the entity is materialized in its world's table.
func (e *Entity) InWorld() bool { return e.status == statusLive }

func (e *Entity) ActiveSelf() bool { return e.flags&FlagActiveSelf != 0 }

// IsActive is ActiveSelf and not disabled by an inactive ancestor.
func (e *Entity) IsActive() bool {
	return e.flags&FlagActiveSelf != 0 && e.flags&FlagDisabledByHierarchy == 0
}

// Children returns a copy of the entity's direct children.
func (e *Entity) Children() []*Entity {
	return slices.Clone(e.children)
}

// SetActive changes ActiveSelf. Entities whose effective activity changes
// (this one and any descendants) are queued for sample re-evaluation.
func (e *Entity) SetActive(active bool) {
	if e.ActiveSelf() == active {
		return
	}
	wasActive := e.IsActive()
	if active {
		e.flags |= FlagActiveSelf
	} else {
		e.flags &^= FlagActiveSelf
	}
	e.activityChanged(wasActive)
}

// SetParent reparents e. Passing nil detaches it from its parent. It returns
// false if p is e or one of e's descendants.
func (e *Entity) SetParent(p *Entity) bool {
	if p == e.parent {
		return true
	}
	for a := p; a != nil; a = a.parent {
		if a == e {
			return false
		}
	}
	if e.parent != nil {
		e.parent.children = slices.DeleteFunc(e.parent.children, func(c *Entity) bool { return c == e })
	}
	e.parent = p
	if p != nil {
		p.children = append(p.children, e)
	}

	wasActive := e.IsActive()
	e.setDisabledByHierarchy(p != nil && !p.IsActive())
	e.activityChanged(wasActive)
	return true
}

func (e *Entity) setDisabledByHierarchy(disabled bool) {
	if disabled {
		e.flags |= FlagDisabledByHierarchy
	} else {
		e.flags &^= FlagDisabledByHierarchy
	}
}

// activityChanged pushes the hierarchy flag down the subtree and notifies the
// world for every entity whose IsActive flipped.
func (e *Entity) activityChanged(wasActive bool) {
	now := e.IsActive()
	if now == wasActive {
		return
	}
	if w := e.liveWorld(); w != nil {
		w.queue().activeChanged(e)
	}
	for _, c := range e.children {
		childWas := c.IsActive()
		c.setDisabledByHierarchy(!now)
		c.activityChanged(childWas)
	}
}

// ComponentIDs returns the entity's component ids in ascending order.
func (e *Entity) ComponentIDs() []ComponentID {
	e.refreshMask()
	return slices.Clone(e.ids)
}

// HasComponentID reports whether a component with the given id is attached.
func (e *Entity) HasComponentID(id ComponentID) bool {
	_, ok := e.components[id]
	return ok
}

// ComponentCount returns the number of attached components.
func (e *Entity) ComponentCount() int { return len(e.components) }

func (e *Entity) componentMask() uint64 {
	e.refreshMask()
	return e.mask
}

func (e *Entity) refreshMask() {
	if e.flags&FlagComponentsMaskDirty == 0 {
		return
	}
	e.ids = e.ids[:0]
	e.mask = 0
	for id := range e.components {
		e.ids = append(e.ids, id)
		e.mask |= componentBit(id)
	}
	slices.Sort(e.ids)
	e.flags &^= FlagComponentsMaskDirty
}

func (e *Entity) componentsChanged() {
	e.flags |= FlagComponentsMaskDirty
	if w := e.liveWorld(); w != nil {
		w.queue().entityChanged(e)
	}
}

// detachComponents drops every component. Called when leaving a world.
func (e *Entity) detachComponents() {
	clear(e.components)
	e.flags |= FlagComponentsMaskDirty
	e.refreshMask()
}

// liveWorld returns the world only while the entity is materialized and not
// already queued for removal; changes made after that are not tracked.
func (e *Entity) liveWorld() *World {
	if e.status != statusLive || e.removalQueued {
		return nil
	}
	return e.World()
}

// subtree returns e followed by its descendants, depth first.
func (e *Entity) subtree() []*Entity {
	out := []*Entity{e}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].children...)
	}
	return out
}
