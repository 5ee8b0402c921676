package ecs

// Lifecycle events broadcast synchronously by World.Update, in this order.
type (
	PreUpdateEvent  struct{ DeltaTime float32 }
	UpdateEvent     struct{ DeltaTime float32 }
	PostUpdateEvent struct{ DeltaTime float32 }
)

// EntityAddedEvent is broadcast once an entity has been materialized.
type EntityAddedEvent struct {
	Entity *Entity
}

// EntityRemovedEvent is broadcast before the entity's components are detached.
type EntityRemovedEvent struct {
	Entity *Entity
}

// ComponentsChangedEvent follows a component add or remove on a live entity.
// Several changes to one entity within a frame produce a single event.
type ComponentsChangedEvent struct {
	Entity *Entity
}

// ActiveChangedEvent follows a change of Entity.IsActive.
type ActiveChangedEvent struct {
	Entity *Entity
	Active bool
}

// EntityAddedToSampleEvent is delivered only to handlers bound to Sample.
type EntityAddedToSampleEvent struct {
	Entity *Entity
	ID     EntityID
	Sample *Sample
}

// EntityRemovedFromSampleEvent is delivered only to handlers bound to Sample.
// ID is the entity's id at the time it left; the entity itself may already
// be detached from the world.
type EntityRemovedFromSampleEvent struct {
	Entity *Entity
	ID     EntityID
	Sample *Sample
}

// InputEvent is a raw input record forwarded from an InputSource.
type InputEvent struct {
	Key       int
	Rune      rune
	Modifiers int
	Pressed   bool
}

// InputSource is an external producer of input. Subscribe must invoke fn on
// the goroutine that drives the world; the returned func unsubscribes.
type InputSource interface {
	Subscribe(fn func(InputEvent)) (unsubscribe func())
}
