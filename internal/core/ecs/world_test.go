package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingEvent struct{ N int }
type damageEvent struct{ Amount int }

func TestRemovedIndexIsReusedWithNextGeneration(t *testing.T) {
	w := newTestWorld(t)
	e := spawn(t, w, nil)
	old := e.ID()
	require.Same(t, e, w.GetEntity(old))

	require.True(t, w.RemoveEntity(e))
	w.Update(0)
	require.False(t, e.InWorld())
	require.True(t, e.ID().IsZero())
	require.Nil(t, w.GetEntity(old))

	e2 := spawn(t, w, nil)
	require.Equal(t, old.Index(), e2.ID().Index())
	require.Equal(t, old.Generation()+1, e2.ID().Generation())
	require.Nil(t, w.GetEntity(old))
	require.Same(t, e2, w.GetEntity(e2.ID()))
}

func TestEntityIDsStayUnique(t *testing.T) {
	w := newTestWorld(t)
	var batch []*Entity
	for i := 0; i < 100; i++ {
		batch = append(batch, w.CreateEntity())
	}
	seen := make(map[EntityID]bool)
	for _, e := range batch {
		require.False(t, seen[e.ID()], "duplicate id %s", e.ID())
		seen[e.ID()] = true
		// pending entities resolve before they are materialized
		require.Same(t, e, w.GetEntity(e.ID()))
		require.False(t, e.InWorld())
	}

	w.Update(0)
	require.Equal(t, 100, w.EntityCount())

	for _, e := range batch[:50] {
		w.RemoveEntity(e)
	}
	w.Update(0)
	require.Equal(t, 50, w.EntityCount())

	for i := 0; i < 80; i++ {
		w.CreateEntity()
	}
	w.Update(0)
	require.Equal(t, 130, w.EntityCount())

	live := make(map[EntityID]bool)
	w.EachEntity(func(e *Entity) {
		require.False(t, live[e.ID()])
		live[e.ID()] = true
		require.Same(t, e, w.GetEntity(e.ID()))
	})
	require.Len(t, live, 130)
}

func TestGetEntityRejectsForeignAndZeroIDs(t *testing.T) {
	w := newTestWorld(t)
	e := spawn(t, w, nil)

	require.Nil(t, w.GetEntity(0))
	require.Nil(t, w.GetEntity(NewEntityID(e.ID().Index(), e.ID().Generation()+1)))
	require.Nil(t, w.GetEntity(NewEntityID(999, 0)))
}

func TestMutationsDuringDrainLandInNextFrame(t *testing.T) {
	w := newTestWorld(t)

	var addedFrame, changedFrame []uint64
	var pumpDuringDrain PumpState
	require.NoError(t, w.AddSystemHandler(NewHandler("tagger", func(w *World, d Delivery[EntityAddedEvent]) {
		pumpDuringDrain = w.PumpState()
		addedFrame = append(addedFrame, w.Frame())
		AddComponent(d.Event.Entity, &health{HP: 10})
	})))
	require.NoError(t, w.AddSystemHandler(NewHandler("watcher", func(w *World, d Delivery[ComponentsChangedEvent]) {
		changedFrame = append(changedFrame, w.Frame())
	})))

	e := w.CreateEntity()
	w.Update(0)
	require.Equal(t, PumpDraining, pumpDuringDrain)
	require.Equal(t, PumpIdle, w.PumpState())
	require.Equal(t, []uint64{0}, addedFrame)
	require.Empty(t, changedFrame)
	require.True(t, HasComponent[health](e))

	w.Update(0)
	require.Equal(t, []uint64{1}, changedFrame)

	w.Update(0)
	require.Equal(t, []uint64{1}, changedFrame)
}

func TestFlushDrainsLeftoverBufferBeforeSwapping(t *testing.T) {
	w := newTestWorld(t)
	var got []int
	require.NoError(t, w.AddSystemHandler(NewHandler("ping", func(w *World, d Delivery[pingEvent]) {
		got = append(got, d.Event.N)
	})))

	// leave an undrained buffer behind, then queue into the fresh one
	require.True(t, w.BroadcastEvent(pingEvent{N: 1}))
	w.queues.Switch()
	require.True(t, w.BroadcastEvent(pingEvent{N: 2}))
	current := w.queues.Current()
	require.False(t, w.queues.Other().isEmpty())

	w.flush()
	require.Equal(t, []int{1}, got)
	require.Same(t, current, w.queues.Current())
	require.False(t, current.isEmpty())
	require.True(t, w.queues.Other().isEmpty())

	w.flush()
	require.Equal(t, []int{1, 2}, got)
	require.NotSame(t, current, w.queues.Current())
	require.True(t, w.queuesEmpty())
}

func TestCreateDuringUpdateMaterializesNextFrame(t *testing.T) {
	w := newTestWorld(t)
	var created *Entity
	require.NoError(t, w.AddSystemHandler(NewHandler("spawner", func(w *World, d Delivery[UpdateEvent]) {
		if created == nil {
			created = w.CreateEntity()
		}
	})))

	w.Update(0)
	require.NotNil(t, created)
	require.False(t, created.InWorld())
	require.Same(t, created, w.GetEntity(created.ID()))

	w.Update(0)
	require.True(t, created.InWorld())
}

func TestQueueKeepsCrossCategoryOrder(t *testing.T) {
	w := newTestWorld(t)
	var got []string
	require.NoError(t, w.AddSystemHandler(NewHandler("ping", func(w *World, d Delivery[pingEvent]) {
		got = append(got, "ping")
	})))
	require.NoError(t, w.AddSystemHandler(NewHandler("removed", func(w *World, d Delivery[EntityRemovedEvent]) {
		got = append(got, "removed")
	})))

	e := spawn(t, w, nil)
	require.True(t, w.SendEvent(e.ID(), pingEvent{N: 1}))
	w.RemoveEntity(e)
	w.Update(0)
	require.Equal(t, []string{"ping", "removed"}, got)

	got = nil
	e = spawn(t, w, nil)
	id := e.ID()
	w.RemoveEntity(e)
	require.True(t, w.SendEvent(id, pingEvent{N: 2}))
	w.Update(0)
	require.Equal(t, []string{"removed"}, got)
}

func TestSendEventRejectsZeroTarget(t *testing.T) {
	w := newTestWorld(t)
	require.False(t, w.SendEvent(0, pingEvent{}))
	require.False(t, w.BroadcastEvent(nil))
}

func TestUnicastRespectsHandlerSample(t *testing.T) {
	w := newTestWorld(t)
	var bound, unbound int
	require.NoError(t, w.AddSystemHandler(NewHandler("damage", func(w *World, d Delivery[damageEvent]) {
		bound++
		require.NotNil(t, d.Sample)
		require.True(t, d.Sample.Contains(d.Target.ID()))
		hp, _ := GetComponent[health](d.Target)
		hp.HP -= d.Event.Amount
	}).WithAspect(AllOf[health](), 0)))
	require.NoError(t, w.AddSystemHandler(NewHandler("audit", func(w *World, d Delivery[damageEvent]) {
		unbound++
		require.Nil(t, d.Sample)
	})))

	withHP := spawn(t, w, func(e *Entity) { AddComponent(e, &health{HP: 20}) })
	plain := spawn(t, w, nil)

	w.SendEvent(withHP.ID(), damageEvent{Amount: 5})
	w.SendEvent(plain.ID(), damageEvent{Amount: 5})
	w.Update(0)

	require.Equal(t, 1, bound)
	require.Equal(t, 2, unbound)
	hp, ok := GetComponent[health](withHP)
	require.True(t, ok)
	require.Equal(t, 15, hp.HP)
}

func TestBroadcastTaggedRequiresEveryTag(t *testing.T) {
	w := newTestWorld(t)
	got := make(map[string]int)
	record := func(name string) *Handler {
		return NewHandler(name, func(w *World, d Delivery[pingEvent]) { got[name]++ })
	}
	require.NoError(t, w.AddSystemHandler(record("ui").Tags("ui")))
	require.NoError(t, w.AddSystemHandler(record("ui-debug").Tags("ui", "debug")))
	require.NoError(t, w.AddSystemHandler(record("plain")))

	w.BroadcastTagged(pingEvent{}, "ui")
	w.Update(0)
	require.Equal(t, map[string]int{"ui": 1, "ui-debug": 1}, got)

	clear(got)
	w.BroadcastTagged(pingEvent{}, "ui", "debug")
	w.Update(0)
	require.Equal(t, map[string]int{"ui-debug": 1}, got)

	clear(got)
	w.BroadcastEvent(pingEvent{})
	w.Update(0)
	require.Equal(t, map[string]int{"ui": 1, "ui-debug": 1, "plain": 1}, got)
}

func TestFrameEventsRunInPhaseOrder(t *testing.T) {
	w := newTestWorld(t)
	var got []string
	require.NoError(t, w.AddSystemHandler(NewHandler("post", func(w *World, d Delivery[PostUpdateEvent]) {
		got = append(got, "post")
	})))
	require.NoError(t, w.AddSystemHandler(NewHandler("update", func(w *World, d Delivery[UpdateEvent]) {
		require.InDelta(t, 0.5, d.Event.DeltaTime, 1e-6)
		got = append(got, "update")
	})))
	require.NoError(t, w.AddSystemHandler(NewHandler("pre", func(w *World, d Delivery[PreUpdateEvent]) {
		got = append(got, "pre")
	})))

	w.Update(0.5)
	require.Equal(t, []string{"pre", "update", "post"}, got)
	require.Equal(t, uint64(1), w.Frame())
}

func TestHandlerRemovedMidDispatchIsSkipped(t *testing.T) {
	w := newTestWorld(t)
	var ran []string
	second := NewHandler("second", func(w *World, d Delivery[UpdateEvent]) { ran = append(ran, "second") })
	first := NewHandler("first", func(w *World, d Delivery[UpdateEvent]) {
		ran = append(ran, "first")
		w.RemoveSystemHandler(second)
	}).Before("second")

	require.NoError(t, w.AddSystemHandler(second))
	require.NoError(t, w.AddSystemHandler(first))
	require.Equal(t, []string{"first", "second"}, HandlerNames[UpdateEvent](w))

	w.Update(0)
	require.Equal(t, []string{"first"}, ran)
	require.Equal(t, []string{"first"}, HandlerNames[UpdateEvent](w))
}

func TestAddSystemHandlerLogsOrderingConflict(t *testing.T) {
	opt, logs := withObserver(zap.ErrorLevel)
	w := newTestWorld(t, opt)

	require.NoError(t, w.AddSystemHandler(updateHandler("X")))
	require.NoError(t, w.AddSystemHandler(updateHandler("Y").After("X")))

	err := w.AddSystemHandler(updateHandler("W").After("Y").Before("X"))
	require.ErrorIs(t, err, ErrOrderConflict)
	require.Equal(t, []string{"X", "Y"}, HandlerNames[UpdateEvent](w))

	entries := logs.FilterMessage("handler ordering conflict").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "W", fields["handler"])
	require.Equal(t, "X", fields["before"])
	require.Equal(t, "Y", fields["after"])
}

func TestAddSystemHandlerRejectsDuplicateName(t *testing.T) {
	opt, logs := withObserver(zap.ErrorLevel)
	w := newTestWorld(t, opt)
	require.NoError(t, w.AddSystemHandler(updateHandler("X")))
	require.ErrorIs(t, w.AddSystemHandler(updateHandler("X")), ErrDuplicateHandler)
	require.Equal(t, 1, logs.FilterMessage("handler rejected").Len())

	// the same name on another event type is fine
	require.NoError(t, w.AddSystemHandler(NewHandler("X", noop[pingEvent])))
}

func TestAttachedHandlerIsImmutable(t *testing.T) {
	w := newTestWorld(t)
	h := updateHandler("X")
	require.NoError(t, w.AddSystemHandler(h))
	require.True(t, h.Attached())

	require.Panics(t, func() { h.Before("Y") })
	require.Panics(t, func() { h.Tags("ui") })
	require.ErrorIs(t, w.AddSystemHandler(h), ErrHandlerAttached)

	require.True(t, w.RemoveSystemHandler(h))
	require.False(t, h.Attached())
	require.NotPanics(t, func() { h.Before("Y") })
	require.False(t, w.RemoveSystemHandler(h))
}

func TestReentrantUpdatePanics(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.AddSystemHandler(NewHandler("recurse", func(w *World, d Delivery[UpdateEvent]) {
		w.Update(0)
	})))
	require.PanicsWithValue(t, ErrReentrantUpdate, func() { w.Update(0) })

	// the world stays usable for teardown
	w.Destroy()
	require.Equal(t, StateDestroyed, w.State())
}

func TestDestroyFromHandlerPanics(t *testing.T) {
	w := newTestWorld(t)
	h := NewHandler("destroyer", func(w *World, d Delivery[UpdateEvent]) { w.Destroy() })
	require.NoError(t, w.AddSystemHandler(h))
	require.Panics(t, func() { w.Update(0) })
	require.Equal(t, StateActive, w.State())
}

func TestReentrantDrainPanics(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.AddSystemHandler(NewHandler("drainer", func(w *World, d Delivery[EntityAddedEvent]) {
		w.queues.Other().processEvents()
	})))
	w.CreateEntity()
	require.PanicsWithValue(t, ErrReentrantDrain, func() { w.Update(0) })
	require.Equal(t, PumpIdle, w.PumpState())
}

func TestDestroyRemovesEverything(t *testing.T) {
	w := newTestWorld(t)
	var removed int
	require.NoError(t, w.AddSystemHandler(NewHandler("count", func(w *World, d Delivery[EntityRemovedEvent]) {
		removed++
	})))

	root := spawn(t, w, nil)
	var all []*Entity
	for i := 0; i < 49; i++ {
		e := w.CreateEntity()
		AddComponent(e, &position{X: float32(i)})
		if i%2 == 0 {
			e.SetParent(root)
		}
		all = append(all, e)
	}
	all = append(all, root)
	s := w.RequestSample(AllOf[position](), SampleIncludeInactive)
	id := w.ID()

	// the 49 adds are still pending; teardown drains them first
	w.Destroy()
	require.Equal(t, StateDestroyed, w.State())
	require.Equal(t, 0, w.EntityCount())
	require.Equal(t, 50, removed)
	require.Equal(t, 0, w.SampleCount())
	require.Equal(t, 0, s.Len())
	require.Nil(t, LookupWorld(id))
	for _, e := range all {
		require.False(t, e.InWorld())
		require.True(t, e.ID().IsZero())
		require.Nil(t, e.World())
	}

	require.Nil(t, w.CreateEntity())
	require.ErrorIs(t, w.AddSystemHandler(updateHandler("late")), ErrWorldNotActive)
	w.Update(0)
	require.Equal(t, uint64(1), w.Frame())
}

func TestDestroyBoundsRunawayHandler(t *testing.T) {
	opt, logs := withObserver(zap.ErrorLevel)
	w := newTestWorld(t, opt, func(o *Options) { o.TeardownIterationLimit = 8 })
	require.NoError(t, w.AddSystemHandler(NewHandler("breeder", func(w *World, d Delivery[EntityAddedEvent]) {
		w.CreateEntity()
	})))

	spawn(t, w, nil)
	w.Update(0)
	require.Equal(t, 2, w.EntityCount())

	w.Destroy()
	require.Equal(t, StateDestroyed, w.State())
	require.Equal(t, 0, w.EntityCount())

	entries := logs.FilterMessage("teardown drain did not settle").All()
	require.Len(t, entries, 1)
	require.EqualValues(t, 8, entries[0].ContextMap()["iterations"])
	require.Zero(t, logs.FilterMessage("teardown removal did not settle").Len())
}

type fakeInput struct {
	subs         []func(InputEvent)
	unsubscribed int
}

func (f *fakeInput) Subscribe(fn func(InputEvent)) func() {
	f.subs = append(f.subs, fn)
	return func() { f.unsubscribed++ }
}

func (f *fakeInput) emit(ev InputEvent) {
	for _, fn := range f.subs {
		fn(ev)
	}
}

func TestInputIsForwardedThroughQueue(t *testing.T) {
	in := &fakeInput{}
	w := newTestWorld(t, func(o *Options) { o.Input = in })
	require.Len(t, in.subs, 1)

	var got []InputEvent
	require.NoError(t, w.AddSystemHandler(NewHandler("keys", func(w *World, d Delivery[InputEvent]) {
		got = append(got, d.Event)
	})))

	in.emit(InputEvent{Rune: 'q', Pressed: true})
	require.Empty(t, got)
	w.Update(0)
	require.Equal(t, []InputEvent{{Rune: 'q', Pressed: true}}, got)

	w.Destroy()
	require.Equal(t, 1, in.unsubscribed)
}

func TestHierarchyActivityPropagates(t *testing.T) {
	w := newTestWorld(t)
	withPos := func(e *Entity) { AddComponent(e, &position{}) }
	parent := spawn(t, w, withPos)
	child := spawn(t, w, withPos)
	grandchild := spawn(t, w, withPos)
	require.True(t, child.SetParent(parent))
	require.True(t, grandchild.SetParent(child))
	require.False(t, parent.SetParent(grandchild))

	var changes []bool
	require.NoError(t, w.AddSystemHandler(NewHandler("active", func(w *World, d Delivery[ActiveChangedEvent]) {
		changes = append(changes, d.Event.Active)
	})))
	s := w.RequestSample(AllOf[position](), 0)
	defer s.Release()
	require.Equal(t, 3, s.Len())

	parent.SetActive(false)
	require.True(t, child.ActiveSelf())
	require.False(t, child.IsActive())
	require.NotZero(t, grandchild.Flags()&FlagDisabledByHierarchy)
	w.Update(0)
	require.Equal(t, 0, s.Len())
	require.Equal(t, []bool{false, false, false}, changes)

	changes = nil
	parent.SetActive(true)
	w.Update(0)
	require.Equal(t, 3, s.Len())
	require.Equal(t, []bool{true, true, true}, changes)

	// reparenting under an inactive entity disables the moved subtree
	other := spawn(t, w, nil)
	other.SetActive(false)
	child.SetParent(other)
	require.False(t, grandchild.IsActive())
	require.True(t, parent.IsActive())
	w.Update(0)
	require.Equal(t, []*Entity{parent}, s.Entities())
}

func TestRemovingParentRemovesSubtree(t *testing.T) {
	w := newTestWorld(t)
	parent := spawn(t, w, nil)
	child := spawn(t, w, nil)
	keep := spawn(t, w, nil)
	child.SetParent(parent)
	keep.SetParent(parent)
	keep.SetParent(nil)

	w.RemoveEntity(parent)
	w.Update(0)
	require.False(t, parent.InWorld())
	require.False(t, child.InWorld())
	require.True(t, keep.InWorld())
	require.Same(t, parent, child.Parent())
	require.Equal(t, []*Entity{child}, parent.Children())

	// the detached subtree can be added back as a whole
	require.True(t, w.AddEntity(parent))
	w.Update(0)
	require.True(t, child.InWorld())
	require.Equal(t, 3, w.EntityCount())
}

func TestRemovingChildUnlinksFromLiveParent(t *testing.T) {
	w := newTestWorld(t)
	parent := spawn(t, w, nil)
	child := spawn(t, w, nil)
	child.SetParent(parent)

	w.RemoveEntity(child)
	w.Update(0)
	require.Nil(t, child.Parent())
	require.Empty(t, parent.Children())
}

func TestRemovalClearsSceneAndComponents(t *testing.T) {
	w := newTestWorld(t)
	scene := NewScene("level-1")
	e := spawn(t, w, func(e *Entity) {
		AddComponent(e, &position{X: 1})
		AddComponent[velocity](e, nil)
	})
	scene.Add(e)
	require.Same(t, scene, e.Scene())

	next := NewScene("level-2")
	next.Add(e)
	require.False(t, scene.Contains(e))
	require.Equal(t, 1, next.Len())

	w.RemoveEntity(e)
	w.Update(0)
	require.Nil(t, e.Scene())
	require.Equal(t, 0, next.Len())
	require.Equal(t, 0, e.ComponentCount())
}

func TestDuplicateComponentIsLogged(t *testing.T) {
	opt, logs := withObserver(zap.ErrorLevel)
	w := newTestWorld(t, opt)
	e := spawn(t, w, func(e *Entity) { AddComponent(e, &position{X: 1}) })

	require.False(t, AddComponent(e, &position{X: 2}))
	p, _ := GetComponent[position](e)
	require.Equal(t, float32(1), p.X)
	require.Equal(t, 1, logs.FilterMessage("duplicate component").Len())
}

func TestWorldTableExhaustionAndReuse(t *testing.T) {
	var worlds []*World
	for {
		w, err := NewWorld(Options{Name: "slot"})
		if err != nil {
			require.ErrorIs(t, err, ErrTooManyWorlds)
			break
		}
		t.Cleanup(w.Destroy)
		worlds = append(worlds, w)
		require.LessOrEqual(t, len(worlds), maxWorlds)
	}
	require.NotEmpty(t, worlds)

	old := worlds[0]
	oldID := old.ID()
	require.Same(t, old, LookupWorld(oldID))
	old.Destroy()
	require.Nil(t, LookupWorld(oldID))

	w, err := NewWorld(Options{Name: "reused"})
	require.NoError(t, err)
	t.Cleanup(w.Destroy)
	require.Equal(t, oldID.Index(), w.ID().Index())
	require.Equal(t, oldID.IncrementGeneration(), w.ID())
	require.Same(t, w, LookupWorld(w.ID()))
}
