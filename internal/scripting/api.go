package scripting

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
	"github.com/l1jgo/ecsengine/internal/core/system"
)

// Data is the component scripts read and write through ecs.get and ecs.set.
type Data struct {
	Fields map[string]float64
}

// Event is broadcast by ecs.broadcast. Payload values are float64, string
// or bool.
type Event struct {
	Name    string
	Payload map[string]any
}

func (e *Engine) exports() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"system":    e.luaSystem,
		"spawn":     e.luaSpawn,
		"destroy":   e.luaDestroy,
		"alive":     e.luaAlive,
		"get":       e.luaGet,
		"set":       e.luaSet,
		"each":      e.luaEach,
		"count":     e.luaCount,
		"frame":     e.luaFrame,
		"broadcast": e.luaBroadcast,
		"on":        e.luaOn,
		"log":       e.luaLog,
	}
}

// ecs.system{name=, phase=, before={}, after={}, update=function(dt) end}
func (e *Engine) luaSystem(L *lua.LState) int {
	t := L.CheckTable(1)
	name := lua.LVAsString(t.RawGetString("name"))
	if name == "" {
		L.ArgError(1, "system needs a name")
		return 0
	}
	update, ok := t.RawGetString("update").(*lua.LFunction)
	if !ok {
		L.ArgError(1, "system "+name+" needs an update function")
		return 0
	}
	phase, err := system.ParsePhase(lua.LVAsString(t.RawGetString("phase")))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	for _, s := range e.systems {
		if s.name == name {
			L.RaiseError("system %q declared twice", name)
			return 0
		}
	}
	e.systems = append(e.systems, &System{
		engine: e,
		name:   name,
		phase:  phase,
		before: stringList(t.RawGetString("before")),
		after:  stringList(t.RawGetString("after")),
		update: update,
	})
	return 0
}

// ecs.spawn({field = number, ...}) -> id
func (e *Engine) luaSpawn(L *lua.LState) int {
	w := e.mustWorld(L)
	fields := make(map[string]float64)
	if t := L.OptTable(1, nil); t != nil {
		t.ForEach(func(k, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				fields[lua.LVAsString(k)] = float64(n)
			}
		})
	}
	ent := w.CreateEntity()
	if ent == nil {
		L.Push(lua.LNil)
		return 1
	}
	ecs.AddComponent(ent, &Data{Fields: fields})
	L.Push(lua.LNumber(ent.ID()))
	return 1
}

func (e *Engine) luaDestroy(L *lua.LState) int {
	w := e.mustWorld(L)
	ent := w.GetEntity(checkID(L, 1))
	L.Push(lua.LBool(ent != nil && w.RemoveEntity(ent)))
	return 1
}

func (e *Engine) luaAlive(L *lua.LState) int {
	w := e.mustWorld(L)
	L.Push(lua.LBool(w.GetEntity(checkID(L, 1)) != nil))
	return 1
}

// ecs.get(id, field) -> number or nil
func (e *Engine) luaGet(L *lua.LState) int {
	d := e.dataOf(L, checkID(L, 1))
	key := L.CheckString(2)
	if d == nil {
		L.Push(lua.LNil)
		return 1
	}
	v, ok := d.Fields[key]
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

// ecs.set(id, field, number) -> bool
func (e *Engine) luaSet(L *lua.LState) int {
	d := e.dataOf(L, checkID(L, 1))
	key := L.CheckString(2)
	v := L.CheckNumber(3)
	if d == nil {
		L.Push(lua.LFalse)
		return 1
	}
	d.Fields[key] = float64(v)
	L.Push(lua.LTrue)
	return 1
}

// ecs.each(function(id) end) visits every live entity carrying Data.
func (e *Engine) luaEach(L *lua.LState) int {
	e.mustWorld(L)
	fn := L.CheckFunction(1)
	if e.data == nil {
		return 0
	}
	e.data.Each(func(ent *ecs.Entity) {
		L.Push(fn)
		L.Push(lua.LNumber(ent.ID()))
		L.Call(1, 0)
	})
	return 0
}

func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.mustWorld(L).EntityCount()))
	return 1
}

func (e *Engine) luaFrame(L *lua.LState) int {
	L.Push(lua.LNumber(e.mustWorld(L).Frame()))
	return 1
}

// ecs.broadcast(name, {key = value}) queues an Event for the next frame.
func (e *Engine) luaBroadcast(L *lua.LState) int {
	w := e.mustWorld(L)
	ev := Event{Name: L.CheckString(1), Payload: fromTable(L.OptTable(2, nil))}
	L.Push(lua.LBool(w.BroadcastEvent(ev)))
	return 1
}

// ecs.on(name, function(name, payload) end)
func (e *Engine) luaOn(L *lua.LState) int {
	name := L.CheckString(1)
	e.listeners[name] = append(e.listeners[name], L.CheckFunction(2))
	return 0
}

func (e *Engine) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	fields := []zap.Field{zap.String("source", "lua")}
	if e.world != nil {
		fields = append(fields, zap.Uint64("frame", e.world.Frame()))
	}
	e.log.Info(msg, fields...)
	return 0
}

func (e *Engine) mustWorld(L *lua.LState) *ecs.World {
	if e.world == nil {
		L.RaiseError("%s", ErrNotAttached)
	}
	return e.world
}

func (e *Engine) dataOf(L *lua.LState, id ecs.EntityID) *Data {
	ent := e.mustWorld(L).GetEntity(id)
	if ent == nil {
		return nil
	}
	d, _ := ecs.GetComponent[Data](ent)
	return d
}

func checkID(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(uint32(L.CheckNumber(n)))
}

func stringList(v lua.LValue) []string {
	t, ok := v.(*lua.LTable)
	if !ok {
		if s, ok := v.(lua.LString); ok {
			return []string{string(s)}
		}
		return nil
	}
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		out = append(out, lua.LVAsString(t.RawGetInt(i)))
	}
	return out
}

func fromTable(t *lua.LTable) map[string]any {
	out := make(map[string]any)
	if t == nil {
		return out
	}
	t.ForEach(func(k, v lua.LValue) {
		switch v := v.(type) {
		case lua.LNumber:
			out[lua.LVAsString(k)] = float64(v)
		case lua.LString:
			out[lua.LVAsString(k)] = string(v)
		case lua.LBool:
			out[lua.LVAsString(k)] = bool(v)
		}
	})
	return out
}

func toTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.NewTable()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			t.RawSetString(k, lua.LNumber(v))
		case string:
			t.RawSetString(k, lua.LString(v))
		case bool:
			t.RawSetString(k, lua.LBool(v))
		}
	}
	return t
}
