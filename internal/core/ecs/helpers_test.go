package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type position struct{ X, Y float32 }
type velocity struct{ DX, DY float32 }
type health struct{ HP int }
type frozen struct{}

func newTestWorld(t *testing.T, opts ...func(*Options)) *World {
	t.Helper()
	o := Options{Name: t.Name(), Logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	w, err := NewWorld(o)
	require.NoError(t, err)
	t.Cleanup(w.Destroy)
	return w
}

func withObserver(level zapcore.LevelEnabler) (func(*Options), *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return func(o *Options) { o.Logger = zap.New(core) }, logs
}

// spawn creates an entity carrying the given setup and drains it in.
func spawn(t *testing.T, w *World, setup func(*Entity)) *Entity {
	t.Helper()
	e := w.CreateEntity()
	require.NotNil(t, e)
	if setup != nil {
		setup(e)
	}
	w.Update(0)
	require.True(t, e.InWorld())
	return e
}

func noop[T any](*World, Delivery[T]) {}
