package ecs

import "errors"

var (
	ErrWorldNotActive   = errors.New("ecs: world is not active")
	ErrTooManyWorlds    = errors.New("ecs: world table is full")
	ErrOrderConflict    = errors.New("ecs: contradictory handler ordering")
	ErrDuplicateHandler = errors.New("ecs: duplicate handler name")
	ErrHandlerAttached  = errors.New("ecs: handler already attached")
	ErrReentrantDrain   = errors.New("ecs: events queue drained re-entrantly")
	ErrReentrantUpdate  = errors.New("ecs: world updated re-entrantly")
)
