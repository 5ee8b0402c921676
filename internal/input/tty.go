// Package input feeds terminal key presses into worlds as ecs.InputEvent.
package input

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsengine/internal/core/ecs"
)

// Screen is the part of tcell.Screen the TTY source uses.
type Screen interface {
	Init() error
	Fini()
	PollEvent() tcell.Event
}

// TTY reads key events from a tcell screen on its own goroutine and hands
// them to subscribers when Dispatch is called. Subscribers therefore run on
// the goroutine that owns the world, never on the poller.
type TTY struct {
	screen Screen
	log    *zap.Logger

	events chan ecs.InputEvent
	quit   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu      sync.Mutex
	subs    map[int]func(ecs.InputEvent)
	nextSub int
	running bool
}

func NewTTY(screen Screen, log *zap.Logger) *TTY {
	if log == nil {
		log = zap.NewNop()
	}
	return &TTY{
		screen: screen,
		log:    log,
		events: make(chan ecs.InputEvent, 100),
		quit:   make(chan struct{}),
		subs:   make(map[int]func(ecs.InputEvent)),
	}
}

// Start initializes the screen and begins polling.
func (t *TTY) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	t.running = true
	t.wg.Add(1)
	go t.poll()
	return nil
}

// Stop finalizes the screen and waits for the poller to exit.
func (t *TTY) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	t.screen.Fini()
	t.wg.Wait()
}

// Quit is closed once Escape or Ctrl-C is pressed. In raw mode the terminal
// does not turn Ctrl-C into SIGINT, so callers select on this as well.
func (t *TTY) Quit() <-chan struct{} { return t.quit }

// Subscribe implements ecs.InputSource.
func (t *TTY) Subscribe(fn func(ecs.InputEvent)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// Dispatch delivers every buffered event to the current subscribers and
// returns how many events it delivered. It never blocks.
func (t *TTY) Dispatch() int {
	n := 0
	for {
		select {
		case ev := <-t.events:
			n++
			for _, fn := range t.subscribers() {
				fn(ev)
			}
		default:
			return n
		}
	}
}

func (t *TTY) subscribers() []func(ecs.InputEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]func(ecs.InputEvent), 0, len(t.subs))
	for id := 0; id < t.nextSub; id++ {
		if fn, ok := t.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (t *TTY) poll() {
	defer t.wg.Done()
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return // screen finalized
		}
		in, ok := translate(ev)
		if !ok {
			continue
		}
		if in.Key == int(tcell.KeyEscape) || in.Key == int(tcell.KeyCtrlC) {
			t.once.Do(func() { close(t.quit) })
		}
		select {
		case t.events <- in:
		default:
			t.log.Warn("input buffer full, dropping key", zap.Int("key", in.Key))
		}
	}
}

func translate(ev tcell.Event) (ecs.InputEvent, bool) {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return ecs.InputEvent{}, false
	}
	in := ecs.InputEvent{
		Key:       int(key.Key()),
		Modifiers: int(key.Modifiers()),
		Pressed:   true,
	}
	if key.Key() == tcell.KeyRune {
		in.Rune = key.Rune()
	}
	return in, true
}
