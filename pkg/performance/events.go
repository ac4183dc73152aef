package performance

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LevelChange is emitted when the committed level changes.
type LevelChange struct {
	Old      Level           `json:"old_level"`
	New      Level           `json:"new_level"`
	Settings QualitySettings `json:"settings"`
	Forced   bool            `json:"forced"`
}

// FrameDrop is emitted for every frame that took more than twice the
// target frame time. It is diagnostic only.
type FrameDrop struct {
	FrameTime time.Duration `json:"frame_time"`
	Target    time.Duration `json:"target"`
	Frame     int64         `json:"frame"`
}

// emitter delivers events of one type to its subscribers synchronously, in
// subscription order. A panicking handler is logged and skipped; the
// remaining handlers still run.
type emitter[T any] struct {
	name     string
	mu       sync.Mutex
	nextID   int
	handlers []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func newEmitter[T any](name string) *emitter[T] {
	return &emitter[T]{name: name}
}

// subscribe registers fn and returns a function removing it again.
func (e *emitter[T]) subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(id) })
	}
}

func (e *emitter[T]) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.handlers {
		if s.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

func (e *emitter[T]) emit(logger *zap.Logger, event T) {
	e.mu.Lock()
	handlers := e.handlers
	e.mu.Unlock()

	for _, s := range handlers {
		e.call(logger, s.fn, event)
	}
}

func (e *emitter[T]) call(logger *zap.Logger, fn func(T), event T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("performance event handler panicked",
				zap.String("event", e.name),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(event)
}

func (e *emitter[T]) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
