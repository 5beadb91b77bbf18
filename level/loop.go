package level

import (
	"runtime/debug"
	"time"
)

// Start starts the tick loop of the level in a new goroutine. From then on,
// the level must only be accessed through Exec and Schedule. Calling Start
// more than once has no effect.
func (l *Level) Start() {
	if l.closed.Load() || l.running.Swap(true) {
		return
	}
	go l.tickLoop()
}

// stop stops the tick loop if it was started and waits for it to finish.
// Tasks still queued are run before stop returns.
func (l *Level) stop() {
	if l.running.Load() {
		close(l.stopCh)
		<-l.doneCh
	}
	for _, t := range l.queue.Drain() {
		l.runTask(t)
	}
}

// Tick returns the number of ticks the loop has run.
func (l *Level) Tick() uint64 {
	return l.tick.Load()
}

// Exec runs fn on the level goroutine as soon as possible. The channel
// returned is closed once fn has run. If the level is closed, fn is not run
// and the channel returned is already closed.
func (l *Level) Exec(fn func(l *Level)) <-chan struct{} {
	t := &task{tick: 0, fn: fn, done: make(chan struct{})}
	l.push(t)
	return t.done
}

// Schedule runs fn on the level goroutine once delay has passed, rounded up
// to whole ticks. Tasks still pending when the level closes run during Close.
// If the level is already closed, fn is not run.
func (l *Level) Schedule(delay time.Duration, fn func(l *Level)) *TaskHandle {
	ticks := uint64((delay + l.conf.TickRate - 1) / l.conf.TickRate)
	t := &task{tick: l.tick.Load() + ticks, fn: fn, done: make(chan struct{})}
	l.push(t)
	return &TaskHandle{t: t}
}

// push queues t, closing its done channel right away if the queue no longer
// accepts tasks.
func (l *Level) push(t *task) {
	if !l.queue.Push(t) {
		t.cancelled.Store(true)
		close(t.done)
	}
}

func (l *Level) tickLoop() {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.conf.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.doTick()
		case <-l.queue.Notify():
			l.processTasks()
		}
	}
}

// doTick advances the tick counter, runs due tasks and saves changed chunks
// when an autosave is due.
func (l *Level) doTick() {
	tick := l.tick.Add(1)
	l.processTasks()

	if n := l.conf.SaveInterval; n > 0 && tick%n == 0 {
		if err := l.Save(); err != nil {
			l.conf.Log.Error("level: autosave failed", "err", err)
		}
	}
}

func (l *Level) processTasks() {
	for _, t := range l.queue.PopDue(l.tick.Load()) {
		l.runTask(t)
	}
}

// runTask runs a task, recovering and logging panics.
func (l *Level) runTask(t *task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			l.conf.Log.Error("level: panic in task", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	t.fn(l)
}
