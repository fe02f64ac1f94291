package schedule

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FireFunc is invoked when a schedule's timer elapses. Each invocation runs
// in its own goroutine, so a slow report cannot delay another schedule.
type FireFunc func(scheduleID uint)

type entry struct {
	timer *time.Timer
	gen   uint64
}

// Registry owns the live timers, one per active schedule. Register and
// Cancel are the only mutation points; Register always removes any existing
// timer for the id before installing a new one, so there is never more than
// one live timer per schedule, including across rapid update sequences.
type Registry struct {
	mu     sync.Mutex
	timers map[uint]entry
	gen    uint64
	fire   FireFunc
	now    func() time.Time
	log    zerolog.Logger
}

func NewRegistry(fire FireFunc, log zerolog.Logger) *Registry {
	return &Registry{
		timers: make(map[uint]entry),
		fire:   fire,
		now:    time.Now,
		log:    log,
	}
}

// Register arms a timer for the schedule at the given instant. An instant in
// the past fires immediately (a schedule whose NextRun elapsed while the
// process was down runs on startup).
func (r *Registry) Register(id uint, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.timers[id]; ok {
		e.timer.Stop()
		delete(r.timers, id)
	}

	delay := at.Sub(r.now())
	if delay < 0 {
		delay = 0
	}

	r.gen++
	gen := r.gen
	r.timers[id] = entry{
		timer: time.AfterFunc(delay, func() { r.elapsed(id, gen) }),
		gen:   gen,
	}
	r.log.Debug().Uint("schedule_id", id).Time("next_run", at).Msg("timer registered")
}

// Cancel stops any live timer for the schedule. A run already dispatched is
// not interrupted; cancellation only prevents future fires.
func (r *Registry) Cancel(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.timers[id]; ok {
		e.timer.Stop()
		delete(r.timers, id)
		r.log.Debug().Uint("schedule_id", id).Msg("timer cancelled")
	}
}

// Scheduled reports whether the schedule currently holds a live timer.
func (r *Registry) Scheduled(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[id]
	return ok
}

// Active returns the number of live timers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every timer. Used on shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.timers {
		e.timer.Stop()
		delete(r.timers, id)
	}
}

// elapsed runs on the timer's goroutine. The generation check drops fires
// whose timer was cancelled or replaced after the callback was already
// scheduled but before it acquired the lock.
func (r *Registry) elapsed(id uint, gen uint64) {
	r.mu.Lock()
	e, ok := r.timers[id]
	if !ok || e.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.timers, id)
	r.mu.Unlock()

	r.fire(id)
}
