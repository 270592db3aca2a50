package reorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/learnvex/internal/models"
	"github.com/starford/learnvex/internal/structure"
)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger used for persistence failures and phase traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = l
	}
}

// WithObserver registers a callback invoked on every phase transition. It
// runs on the synchronizer goroutine and must not block.
func WithObserver(fn func(Phase)) Option {
	return func(s *Synchronizer) {
		s.observer = fn
	}
}

type job struct {
	ctx   context.Context
	ev    DragEnd
	reset *models.Structure
	resp  chan Result
}

// Synchronizer applies drag gestures to a Store optimistically, persists
// them and rolls back on failure.
//
// Operations are serialized: one goroutine takes jobs in submission order and
// runs each to its terminal state before validating the next one against
// the resulting tree. An in-flight persistence call is never canceled or
// coalesced by a later gesture.
type Synchronizer struct {
	store     *structure.Store
	persister Persister
	logger    *slog.Logger
	observer  func(Phase)

	mu     sync.Mutex
	queue  []job
	closed bool

	wake    chan struct{}
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewSynchronizer starts a synchronizer for store.
func NewSynchronizer(store *structure.Store, persister Persister, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:     store,
		persister: persister,
		logger:    slog.Default(),
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Submit enqueues a drag gesture and returns a channel that receives its
// result once the operation settles, rolls back or is rejected.
func (s *Synchronizer) Submit(ctx context.Context, ev DragEnd) <-chan Result {
	return s.enqueue(job{ctx: ctx, ev: ev, resp: make(chan Result, 1)})
}

// HandleDragEnd submits a gesture and waits for its result.
func (s *Synchronizer) HandleDragEnd(ctx context.Context, ev DragEnd) Result {
	return <-s.Submit(ctx, ev)
}

// Reset re-initializes the store from a fresh server snapshot, ordered after
// every gesture submitted before it.
func (s *Synchronizer) Reset(ctx context.Context, snapshot models.Structure) error {
	res := <-s.enqueue(job{ctx: ctx, reset: &snapshot, resp: make(chan Result, 1)})
	return res.Err()
}

func (s *Synchronizer) enqueue(j job) <-chan Result {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		j.resp <- rejected(KindCanceled, MsgCanceled, models.Structure{})
		return j.resp
	}
	s.queue = append(s.queue, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return j.resp
}

func (s *Synchronizer) next() (job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return job{}, false
	}
	j := s.queue[0]
	s.queue[0] = job{}
	s.queue = s.queue[1:]
	return j, true
}

func (s *Synchronizer) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.stopCh:
			s.drain()
			return
		case <-s.wake:
		}
		for {
			select {
			case <-s.stopCh:
				s.drain()
				return
			default:
			}
			j, ok := s.next()
			if !ok {
				break
			}
			j.resp <- s.process(j)
		}
	}
}

func (s *Synchronizer) drain() {
	for {
		j, ok := s.next()
		if !ok {
			return
		}
		j.resp <- rejected(KindCanceled, MsgCanceled, s.store.Snapshot())
	}
}

// Close stops accepting gestures, cancels queued ones and waits for the
// operation in flight to finish.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.stopped
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stopCh)
	<-s.stopped
}

func (s *Synchronizer) process(j job) Result {
	defer s.observe(PhaseIdle)

	if err := j.ctx.Err(); err != nil {
		return rejected(KindCanceled, MsgCanceled, s.store.Snapshot())
	}

	if j.reset != nil {
		next, err := s.store.Initialize(*j.reset)
		if err != nil {
			return rejected(KindMalformed, err.Error(), s.store.Snapshot())
		}
		return Result{Status: StatusSettled, Structure: next}
	}

	s.observe(PhaseComputing)
	cur := s.store.Snapshot()
	plan, ok, err := Resolve(cur, j.ev)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			return rejected(re.Kind, re.Message, cur)
		}
		return rejected(KindMalformed, err.Error(), cur)
	}
	if !ok {
		return ignored(cur)
	}
	return s.speculate(j.ctx, s.speculationFor(plan))
}

func (s *Synchronizer) observe(p Phase) {
	s.logger.Debug("reorder phase", slog.String("phase", string(p)))
	if s.observer != nil {
		s.observer(p)
	}
}
