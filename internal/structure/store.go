// Package structure holds the client-side course structure state.
package structure

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/starford/learnvex/internal/models"
)

var (
	ErrMalformed       = errors.New("structure: malformed tree")
	ErrUnknownChapter  = errors.New("structure: unknown chapter")
	ErrIndexOutOfRange = errors.New("structure: index out of range")
	ErrClosed          = errors.New("structure: store closed")
)

// mutation derives the next state from the current one. It must not modify
// cur in place: the store keeps cur as the rollback image.
type mutation func(cur models.Structure) (models.Structure, error)

type request struct {
	mutate mutation // nil for reads
	resp   chan result
}

type result struct {
	next models.Structure
	prev models.Structure
	err  error
}

// Store owns the current structure snapshot.
//
// Concurrency model: a single goroutine owns the snapshot and applies every
// mutation in arrival order. Public methods talk to it over a channel, so
// callers never share the underlying slices. State is copy-on-write; every
// value handed out is a deep copy.
type Store struct {
	reqCh   chan request
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewStore starts an empty store.
func NewStore() *Store {
	s := &Store{
		reqCh:   make(chan request),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.stopped)

	var state models.Structure
	for {
		select {
		case <-s.stopCh:
			return

		case req := <-s.reqCh:
			if req.mutate == nil {
				req.resp <- result{next: state.Clone()}
				continue
			}
			next, err := req.mutate(state)
			if err != nil {
				req.resp <- result{err: err}
				continue
			}
			prev := state
			state = next
			req.resp <- result{next: next.Clone(), prev: prev.Clone()}
		}
	}
}

func (s *Store) do(m mutation) (result, error) {
	if s.closed.Load() {
		return result{}, ErrClosed
	}
	req := request{mutate: m, resp: make(chan result, 1)}
	select {
	case s.reqCh <- req:
	case <-s.stopped:
		return result{}, ErrClosed
	}
	res := <-req.resp
	return res, res.err
}

// Close stops the store loop. Further mutations fail with ErrClosed.
func (s *Store) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}

// Snapshot returns a deep copy of the current state. A closed store yields
// an empty structure.
func (s *Store) Snapshot() models.Structure {
	res, err := s.do(nil)
	if err != nil {
		return models.Structure{}
	}
	return res.next
}

// Initialize replaces the state with a server-provided tree after ordering it
// by position and checking that it is well formed.
func (s *Store) Initialize(snapshot models.Structure) (models.Structure, error) {
	res, err := s.do(func(models.Structure) (models.Structure, error) {
		return normalize(snapshot.Clone())
	})
	return res.next, err
}

// Restore replaces the state wholesale. It is the rollback path and performs
// no validation.
func (s *Store) Restore(snapshot models.Structure) error {
	_, err := s.do(func(models.Structure) (models.Structure, error) {
		return snapshot.Clone(), nil
	})
	return err
}

// ToggleExpanded flips the presentation-only expanded flag of one chapter.
func (s *Store) ToggleExpanded(chapterID string) (models.Structure, error) {
	res, err := s.do(func(cur models.Structure) (models.Structure, error) {
		idx := cur.ChapterIndex(chapterID)
		if idx < 0 {
			return models.Structure{}, fmt.Errorf("%w: %s", ErrUnknownChapter, chapterID)
		}
		next := models.Structure{CourseID: cur.CourseID, Chapters: make([]models.Chapter, len(cur.Chapters))}
		copy(next.Chapters, cur.Chapters)
		next.Chapters[idx].Expanded = !next.Chapters[idx].Expanded
		return next, nil
	})
	return res.next, err
}

// ApplyChapterReorder moves the chapter at fromIndex to toIndex and
// renumbers every chapter. It returns the new state and the state it
// replaced.
func (s *Store) ApplyChapterReorder(fromIndex, toIndex int) (next, prev models.Structure, err error) {
	res, err := s.do(func(cur models.Structure) (models.Structure, error) {
		chapters, err := Move(cur.Chapters, fromIndex, toIndex)
		if err != nil {
			return models.Structure{}, err
		}
		renumberChapters(chapters)
		return models.Structure{CourseID: cur.CourseID, Chapters: chapters}, nil
	})
	return res.next, res.prev, err
}

// ApplyLessonReorder moves a lesson within the named chapter and renumbers
// that chapter's lessons. Sibling chapters are carried over unchanged.
func (s *Store) ApplyLessonReorder(chapterID string, fromIndex, toIndex int) (next, prev models.Structure, err error) {
	res, err := s.do(func(cur models.Structure) (models.Structure, error) {
		idx := cur.ChapterIndex(chapterID)
		if idx < 0 {
			return models.Structure{}, fmt.Errorf("%w: %s", ErrUnknownChapter, chapterID)
		}
		lessons, err := Move(cur.Chapters[idx].Lessons, fromIndex, toIndex)
		if err != nil {
			return models.Structure{}, err
		}
		renumberLessons(lessons)

		next := models.Structure{CourseID: cur.CourseID, Chapters: make([]models.Chapter, len(cur.Chapters))}
		copy(next.Chapters, cur.Chapters)
		next.Chapters[idx].Lessons = lessons
		return next, nil
	})
	return res.next, res.prev, err
}
