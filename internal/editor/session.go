// Package editor ties a course structure store to its reorder synchronizer
// and a source of server snapshots.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/learnvex/internal/models"
	"github.com/starford/learnvex/internal/reorder"
	"github.com/starford/learnvex/internal/structure"
)

// ErrUnknownItem is returned by Move when an id names no chapter or lesson.
var ErrUnknownItem = errors.New("editor: unknown item")

// Loader fetches the authoritative structure of a course.
type Loader interface {
	Structure(ctx context.Context, courseID string) (models.Structure, error)
}

// Session is one open structure editor for a course.
type Session struct {
	courseID string
	loader   Loader
	store    *structure.Store
	sync     *reorder.Synchronizer
	logger   *slog.Logger
}

// Open loads the course structure and starts a session around it.
func Open(ctx context.Context, courseID string, loader Loader, persister reorder.Persister, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	snap, err := loader.Structure(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load structure: %w", err)
	}

	store := structure.NewStore()
	if _, err := store.Initialize(snap); err != nil {
		store.Close()
		return nil, err
	}

	log := logger.With(slog.String("course_id", courseID))
	return &Session{
		courseID: courseID,
		loader:   loader,
		store:    store,
		sync:     reorder.NewSynchronizer(store, persister, reorder.WithLogger(log)),
		logger:   log,
	}, nil
}

// CourseID returns the course this session edits.
func (s *Session) CourseID() string { return s.courseID }

// Structure returns the current visible tree.
func (s *Session) Structure() models.Structure {
	return s.store.Snapshot()
}

// Toggle flips the expanded flag of a chapter. It writes the store directly
// instead of queueing behind pending gestures, so a toggle made while a
// reorder is being persisted is undone if that reorder rolls back.
func (s *Session) Toggle(chapterID string) (models.Structure, error) {
	return s.store.ToggleExpanded(chapterID)
}

// Drag handles a raw drag-end gesture.
func (s *Session) Drag(ctx context.Context, ev reorder.DragEnd) reorder.Result {
	return s.sync.HandleDragEnd(ctx, ev)
}

// Move drops the item itemID onto ontoID, inferring both item types from the
// current tree. An empty ontoID is a drop outside any target.
func (s *Session) Move(ctx context.Context, itemID, ontoID string) (reorder.Result, error) {
	cur := s.store.Snapshot()
	active, ok := locate(cur, itemID)
	if !ok {
		return reorder.Result{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	ev := reorder.DragEnd{Active: active}
	if ontoID != "" {
		over, ok := locate(cur, ontoID)
		if !ok {
			return reorder.Result{}, fmt.Errorf("%w: %s", ErrUnknownItem, ontoID)
		}
		ev.Over = &over
	}
	return s.sync.HandleDragEnd(ctx, ev), nil
}

// Reload refetches the structure and replaces the local tree once every
// pending gesture has finished.
func (s *Session) Reload(ctx context.Context) (models.Structure, error) {
	snap, err := s.loader.Structure(ctx, s.courseID)
	if err != nil {
		return models.Structure{}, fmt.Errorf("load structure: %w", err)
	}
	if err := s.sync.Reset(ctx, snap); err != nil {
		return models.Structure{}, err
	}
	return s.store.Snapshot(), nil
}

// Close waits for the gesture in flight and releases the session.
func (s *Session) Close() {
	s.sync.Close()
	s.store.Close()
}

func locate(s models.Structure, id string) (reorder.Item, bool) {
	for _, ch := range s.Chapters {
		if ch.ID == id {
			return reorder.Item{ID: id, Type: reorder.ItemChapter}, true
		}
		for _, l := range ch.Lessons {
			if l.ID == id {
				return reorder.Item{ID: id, Type: reorder.ItemLesson, ChapterID: ch.ID}, true
			}
		}
	}
	return reorder.Item{}, false
}
