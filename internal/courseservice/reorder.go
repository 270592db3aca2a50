package courseservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/models"
)

// Reorder response messages.
const (
	MsgNoChapters        = "No Chapters were found"
	MsgNoLessons         = "No Lessons were found"
	MsgChaptersReordered = "Chapters reordered Successfully"
	MsgLessonsReordered  = "Lessons reordered Successfully"
	MsgChaptersFailed    = "Failed to reorder chapters"
	MsgLessonsFailed     = "Failed to reorder lessons"
	MsgCourseNotFound    = "Course not found"
	MsgChapterNotFound   = "Chapter not found"
)

// ReorderChapters stores new positions for every chapter of a course. The
// returned Response carries the user-facing outcome; err classifies failures
// with apperr sentinels.
func (s *Service) ReorderChapters(ctx context.Context, courseID string, chapters []models.PositionUpdate) (models.Response, error) {
	if len(chapters) == 0 {
		return models.Failure(MsgNoChapters), apperr.ErrInvalidInput
	}
	tree, err := s.db.Structure(ctx, courseID)
	if err != nil {
		return s.lookupFailure(err, MsgCourseNotFound, MsgChaptersFailed)
	}
	ids := make([]string, len(tree.Chapters))
	for i, ch := range tree.Chapters {
		ids[i] = ch.ID
	}
	if err := checkDense(ids, chapters); err != nil {
		return models.Failure(err.Error()), invalid(err)
	}

	if err := s.db.ReorderChapters(ctx, courseID, chapters); err != nil {
		s.logger.Error("reorder chapters failed", slog.String("course_id", courseID), slog.String("error", err.Error()))
		return models.Failure(MsgChaptersFailed), err
	}
	s.notify.PublishCourseEvent(EventStructure, courseID)
	return models.Success(MsgChaptersReordered), nil
}

// ReorderLessons stores new positions for every lesson of one chapter.
func (s *Service) ReorderLessons(ctx context.Context, courseID, chapterID string, lessons []models.PositionUpdate) (models.Response, error) {
	if len(lessons) == 0 {
		return models.Failure(MsgNoLessons), apperr.ErrInvalidInput
	}
	tree, err := s.db.Structure(ctx, courseID)
	if err != nil {
		return s.lookupFailure(err, MsgCourseNotFound, MsgLessonsFailed)
	}
	idx := tree.ChapterIndex(chapterID)
	if idx < 0 {
		return models.Failure(MsgChapterNotFound), fmt.Errorf("chapter %s: %w", chapterID, apperr.ErrNotFound)
	}
	ch := tree.Chapters[idx]
	ids := make([]string, len(ch.Lessons))
	for i, l := range ch.Lessons {
		ids[i] = l.ID
	}
	if err := checkDense(ids, lessons); err != nil {
		return models.Failure(err.Error()), invalid(err)
	}

	if err := s.db.ReorderLessons(ctx, chapterID, lessons); err != nil {
		s.logger.Error("reorder lessons failed",
			slog.String("course_id", courseID),
			slog.String("chapter_id", chapterID),
			slog.String("error", err.Error()))
		return models.Failure(MsgLessonsFailed), err
	}
	s.notify.PublishCourseEvent(EventStructure, courseID)
	return models.Success(MsgLessonsReordered), nil
}

func (s *Service) lookupFailure(err error, notFound, failed string) (models.Response, error) {
	if isNotFound(err) {
		return models.Failure(notFound), err
	}
	s.logger.Error("load structure failed", slog.String("error", err.Error()))
	return models.Failure(failed), err
}

// checkDense verifies that updates name every id of the scope exactly once
// and assign the positions 1..len(ids).
func checkDense(ids []string, updates []models.PositionUpdate) error {
	if len(updates) != len(ids) {
		return fmt.Errorf("expected %d positions, got %d", len(ids), len(updates))
	}
	scope := make(map[string]bool, len(ids))
	for _, id := range ids {
		scope[id] = false
	}
	used := make([]bool, len(ids)+1)
	for _, u := range updates {
		seen, ok := scope[u.ID]
		if !ok {
			return fmt.Errorf("%q is not part of this list", u.ID)
		}
		if seen {
			return fmt.Errorf("%q appears more than once", u.ID)
		}
		scope[u.ID] = true
		if u.Position < 1 || u.Position > len(ids) || used[u.Position] {
			return fmt.Errorf("positions must be 1..%d without gaps or duplicates", len(ids))
		}
		used[u.Position] = true
	}
	return nil
}
