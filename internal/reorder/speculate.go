package reorder

import (
	"context"
	"log/slog"

	"github.com/starford/learnvex/internal/models"
)

// Persister stores a full scope of new positions. Implementations apply the
// batch atomically: every position is committed or none is.
type Persister interface {
	ReorderChapters(ctx context.Context, courseID string, chapters []models.PositionUpdate) (models.Response, error)
	ReorderLessons(ctx context.Context, courseID, chapterID string, lessons []models.PositionUpdate) (models.Response, error)
}

// speculation is one snapshot, speculate, commit-or-revert transaction.
type speculation struct {
	// mutate applies the change to the store and returns the new state and
	// the state it replaced.
	mutate func() (next, prev models.Structure, err error)
	// persist sends the affected scope of next to the persister.
	persist func(ctx context.Context, next models.Structure) (models.Response, error)
	// failure is reported when persist fails.
	failure string
}

func (s *Synchronizer) speculate(ctx context.Context, sp speculation) Result {
	next, prev, err := sp.mutate()
	if err != nil {
		s.logger.Warn("optimistic apply refused", slog.String("error", err.Error()))
		return rejected(KindMalformed, err.Error(), s.store.Snapshot())
	}
	s.observe(PhaseOptimisticallyApplied)

	s.observe(PhasePersisting)
	resp, err := sp.persist(ctx, next)
	if err == nil && resp.OK() {
		s.observe(PhaseSettled)
		return Result{Status: StatusSettled, Message: resp.Message, Structure: next}
	}

	reason := resp.Message
	if err != nil {
		reason = err.Error()
	}
	s.logger.Warn("reorder persistence failed, rolling back",
		slog.String("course_id", next.CourseID),
		slog.String("reason", reason))

	if rerr := s.store.Restore(prev); rerr != nil {
		s.logger.Error("rollback failed", slog.String("error", rerr.Error()))
	}
	s.observe(PhaseRolledBack)
	return Result{Status: StatusRolledBack, Kind: KindPersistence, Message: sp.failure, Structure: prev}
}

// speculationFor builds the transaction for a validated plan.
func (s *Synchronizer) speculationFor(plan Plan) speculation {
	if plan.Scope == ScopeLessons {
		return speculation{
			mutate: func() (models.Structure, models.Structure, error) {
				return s.store.ApplyLessonReorder(plan.ChapterID, plan.From, plan.To)
			},
			persist: func(ctx context.Context, next models.Structure) (models.Response, error) {
				ch := next.Chapters[next.ChapterIndex(plan.ChapterID)]
				return s.persister.ReorderLessons(ctx, next.CourseID, ch.ID, ch.LessonPositions())
			},
			failure: MsgLessonsFailed,
		}
	}
	return speculation{
		mutate: func() (models.Structure, models.Structure, error) {
			return s.store.ApplyChapterReorder(plan.From, plan.To)
		},
		persist: func(ctx context.Context, next models.Structure) (models.Response, error) {
			return s.persister.ReorderChapters(ctx, next.CourseID, next.ChapterPositions())
		},
		failure: MsgChaptersFailed,
	}
}
