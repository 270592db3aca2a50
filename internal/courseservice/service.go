// Package courseservice coordinates course validation, persistence and change
// notifications.
package courseservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/catalog"
	"github.com/starford/learnvex/internal/checksum"
	"github.com/starford/learnvex/internal/models"
)

// Notifier receives course change events.
type Notifier interface {
	PublishCourseEvent(kind, courseID string)
}

// Event kinds passed to Notifier.
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventDeleted   = "deleted"
	EventStructure = "structure"
)

type nopNotifier struct{}

func (nopNotifier) PublishCourseEvent(string, string) {}

// CourseDetail is a course with its optimistic-locking checksum.
type CourseDetail struct {
	models.Course
	Checksum string `json:"checksum"`
}

// Service coordinates catalog operations.
type Service struct {
	db     catalog.Store
	notify Notifier
	logger *slog.Logger
}

// NewService creates a new course service. notify may be nil.
func NewService(db catalog.Store, notify Notifier, logger *slog.Logger) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, notify: notify, logger: logger}
}

func detail(c models.Course) (*CourseDetail, error) {
	cs, err := checksum.Of(c)
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: c, Checksum: cs}, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

// CreateCourse validates and stores a new course.
func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (*CourseDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.db.GetCourseBySlug(ctx, in.Slug); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	c, err := s.db.CreateCourse(ctx, in.apply(models.Course{}))
	if err != nil {
		return nil, err
	}
	s.notify.PublishCourseEvent(EventCreated, c.ID)
	return detail(c)
}

// ImportCourse validates a course with its whole structure and stores it
// atomically. Nothing is written when any part is invalid.
func (s *Service) ImportCourse(ctx context.Context, in CourseInput, chapters []ChapterOutline) (models.Structure, error) {
	if err := in.Validate(); err != nil {
		return models.Structure{}, invalid(err)
	}
	tree := make([]models.Chapter, len(chapters))
	for i := range chapters {
		if err := chapters[i].Validate(); err != nil {
			return models.Structure{}, invalid(fmt.Errorf("chapter %d: %w", i+1, err))
		}
		ch := models.Chapter{Title: chapters[i].Title, Lessons: make([]models.Lesson, len(chapters[i].Lessons))}
		for j, l := range chapters[i].Lessons {
			ch.Lessons[j] = models.Lesson{
				Title:        l.Title,
				Description:  l.Description,
				ThumbnailKey: l.ThumbnailKey,
				VideoKey:     l.VideoKey,
			}
		}
		tree[i] = ch
	}
	if _, err := s.db.GetCourseBySlug(ctx, in.Slug); err == nil {
		return models.Structure{}, apperr.ErrAlreadyExists
	}
	out, err := s.db.ImportCourse(ctx, in.apply(models.Course{}), tree)
	if err != nil {
		return models.Structure{}, err
	}
	s.notify.PublishCourseEvent(EventCreated, out.CourseID)
	return out, nil
}

// GetCourse returns a course by id.
func (s *Service) GetCourse(ctx context.Context, id string) (*CourseDetail, error) {
	c, err := s.db.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail(c)
}

// UpdateCourse overwrites a course with optimistic concurrency: a non-empty
// ifMatch must equal the checksum of the stored course.
func (s *Service) UpdateCourse(ctx context.Context, id string, in CourseInput, ifMatch string) (*CourseDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	existing, err := s.db.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" {
		cs, err := checksum.Of(existing)
		if err != nil {
			return nil, err
		}
		if ifMatch != cs {
			return nil, apperr.ErrConflict
		}
	}
	if in.Slug != existing.Slug {
		if _, err := s.db.GetCourseBySlug(ctx, in.Slug); err == nil {
			return nil, apperr.ErrAlreadyExists
		}
	}
	c, err := s.db.UpdateCourse(ctx, in.apply(existing))
	if err != nil {
		return nil, err
	}
	s.notify.PublishCourseEvent(EventUpdated, c.ID)
	return detail(c)
}

// DeleteCourse removes a course and its structure.
func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	if err := s.db.DeleteCourse(ctx, id); err != nil {
		return err
	}
	s.notify.PublishCourseEvent(EventDeleted, id)
	return nil
}

// ListCourses returns a page of courses, newest first.
func (s *Service) ListCourses(ctx context.Context, limit, offset int) ([]models.Course, int, error) {
	return s.db.ListCourses(ctx, limit, offset)
}

// Slugs returns the set of slugs already taken.
func (s *Service) Slugs(ctx context.Context) (map[string]struct{}, error) {
	return s.db.AllSlugs(ctx)
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.SearchCourses(ctx, query, limit)
}

// Structure returns the ordered chapter/lesson tree of a course.
func (s *Service) Structure(ctx context.Context, courseID string) (models.Structure, error) {
	return s.db.Structure(ctx, courseID)
}

// CreateChapter appends a chapter to a course.
func (s *Service) CreateChapter(ctx context.Context, courseID string, in ChapterInput) (models.Chapter, error) {
	if err := in.Validate(); err != nil {
		return models.Chapter{}, invalid(err)
	}
	ch, err := s.db.CreateChapter(ctx, courseID, in.Title)
	if err != nil {
		return models.Chapter{}, err
	}
	s.notify.PublishCourseEvent(EventStructure, courseID)
	return ch, nil
}

// CreateLesson appends a lesson to a chapter of a course.
func (s *Service) CreateLesson(ctx context.Context, courseID, chapterID string, in LessonInput) (models.Lesson, error) {
	if err := in.Validate(); err != nil {
		return models.Lesson{}, invalid(err)
	}
	l, err := s.db.CreateLesson(ctx, courseID, models.Lesson{
		ChapterID:    chapterID,
		Title:        in.Title,
		Description:  in.Description,
		ThumbnailKey: in.ThumbnailKey,
		VideoKey:     in.VideoKey,
	})
	if err != nil {
		return models.Lesson{}, err
	}
	s.notify.PublishCourseEvent(EventStructure, courseID)
	return l, nil
}

// isNotFound reports whether err is a missing-entity error.
func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
