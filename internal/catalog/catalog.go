package catalog

import (
	"context"

	"github.com/starford/learnvex/internal/models"
)

// Store defines the catalog operations used by the service layer.
// Consumers depend on this interface rather than *DB so tests can swap in
// fakes.
type Store interface {
	CreateCourse(ctx context.Context, c models.Course) (models.Course, error)
	UpdateCourse(ctx context.Context, c models.Course) (models.Course, error)
	GetCourse(ctx context.Context, id string) (models.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (models.Course, error)
	ListCourses(ctx context.Context, limit, offset int) ([]models.Course, int, error)
	DeleteCourse(ctx context.Context, id string) error
	AllSlugs(ctx context.Context) (map[string]struct{}, error)
	SearchCourses(ctx context.Context, query string, limit int) ([]SearchResult, error)

	Structure(ctx context.Context, courseID string) (models.Structure, error)
	CreateChapter(ctx context.Context, courseID, title string) (models.Chapter, error)
	CreateLesson(ctx context.Context, courseID string, l models.Lesson) (models.Lesson, error)
	ImportCourse(ctx context.Context, c models.Course, chapters []models.Chapter) (models.Structure, error)
	ReorderChapters(ctx context.Context, courseID string, updates []models.PositionUpdate) error
	ReorderLessons(ctx context.Context, chapterID string, updates []models.PositionUpdate) error

	Ping() error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// SearchResult is one course search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}
