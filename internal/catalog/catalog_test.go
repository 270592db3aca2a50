package catalog

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/learnvex/internal/apperr"
	"github.com/starford/learnvex/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "learnvex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func course(slug string) models.Course {
	return models.Course{
		Title:            "Course " + slug,
		Description:      "A long description about " + slug,
		SmallDescription: "Learn " + slug,
		FileKey:          "thumb.png",
		Price:            49,
		Duration:         10,
		Level:            models.LevelBeginner,
		Category:         "Development",
		Status:           models.StatusDraft,
		Slug:             slug,
	}
}

// seedTree creates a course with chapters c[0..n) holding the given lesson counts.
func seedTree(t *testing.T, db *DB, slug string, lessons ...int) models.Structure {
	t.Helper()
	ctx := context.Background()
	c, err := db.CreateCourse(ctx, course(slug))
	if err != nil {
		t.Fatal(err)
	}
	for i, n := range lessons {
		ch, err := db.CreateChapter(ctx, c.ID, "Chapter")
		if err != nil {
			t.Fatal(err)
		}
		if ch.Position != i+1 {
			t.Fatalf("chapter position = %d, want %d", ch.Position, i+1)
		}
		for j := 0; j < n; j++ {
			l, err := db.CreateLesson(ctx, c.ID, models.Lesson{ChapterID: ch.ID, Title: "Lesson"})
			if err != nil {
				t.Fatal(err)
			}
			if l.Position != j+1 {
				t.Fatalf("lesson position = %d, want %d", l.Position, j+1)
			}
		}
	}
	s, err := db.Structure(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"courses", "chapters", "lessons"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCourseCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	created, err := db.CreateCourse(ctx, course("go-basics"))
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := db.GetCourseBySlug(ctx, "go-basics")
	if err != nil {
		t.Fatalf("GetCourseBySlug: %v", err)
	}
	if got.ID != created.ID || got.Price != 49 {
		t.Errorf("got %+v", got)
	}

	got.Title = "Go Basics, revised"
	updated, err := db.UpdateCourse(ctx, got)
	if err != nil {
		t.Fatalf("UpdateCourse: %v", err)
	}
	if updated.Title != "Go Basics, revised" || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	if err := db.DeleteCourse(ctx, created.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if _, err := db.GetCourse(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	if err := db.DeleteCourse(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestCreateCourse_DuplicateSlug(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, err := db.CreateCourse(ctx, course("dup")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateCourse(ctx, course("dup")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestListCourses_NewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		if _, err := db.CreateCourse(ctx, course(s)); err != nil {
			t.Fatal(err)
		}
	}
	list, total, err := db.ListCourses(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(list) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(list))
	}
	if list[0].Slug != "c" || list[1].Slug != "b" {
		t.Errorf("order = %s,%s", list[0].Slug, list[1].Slug)
	}
}

func TestSearchCourses(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, err := db.CreateCourse(ctx, course("kubernetes")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateCourse(ctx, course("rust")); err != nil {
		t.Fatal(err)
	}
	res, err := db.SearchCourses(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Slug != "kubernetes" {
		t.Errorf("results = %+v", res)
	}
}

func TestStructure_OrderedAndCascade(t *testing.T) {
	db := testDB(t)
	s := seedTree(t, db, "tree", 3, 0, 1)
	if len(s.Chapters) != 3 {
		t.Fatalf("chapters = %d", len(s.Chapters))
	}
	if len(s.Chapters[0].Lessons) != 3 || len(s.Chapters[1].Lessons) != 0 {
		t.Fatalf("lesson counts = %d,%d", len(s.Chapters[0].Lessons), len(s.Chapters[1].Lessons))
	}
	for _, l := range s.Chapters[0].Lessons {
		if l.ChapterID != s.Chapters[0].ID {
			t.Errorf("lesson %s chapter = %s", l.ID, l.ChapterID)
		}
	}

	ctx := context.Background()
	if err := db.DeleteCourse(ctx, s.CourseID); err != nil {
		t.Fatal(err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM lessons`).Scan(&n)
	if n != 0 {
		t.Errorf("lessons left after cascade: %d", n)
	}
}

func TestStructure_UnknownCourse(t *testing.T) {
	db := testDB(t)
	if _, err := db.Structure(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestCreateLesson_ChapterOfOtherCourse(t *testing.T) {
	db := testDB(t)
	a := seedTree(t, db, "a", 0)
	b := seedTree(t, db, "b", 0)
	_, err := db.CreateLesson(context.Background(), b.CourseID, models.Lesson{ChapterID: a.Chapters[0].ID, Title: "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestReorderChapters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := seedTree(t, db, "r", 0, 0, 0)
	c1, c2, c3 := s.Chapters[0].ID, s.Chapters[1].ID, s.Chapters[2].ID

	err := db.ReorderChapters(ctx, s.CourseID, []models.PositionUpdate{
		{ID: c3, Position: 1}, {ID: c1, Position: 2}, {ID: c2, Position: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := db.Structure(ctx, s.CourseID)
	var order []string
	for _, ch := range got.Chapters {
		order = append(order, ch.ID)
	}
	if diff := cmp.Diff([]string{c3, c1, c2}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestReorderChapters_ForeignIDRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := seedTree(t, db, "r", 0, 0)
	other := seedTree(t, db, "o", 0)

	err := db.ReorderChapters(ctx, s.CourseID, []models.PositionUpdate{
		{ID: s.Chapters[1].ID, Position: 1},
		{ID: other.Chapters[0].ID, Position: 2},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	got, _ := db.Structure(ctx, s.CourseID)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("partial write (-want +got):\n%s", diff)
	}
}

func TestReorderLessons_ScopedToChapter(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := seedTree(t, db, "r", 3, 1)
	ch := s.Chapters[0]
	l1, l2, l3 := ch.Lessons[0].ID, ch.Lessons[1].ID, ch.Lessons[2].ID

	err := db.ReorderLessons(ctx, ch.ID, []models.PositionUpdate{
		{ID: l2, Position: 1}, {ID: l3, Position: 2}, {ID: l1, Position: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := db.Structure(ctx, s.CourseID)
	var order []string
	for _, l := range got.Chapters[0].Lessons {
		order = append(order, l.ID)
	}
	if diff := cmp.Diff([]string{l2, l3, l1}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Chapters[1], got.Chapters[1]); diff != "" {
		t.Errorf("other chapter changed:\n%s", diff)
	}

	err = db.ReorderLessons(ctx, ch.ID, []models.PositionUpdate{{ID: s.Chapters[1].Lessons[0].ID, Position: 1}})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign lesson err = %v", err)
	}
}

func TestImportCourse(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	got, err := db.ImportCourse(ctx, course("go-import"), []models.Chapter{
		{Title: "Intro", Lessons: []models.Lesson{{Title: "Install"}, {Title: "Hello"}}},
		{Title: "Types"},
	})
	if err != nil {
		t.Fatal(err)
	}
	stored, err := db.Structure(ctx, got.CourseID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, stored); diff != "" {
		t.Errorf("stored structure (-imported +stored):\n%s", diff)
	}
	if stored.Chapters[0].Lessons[1].Position != 2 || stored.Chapters[1].Position != 2 {
		t.Errorf("positions not dense: %+v", stored)
	}
}

func TestImportCourse_FailureStoresNothing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.ImportCourse(ctx, course("go-broken"), []models.Chapter{
		{ID: "dup", Title: "One"},
		{ID: "dup", Title: "Two"},
	})
	if err == nil {
		t.Fatal("expected duplicate chapter id to fail")
	}
	if _, err := db.GetCourseBySlug(ctx, "go-broken"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("course left behind after failed import: %v", err)
	}
}
