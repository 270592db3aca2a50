package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/learnvex/internal/models"
	"github.com/starford/learnvex/internal/reorder"
)

// memBackend serves and persists one course structure in memory.
type memBackend struct {
	mu    sync.Mutex
	s     models.Structure
	loads int
	fail  bool

	// persisting, when set, is closed by the first chapter reorder, which
	// then waits for release.
	persisting chan struct{}
	release    chan struct{}
}

func (b *memBackend) Structure(_ context.Context, courseID string) (models.Structure, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if courseID != b.s.CourseID {
		return models.Structure{}, errors.New("not found")
	}
	b.loads++
	return b.s.Clone(), nil
}

func (b *memBackend) ReorderChapters(_ context.Context, _ string, items []models.PositionUpdate) (models.Response, error) {
	if b.persisting != nil {
		close(b.persisting)
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return models.Failure("Failed to reorder chapters"), nil
	}
	for _, u := range items {
		b.s.Chapters[b.s.ChapterIndex(u.ID)].Position = u.Position
	}
	return models.Success("Chapters reordered Successfully"), nil
}

func (b *memBackend) ReorderLessons(_ context.Context, _, chapterID string, items []models.PositionUpdate) (models.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return models.Response{}, errors.New("connection reset")
	}
	ch := &b.s.Chapters[b.s.ChapterIndex(chapterID)]
	for _, u := range items {
		ch.Lessons[ch.LessonIndex(u.ID)].Position = u.Position
	}
	return models.Success("Lessons reordered Successfully"), nil
}

func backend() *memBackend {
	return &memBackend{s: models.Structure{
		CourseID: "go-101",
		Chapters: []models.Chapter{
			{ID: "c2", Title: "Two", Position: 2, Lessons: []models.Lesson{{ID: "l3", Position: 1}}},
			{ID: "c1", Title: "One", Position: 1, Lessons: []models.Lesson{
				{ID: "l2", Position: 2}, {ID: "l1", Position: 1},
			}},
		},
	}}
}

func open(t *testing.T, b *memBackend) *Session {
	t.Helper()
	s, err := Open(context.Background(), "go-101", b, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func ids(s models.Structure) []string {
	var out []string
	for _, ch := range s.Chapters {
		out = append(out, ch.ID)
		for _, l := range ch.Lessons {
			out = append(out, l.ID)
		}
	}
	return out
}

func TestOpen_OrdersTree(t *testing.T) {
	s := open(t, backend())
	want := []string{"c1", "l1", "l2", "c2", "l3"}
	if diff := cmp.Diff(want, ids(s.Structure())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if s.Structure().Chapters[0].Lessons[0].ChapterID != "c1" {
		t.Error("lesson back-reference not filled")
	}
}

func TestOpen_LoadError(t *testing.T) {
	if _, err := Open(context.Background(), "missing", backend(), nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestMove_InfersTypes(t *testing.T) {
	b := backend()
	s := open(t, b)

	res, err := s.Move(context.Background(), "c2", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != reorder.StatusSettled || res.Message != "Chapters reordered Successfully" {
		t.Fatalf("result = %+v", res)
	}

	res, err = s.Move(context.Background(), "l1", "l2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != reorder.StatusSettled {
		t.Fatalf("result = %+v", res)
	}

	want := []string{"c2", "l3", "c1", "l2", "l1"}
	if diff := cmp.Diff(want, ids(s.Structure())); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	// A reload from the backend must agree with the optimistic state.
	reloaded, err := s.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, ids(reloaded)); diff != "" {
		t.Errorf("backend disagrees (-want +got):\n%s", diff)
	}
}

func TestMove_CrossChapterLesson(t *testing.T) {
	s := open(t, backend())
	res, err := s.Move(context.Background(), "l1", "l3")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != reorder.KindCrossChapter {
		t.Errorf("kind = %s", res.Kind)
	}
}

func TestMove_UnknownItem(t *testing.T) {
	s := open(t, backend())
	if _, err := s.Move(context.Background(), "nope", "c1"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v", err)
	}
	if _, err := s.Move(context.Background(), "c1", "nope"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("err = %v", err)
	}
	res, err := s.Move(context.Background(), "c1", "")
	if err != nil || res.Status != reorder.StatusIgnored {
		t.Errorf("drop outside target: res = %+v, err = %v", res, err)
	}
}

func TestMove_FailureRollsBack(t *testing.T) {
	b := backend()
	s := open(t, b)
	before := s.Structure()
	b.fail = true

	res, _ := s.Move(context.Background(), "l2", "l1")
	if res.Status != reorder.StatusRolledBack || res.Message != reorder.MsgLessonsFailed {
		t.Fatalf("result = %+v", res)
	}
	if diff := cmp.Diff(before, s.Structure()); diff != "" {
		t.Errorf("not rolled back:\n%s", diff)
	}
}

func TestToggle(t *testing.T) {
	s := open(t, backend())
	got, err := s.Toggle("c2")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Chapters[1].Expanded || got.Chapters[0].Expanded {
		t.Errorf("expanded flags = %v,%v", got.Chapters[0].Expanded, got.Chapters[1].Expanded)
	}
	if _, err := s.Toggle("zz"); err == nil {
		t.Error("expected error for unknown chapter")
	}
}

func TestManager_ReusesSessions(t *testing.T) {
	b := backend()
	m := NewManager(b, b, nil)
	defer m.Close()

	s1, err := m.Session(context.Background(), "go-101")
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := m.Session(context.Background(), "go-101")
	if s1 != s2 {
		t.Error("expected the same session")
	}
	if b.loads != 1 {
		t.Errorf("loads = %d, want 1", b.loads)
	}

	m.Forget("go-101")
	s3, _ := m.Session(context.Background(), "go-101")
	if s3 == s1 {
		t.Error("expected a fresh session after Forget")
	}
}

// gatedLoader blocks loads of the "slow" course until release is closed.
type gatedLoader struct {
	*memBackend
	entered chan struct{}
	release chan struct{}
}

func (g *gatedLoader) Structure(ctx context.Context, courseID string) (models.Structure, error) {
	if courseID == "slow" {
		close(g.entered)
		<-g.release
		return models.Structure{CourseID: "slow", Chapters: []models.Chapter{
			{ID: "s1", Title: "Slow", Position: 1, Lessons: []models.Lesson{}},
		}}, nil
	}
	return g.memBackend.Structure(ctx, courseID)
}

func TestManager_SlowLoadDoesNotBlockOtherCourses(t *testing.T) {
	b := backend()
	g := &gatedLoader{memBackend: b, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(g, b, nil)
	defer m.Close()

	slowDone := make(chan error, 1)
	go func() {
		_, err := m.Session(context.Background(), "slow")
		slowDone <- err
	}()
	<-g.entered

	fast := make(chan error, 1)
	go func() {
		_, err := m.Session(context.Background(), "go-101")
		fast <- err
	}()
	select {
	case err := <-fast:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("opening another course blocked behind a slow load")
	}

	close(g.release)
	if err := <-slowDone; err != nil {
		t.Fatal(err)
	}
}

func TestToggle_DuringFailedPersistenceIsRolledBack(t *testing.T) {
	b := backend()
	b.fail = true
	b.persisting = make(chan struct{})
	b.release = make(chan struct{})
	s := open(t, b)

	done := make(chan reorder.Result, 1)
	go func() {
		res, _ := s.Move(context.Background(), "c2", "c1")
		done <- res
	}()
	<-b.persisting

	toggled, err := s.Toggle("c1")
	if err != nil {
		t.Fatal(err)
	}
	if !toggled.Chapters[1].Expanded {
		t.Fatal("toggle not visible while persisting")
	}

	close(b.release)
	res := <-done
	if res.Status != reorder.StatusRolledBack {
		t.Fatalf("status = %s, want rolled_back", res.Status)
	}
	after := s.Structure()
	if diff := cmp.Diff([]string{"c1", "l1", "l2", "c2", "l3"}, ids(after)); diff != "" {
		t.Errorf("order after rollback (-want +got):\n%s", diff)
	}
	if after.Chapters[0].Expanded {
		t.Error("toggle made during the failed reorder survived the rollback")
	}
}
