package structure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/learnvex/internal/models"
)

func lessons(chapterID string, ids ...string) []models.Lesson {
	out := make([]models.Lesson, len(ids))
	for i, id := range ids {
		out[i] = models.Lesson{ID: id, ChapterID: chapterID, Title: "Lesson " + id, Position: i + 1}
	}
	return out
}

func sample() models.Structure {
	return models.Structure{
		CourseID: "course-1",
		Chapters: []models.Chapter{
			{ID: "c1", Title: "One", Position: 1, Lessons: lessons("c1", "l1", "l2", "l3")},
			{ID: "c2", Title: "Two", Position: 2, Lessons: lessons("c2", "l4")},
			{ID: "c3", Title: "Three", Position: 3},
		},
	}
}

func newStore(t *testing.T, s models.Structure) *Store {
	t.Helper()
	st := NewStore()
	t.Cleanup(st.Close)
	if _, err := st.Initialize(s); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return st
}

func chapterIDs(s models.Structure) []string {
	out := make([]string, len(s.Chapters))
	for i, ch := range s.Chapters {
		out[i] = ch.ID
	}
	return out
}

func TestMove(t *testing.T) {
	in := []string{"a", "b", "c", "d"}
	cases := []struct {
		from, to int
		want     []string
	}{
		{0, 0, []string{"a", "b", "c", "d"}},
		{0, 3, []string{"b", "c", "d", "a"}},
		{3, 0, []string{"d", "a", "b", "c"}},
		{1, 2, []string{"a", "c", "b", "d"}},
		{2, 1, []string{"a", "c", "b", "d"}},
	}
	for _, tc := range cases {
		got, err := Move(in, tc.from, tc.to)
		if err != nil {
			t.Fatalf("Move(%d, %d): %v", tc.from, tc.to, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Move(%d, %d) mismatch (-want +got):\n%s", tc.from, tc.to, diff)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, in); diff != "" {
		t.Errorf("input mutated:\n%s", diff)
	}
}

func TestMove_OutOfRange(t *testing.T) {
	for _, tc := range [][2]int{{-1, 0}, {0, 3}, {3, 0}} {
		if _, err := Move([]int{1, 2, 3}, tc[0], tc[1]); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Move(%d, %d) err = %v, want ErrIndexOutOfRange", tc[0], tc[1], err)
		}
	}
	if _, err := Move([]int{}, 0, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("empty move err = %v", err)
	}
}

func TestInitialize_OrdersByPosition(t *testing.T) {
	in := sample()
	in.Chapters[0], in.Chapters[2] = in.Chapters[2], in.Chapters[0]
	in.Chapters[2].Lessons[0], in.Chapters[2].Lessons[2] = in.Chapters[2].Lessons[2], in.Chapters[2].Lessons[0]

	st := newStore(t, in)
	got := st.Snapshot()
	if diff := cmp.Diff(sample(), got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialize_FillsLessonBackReference(t *testing.T) {
	in := sample()
	in.Chapters[1].Lessons[0].ChapterID = ""
	st := newStore(t, in)
	if got := st.Snapshot().Chapters[1].Lessons[0].ChapterID; got != "c2" {
		t.Errorf("chapter id = %q, want c2", got)
	}
}

func TestInitialize_Malformed(t *testing.T) {
	cases := map[string]func(*models.Structure){
		"gap in chapter positions": func(s *models.Structure) { s.Chapters[2].Position = 5 },
		"duplicate chapter":        func(s *models.Structure) { s.Chapters[1].ID = "c1" },
		"duplicate lesson":         func(s *models.Structure) { s.Chapters[1].Lessons[0].ID = "l1" },
		"foreign back reference":   func(s *models.Structure) { s.Chapters[0].Lessons[1].ChapterID = "c2" },
		"missing id":               func(s *models.Structure) { s.Chapters[0].ID = "" },
		"lesson position gap":      func(s *models.Structure) { s.Chapters[0].Lessons[2].Position = 7 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			st := NewStore()
			defer st.Close()
			in := sample()
			mutate(&in)
			if _, err := st.Initialize(in); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
			if got := st.Snapshot(); len(got.Chapters) != 0 {
				t.Errorf("state changed after rejected initialize: %v", chapterIDs(got))
			}
		})
	}
}

func TestApplyChapterReorder_DenseAndArrayMove(t *testing.T) {
	base := sample()
	n := len(base.Chapters)
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			t.Run(fmt.Sprintf("%d->%d", from, to), func(t *testing.T) {
				st := newStore(t, base)
				next, prev, err := st.ApplyChapterReorder(from, to)
				if err != nil {
					t.Fatalf("ApplyChapterReorder: %v", err)
				}
				if diff := cmp.Diff(base, prev); diff != "" {
					t.Errorf("prev mismatch (-want +got):\n%s", diff)
				}
				wantOrder, _ := Move(chapterIDs(base), from, to)
				if diff := cmp.Diff(wantOrder, chapterIDs(next)); diff != "" {
					t.Errorf("order mismatch (-want +got):\n%s", diff)
				}
				for i, ch := range next.Chapters {
					if ch.Position != i+1 {
						t.Errorf("chapter %s position = %d, want %d", ch.ID, ch.Position, i+1)
					}
				}
				if diff := cmp.Diff(next, st.Snapshot()); diff != "" {
					t.Errorf("store does not hold next:\n%s", diff)
				}
			})
		}
	}
}

func TestApplyChapterReorder_DragLastOntoFirst(t *testing.T) {
	st := newStore(t, sample())
	next, _, err := st.ApplyChapterReorder(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.PositionUpdate{{ID: "c3", Position: 1}, {ID: "c1", Position: 2}, {ID: "c2", Position: 3}}
	if diff := cmp.Diff(want, next.ChapterPositions()); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyChapterReorder_SameIndexIsNoop(t *testing.T) {
	st := newStore(t, sample())
	next, _, err := st.ApplyChapterReorder(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sample(), next); diff != "" {
		t.Errorf("no-op reorder changed state:\n%s", diff)
	}
}

func TestApplyChapterReorder_OutOfRange(t *testing.T) {
	st := newStore(t, sample())
	if _, _, err := st.ApplyChapterReorder(0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff(sample(), st.Snapshot()); diff != "" {
		t.Errorf("state changed:\n%s", diff)
	}
}

func TestApplyLessonReorder_ScopedToChapter(t *testing.T) {
	st := newStore(t, sample())
	next, prev, err := st.ApplyLessonReorder("c1", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []models.PositionUpdate{{ID: "l2", Position: 1}, {ID: "l3", Position: 2}, {ID: "l1", Position: 3}}
	if diff := cmp.Diff(want, next.Chapters[0].LessonPositions()); diff != "" {
		t.Errorf("lesson positions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(prev.Chapters[1:], next.Chapters[1:]); diff != "" {
		t.Errorf("sibling chapters changed:\n%s", diff)
	}
	if diff := cmp.Diff(chapterIDs(prev), chapterIDs(next)); diff != "" {
		t.Errorf("chapter order changed:\n%s", diff)
	}
	if diff := cmp.Diff(sample(), prev); diff != "" {
		t.Errorf("prev mismatch:\n%s", diff)
	}
}

func TestApplyLessonReorder_Errors(t *testing.T) {
	st := newStore(t, sample())
	if _, _, err := st.ApplyLessonReorder("nope", 0, 1); !errors.Is(err, ErrUnknownChapter) {
		t.Errorf("unknown chapter err = %v", err)
	}
	if _, _, err := st.ApplyLessonReorder("c2", 0, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range err = %v", err)
	}
	if _, _, err := st.ApplyLessonReorder("c3", 0, 0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("empty chapter err = %v", err)
	}
	if diff := cmp.Diff(sample(), st.Snapshot()); diff != "" {
		t.Errorf("state changed:\n%s", diff)
	}
}

func TestToggleExpanded(t *testing.T) {
	st := newStore(t, sample())
	next, err := st.ToggleExpanded("c2")
	if err != nil {
		t.Fatal(err)
	}
	if !next.Chapters[1].Expanded || next.Chapters[0].Expanded {
		t.Errorf("expanded flags = %v %v", next.Chapters[0].Expanded, next.Chapters[1].Expanded)
	}
	next, _ = st.ToggleExpanded("c2")
	if next.Chapters[1].Expanded {
		t.Error("second toggle should collapse")
	}
	if _, err := st.ToggleExpanded("zzz"); !errors.Is(err, ErrUnknownChapter) {
		t.Errorf("err = %v", err)
	}
}

func TestRestore(t *testing.T) {
	st := newStore(t, sample())
	_, prev, err := st.ApplyChapterReorder(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Restore(prev); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sample(), st.Snapshot()); diff != "" {
		t.Errorf("restore mismatch:\n%s", diff)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	st := newStore(t, sample())
	snap := st.Snapshot()
	snap.Chapters[0].Lessons[0].Title = "mutated"
	snap.Chapters[0].Title = "mutated"
	if diff := cmp.Diff(sample(), st.Snapshot()); diff != "" {
		t.Errorf("caller mutation leaked into store:\n%s", diff)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	st := newStore(t, sample())
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			if i%2 == 0 {
				_, _, _ = st.ApplyChapterReorder(0, 2)
			} else {
				_, _, _ = st.ApplyLessonReorder("c1", 2, 0)
			}
		}(i)
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	if _, err := normalize(st.Snapshot()); err != nil {
		t.Fatalf("tree no longer well formed: %v", err)
	}
}

func TestClosedStore(t *testing.T) {
	st := NewStore()
	st.Close()
	st.Close()
	if _, _, err := st.ApplyChapterReorder(0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if got := st.Snapshot(); len(got.Chapters) != 0 {
		t.Error("closed store should return empty snapshot")
	}
}
