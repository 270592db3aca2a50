package seed

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/testutil"
)

const goBasics = `slug: go-basics
title: Go Basics
description: Types, functions and packages.
small_description: Start with Go
file_key: go-basics.png
price: 20
duration: 4
level: Beginner
category: Development
status: Published
chapters:
  - title: Getting started
    lessons:
      - title: Installing Go
      - title: Hello, world
        video_key: hello.mp4
  - title: Types
    lessons:
      - title: Structs
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestParse(t *testing.T) {
	o, err := Parse([]byte(goBasics))
	if err != nil {
		t.Fatal(err)
	}
	if o.Slug != "go-basics" || o.SmallDescription != "Start with Go" {
		t.Errorf("outline = %+v", o)
	}
	if len(o.Chapters) != 2 || len(o.Chapters[0].Lessons) != 2 {
		t.Fatalf("chapters = %+v", o.Chapters)
	}
	if o.Chapters[0].Lessons[1].VideoKey != "hello.mp4" {
		t.Errorf("video key = %q", o.Chapters[0].Lessons[1].VideoKey)
	}
}

func TestParse_RequiresSlug(t *testing.T) {
	if _, err := Parse([]byte("title: No slug\n")); err == nil {
		t.Error("expected error for outline without slug")
	}
	if _, err := Parse([]byte("chapters: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestSync_ImportsInFileOrder(t *testing.T) {
	svc := courseservice.NewService(testutil.TestDB(t), nil, nil)
	dir := t.TempDir()
	writeFile(t, dir, "go-basics.yaml", goBasics)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "broken.yml", "slug: [")

	ctx := context.Background()
	created, err := Sync(ctx, svc, dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"go-basics"}, created); diff != "" {
		t.Errorf("created (-want +got):\n%s", diff)
	}

	courses, _, err := svc.ListCourses(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := svc.Structure(ctx, courses[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, ch := range tree.Chapters {
		titles = append(titles, ch.Title)
		for _, l := range ch.Lessons {
			titles = append(titles, "  "+l.Title)
		}
	}
	want := []string{"Getting started", "  Installing Go", "  Hello, world", "Types", "  Structs"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("structure (-want +got):\n%s", diff)
	}
}

func TestSync_SkipsExistingSlugs(t *testing.T) {
	svc := courseservice.NewService(testutil.TestDB(t), nil, nil)
	dir := t.TempDir()
	writeFile(t, dir, "go-basics.yaml", goBasics)

	ctx := context.Background()
	if _, err := Sync(ctx, svc, dir, quietLogger()); err != nil {
		t.Fatal(err)
	}
	created, err := Sync(ctx, svc, dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Errorf("second sync created %v", created)
	}
	_, total, _ := svc.ListCourses(ctx, 10, 0)
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestSync_InvalidLessonLeavesNothingBehind(t *testing.T) {
	svc := courseservice.NewService(testutil.TestDB(t), nil, nil)
	dir := t.TempDir()
	broken := strings.Replace(goBasics, "      - title: Structs", "      - title: \"\"", 1)
	writeFile(t, dir, "go-basics.yaml", broken)

	ctx := context.Background()
	created, err := Sync(ctx, svc, dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Errorf("created %v from an invalid outline", created)
	}
	if _, total, _ := svc.ListCourses(ctx, 10, 0); total != 0 {
		t.Fatalf("courses after failed import = %d, want 0", total)
	}

	writeFile(t, dir, "go-basics.yaml", goBasics)
	created, err = Sync(ctx, svc, dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"go-basics"}, created); diff != "" {
		t.Errorf("created after fix (-want +got):\n%s", diff)
	}
	courses, _, _ := svc.ListCourses(ctx, 10, 0)
	tree, err := svc.Structure(ctx, courses[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Chapters) != 2 || len(tree.Chapters[1].Lessons) != 1 {
		t.Errorf("structure after fix = %+v", tree)
	}
}

func TestWatch_ImportsNewOutline(t *testing.T) {
	svc := courseservice.NewService(testutil.TestDB(t), nil, nil)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var imported []string
	go Watch(ctx, svc, dir, quietLogger(), func(slugs []string) {
		mu.Lock()
		imported = append(imported, slugs...)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "go-basics.yaml", goBasics)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(imported) == 1 && imported[0] == "go-basics"
	}, "outline not imported by watcher")
}

func TestWatch_NewDirWatched(t *testing.T) {
	svc := courseservice.NewService(testutil.TestDB(t), nil, nil)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "backend")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	writeFile(t, sub, "go-basics.yml", goBasics)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		slugs, _ := svc.Slugs(context.Background())
		_, ok := slugs["go-basics"]
		return ok
	}, "outline in new subdir not imported")
}
