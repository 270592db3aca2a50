package structure

import (
	"fmt"
	"slices"

	"github.com/starford/learnvex/internal/models"
)

// Move returns a new slice with the element at from removed and reinserted at
// to. Elements between the two indices shift by one; items is not modified.
func Move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, fmt.Errorf("%w: move %d -> %d in %d items", ErrIndexOutOfRange, from, to, n)
	}
	out := make([]T, 0, n)
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	return slices.Insert(out, to, items[from]), nil
}

// renumberChapters sets every chapter position to its 1-based index.
func renumberChapters(chapters []models.Chapter) {
	for i := range chapters {
		chapters[i].Position = i + 1
	}
}

// renumberLessons sets every lesson position to its 1-based index.
func renumberLessons(lessons []models.Lesson) {
	for i := range lessons {
		lessons[i].Position = i + 1
	}
}
