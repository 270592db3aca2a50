package structure

import (
	"fmt"
	"sort"

	"github.com/starford/learnvex/internal/models"
)

// normalize orders chapters and lessons by position and checks that the tree
// is well formed: unique ids, lesson back-references matching their owner and
// dense 1-based positions in every scope. s is consumed; callers pass a clone.
func normalize(s models.Structure) (models.Structure, error) {
	sort.SliceStable(s.Chapters, func(i, j int) bool {
		return s.Chapters[i].Position < s.Chapters[j].Position
	})

	seen := make(map[string]struct{})
	for i := range s.Chapters {
		ch := &s.Chapters[i]
		if ch.ID == "" {
			return models.Structure{}, fmt.Errorf("%w: chapter at index %d has no id", ErrMalformed, i)
		}
		if _, dup := seen[ch.ID]; dup {
			return models.Structure{}, fmt.Errorf("%w: duplicate id %q", ErrMalformed, ch.ID)
		}
		seen[ch.ID] = struct{}{}
		if ch.Position != i+1 {
			return models.Structure{}, fmt.Errorf("%w: chapter %q has position %d, want %d", ErrMalformed, ch.ID, ch.Position, i+1)
		}

		sort.SliceStable(ch.Lessons, func(a, b int) bool {
			return ch.Lessons[a].Position < ch.Lessons[b].Position
		})
		for j := range ch.Lessons {
			l := &ch.Lessons[j]
			if l.ID == "" {
				return models.Structure{}, fmt.Errorf("%w: lesson at index %d of chapter %q has no id", ErrMalformed, j, ch.ID)
			}
			if _, dup := seen[l.ID]; dup {
				return models.Structure{}, fmt.Errorf("%w: duplicate id %q", ErrMalformed, l.ID)
			}
			seen[l.ID] = struct{}{}
			switch l.ChapterID {
			case "":
				l.ChapterID = ch.ID
			case ch.ID:
			default:
				return models.Structure{}, fmt.Errorf("%w: lesson %q references chapter %q but is owned by %q", ErrMalformed, l.ID, l.ChapterID, ch.ID)
			}
			if l.Position != j+1 {
				return models.Structure{}, fmt.Errorf("%w: lesson %q has position %d, want %d", ErrMalformed, l.ID, l.Position, j+1)
			}
		}
	}
	return s, nil
}
