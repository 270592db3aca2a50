package reorder

import "github.com/starford/learnvex/internal/models"

// Scope is the sibling list a reorder rewrites.
type Scope string

const (
	ScopeChapters Scope = "chapters"
	ScopeLessons  Scope = "lessons"
)

// Plan is a validated array-move within one scope.
type Plan struct {
	Scope     Scope
	ChapterID string // owning chapter for ScopeLessons
	From      int
	To        int
}

// Resolve validates a drag gesture against the current tree and computes the
// array-move it implies. ok is false when the gesture requires no work.
// Validation failures are returned as *Error and never touch any state.
func Resolve(s models.Structure, ev DragEnd) (plan Plan, ok bool, err error) {
	if ev.Over == nil || ev.Over.ID == ev.Active.ID {
		return Plan{}, false, nil
	}
	switch ev.Active.Type {
	case ItemChapter:
		plan, err = resolveChapter(s, ev.Active, *ev.Over)
	case ItemLesson:
		plan, err = resolveLesson(s, ev.Active, *ev.Over)
	default:
		return Plan{}, false, &Error{Kind: KindMalformed, Message: "unknown item type " + string(ev.Active.Type)}
	}
	if err != nil {
		return Plan{}, false, err
	}
	if plan.From == plan.To {
		return Plan{}, false, nil
	}
	return plan, true, nil
}

func resolveChapter(s models.Structure, active, over Item) (Plan, error) {
	var target string
	switch over.Type {
	case ItemChapter:
		target = over.ID
	case ItemLesson:
		target = over.ChapterID
	}
	if target == "" {
		return Plan{}, &Error{Kind: KindTargetUnresolved, Message: MsgChapterUnresolved}
	}

	from := s.ChapterIndex(active.ID)
	to := s.ChapterIndex(target)
	if from < 0 || to < 0 {
		return Plan{}, &Error{Kind: KindTargetUnresolved, Message: MsgChapterUnresolved}
	}
	return Plan{Scope: ScopeChapters, From: from, To: to}, nil
}

func resolveLesson(s models.Structure, active, over Item) (Plan, error) {
	if over.Type != ItemLesson {
		return Plan{}, &Error{Kind: KindTargetUnresolved, Message: MsgLessonTarget}
	}
	if active.ChapterID == "" || active.ChapterID != over.ChapterID {
		return Plan{}, &Error{Kind: KindCrossChapter, Message: MsgCrossChapter}
	}

	idx := s.ChapterIndex(active.ChapterID)
	if idx < 0 {
		return Plan{}, &Error{Kind: KindTargetUnresolved, Message: MsgLessonChapter}
	}
	ch := s.Chapters[idx]
	from := ch.LessonIndex(active.ID)
	to := ch.LessonIndex(over.ID)
	if from < 0 || to < 0 {
		return Plan{}, &Error{Kind: KindTargetUnresolved, Message: MsgLessonUnresolved}
	}
	return Plan{Scope: ScopeLessons, ChapterID: ch.ID, From: from, To: to}, nil
}
