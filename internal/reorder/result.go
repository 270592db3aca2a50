package reorder

import "github.com/starford/learnvex/internal/models"

// Messages surfaced to the user.
const (
	MsgChapterUnresolved = "Could not determine the chapter to re-order"
	MsgCrossChapter      = "Lessons cannot move between different chapters"
	MsgLessonChapter     = "Could not find chapter for the selected lesson"
	MsgLessonUnresolved  = "Could not find the lesson to update"
	MsgLessonTarget      = "Lessons can only be dropped onto other lessons"
	MsgChaptersFailed    = "Failed to reorder chapters"
	MsgLessonsFailed     = "Failed to reorder lessons"
	MsgCanceled          = "Reorder canceled"
)

// Result is what the presentation layer renders after a drag gesture.
// Structure is the visible snapshot once the operation reached its terminal
// state.
type Result struct {
	Status    Status           `json:"status"`
	Kind      Kind             `json:"kind,omitempty"`
	Message   string           `json:"message,omitempty"`
	Structure models.Structure `json:"structure"`
}

// OK reports whether the operation did not fail.
func (r Result) OK() bool {
	return r.Status == StatusSettled || r.Status == StatusIgnored
}

// Err returns nil for successful results and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

func ignored(s models.Structure) Result {
	return Result{Status: StatusIgnored, Structure: s}
}

func rejected(kind Kind, msg string, s models.Structure) Result {
	return Result{Status: StatusRejected, Kind: kind, Message: msg, Structure: s}
}
