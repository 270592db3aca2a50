// Package reorder turns completed drag gestures into optimistic structure
// updates that are persisted and rolled back on failure.
package reorder

import (
	"errors"
	"fmt"
)

// ItemType distinguishes draggable chapters from draggable lessons.
type ItemType string

const (
	ItemChapter ItemType = "chapter"
	ItemLesson  ItemType = "lesson"
)

// Item identifies one side of a drag gesture. ChapterID is the owning
// chapter and is only meaningful for lessons.
type Item struct {
	ID        string   `json:"id"`
	Type      ItemType `json:"type"`
	ChapterID string   `json:"chapter_id,omitempty"`
}

// DragEnd is a completed drag gesture. Over is nil when the item was
// released outside any drop target.
type DragEnd struct {
	Active Item  `json:"active"`
	Over   *Item `json:"over,omitempty"`
}

// Status is the terminal state of one reorder operation.
type Status string

const (
	// StatusIgnored means the gesture needed no work (no target, or dropped on itself).
	StatusIgnored Status = "ignored"
	// StatusSettled means the optimistic state was confirmed by the persister.
	StatusSettled Status = "settled"
	// StatusRejected means validation failed before anything was applied.
	StatusRejected Status = "rejected"
	// StatusRolledBack means persistence failed and the pre-image was restored.
	StatusRolledBack Status = "rolled_back"
)

// Kind classifies failures.
type Kind string

const (
	KindTargetUnresolved Kind = "target_unresolved"
	KindCrossChapter     Kind = "cross_chapter"
	KindPersistence      Kind = "persistence"
	KindMalformed        Kind = "malformed"
	KindCanceled         Kind = "canceled"
)

// Phase is a step of the per-operation state machine.
type Phase string

const (
	PhaseComputing             Phase = "computing"
	PhaseOptimisticallyApplied Phase = "optimistically_applied"
	PhasePersisting            Phase = "persisting"
	PhaseSettled               Phase = "settled"
	PhaseRolledBack            Phase = "rolled_back"
	PhaseIdle                  Phase = "idle"
)

// Error is the error form of a failed Result.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("reorder: %s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a reorder Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}
