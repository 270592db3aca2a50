// Package models defines the domain types for LearnVex.
package models

import "time"

// Course levels.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// Course statuses.
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
	StatusArchived  = "Archived"
)

// Levels lists every accepted course level.
var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// Statuses lists every accepted course status.
var Statuses = []string{StatusDraft, StatusPublished, StatusArchived}

// Categories lists every accepted course category.
var Categories = []string{
	"Development",
	"Business",
	"Finance",
	"IT & Software",
	"Office Productivity",
	"Personal Development",
	"Design",
	"Marketing",
	"Health & Fitness",
	"Music",
	"Teaching & Academics",
}

// Course is the root aggregate of the catalog.
type Course struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	SmallDescription string    `json:"small_description"`
	FileKey          string    `json:"file_key"`
	Price            int       `json:"price"`
	Duration         int       `json:"duration"`
	Level            string    `json:"level"`
	Category         string    `json:"category"`
	Status           string    `json:"status"`
	Slug             string    `json:"slug"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Chapter is an ordered container of lessons within a course.
// Expanded is presentation state only and is never persisted.
type Chapter struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Position int      `json:"position"`
	Expanded bool     `json:"expanded"`
	Lessons  []Lesson `json:"lessons"`
}

// Lesson is a leaf content unit owned by exactly one chapter.
type Lesson struct {
	ID           string `json:"id"`
	ChapterID    string `json:"chapter_id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	VideoKey     string `json:"video_key,omitempty"`
	Position     int    `json:"position"`
}

// Structure is the ordered chapter/lesson tree of one course.
type Structure struct {
	CourseID string    `json:"course_id"`
	Chapters []Chapter `json:"chapters"`
}

// Clone returns a deep copy of s.
func (s Structure) Clone() Structure {
	out := Structure{CourseID: s.CourseID}
	if s.Chapters == nil {
		return out
	}
	out.Chapters = make([]Chapter, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = ch.Clone()
	}
	return out
}

// ChapterIndex returns the index of the chapter with the given id, or -1.
func (s Structure) ChapterIndex(id string) int {
	for i := range s.Chapters {
		if s.Chapters[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of c.
func (c Chapter) Clone() Chapter {
	out := c
	if c.Lessons != nil {
		out.Lessons = make([]Lesson, len(c.Lessons))
		copy(out.Lessons, c.Lessons)
	}
	return out
}

// LessonIndex returns the index of the lesson with the given id, or -1.
func (c Chapter) LessonIndex(id string) int {
	for i := range c.Lessons {
		if c.Lessons[i].ID == id {
			return i
		}
	}
	return -1
}

// ChapterPositions returns the {id, position} list of every chapter in order.
func (s Structure) ChapterPositions() []PositionUpdate {
	out := make([]PositionUpdate, len(s.Chapters))
	for i, ch := range s.Chapters {
		out[i] = PositionUpdate{ID: ch.ID, Position: ch.Position}
	}
	return out
}

// LessonPositions returns the {id, position} list of every lesson in order.
func (c Chapter) LessonPositions() []PositionUpdate {
	out := make([]PositionUpdate, len(c.Lessons))
	for i, l := range c.Lessons {
		out[i] = PositionUpdate{ID: l.ID, Position: l.Position}
	}
	return out
}

// PositionUpdate assigns a new position to a chapter or lesson.
type PositionUpdate struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// Response statuses.
const (
	ResponseSuccess = "success"
	ResponseError   = "error"
)

// Response is the status/message pair returned by mutating catalog operations.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the response signals success.
func (r Response) OK() bool {
	return r.Status == ResponseSuccess
}

// Success builds a success response.
func Success(msg string) Response {
	return Response{Status: ResponseSuccess, Message: msg}
}

// Failure builds an error response.
func Failure(msg string) Response {
	return Response{Status: ResponseError, Message: msg}
}
