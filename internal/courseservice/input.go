package courseservice

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/learnvex/internal/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CourseInput is the editable part of a course.
type CourseInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	SmallDescription string `json:"small_description"`
	FileKey          string `json:"file_key"`
	Price            int    `json:"price"`
	Duration         int    `json:"duration"`
	Level            string `json:"level"`
	Category         string `json:"category"`
	Status           string `json:"status"`
	Slug             string `json:"slug"`
}

// Validate checks the course fields.
func (in *CourseInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title,
			validation.Required.Error("Please provide a title for the course"),
			validation.RuneLength(1, 100).Error("The title shouldn't exceed 100 characters")),
		validation.Field(&in.Description,
			validation.Required.Error("Please provide a description for the course")),
		validation.Field(&in.SmallDescription,
			validation.Required.Error("Please provide a small description for the course"),
			validation.RuneLength(1, 200).Error("The small description shouldn't exceed 200 characters")),
		validation.Field(&in.FileKey,
			validation.Required.Error("File is required")),
		validation.Field(&in.Price,
			validation.Required.Error("The price must be a positive number"),
			validation.Min(1).Error("The price must be a positive number")),
		validation.Field(&in.Duration,
			validation.Required.Error("Duration must be at least 1 hour long"),
			validation.Min(1).Error("Duration must be at least 1 hour long"),
			validation.Max(500).Error("Duration shouldn't exceed 500 hours long")),
		validation.Field(&in.Level,
			validation.Required.Error("Level is required"),
			validation.In(anys(models.Levels)...).Error("Level is required")),
		validation.Field(&in.Category,
			validation.Required.Error("Category is required"),
			validation.In(anys(models.Categories)...).Error("Category is required")),
		validation.Field(&in.Status,
			validation.Required.Error("Status is required"),
			validation.In(anys(models.Statuses)...).Error("Status is required")),
		validation.Field(&in.Slug,
			validation.Required.Error("Please provide a slug"),
			validation.RuneLength(3, 0).Error("Please provide a slug"),
			validation.Match(slugPattern).Error("Slug must be lowercase words separated by hyphens")),
	)
}

func (in CourseInput) apply(c models.Course) models.Course {
	c.Title = in.Title
	c.Description = in.Description
	c.SmallDescription = in.SmallDescription
	c.FileKey = in.FileKey
	c.Price = in.Price
	c.Duration = in.Duration
	c.Level = in.Level
	c.Category = in.Category
	c.Status = in.Status
	c.Slug = in.Slug
	return c
}

// ChapterInput creates a chapter.
type ChapterInput struct {
	Title string `json:"title"`
}

// Validate checks the chapter fields.
func (in *ChapterInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 100)),
	)
}

// LessonInput creates a lesson.
type LessonInput struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailKey string `json:"thumbnail_key"`
	VideoKey     string `json:"video_key"`
}

// Validate checks the lesson fields.
func (in *LessonInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 100)),
	)
}

// ChapterOutline is a chapter with its lessons, used to create a whole course
// structure at once.
type ChapterOutline struct {
	ChapterInput
	Lessons []LessonInput
}

// Validate checks the chapter and every lesson in it.
func (in *ChapterOutline) Validate() error {
	if err := in.ChapterInput.Validate(); err != nil {
		return err
	}
	for i := range in.Lessons {
		if err := in.Lessons[i].Validate(); err != nil {
			return fmt.Errorf("lesson %d: %w", i+1, err)
		}
	}
	return nil
}

func anys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
