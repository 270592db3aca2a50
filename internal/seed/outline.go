// Package seed imports course outlines written as YAML files.
package seed

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/starford/learnvex/internal/courseservice"
)

// Outline is one course with its chapters and lessons as written on disk.
//
//	slug: go-basics
//	title: Go Basics
//	chapters:
//	  - title: Getting started
//	    lessons:
//	      - title: Installing Go
type Outline struct {
	Slug             string           `yaml:"slug"`
	Title            string           `yaml:"title"`
	Description      string           `yaml:"description"`
	SmallDescription string           `yaml:"small_description"`
	FileKey          string           `yaml:"file_key"`
	Price            int              `yaml:"price"`
	Duration         int              `yaml:"duration"`
	Level            string           `yaml:"level"`
	Category         string           `yaml:"category"`
	Status           string           `yaml:"status"`
	Chapters         []ChapterOutline `yaml:"chapters"`
}

// ChapterOutline is a chapter in file order.
type ChapterOutline struct {
	Title   string          `yaml:"title"`
	Lessons []LessonOutline `yaml:"lessons"`
}

// LessonOutline is a lesson in file order.
type LessonOutline struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	ThumbnailKey string `yaml:"thumbnail_key"`
	VideoKey     string `yaml:"video_key"`
}

// Parse decodes a YAML outline.
func Parse(data []byte) (Outline, error) {
	var o Outline
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Outline{}, fmt.Errorf("seed: parse outline: %w", err)
	}
	if o.Slug == "" {
		return Outline{}, fmt.Errorf("seed: outline has no slug")
	}
	return o, nil
}

// Course returns the course fields of o.
func (o Outline) Course() courseservice.CourseInput {
	return courseservice.CourseInput{
		Title:            o.Title,
		Description:      o.Description,
		SmallDescription: o.SmallDescription,
		FileKey:          o.FileKey,
		Price:            o.Price,
		Duration:         o.Duration,
		Level:            o.Level,
		Category:         o.Category,
		Status:           o.Status,
		Slug:             o.Slug,
	}
}

// Structure returns the chapters and lessons of o in file order.
func (o Outline) Structure() []courseservice.ChapterOutline {
	out := make([]courseservice.ChapterOutline, len(o.Chapters))
	for i, ch := range o.Chapters {
		out[i].Title = ch.Title
		out[i].Lessons = make([]courseservice.LessonInput, len(ch.Lessons))
		for j, l := range ch.Lessons {
			out[i].Lessons[j] = courseservice.LessonInput{
				Title:        l.Title,
				Description:  l.Description,
				ThumbnailKey: l.ThumbnailKey,
				VideoKey:     l.VideoKey,
			}
		}
	}
	return out
}
