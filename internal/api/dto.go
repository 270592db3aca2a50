package api

import (
	"github.com/starford/learnvex/internal/catalog"
	"github.com/starford/learnvex/internal/courseservice"
	"github.com/starford/learnvex/internal/models"
)

// CourseDetail is the full course response type (aliased from the domain layer).
type CourseDetail = courseservice.CourseDetail

// CourseListResponse wraps paginated course listings.
type CourseListResponse struct {
	Courses []models.Course `json:"courses" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// ReorderRequest carries the full new ordering of one sibling list.
type ReorderRequest struct {
	Items []models.PositionUpdate `json:"items" validate:"required"`
}

// UploadResponse is returned for a presigned upload.
type UploadResponse struct {
	PresignedURL string `json:"presignedUrl" validate:"required"`
	Key          string `json:"key" example:"3f1c...-cover.png" validate:"required"`
}

// DeleteUploadRequest names the object to delete.
type DeleteUploadRequest struct {
	Key string `json:"key" validate:"required"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
